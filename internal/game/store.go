package game

import (
	"math"

	"river-strike/internal/config"
)

// Intent is the externally owned control input, sampled once per tick.
type Intent struct {
	MoveX  float64 `json:"moveX"`
	MoveY  float64 `json:"moveY"`
	Firing bool    `json:"firing"`
}

// Sanitized clamps both axes to [-1,1] and maps NaN to 0.
func (in Intent) Sanitized() Intent {
	return Intent{
		MoveX:  unitAxis(in.MoveX),
		MoveY:  unitAxis(in.MoveY),
		Firing: in.Firing,
	}
}

func unitAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, -1, 1)
}

// Frame is the read-only world context for one advance step.
type Frame struct {
	River   *RiverField
	Tuning  *config.Tuning
	Scroll  float64
	Speed   float64
	Elapsed float64
	Intent  Intent
}

// EntityStore owns every live entity of a run. Each category is a dense
// slice; removals are marked during the tick and compacted once at the end.
type EntityStore struct {
	Player        Player
	Enemies       []Enemy
	PlayerBullets []Bullet
	EnemyBullets  []Bullet
	Pickups       []Pickup
	Obstacles     []Obstacle
	Particles     []Particle

	limits config.ResourceLimits
	nextID uint32
}

// NewEntityStore preallocates every collection up to its limit.
func NewEntityStore(limits config.ResourceLimits) *EntityStore {
	return &EntityStore{
		Enemies:       make([]Enemy, 0, limits.MaxEnemies),
		PlayerBullets: make([]Bullet, 0, limits.MaxPlayerBullets),
		EnemyBullets:  make([]Bullet, 0, limits.MaxEnemyBullets),
		Pickups:       make([]Pickup, 0, limits.MaxPickups),
		Obstacles:     make([]Obstacle, 0, limits.MaxObstacles),
		Particles:     make([]Particle, 0, limits.MaxParticles),
		limits:        limits,
	}
}

// Reset empties the store and installs a fresh player. Capacity is kept.
func (s *EntityStore) Reset(p Player) {
	s.Player = p
	s.Enemies = s.Enemies[:0]
	s.PlayerBullets = s.PlayerBullets[:0]
	s.EnemyBullets = s.EnemyBullets[:0]
	s.Pickups = s.Pickups[:0]
	s.Obstacles = s.Obstacles[:0]
	s.Particles = s.Particles[:0]
	s.nextID = 0
}

func (s *EntityStore) newID() uint32 {
	s.nextID++
	return s.nextID
}

// AddEnemy inserts an enemy unless the cap is reached.
func (s *EntityStore) AddEnemy(e Enemy) bool {
	if len(s.Enemies) >= s.limits.MaxEnemies {
		return false
	}
	e.ID = s.newID()
	s.Enemies = append(s.Enemies, e)
	return true
}

// AddPickup inserts a pickup unless the cap is reached.
func (s *EntityStore) AddPickup(p Pickup) bool {
	if len(s.Pickups) >= s.limits.MaxPickups {
		return false
	}
	p.ID = s.newID()
	s.Pickups = append(s.Pickups, p)
	return true
}

// AddObstacle inserts an obstacle unless the cap is reached.
func (s *EntityStore) AddObstacle(o Obstacle) bool {
	if len(s.Obstacles) >= s.limits.MaxObstacles {
		return false
	}
	o.ID = s.newID()
	s.Obstacles = append(s.Obstacles, o)
	return true
}

// AddPlayerBullet inserts a player shot unless the cap is reached.
func (s *EntityStore) AddPlayerBullet(b Bullet) bool {
	if len(s.PlayerBullets) >= s.limits.MaxPlayerBullets {
		return false
	}
	s.PlayerBullets = append(s.PlayerBullets, b)
	return true
}

// AddEnemyBullet inserts an enemy shot unless the cap is reached.
func (s *EntityStore) AddEnemyBullet(b Bullet) bool {
	if len(s.EnemyBullets) >= s.limits.MaxEnemyBullets {
		return false
	}
	s.EnemyBullets = append(s.EnemyBullets, b)
	return true
}

// AddParticle drops debris silently once the cap is reached.
func (s *EntityStore) AddParticle(p Particle) {
	if len(s.Particles) >= s.limits.MaxParticles {
		return
	}
	s.Particles = append(s.Particles, p)
}

// CountEnemies returns live enemies of the given kind.
func (s *EntityStore) CountEnemies(kind EnemyKind) int {
	n := 0
	for i := range s.Enemies {
		if s.Enemies[i].Kind == kind && !s.Enemies[i].Dead {
			n++
		}
	}
	return n
}

// Advance moves every entity by dt under the rules of its kind.
func (s *EntityStore) Advance(dt float64, f Frame) {
	t := f.Tuning

	s.advancePlayer(dt, f)

	for i := range s.Enemies {
		e := &s.Enemies[i]
		if e.Dead {
			continue
		}
		if e.FireCD > 0 {
			e.FireCD = math.Max(0, e.FireCD-dt)
		}

		switch e.Kind {
		case EnemyKamikaze:
			dx := s.Player.X - e.X
			dy := s.Player.Y - e.Y
			dist := math.Hypot(dx, dy)
			if dist == 0 {
				dx, dy, dist = 0, -1, 1
			}
			step := t.Enemies.KamikazeSpeed * dt
			e.X += dx / dist * step
			e.Y += dy / dist * step

		case EnemyBoss:
			e.Y += e.Drift * f.Speed * dt
			e.X += math.Sin(f.Elapsed*t.Enemies.BossSweepRate) * t.Enemies.BossSweep * dt
			ch := f.River.At(e.Y)
			e.X = clampToChannel(e.X, ch, t.Enemies.BossInset)

		default:
			e.Y += e.Drift * f.Speed * dt
			ch := f.River.At(e.Y)
			half := ch.Width/2 - t.Enemies.BankInset
			nx := e.X + e.VX*dt
			if half <= 0 {
				nx = ch.Center
			} else if nx < ch.Center-half || nx > ch.Center+half {
				e.VX = -e.VX
				nx = clamp(nx, ch.Center-half, ch.Center+half)
			}
			e.X = nx
		}
	}

	advanceBullets(s.PlayerBullets, dt)
	advanceBullets(s.EnemyBullets, dt)

	for i := range s.Pickups {
		p := &s.Pickups[i]
		p.Y += t.Pickups.Drift * f.Speed * dt
		ch := f.River.At(p.Y)
		p.X += (ch.Center - p.X) * math.Min(1, t.Pickups.Pull*dt)
		p.X = clampToChannel(p.X, ch, t.Pickups.EdgeInset)
	}

	for i := range s.Obstacles {
		o := &s.Obstacles[i]
		o.Y += o.Drift * f.Speed * dt
		if o.Kind == ObstacleBridge {
			ch := f.River.At(o.Y)
			o.Left, o.Right = ch.Left(), ch.Right()
			o.X = ch.Center
		}
	}

	s.advanceParticles(dt, t.Particles.Drag)
}

func (s *EntityStore) advancePlayer(dt float64, f Frame) {
	t := f.Tuning.Player
	p := &s.Player
	in := f.Intent.Sanitized()

	p.X += in.MoveX * t.SpeedX * dt
	p.X = clamp(p.X, t.EdgeInset, f.Tuning.River.FieldWidth-t.EdgeInset)

	// Screen-down input pulls the aircraft back toward the viewport bottom.
	p.Offset -= in.MoveY * t.SpeedY * dt
	p.Offset = clamp(p.Offset, t.MinOffset, t.MaxOffset)
	p.Y = f.Scroll + p.Offset

	p.Cooldown = math.Max(0, p.Cooldown-dt)
	p.Invuln = math.Max(0, p.Invuln-dt)
	p.Shield = math.Max(0, p.Shield-dt)
	p.Double = math.Max(0, p.Double-dt)
	p.FuelAlarm = math.Max(0, p.FuelAlarm-dt)
}

func advanceBullets(bullets []Bullet, dt float64) {
	for i := range bullets {
		b := &bullets[i]
		b.X += b.VX * dt
		b.Y += b.VY * dt
		b.Traveled += math.Hypot(b.VX, b.VY) * dt
	}
}

func (s *EntityStore) advanceParticles(dt, drag float64) {
	damp := math.Pow(drag, dt*60)
	n := 0
	for _, p := range s.Particles {
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.VX *= damp
		p.VY *= damp
		p.Life -= dt
		if p.Life > 0 {
			s.Particles[n] = p
			n++
		}
	}
	s.Particles = s.Particles[:n]
}

// Despawn marks everything outside the live window and compacts the store.
func (s *EntityStore) Despawn(scroll float64, t *config.Tuning) {
	behind := scroll - t.Spawn.DespawnMargin
	ahead := scroll + t.Spawn.Horizon + t.Spawn.AheadSlack
	bulletLimit := scroll + t.Spawn.ViewDepth + t.Player.BulletOvershoot

	for i := range s.Enemies {
		if e := &s.Enemies[i]; e.Y < behind || e.Y > ahead {
			e.Dead = true
		}
	}
	for i := range s.Pickups {
		if p := &s.Pickups[i]; p.Y < behind || p.Y > ahead {
			p.Dead = true
		}
	}
	for i := range s.Obstacles {
		if o := &s.Obstacles[i]; o.Y+o.Deck < behind || o.Y > ahead {
			o.Dead = true
		}
	}
	for i := range s.PlayerBullets {
		if b := &s.PlayerBullets[i]; b.Y > bulletLimit || b.Y < behind {
			b.Dead = true
		}
	}
	for i := range s.EnemyBullets {
		if b := &s.EnemyBullets[i]; b.Traveled > t.Enemies.BulletTravel || b.Y < behind || b.Y > ahead {
			b.Dead = true
		}
	}

	s.Compact()
}

// Compact drops every entity marked Dead, preserving order.
func (s *EntityStore) Compact() {
	s.Enemies = compact(s.Enemies, func(e *Enemy) bool { return e.Dead })
	s.PlayerBullets = compact(s.PlayerBullets, func(b *Bullet) bool { return b.Dead })
	s.EnemyBullets = compact(s.EnemyBullets, func(b *Bullet) bool { return b.Dead })
	s.Pickups = compact(s.Pickups, func(p *Pickup) bool { return p.Dead })
	s.Obstacles = compact(s.Obstacles, func(o *Obstacle) bool { return o.Dead })
}

// compact filters in place without allocating.
func compact[T any](items []T, dead func(*T) bool) []T {
	n := 0
	for i := range items {
		if !dead(&items[i]) {
			items[n] = items[i]
			n++
		}
	}
	return items[:n]
}

func clampToChannel(x float64, ch Channel, inset float64) float64 {
	lo, hi := ch.Left()+inset, ch.Right()-inset
	if lo > hi {
		return ch.Center
	}
	return clamp(x, lo, hi)
}
