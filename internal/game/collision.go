package game

import (
	"math"

	"river-strike/internal/config"
	"river-strike/internal/game/spatial"
)

// Damage causes reported in playerDamaged events.
const (
	CauseBank        = "bank"
	CauseEnemy       = "enemy"
	CauseEnemyBullet = "enemyBullet"
	CauseIsland      = "island"
	CauseBridge      = "bridge"
	CauseFuel        = "fuel"
)

const broadphaseCell = 64.0

// CollisionResolver runs every pairwise interaction once per tick, after
// motion. Enemies go through a grid rebuilt each tick; the rest are small
// enough for direct scans.
type CollisionResolver struct {
	grid      *spatial.Grid
	originY   float64
	maxRadius float64
}

// NewCollisionResolver sizes the broad-phase grid to the live window.
func NewCollisionResolver(t *config.Tuning, limits config.ResourceLimits) *CollisionResolver {
	depth := t.Spawn.DespawnMargin + t.Spawn.Horizon + t.Spawn.AheadSlack
	return &CollisionResolver{
		grid: spatial.NewGrid(t.River.FieldWidth, depth, broadphaseCell, limits.MaxEnemies),
	}
}

// Resolve applies every interaction to the session in a fixed order. It
// stops as soon as the run ends.
func (c *CollisionResolver) Resolve(s *Session) {
	c.bulletsVsEnemies(s)
	c.bulletsVsObstacles(s)

	steps := [...]func(*Session){
		c.playerVsEnemies,
		c.playerVsEnemyBullets,
		c.playerVsPickups,
		c.playerVsObstacles,
		c.playerVsBanks,
		c.fuelExhaustion,
	}
	for _, step := range steps {
		if s.State != StateRunning {
			return
		}
		step(s)
	}
}

func (c *CollisionResolver) rebuild(s *Session) {
	c.grid.Clear()
	c.originY = s.Scroll - s.Tuning.Spawn.DespawnMargin
	c.maxRadius = 0
	for i := range s.Store.Enemies {
		e := &s.Store.Enemies[i]
		if e.Dead {
			continue
		}
		c.grid.Insert(uint32(i), e.X, e.Y-c.originY)
		if e.Radius > c.maxRadius {
			c.maxRadius = e.Radius
		}
	}
}

// bulletsVsEnemies consumes each bullet on its first overlapping enemy in
// store order. One enemy can take several bullets in the same tick.
func (c *CollisionResolver) bulletsVsEnemies(s *Session) {
	c.rebuild(s)
	if c.grid.Len() == 0 {
		return
	}

	enemies := s.Store.Enemies
	for bi := range s.Store.PlayerBullets {
		b := &s.Store.PlayerBullets[bi]
		if b.Dead {
			continue
		}
		for _, idx := range c.grid.QueryRadius(b.X, b.Y-c.originY, b.Radius+c.maxRadius) {
			e := &enemies[idx]
			if e.Dead || !overlaps(b.X, b.Y, b.Radius, e.X, e.Y, e.Radius) {
				continue
			}
			b.Dead = true
			s.hitEnemy(e, 1)
			break
		}
	}
}

func (c *CollisionResolver) bulletsVsObstacles(s *Session) {
	for bi := range s.Store.PlayerBullets {
		b := &s.Store.PlayerBullets[bi]
		if b.Dead {
			continue
		}
		for oi := range s.Store.Obstacles {
			o := &s.Store.Obstacles[oi]
			// Bullets pass over bridges
			if o.Dead || o.Kind == ObstacleBridge {
				continue
			}
			if !overlaps(b.X, b.Y, b.Radius, o.X, o.Y, o.Radius) {
				continue
			}
			b.Dead = true
			s.hitObstacle(o)
			break
		}
	}
}

func (c *CollisionResolver) playerVsEnemies(s *Session) {
	p := &s.Store.Player
	for i := range s.Store.Enemies {
		e := &s.Store.Enemies[i]
		if e.Dead || !overlaps(p.X, p.Y, p.Radius, e.X, e.Y, e.Radius) {
			continue
		}
		if e.Kind.DiesOnContact() {
			e.Dead = true
			s.explode(e.X, e.Y, false)
		}
		s.damagePlayer(CauseEnemy)
		if s.State != StateRunning {
			return
		}
	}
}

func (c *CollisionResolver) playerVsEnemyBullets(s *Session) {
	p := &s.Store.Player
	for i := range s.Store.EnemyBullets {
		b := &s.Store.EnemyBullets[i]
		if b.Dead || !overlaps(p.X, p.Y, p.Radius, b.X, b.Y, b.Radius) {
			continue
		}
		b.Dead = true
		s.damagePlayer(CauseEnemyBullet)
		if s.State != StateRunning {
			return
		}
	}
}

func (c *CollisionResolver) playerVsPickups(s *Session) {
	p := &s.Store.Player
	for i := range s.Store.Pickups {
		pk := &s.Store.Pickups[i]
		if pk.Dead || !overlaps(p.X, p.Y, p.Radius, pk.X, pk.Y, pk.Radius) {
			continue
		}
		pk.Dead = true
		s.collect(pk)
	}
}

func (c *CollisionResolver) playerVsObstacles(s *Session) {
	p := &s.Store.Player
	for i := range s.Store.Obstacles {
		o := &s.Store.Obstacles[i]
		if o.Dead {
			continue
		}
		switch o.Kind {
		case ObstacleBridge:
			if p.Y > o.Y-4 && p.Y < o.Y+o.Deck+2 && p.X > o.Left-2 && p.X < o.Right+2 {
				s.damagePlayer(CauseBridge)
			}
		default:
			if overlaps(p.X, p.Y, p.Radius, o.X, o.Y, o.Radius) {
				s.damagePlayer(CauseIsland)
			}
		}
		if s.State != StateRunning {
			return
		}
	}
}

func (c *CollisionResolver) playerVsBanks(s *Session) {
	p := &s.Store.Player
	if !s.River.At(p.Y).Contains(p.X, p.Radius) {
		s.damagePlayer(CauseBank)
	}
}

func (c *CollisionResolver) fuelExhaustion(s *Session) {
	if s.Store.Player.Fuel <= 0 {
		s.damagePlayer(CauseFuel)
	}
}

// hitEnemy applies damage and, on a kill, the combo-scaled reward.
func (s *Session) hitEnemy(e *Enemy, dmg int) {
	e.HP -= dmg
	if e.HP > 0 {
		s.emit(EventTypeHit, HitPayload{Target: e.Kind.String(), HP: e.HP, X: e.X, Y: e.Y})
		return
	}

	e.Dead = true
	mult := s.Combo.RegisterKill(s.Tuning.Combo)
	s.Score += float64(e.Reward * mult)
	s.Kills++
	s.emit(EventTypeKill, KillPayload{
		Target:     e.Kind.String(),
		Reward:     e.Reward,
		Multiplier: mult,
		Combo:      s.Combo.Count,
		X:          e.X,
		Y:          e.Y,
	})
	s.explode(e.X, e.Y, e.Kind == EnemyWarship || e.Kind == EnemyBoss)
}

func (s *Session) hitObstacle(o *Obstacle) {
	o.HP--
	if o.HP > 0 {
		s.emit(EventTypeHit, HitPayload{Target: o.Kind.String(), HP: o.HP, X: o.X, Y: o.Y})
		return
	}

	o.Dead = true
	s.Score += float64(o.Reward)
	s.emit(EventTypeKill, KillPayload{Target: o.Kind.String(), Reward: o.Reward, Multiplier: 1, X: o.X, Y: o.Y})
	s.explode(o.X, o.Y, o.Ruins)
}

func (s *Session) collect(pk *Pickup) {
	pt := s.Tuning.Pickups
	p := &s.Store.Player

	switch pk.Kind {
	case PickupFuel:
		p.Fuel = math.Min(s.Tuning.Player.MaxFuel, p.Fuel+pt.FuelAmount)
		s.Score += float64(pt.FuelScore)
	case PickupShield:
		p.Shield = pt.ShieldTime
		s.Score += float64(pt.PowerScore)
	case PickupDouble:
		p.Double = pt.DoubleTime
		s.Score += float64(pt.PowerScore)
	case PickupBomb:
		s.Score += float64(pt.PowerScore)
		s.detonateBomb()
	}

	s.emit(EventTypePickup, PickupPayload{Kind: pk.Kind.String(), Fuel: p.Fuel})
}

// detonateBomb clears every regular enemy without reward and hurts the boss.
func (s *Session) detonateBomb() {
	for i := range s.Store.Enemies {
		e := &s.Store.Enemies[i]
		if e.Dead {
			continue
		}
		if e.Kind == EnemyBoss {
			s.hitEnemy(e, s.Tuning.Pickups.BombBossDamage)
			continue
		}
		e.Dead = true
		s.explode(e.X, e.Y, false)
	}
}

// damagePlayer is the single damage path. It is a no-op while invulnerable;
// an active shield absorbs exactly one hit.
func (s *Session) damagePlayer(cause string) {
	p := &s.Store.Player
	if p.Invulnerable() || s.State != StateRunning {
		return
	}

	if p.Shield > 0 {
		p.Shield = 0
		p.Invuln = s.Tuning.Player.ShieldGrace
		s.emit(EventTypeShieldAbsorb, DamagePayload{Cause: cause, HP: p.HP})
		return
	}

	p.HP--
	p.Invuln = s.Tuning.Player.GracePeriod
	s.emit(EventTypePlayerDamaged, DamagePayload{Cause: cause, HP: p.HP})
	s.explode(p.X, p.Y, false)

	if p.HP <= 0 {
		p.HP = 0
		s.endRun()
	}
}

// explode spawns debris and the matching explosion event.
func (s *Session) explode(x, y float64, large bool) {
	pt := s.Tuning.Particles
	n := pt.BurstSmall
	evt := EventTypeExplosionSmall
	if large {
		n = pt.BurstLarge
		evt = EventTypeExplosionLarge
	}

	for i := 0; i < n; i++ {
		life := uniform(s.rng, pt.LifeMin, pt.LifeMax)
		s.Store.AddParticle(Particle{
			X:       x,
			Y:       y,
			VX:      uniform(s.rng, -pt.Speed, pt.Speed),
			VY:      uniform(s.rng, -pt.Speed, pt.Speed),
			Life:    life,
			MaxLife: life,
			Large:   large,
		})
	}
	s.emit(evt, ExplosionPayload{X: x, Y: y})
}
