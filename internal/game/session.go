package game

import (
	"errors"
	"log"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"river-strike/internal/config"
)

// RunState is the run lifecycle.
type RunState uint8

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
	StateGameOver
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateGameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrNotRunning is returned when pausing a run that is not running.
	ErrNotRunning = errors.New("run is not running")
	// ErrNotPaused is returned when resuming a run that is not paused.
	ErrNotPaused = errors.New("run is not paused")
)

// Day phases cycle every PhaseInterval seconds.
var phaseNames = [4]string{"day", "dusk", "night", "dawn"}

// Session is the complete simulation state of one run plus the clock that
// drives it. It is single-threaded: the host serializes Tick and control calls.
type Session struct {
	Tuning config.Tuning

	RunID string
	Seed  int64
	State RunState

	River   *RiverField
	Store   *EntityStore
	Spawner *SpawnDirector
	Combo   ComboState

	Scroll     float64
	Speed      float64
	Score      float64
	Elapsed    float64
	Wave       int
	Phase      int
	Kills      int
	TickNum    uint64
	FinalScore int

	rng      *rand.Rand
	resolver *CollisionResolver
	sink     EventSink
}

// NewSession creates an idle session. sink may be nil.
func NewSession(t config.Tuning, limits config.ResourceLimits, sink EventSink) *Session {
	s := &Session{
		Tuning: t,
		Store:  NewEntityStore(limits),
		sink:   sink,
		rng:    rand.New(rand.NewSource(1)),
	}
	s.resolver = NewCollisionResolver(&s.Tuning, limits)
	return s
}

// SetSink replaces the event sink.
func (s *Session) SetSink(sink EventSink) { s.sink = sink }

// StartRun discards any previous run and begins a fresh one from seed.
// The river, store, spawner and counters are all rebuilt.
func (s *Session) StartRun(seed int64) {
	t := &s.Tuning

	s.Seed = seed
	s.rng = rand.New(rand.NewSource(seed))
	s.RunID = uuid.NewString()
	s.River = GenerateRiver(s.rng, t.River)
	s.Spawner = NewSpawnDirector(t, s.rng)
	s.Combo.Reset()

	s.Scroll = 0
	s.Speed = t.Clock.BaseSpeed
	s.Score = 0
	s.Elapsed = 0
	s.Wave = 1
	s.Phase = 0
	s.Kills = 0
	s.TickNum = 0
	s.FinalScore = 0

	offset := t.Player.StartOffset
	s.Store.Reset(Player{
		X:      s.River.At(offset).Center,
		Y:      offset,
		Offset: offset,
		Radius: t.Player.Radius,
		HP:     t.Player.HP,
		Fuel:   t.Player.MaxFuel,
	})

	s.State = StateRunning
	s.emit(EventTypeRunStart, RunPayload{Seed: seed})
	log.Printf("🌊 Run %s started (seed %d)", s.RunID, seed)
}

// Pause freezes a running run.
func (s *Session) Pause() error {
	if s.State != StateRunning {
		return ErrNotRunning
	}
	s.State = StatePaused
	return nil
}

// Resume continues a paused run.
func (s *Session) Resume() error {
	if s.State != StatePaused {
		return ErrNotPaused
	}
	s.State = StateRunning
	return nil
}

// TogglePause flips between running and paused; other states are untouched.
func (s *Session) TogglePause() {
	switch s.State {
	case StateRunning:
		s.State = StatePaused
	case StatePaused:
		s.State = StateRunning
	}
}

// ClampDT floors dt at 0 (NaN included) and caps it at the configured maximum.
func (s *Session) ClampDT(dt float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	return math.Min(dt, s.Tuning.Clock.MaxDT)
}

// Tick advances a running run by dt seconds. In any other state it is a no-op.
//
// Order: clock, score, fuel, spawning, player fire, motion, enemy fire,
// collisions, despawn, then timers. A tick that ends the run stops after
// collisions.
func (s *Session) Tick(dt float64, in Intent) {
	if s.State != StateRunning {
		return
	}
	dt = s.ClampDT(dt)
	s.TickNum++
	t := &s.Tuning

	s.Elapsed += dt
	target := t.Clock.BaseSpeed + math.Min(t.Clock.RampMax, s.Elapsed*t.Clock.RampRate)
	s.Speed += (target - s.Speed) * math.Min(1, dt*t.Clock.Easing)
	s.Scroll += s.Speed * dt

	s.Score += dt * (t.Clock.ScoreRate + s.Speed*t.Clock.ScoreSpeedFactor)

	p := &s.Store.Player
	p.Fuel = clamp(p.Fuel-t.Clock.FuelDrain*dt, 0, t.Player.MaxFuel)
	if p.Fuel < t.Clock.FuelLowThreshold && p.FuelAlarm == 0 {
		p.FuelAlarm = t.Clock.FuelAlarmInterval
		s.emit(EventTypeFuelLow, FuelLowPayload{Fuel: p.Fuel})
	}

	s.Spawner.Tick(s.Scroll, s.Elapsed, s.River, s.Store)
	if s.Spawner.TickBoss(dt, s.Scroll, s.River, s.Store) {
		s.emit(EventTypeBossSpawn, nil)
		log.Printf("🎮 Boss spawned at %.0fs (run %s)", s.Elapsed, s.RunID)
	}

	in = in.Sanitized()
	if in.Firing {
		s.firePlayer()
	}

	s.Store.Advance(dt, Frame{
		River:   s.River,
		Tuning:  t,
		Scroll:  s.Scroll,
		Speed:   s.Speed,
		Elapsed: s.Elapsed,
		Intent:  in,
	})

	s.fireEnemies()
	s.resolver.Resolve(s)
	if s.State != StateRunning {
		// The terminal tick stops at the hit that ended the run.
		return
	}
	s.Store.Despawn(s.Scroll, t)

	s.Combo.UpdateTimers(dt)
	if t.Clock.WaveInterval > 0 {
		if w := int(s.Elapsed/t.Clock.WaveInterval) + 1; w > s.Wave {
			s.Wave = w
			s.emit(EventTypeWave, WavePayload{Wave: w})
		}
	}
	if t.Clock.PhaseInterval > 0 {
		s.Phase = int(s.Elapsed/t.Clock.PhaseInterval) % len(phaseNames)
	}
}

// PhaseName returns the current day phase.
func (s *Session) PhaseName() string {
	return phaseNames[s.Phase%len(phaseNames)]
}

// ScoreInt is the displayed score.
func (s *Session) ScoreInt() int {
	return int(math.Floor(s.Score))
}

func (s *Session) endRun() {
	s.State = StateGameOver
	s.FinalScore = s.ScoreInt()
	s.emit(EventTypeGameOver, RunPayload{Seed: s.Seed, Score: s.FinalScore, Elapsed: s.Elapsed})
	log.Printf("💀 Run %s over: score %d after %.1fs", s.RunID, s.FinalScore, s.Elapsed)
}

// firePlayer launches a volley if the gun is ready.
func (s *Session) firePlayer() {
	t := s.Tuning.Player
	p := &s.Store.Player
	if p.Cooldown > 0 {
		return
	}
	p.Cooldown = t.FireCooldown

	y := p.Y + t.BulletLead
	n := 0
	if s.Store.AddPlayerBullet(Bullet{X: p.X, Y: y, VY: t.BulletSpeed, Radius: t.BulletRadius}) {
		n++
	}
	if p.Double > 0 {
		for _, vx := range [2]float64{-t.SideBulletVX, t.SideBulletVX} {
			if s.Store.AddPlayerBullet(Bullet{X: p.X, Y: y, VX: vx, VY: t.SideBulletSpeed, Radius: t.BulletRadius}) {
				n++
			}
		}
	}
	if n > 0 {
		s.emit(EventTypeShoot, ShootPayload{X: p.X, Y: y, Bullets: n})
	}
}

// fireEnemies lets armed enemies inside the viewport shoot at the player.
func (s *Session) fireEnemies() {
	et := s.Tuning.Enemies
	top := s.Scroll + s.Tuning.Spawn.ViewDepth

	for i := range s.Store.Enemies {
		e := &s.Store.Enemies[i]
		if e.Dead || e.Kind == EnemyKamikaze || e.FireCD > 0 || e.Y < s.Scroll || e.Y > top {
			continue
		}
		stats := enemyStats(&s.Tuning, e.Kind)

		if e.Kind == EnemyBoss {
			e.FireCD = stats.FireCooldown + uniform(s.rng, et.BossJitterMin, et.BossJitterMax)
			if len(s.Store.EnemyBullets) >= et.BossMaxBullets {
				continue
			}
			dx, dy := s.aim(e.X, e.Y, et.BossBulletSpeed)
			spread := et.BossSpreadDeg * math.Pi / 180
			for _, a := range [3]float64{-spread, 0, spread} {
				vx, vy := rotate(dx, dy, a)
				s.Store.AddEnemyBullet(Bullet{X: e.X, Y: e.Y, VX: vx * et.BossBulletSpeed, VY: vy * et.BossBulletSpeed, Radius: et.BulletRadius})
			}
			continue
		}

		e.FireCD = stats.FireCooldown + uniform(s.rng, et.FireJitterMin, et.FireJitterMax)
		if s.rng.Float64() >= et.FireChance || len(s.Store.EnemyBullets) >= et.MaxBullets {
			continue
		}
		dx, dy := s.aim(e.X, e.Y, et.BulletSpeed)
		s.Store.AddEnemyBullet(Bullet{X: e.X, Y: e.Y, VX: dx * et.BulletSpeed, VY: dy * et.BulletSpeed, Radius: et.BulletRadius})
	}
}

// aim returns a unit vector from (x, y) toward where the player will be when
// a bullet of the given speed arrives, given the player keeps pace with the
// scroll. A zero-length vector falls back to straight upstream.
func (s *Session) aim(x, y, speed float64) (float64, float64) {
	p := &s.Store.Player
	dx := p.X - x
	dy := p.Y - y
	dist := math.Hypot(dx, dy)

	if speed+s.Speed > 0 {
		dy += s.Speed * dist / (speed + s.Speed)
	}

	dist = math.Hypot(dx, dy)
	if dist == 0 {
		return 0, -1
	}
	return dx / dist, dy / dist
}

func rotate(x, y, angle float64) (float64, float64) {
	sin, cos := math.Sincos(angle)
	return x*cos - y*sin, x*sin + y*cos
}

func (s *Session) emit(t EventType, payload interface{}) {
	if s.sink == nil {
		return
	}
	s.sink(NewEvent(t, s.TickNum, s.RunID, payload))
}
