package game

import (
	"sync/atomic"
	"time"

	"river-strike/internal/config"
)

// riverSampleStep is the world spacing of bank samples carried in a snapshot.
const riverSampleStep = 20.0

// PlayerSnapshot is an immutable copy of player state for rendering
type PlayerSnapshot struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Radius       float64 `json:"radius"`
	HP           int     `json:"hp"`
	Fuel         float64 `json:"fuel"`
	MaxFuel      float64 `json:"maxFuel"`
	Invulnerable bool    `json:"invulnerable"`
	Shield       float64 `json:"shield"`
	Double       float64 `json:"double"`
}

// EnemySnapshot is an immutable enemy for rendering
type EnemySnapshot struct {
	ID     uint32  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	HP     int     `json:"hp"`
	MaxHP  int     `json:"maxHp"`
}

// BulletSnapshot is an immutable projectile
type BulletSnapshot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// PickupSnapshot is an immutable pickup
type PickupSnapshot struct {
	ID     uint32  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// ObstacleSnapshot is an immutable island or bridge
type ObstacleSnapshot struct {
	ID     uint32  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Deck   float64 `json:"deck"`
	HP     int     `json:"hp"`
	Ruins  bool    `json:"ruins"`
}

// ParticleSnapshot is an immutable particle for rendering
type ParticleSnapshot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Alpha float64 `json:"alpha"`
	Large bool    `json:"large"`
}

// RiverSample is one visible cross-section of the channel.
type RiverSample struct {
	Y      float64 `json:"y"`
	Center float64 `json:"center"`
	Width  float64 `json:"width"`
}

// GameSnapshot is a complete immutable game state for rendering.
// All slices are pre-allocated and capped to prevent memory attacks.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`
	RunID      string    `json:"runId"`
	Seed       int64     `json:"seed"`

	State      string  `json:"state"`
	Scroll     float64 `json:"scroll"`
	Speed      float64 `json:"speed"`
	Score      int     `json:"score"`
	FinalScore int     `json:"finalScore"`
	Elapsed    float64 `json:"elapsed"`
	Wave       int     `json:"wave"`
	Phase      string  `json:"phase"`
	Combo      int     `json:"combo"`
	Multiplier int     `json:"multiplier"`
	Kills      int     `json:"kills"`
	FieldWidth float64 `json:"fieldWidth"`
	ViewDepth  float64 `json:"viewDepth"`

	Player        PlayerSnapshot     `json:"player"`
	Enemies       []EnemySnapshot    `json:"enemies"`
	PlayerBullets []BulletSnapshot   `json:"playerBullets"`
	EnemyBullets  []BulletSnapshot   `json:"enemyBullets"`
	Pickups       []PickupSnapshot   `json:"pickups"`
	Obstacles     []ObstacleSnapshot `json:"obstacles"`
	Particles     []ParticleSnapshot `json:"particles"`
	River         []RiverSample      `json:"river"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (g *GameSnapshot) Clone() *GameSnapshot {
	cp := *g
	cp.Enemies = append([]EnemySnapshot(nil), g.Enemies...)
	cp.PlayerBullets = append([]BulletSnapshot(nil), g.PlayerBullets...)
	cp.EnemyBullets = append([]BulletSnapshot(nil), g.EnemyBullets...)
	cp.Pickups = append([]PickupSnapshot(nil), g.Pickups...)
	cp.Obstacles = append([]ObstacleSnapshot(nil), g.Obstacles...)
	cp.Particles = append([]ParticleSnapshot(nil), g.Particles...)
	cp.River = append([]RiverSample(nil), g.River...)
	return &cp
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure
// Uses triple buffering for lock-free producer/consumer
type SnapshotPool struct {
	snapshots [3]GameSnapshot // Triple buffer
	limits    config.ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits config.ResourceLimits, riverSamples int) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Enemies:       make([]EnemySnapshot, 0, limits.MaxEnemies),
			PlayerBullets: make([]BulletSnapshot, 0, limits.MaxPlayerBullets),
			EnemyBullets:  make([]BulletSnapshot, 0, limits.MaxEnemyBullets),
			Pickups:       make([]PickupSnapshot, 0, limits.MaxPickups),
			Obstacles:     make([]ObstacleSnapshot, 0, limits.MaxObstacles),
			Particles:     make([]ParticleSnapshot, 0, limits.MaxParticles),
			River:         make([]RiverSample, 0, riverSamples),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called from game tick)
// Returns a snapshot with reset slices but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := (atomic.LoadUint32(&p.readIdx) + 1) % 3
	atomic.StoreUint32(&p.writeIdx, idx)
	snap := &p.snapshots[idx]

	snap.Enemies = snap.Enemies[:0]
	snap.PlayerBullets = snap.PlayerBullets[:0]
	snap.EnemyBullets = snap.EnemyBullets[:0]
	snap.Pickups = snap.Pickups[:0]
	snap.Obstacles = snap.Obstacles[:0]
	snap.Particles = snap.Particles[:0]
	snap.River = snap.River[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances read pointer
// Called after snapshot is fully populated
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only)
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() config.ResourceLimits {
	return p.limits
}

// Fill copies the session into snap. Only complete post-tick state is ever
// copied, so readers never observe a half-applied tick.
func (s *Session) Fill(snap *GameSnapshot) {
	t := &s.Tuning

	snap.TickNumber = s.TickNum
	snap.RunID = s.RunID
	snap.Seed = s.Seed
	snap.State = s.State.String()
	snap.Scroll = s.Scroll
	snap.Speed = s.Speed
	snap.Score = s.ScoreInt()
	snap.FinalScore = s.FinalScore
	snap.Elapsed = s.Elapsed
	snap.Wave = s.Wave
	snap.Phase = s.PhaseName()
	snap.Combo = s.Combo.Count
	snap.Multiplier = s.Combo.Multiplier(t.Combo)
	snap.Kills = s.Kills
	snap.FieldWidth = t.River.FieldWidth
	snap.ViewDepth = t.Spawn.ViewDepth

	st := s.Store
	p := st.Player
	snap.Player = PlayerSnapshot{
		X:            p.X,
		Y:            p.Y,
		Radius:       p.Radius,
		HP:           p.HP,
		Fuel:         p.Fuel,
		MaxFuel:      t.Player.MaxFuel,
		Invulnerable: p.Invulnerable(),
		Shield:       p.Shield,
		Double:       p.Double,
	}

	for _, e := range st.Enemies {
		snap.Enemies = append(snap.Enemies, EnemySnapshot{
			ID: e.ID, Kind: e.Kind.String(), X: e.X, Y: e.Y, Radius: e.Radius,
			HP: e.HP, MaxHP: enemyStats(t, e.Kind).HP,
		})
	}
	for _, b := range st.PlayerBullets {
		snap.PlayerBullets = append(snap.PlayerBullets, BulletSnapshot{X: b.X, Y: b.Y, Radius: b.Radius})
	}
	for _, b := range st.EnemyBullets {
		snap.EnemyBullets = append(snap.EnemyBullets, BulletSnapshot{X: b.X, Y: b.Y, Radius: b.Radius})
	}
	for _, pk := range st.Pickups {
		snap.Pickups = append(snap.Pickups, PickupSnapshot{ID: pk.ID, Kind: pk.Kind.String(), X: pk.X, Y: pk.Y, Radius: pk.Radius})
	}
	for _, o := range st.Obstacles {
		snap.Obstacles = append(snap.Obstacles, ObstacleSnapshot{
			ID: o.ID, Kind: o.Kind.String(), X: o.X, Y: o.Y, Radius: o.Radius,
			Left: o.Left, Right: o.Right, Deck: o.Deck, HP: o.HP, Ruins: o.Ruins,
		})
	}
	for _, pt := range st.Particles {
		alpha := 0.0
		if pt.MaxLife > 0 {
			alpha = pt.Life / pt.MaxLife
		}
		snap.Particles = append(snap.Particles, ParticleSnapshot{X: pt.X, Y: pt.Y, Alpha: alpha, Large: pt.Large})
	}

	if s.River != nil {
		from := s.Scroll - t.Spawn.DespawnMargin
		to := s.Scroll + t.Spawn.ViewDepth + t.Spawn.DespawnMargin
		for y := from; y <= to; y += riverSampleStep {
			ch := s.River.At(y)
			snap.River = append(snap.River, RiverSample{Y: y, Center: ch.Center, Width: ch.Width})
		}
	}
}

// RiverSampleCount is the number of samples Fill writes for the tuning.
func RiverSampleCount(t *config.Tuning) int {
	return int((t.Spawn.ViewDepth+2*t.Spawn.DespawnMargin)/riverSampleStep) + 2
}
