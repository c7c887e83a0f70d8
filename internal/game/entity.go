package game

import "river-strike/internal/config"

// EnemyKind tags enemy variants.
type EnemyKind uint8

const (
	EnemyBoat EnemyKind = iota
	EnemyHeli
	EnemyWarship
	EnemyKamikaze
	EnemyBoss
)

// String returns the lowercase variant name (also the metrics label).
func (k EnemyKind) String() string {
	switch k {
	case EnemyBoat:
		return "boat"
	case EnemyHeli:
		return "heli"
	case EnemyWarship:
		return "warship"
	case EnemyKamikaze:
		return "kamikaze"
	case EnemyBoss:
		return "boss"
	default:
		return "unknown"
	}
}

// DiesOnContact reports whether ramming destroys the enemy. Every variant
// damages the player on contact; only the boss survives it.
func (k EnemyKind) DiesOnContact() bool { return k != EnemyBoss }

// PickupKind tags pickup variants.
type PickupKind uint8

const (
	PickupFuel PickupKind = iota
	PickupShield
	PickupDouble
	PickupBomb
)

func (k PickupKind) String() string {
	switch k {
	case PickupFuel:
		return "fuel"
	case PickupShield:
		return "shield"
	case PickupDouble:
		return "double"
	case PickupBomb:
		return "bomb"
	default:
		return "unknown"
	}
}

// ObstacleKind tags obstacle variants.
type ObstacleKind uint8

const (
	ObstacleIsland ObstacleKind = iota
	ObstacleBridge
)

func (k ObstacleKind) String() string {
	switch k {
	case ObstacleIsland:
		return "island"
	case ObstacleBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// Player is the aircraft. Offset is the distance ahead of scroll; Y is kept
// in world space after every advance.
type Player struct {
	X, Y      float64
	Offset    float64
	Radius    float64
	HP        int
	Fuel      float64
	Cooldown  float64
	Invuln    float64
	Shield    float64 // seconds of shield left, 0 = none
	Double    float64 // seconds of double shot left
	FuelAlarm float64
}

// Invulnerable reports whether damage is currently ignored.
func (p *Player) Invulnerable() bool { return p.Invuln > 0 }

// Enemy is any hostile unit. Dead marks it for compaction.
type Enemy struct {
	ID     uint32
	Kind   EnemyKind
	X, Y   float64
	VX     float64
	Radius float64
	HP     int
	Reward int
	FireCD float64
	Drift  float64
	Dead   bool
}

// Bullet is used for both player and enemy shots.
type Bullet struct {
	X, Y     float64
	VX, VY   float64
	Radius   float64
	Traveled float64
	Dead     bool
}

// Pickup is a fuel tank or power-up crate.
type Pickup struct {
	ID     uint32
	Kind   PickupKind
	X, Y   float64
	Radius float64
	Dead   bool
}

// Obstacle is an island or a bridge. Bridges span Left..Right with deck
// thickness Deck starting at Y and have no HP.
type Obstacle struct {
	ID          uint32
	Kind        ObstacleKind
	X, Y        float64
	Radius      float64
	Left, Right float64
	Deck        float64
	HP, MaxHP   int
	Reward      int
	Ruins       bool
	Drift       float64
	Dead        bool
}

// Particle is explosion debris.
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Life    float64
	MaxLife float64
	Large   bool
}

// overlaps is the circle-circle test. Tangent circles do not overlap.
func overlaps(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x1 - x2
	dy := y1 - y2
	rr := r1 + r2
	return dx*dx+dy*dy < rr*rr
}

func enemyStats(t *config.Tuning, k EnemyKind) config.EnemyKindTuning {
	switch k {
	case EnemyHeli:
		return t.Enemies.Heli
	case EnemyWarship:
		return t.Enemies.Warship
	case EnemyKamikaze:
		return t.Enemies.Kamikaze
	case EnemyBoss:
		return t.Enemies.Boss
	default:
		return t.Enemies.Boat
	}
}
