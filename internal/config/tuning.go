package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTuning is returned when a tuning overlay breaks a gameplay invariant.
var ErrInvalidTuning = errors.New("invalid tuning")

// FuelCap is the largest tank a player may carry.
const FuelCap = 100

// Tuning groups every gameplay constant. The simulation receives it by value.
type Tuning struct {
	River     RiverTuning    `yaml:"river"`
	Player    PlayerTuning   `yaml:"player"`
	Clock     ClockTuning    `yaml:"clock"`
	Spawn     SpawnTuning    `yaml:"spawn"`
	Enemies   EnemyTuning    `yaml:"enemies"`
	Pickups   PickupTuning   `yaml:"pickups"`
	Obstacles ObstacleTuning `yaml:"obstacles"`
	Combo     ComboTuning    `yaml:"combo"`
	Particles ParticleTuning `yaml:"particles"`
}

// RiverTuning shapes the channel random walk.
type RiverTuning struct {
	FieldWidth   float64 `yaml:"fieldWidth"`
	Segments     int     `yaml:"segments"`
	SegmentStep  float64 `yaml:"segmentStep"`
	InitialWidth float64 `yaml:"initialWidth"`
	CenterJitter float64 `yaml:"centerJitter"`
	WidthJitter  float64 `yaml:"widthJitter"`
	MinWidth     float64 `yaml:"minWidth"`
	MaxWidth     float64 `yaml:"maxWidth"`
	EdgeMargin   float64 `yaml:"edgeMargin"`
}

// PlayerTuning covers the aircraft and its guns.
type PlayerTuning struct {
	Radius          float64 `yaml:"radius"`
	HP              int     `yaml:"hp"`
	MaxFuel         float64 `yaml:"maxFuel"`
	SpeedX          float64 `yaml:"speedX"`
	SpeedY          float64 `yaml:"speedY"`
	StartOffset     float64 `yaml:"startOffset"`
	MinOffset       float64 `yaml:"minOffset"`
	MaxOffset       float64 `yaml:"maxOffset"`
	EdgeInset       float64 `yaml:"edgeInset"`
	FireCooldown    float64 `yaml:"fireCooldown"`
	GracePeriod     float64 `yaml:"gracePeriod"`
	ShieldGrace     float64 `yaml:"shieldGrace"`
	BulletSpeed     float64 `yaml:"bulletSpeed"`
	BulletRadius    float64 `yaml:"bulletRadius"`
	BulletLead      float64 `yaml:"bulletLead"`
	BulletOvershoot float64 `yaml:"bulletOvershoot"`
	SideBulletVX    float64 `yaml:"sideBulletVX"`
	SideBulletSpeed float64 `yaml:"sideBulletSpeed"`
}

// ClockTuning drives scroll, speed ramp, score and fuel.
type ClockTuning struct {
	MaxDT             float64 `yaml:"maxDT"`
	BaseSpeed         float64 `yaml:"baseSpeed"`
	RampRate          float64 `yaml:"rampRate"`
	RampMax           float64 `yaml:"rampMax"`
	Easing            float64 `yaml:"easing"`
	ScoreRate         float64 `yaml:"scoreRate"`
	ScoreSpeedFactor  float64 `yaml:"scoreSpeedFactor"`
	FuelDrain         float64 `yaml:"fuelDrain"`
	FuelLowThreshold  float64 `yaml:"fuelLowThreshold"`
	FuelAlarmInterval float64 `yaml:"fuelAlarmInterval"`
	WaveInterval      float64 `yaml:"waveInterval"`
	PhaseInterval     float64 `yaml:"phaseInterval"`
}

// SpawnTuning controls placement and the weighted category roll.
// Weights are probabilities of a single [0,1) roll; the remainder is enemies.
type SpawnTuning struct {
	FirstY          float64 `yaml:"firstY"`
	Horizon         float64 `yaml:"horizon"`
	MinGap          float64 `yaml:"minGap"`
	MaxGap          float64 `yaml:"maxGap"`
	ViewDepth       float64 `yaml:"viewDepth"`
	Spread          float64 `yaml:"spread"`
	MinViableWidth  float64 `yaml:"minViableWidth"`
	DespawnMargin   float64 `yaml:"despawnMargin"`
	AheadSlack      float64 `yaml:"aheadSlack"`
	BridgeWeight    float64 `yaml:"bridgeWeight"`
	BridgeAfter     float64 `yaml:"bridgeAfter"`
	PowerupWeight   float64 `yaml:"powerupWeight"`
	KamikazeWeight  float64 `yaml:"kamikazeWeight"`
	KamikazeAfter   float64 `yaml:"kamikazeAfter"`
	FuelWeight      float64 `yaml:"fuelWeight"`
	IslandWeight    float64 `yaml:"islandWeight"`
	BoatWeight      float64 `yaml:"boatWeight"`
	HeliWeight      float64 `yaml:"heliWeight"`
	WarshipWeight   float64 `yaml:"warshipWeight"`
	WarshipAfter    float64 `yaml:"warshipAfter"`
	FormationAfter  float64 `yaml:"formationAfter"`
	FormationChance float64 `yaml:"formationChance"`
	FormationDX     float64 `yaml:"formationDX"`
	FormationDY     float64 `yaml:"formationDY"`
	BossFirst       float64 `yaml:"bossFirst"`
	BossInterval    float64 `yaml:"bossInterval"`
	BossJitter      float64 `yaml:"bossJitter"`
}

// EnemyKindTuning is the per-variant stat block.
type EnemyKindTuning struct {
	Radius       float64 `yaml:"radius"`
	HP           int     `yaml:"hp"`
	Reward       int     `yaml:"reward"`
	Drift        float64 `yaml:"drift"` // multiple of scroll speed, downstream
	FireCooldown float64 `yaml:"fireCooldown"`
}

// EnemyTuning covers motion and fire behaviour of all enemy variants.
type EnemyTuning struct {
	Boat     EnemyKindTuning `yaml:"boat"`
	Heli     EnemyKindTuning `yaml:"heli"`
	Warship  EnemyKindTuning `yaml:"warship"`
	Kamikaze EnemyKindTuning `yaml:"kamikaze"`
	Boss     EnemyKindTuning `yaml:"boss"`

	PatrolSpeed     float64 `yaml:"patrolSpeed"`
	BankInset       float64 `yaml:"bankInset"`
	KamikazeSpeed   float64 `yaml:"kamikazeSpeed"`
	BossSweep       float64 `yaml:"bossSweep"`
	BossSweepRate   float64 `yaml:"bossSweepRate"`
	BossInset       float64 `yaml:"bossInset"`
	FireJitterMin   float64 `yaml:"fireJitterMin"`
	FireJitterMax   float64 `yaml:"fireJitterMax"`
	FireChance      float64 `yaml:"fireChance"`
	MaxBullets      int     `yaml:"maxBullets"`
	BossMaxBullets  int     `yaml:"bossMaxBullets"`
	BossJitterMin   float64 `yaml:"bossJitterMin"`
	BossJitterMax   float64 `yaml:"bossJitterMax"`
	BossSpreadDeg   float64 `yaml:"bossSpreadDeg"`
	BulletSpeed     float64 `yaml:"bulletSpeed"`
	BossBulletSpeed float64 `yaml:"bossBulletSpeed"`
	BulletRadius    float64 `yaml:"bulletRadius"`
	BulletTravel    float64 `yaml:"bulletTravel"`
}

// PickupTuning covers fuel tanks and power-ups.
type PickupTuning struct {
	Radius         float64 `yaml:"radius"`
	Drift          float64 `yaml:"drift"`
	Pull           float64 `yaml:"pull"`
	EdgeInset      float64 `yaml:"edgeInset"`
	FuelAmount     float64 `yaml:"fuelAmount"`
	FuelScore      int     `yaml:"fuelScore"`
	PowerScore     int     `yaml:"powerScore"`
	ShieldTime     float64 `yaml:"shieldTime"`
	DoubleTime     float64 `yaml:"doubleTime"`
	BombBossDamage int     `yaml:"bombBossDamage"`
}

// ObstacleTuning covers islands and bridges. Bridges cannot be shot down;
// they only block the player.
type ObstacleTuning struct {
	IslandRadius float64 `yaml:"islandRadius"`
	IslandHP     int     `yaml:"islandHP"`
	RuinsHP      int     `yaml:"ruinsHP"`
	RuinsChance  float64 `yaml:"ruinsChance"`
	IslandReward int     `yaml:"islandReward"`
	IslandDrift  float64 `yaml:"islandDrift"`
	BridgeDeck   float64 `yaml:"bridgeDeck"`
	BridgeDrift  float64 `yaml:"bridgeDrift"`
}

// ComboTuning controls the kill-chain multiplier.
type ComboTuning struct {
	Window        float64 `yaml:"window"`
	Step          int     `yaml:"step"`
	MaxMultiplier int     `yaml:"maxMultiplier"`
}

// ParticleTuning controls explosion debris.
type ParticleTuning struct {
	Speed      float64 `yaml:"speed"`
	LifeMin    float64 `yaml:"lifeMin"`
	LifeMax    float64 `yaml:"lifeMax"`
	Drag       float64 `yaml:"drag"` // per 1/60 s
	BurstSmall int     `yaml:"burstSmall"`
	BurstLarge int     `yaml:"burstLarge"`
}

// DefaultTuning returns the stock balance.
func DefaultTuning() Tuning {
	return Tuning{
		River: RiverTuning{
			FieldWidth:   420,
			Segments:     180,
			SegmentStep:  120,
			InitialWidth: 220,
			CenterJitter: 30,
			WidthJitter:  22,
			MinWidth:     160,
			MaxWidth:     260,
			EdgeMargin:   12,
		},
		Player: PlayerTuning{
			Radius:          15,
			HP:              3,
			MaxFuel:         100,
			SpeedX:          165,
			SpeedY:          100,
			StartOffset:     140,
			MinOffset:       80,
			MaxOffset:       360,
			EdgeInset:       20,
			FireCooldown:    0.12,
			GracePeriod:     1.2,
			ShieldGrace:     0.6,
			BulletSpeed:     430,
			BulletRadius:    4,
			BulletLead:      24,
			BulletOvershoot: 120,
			SideBulletVX:    55,
			SideBulletSpeed: 410,
		},
		Clock: ClockTuning{
			MaxDT:             0.035,
			BaseSpeed:         170,
			RampRate:          1.6,
			RampMax:           48,
			Easing:            1.5,
			ScoreRate:         18,
			ScoreSpeedFactor:  0.15,
			FuelDrain:         3.2,
			FuelLowThreshold:  20,
			FuelAlarmInterval: 1.6,
			WaveInterval:      30,
			PhaseInterval:     60,
		},
		Spawn: SpawnTuning{
			FirstY:          900,
			Horizon:         2400,
			MinGap:          220,
			MaxGap:          360,
			ViewDepth:       800,
			Spread:          0.35,
			MinViableWidth:  40,
			DespawnMargin:   160,
			AheadSlack:      600,
			BridgeWeight:    0.06,
			BridgeAfter:     20,
			PowerupWeight:   0.05,
			KamikazeWeight:  0.08,
			KamikazeAfter:   40,
			FuelWeight:      0.18,
			IslandWeight:    0.12,
			BoatWeight:      0.5,
			HeliWeight:      0.3,
			WarshipWeight:   0.2,
			WarshipAfter:    30,
			FormationAfter:  15,
			FormationChance: 0.22,
			FormationDX:     18,
			FormationDY:     14,
			BossFirst:       120,
			BossInterval:    120,
			BossJitter:      30,
		},
		Enemies: EnemyTuning{
			Boat:     EnemyKindTuning{Radius: 14, HP: 1, Reward: 75, Drift: 0.15, FireCooldown: 3.2},
			Heli:     EnemyKindTuning{Radius: 18, HP: 2, Reward: 75, Drift: 0.30, FireCooldown: 3.2},
			Warship:  EnemyKindTuning{Radius: 20, HP: 4, Reward: 180, Drift: 0.09, FireCooldown: 2.8},
			Kamikaze: EnemyKindTuning{Radius: 16, HP: 2, Reward: 75},
			Boss:     EnemyKindTuning{Radius: 30, HP: 12, Reward: 1000, Drift: 0.72, FireCooldown: 1.4},

			PatrolSpeed:     28,
			BankInset:       12,
			KamikazeSpeed:   190,
			BossSweep:       40,
			BossSweepRate:   1.2,
			BossInset:       22,
			FireJitterMin:   0.4,
			FireJitterMax:   1.2,
			FireChance:      0.45,
			MaxBullets:      8,
			BossMaxBullets:  12,
			BossJitterMin:   0.2,
			BossJitterMax:   0.8,
			BossSpreadDeg:   30,
			BulletSpeed:     90,
			BossBulletSpeed: 110,
			BulletRadius:    3,
			BulletTravel:    700,
		},
		Pickups: PickupTuning{
			Radius:         14,
			Drift:          0.12,
			Pull:           0.9,
			EdgeInset:      10,
			FuelAmount:     28,
			FuelScore:      60,
			PowerScore:     30,
			ShieldTime:     8,
			DoubleTime:     10,
			BombBossDamage: 4,
		},
		Obstacles: ObstacleTuning{
			IslandRadius: 16,
			IslandHP:     2,
			RuinsHP:      3,
			RuinsChance:  0.3,
			IslandReward: 40,
			IslandDrift:  0.06,
			BridgeDeck:   8,
		},
		Combo: ComboTuning{
			Window:        3,
			Step:          3,
			MaxMultiplier: 4,
		},
		Particles: ParticleTuning{
			Speed:      120,
			LifeMin:    0.25,
			LifeMax:    0.8,
			Drag:       0.98,
			BurstSmall: 8,
			BurstLarge: 20,
		},
	}
}

// LoadTuning overlays a YAML file on DefaultTuning. Keys missing from the
// file keep their default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate checks the relationships the simulation relies on.
func (t Tuning) Validate() error {
	r := t.River
	switch {
	case r.Segments < 2:
		return fmt.Errorf("%w: river needs at least 2 segments", ErrInvalidTuning)
	case r.SegmentStep <= 0:
		return fmt.Errorf("%w: segment step must be positive", ErrInvalidTuning)
	case r.MinWidth <= 0 || r.MinWidth > r.MaxWidth:
		return fmt.Errorf("%w: width range [%v,%v]", ErrInvalidTuning, r.MinWidth, r.MaxWidth)
	case r.InitialWidth < r.MinWidth || r.InitialWidth > r.MaxWidth:
		return fmt.Errorf("%w: initial width %v outside range", ErrInvalidTuning, r.InitialWidth)
	case r.MaxWidth+2*r.EdgeMargin > r.FieldWidth:
		return fmt.Errorf("%w: max width plus margins exceeds field width", ErrInvalidTuning)
	}

	s := t.Spawn
	switch {
	case s.MinGap <= 0 || s.MaxGap < s.MinGap:
		return fmt.Errorf("%w: spawn gap [%v,%v]", ErrInvalidTuning, s.MinGap, s.MaxGap)
	case s.Horizon < s.ViewDepth:
		return fmt.Errorf("%w: spawn horizon %v behind view depth %v", ErrInvalidTuning, s.Horizon, s.ViewDepth)
	}

	switch {
	case t.Clock.MaxDT <= 0:
		return fmt.Errorf("%w: max dt must be positive", ErrInvalidTuning)
	case t.Player.HP <= 0:
		return fmt.Errorf("%w: player hp must be positive", ErrInvalidTuning)
	case t.Player.MaxFuel <= 0 || t.Player.MaxFuel > FuelCap:
		return fmt.Errorf("%w: max fuel %v outside (0,%d]", ErrInvalidTuning, t.Player.MaxFuel, FuelCap)
	case t.Player.MinOffset > t.Player.MaxOffset:
		return fmt.Errorf("%w: player offset band inverted", ErrInvalidTuning)
	case t.Combo.Step <= 0 || t.Combo.MaxMultiplier < 1:
		return fmt.Errorf("%w: combo step and multiplier cap must be positive", ErrInvalidTuning)
	}

	e := t.Enemies
	minReward := min(e.Boat.Reward, e.Heli.Reward, e.Warship.Reward, e.Kamikaze.Reward, e.Boss.Reward)
	if t.Obstacles.IslandReward >= minReward {
		return fmt.Errorf("%w: island reward %d must be below every enemy reward", ErrInvalidTuning, t.Obstacles.IslandReward)
	}

	return nil
}
