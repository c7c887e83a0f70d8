package game

import (
	"math/rand"

	"river-strike/internal/config"
)

// SpawnCategory is the outcome of one weighted spawn roll.
type SpawnCategory uint8

const (
	SpawnEnemy SpawnCategory = iota
	SpawnBridge
	SpawnPowerup
	SpawnKamikaze
	SpawnFuel
	SpawnIsland
)

func (c SpawnCategory) String() string {
	switch c {
	case SpawnEnemy:
		return "enemy"
	case SpawnBridge:
		return "bridge"
	case SpawnPowerup:
		return "powerup"
	case SpawnKamikaze:
		return "kamikaze"
	case SpawnFuel:
		return "fuel"
	case SpawnIsland:
		return "island"
	default:
		return "unknown"
	}
}

// SpawnDirector keeps content generated ahead of the viewport. It owns the
// spawn cursor and the boss timer; everything it creates goes straight into
// the store.
type SpawnDirector struct {
	LastSpawnY float64
	BossTimer  float64

	tuning *config.Tuning
	rng    *rand.Rand
}

// NewSpawnDirector creates a director with the cursor at the first spawn row.
func NewSpawnDirector(t *config.Tuning, rng *rand.Rand) *SpawnDirector {
	return &SpawnDirector{
		LastSpawnY: t.Spawn.FirstY,
		BossTimer:  t.Spawn.BossFirst,
		tuning:     t,
		rng:        rng,
	}
}

// Tick advances the cursor until it is a full horizon ahead of scroll,
// creating one spawn event per step. Returns the number of events that
// actually placed something.
func (d *SpawnDirector) Tick(scroll, elapsed float64, river *RiverField, store *EntityStore) int {
	st := d.tuning.Spawn
	placed := 0

	for d.LastSpawnY < scroll+st.Horizon {
		gap := uniform(d.rng, st.MinGap, st.MaxGap)
		if gap <= 0 {
			gap = 1
		}
		d.LastSpawnY += gap

		if d.spawnAt(d.LastSpawnY, elapsed, river, store) {
			placed++
		}
	}

	return placed
}

// Category maps a roll in [0,1) to a spawn category. Wave-gated categories
// take no share of the roll until elapsed passes their gate.
func (d *SpawnDirector) Category(roll, elapsed float64) SpawnCategory {
	st := d.tuning.Spawn
	acc := 0.0

	if elapsed > st.BridgeAfter {
		acc += st.BridgeWeight
		if roll < acc {
			return SpawnBridge
		}
	}
	acc += st.PowerupWeight
	if roll < acc {
		return SpawnPowerup
	}
	if elapsed > st.KamikazeAfter {
		acc += st.KamikazeWeight
		if roll < acc {
			return SpawnKamikaze
		}
	}
	acc += st.FuelWeight
	if roll < acc {
		return SpawnFuel
	}
	acc += st.IslandWeight
	if roll < acc {
		return SpawnIsland
	}
	return SpawnEnemy
}

// EnemyVariant maps a roll in [0,1) to boat, heli or warship. Warships are
// replaced by boats before the warship gate.
func (d *SpawnDirector) EnemyVariant(roll, elapsed float64) EnemyKind {
	st := d.tuning.Spawn
	total := st.BoatWeight + st.HeliWeight + st.WarshipWeight
	if total <= 0 {
		return EnemyBoat
	}
	roll *= total

	kind := EnemyWarship
	switch {
	case roll < st.BoatWeight:
		kind = EnemyBoat
	case roll < st.BoatWeight+st.HeliWeight:
		kind = EnemyHeli
	}
	if kind == EnemyWarship && elapsed < st.WarshipAfter {
		kind = EnemyBoat
	}
	return kind
}

func (d *SpawnDirector) spawnAt(y, elapsed float64, river *RiverField, store *EntityStore) bool {
	t := d.tuning
	ch := river.At(y)
	if ch.Width < t.Spawn.MinViableWidth {
		return false
	}

	switch d.Category(d.rng.Float64(), elapsed) {
	case SpawnBridge:
		return store.AddObstacle(Obstacle{
			Kind:  ObstacleBridge,
			X:     ch.Center,
			Y:     y,
			Left:  ch.Left(),
			Right: ch.Right(),
			Deck:  t.Obstacles.BridgeDeck,
			Drift: t.Obstacles.BridgeDrift,
		})

	case SpawnPowerup:
		kind := PickupKind(1 + d.rng.Intn(3)) // shield, double or bomb
		return d.addPickup(kind, y, ch, store)

	case SpawnFuel:
		return d.addPickup(PickupFuel, y, ch, store)

	case SpawnIsland:
		x, ok := d.placeX(ch, t.Obstacles.IslandRadius)
		if !ok {
			return false
		}
		ruins := d.rng.Float64() < t.Obstacles.RuinsChance
		hp := t.Obstacles.IslandHP
		if ruins {
			hp = t.Obstacles.RuinsHP
		}
		return store.AddObstacle(Obstacle{
			Kind:   ObstacleIsland,
			X:      x,
			Y:      y,
			Radius: t.Obstacles.IslandRadius,
			HP:     hp,
			MaxHP:  hp,
			Reward: t.Obstacles.IslandReward,
			Ruins:  ruins,
			Drift:  t.Obstacles.IslandDrift,
		})

	case SpawnKamikaze:
		return d.addEnemy(EnemyKamikaze, y, ch, store)

	default:
		kind := d.EnemyVariant(d.rng.Float64(), elapsed)
		if kind != EnemyWarship && elapsed > t.Spawn.FormationAfter && d.rng.Float64() < t.Spawn.FormationChance {
			return d.addFormation(kind, y, river, store)
		}
		return d.addEnemy(kind, y, ch, store)
	}
}

// placeX picks a lateral position around the channel center, bounded so a
// circle of radius r stays inside the banks.
func (d *SpawnDirector) placeX(ch Channel, r float64) (float64, bool) {
	half := ch.Width/2 - r
	if half < 0 {
		return 0, false
	}
	spread := d.tuning.Spawn.Spread * ch.Width
	x := ch.Center + uniform(d.rng, -spread, spread)
	return clamp(x, ch.Center-half, ch.Center+half), true
}

func (d *SpawnDirector) addPickup(kind PickupKind, y float64, ch Channel, store *EntityStore) bool {
	r := d.tuning.Pickups.Radius
	x, ok := d.placeX(ch, r)
	if !ok {
		return false
	}
	return store.AddPickup(Pickup{Kind: kind, X: x, Y: y, Radius: r})
}

func (d *SpawnDirector) addEnemy(kind EnemyKind, y float64, ch Channel, store *EntityStore) bool {
	stats := enemyStats(d.tuning, kind)
	x, ok := d.placeX(ch, stats.Radius)
	if !ok {
		return false
	}
	return store.AddEnemy(d.newEnemy(kind, x, y))
}

// addFormation places a V of three: leader at y, wingmen one row behind.
func (d *SpawnDirector) addFormation(kind EnemyKind, y float64, river *RiverField, store *EntityStore) bool {
	st := d.tuning.Spawn
	stats := enemyStats(d.tuning, kind)

	lead := river.At(y)
	x, ok := d.placeX(lead, stats.Radius)
	if !ok {
		return false
	}

	placed := store.AddEnemy(d.newEnemy(kind, x, y))
	wingY := y + st.FormationDY
	wing := river.At(wingY)
	for _, dx := range [2]float64{-st.FormationDX, st.FormationDX} {
		wx := x + dx
		if !wing.Contains(wx, stats.Radius) {
			continue
		}
		if store.AddEnemy(d.newEnemy(kind, wx, wingY)) {
			placed = true
		}
	}
	return placed
}

func (d *SpawnDirector) newEnemy(kind EnemyKind, x, y float64) Enemy {
	et := d.tuning.Enemies
	stats := enemyStats(d.tuning, kind)

	e := Enemy{
		Kind:   kind,
		X:      x,
		Y:      y,
		Radius: stats.Radius,
		HP:     stats.HP,
		Reward: stats.Reward,
		Drift:  stats.Drift,
	}

	switch kind {
	case EnemyBoat, EnemyHeli, EnemyWarship:
		e.VX = uniform(d.rng, -et.PatrolSpeed, et.PatrolSpeed)
		e.FireCD = stats.FireCooldown + uniform(d.rng, et.FireJitterMin, et.FireJitterMax)
	case EnemyBoss:
		e.FireCD = stats.FireCooldown + uniform(d.rng, et.BossJitterMin, et.BossJitterMax)
	}

	return e
}

// TickBoss counts down the boss timer and spawns a boss just ahead of the
// viewport when it expires and none is alive. Reports whether one spawned.
func (d *SpawnDirector) TickBoss(dt, scroll float64, river *RiverField, store *EntityStore) bool {
	d.BossTimer -= dt
	if d.BossTimer > 0 || store.CountEnemies(EnemyBoss) > 0 {
		return false
	}

	st := d.tuning.Spawn
	y := scroll + st.ViewDepth
	ch := river.At(y)
	if !store.AddEnemy(d.newEnemy(EnemyBoss, ch.Center, y)) {
		return false
	}
	d.BossTimer = st.BossInterval + uniform(d.rng, 0, st.BossJitter)
	return true
}
