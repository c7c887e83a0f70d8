package game

import (
	"math"
	"math/rand"
	"testing"

	"river-strike/internal/config"
)

func newTestDirector(seed int64) (*SpawnDirector, *config.Tuning) {
	t := config.DefaultTuning()
	return NewSpawnDirector(&t, rand.New(rand.NewSource(seed))), &t
}

func insideChannel(ch Channel, x, r float64) bool {
	return math.Abs(x-ch.Center) <= ch.Width/2-r+1e-9
}

// TestSpawnKeepsHorizonFilled verifies the cursor always ends a horizon ahead
func TestSpawnKeepsHorizonFilled(t *testing.T) {
	d, tuning := newTestDirector(3)
	river := GenerateRiver(rand.New(rand.NewSource(3)), tuning.River)
	store := NewEntityStore(config.DefaultLimits())

	for _, scroll := range []float64{0, 10, 500, 4000, 4001, 20000} {
		d.Tick(scroll, 0, river, store)
		if d.LastSpawnY < scroll+tuning.Spawn.Horizon {
			t.Errorf("scroll %v: cursor %v behind horizon %v", scroll, d.LastSpawnY, scroll+tuning.Spawn.Horizon)
		}
		// Despawn keeps the caps from filling up between steps
		store.Despawn(scroll, tuning)
	}
}

// TestSpawnPlacesInsideBanks verifies every spawned circle starts inside the channel
func TestSpawnPlacesInsideBanks(t *testing.T) {
	for _, elapsed := range []float64{0, 100} {
		d, tuning := newTestDirector(11)
		river := GenerateRiver(rand.New(rand.NewSource(11)), tuning.River)
		store := NewEntityStore(config.ResourceLimits{
			MaxEnemies: 512, MaxPickups: 512, MaxObstacles: 512,
		})

		placed := d.Tick(20000, elapsed, river, store)
		if placed == 0 {
			t.Fatalf("elapsed %v: nothing spawned", elapsed)
		}

		for _, e := range store.Enemies {
			if !insideChannel(river.At(e.Y), e.X, e.Radius) {
				t.Errorf("elapsed %v: %s at (%v,%v) outside channel", elapsed, e.Kind, e.X, e.Y)
			}
		}
		for _, p := range store.Pickups {
			if !insideChannel(river.At(p.Y), p.X, p.Radius) {
				t.Errorf("elapsed %v: %s pickup outside channel", elapsed, p.Kind)
			}
		}
		for _, o := range store.Obstacles {
			if o.Kind == ObstacleIsland && !insideChannel(river.At(o.Y), o.X, o.Radius) {
				t.Errorf("elapsed %v: island outside channel", elapsed)
			}
		}
	}
}

// TestSpawnGatesByElapsed verifies gated content never appears early
func TestSpawnGatesByElapsed(t *testing.T) {
	d, tuning := newTestDirector(5)
	river := GenerateRiver(rand.New(rand.NewSource(5)), tuning.River)
	store := NewEntityStore(config.ResourceLimits{MaxEnemies: 1024, MaxPickups: 1024, MaxObstacles: 1024})

	d.Tick(50000, 0, river, store)

	for _, o := range store.Obstacles {
		if o.Kind == ObstacleBridge {
			t.Fatal("Bridge spawned before its gate")
		}
	}
	for _, e := range store.Enemies {
		if e.Kind == EnemyKamikaze || e.Kind == EnemyWarship {
			t.Fatalf("%s spawned before its gate", e.Kind)
		}
	}
}

// TestSpawnCategory verifies the weighted roll and its gates
func TestSpawnCategory(t *testing.T) {
	d, _ := newTestDirector(1)

	tests := []struct {
		name    string
		roll    float64
		elapsed float64
		want    SpawnCategory
	}{
		{"early low roll is powerup", 0.0, 0, SpawnPowerup},
		{"early fuel band", 0.10, 0, SpawnFuel},
		{"early island band", 0.30, 0, SpawnIsland},
		{"early high roll is enemy", 0.99, 0, SpawnEnemy},
		{"late low roll is bridge", 0.0, 100, SpawnBridge},
		{"late powerup band", 0.08, 100, SpawnPowerup},
		{"late kamikaze band", 0.15, 100, SpawnKamikaze},
		{"late fuel band", 0.30, 100, SpawnFuel},
		{"late island band", 0.45, 100, SpawnIsland},
		{"late enemy", 0.60, 100, SpawnEnemy},
		{"bridge only after gate", 0.0, 20, SpawnPowerup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Category(tt.roll, tt.elapsed); got != tt.want {
				t.Errorf("Category(%v, %v) = %s, want %s", tt.roll, tt.elapsed, got, tt.want)
			}
		})
	}
}

// TestEnemyVariant verifies variant weights and the warship gate
func TestEnemyVariant(t *testing.T) {
	d, _ := newTestDirector(1)

	tests := []struct {
		roll    float64
		elapsed float64
		want    EnemyKind
	}{
		{0.1, 0, EnemyBoat},
		{0.6, 0, EnemyHeli},
		{0.9, 0, EnemyBoat},
		{0.9, 29.9, EnemyBoat},
		{0.9, 30, EnemyWarship},
		{0.1, 100, EnemyBoat},
	}

	for _, tt := range tests {
		if got := d.EnemyVariant(tt.roll, tt.elapsed); got != tt.want {
			t.Errorf("EnemyVariant(%v, %v) = %s, want %s", tt.roll, tt.elapsed, got, tt.want)
		}
	}
}

// TestSpawnSkipsNarrowChannel verifies no content is placed where it cannot fit
func TestSpawnSkipsNarrowChannel(t *testing.T) {
	d, tuning := newTestDirector(1)
	river := straightRiver(tuning, tuning.Spawn.MinViableWidth-10)
	store := NewEntityStore(config.DefaultLimits())

	placed := d.Tick(5000, 100, river, store)

	if placed != 0 {
		t.Errorf("Expected nothing placed, got %d", placed)
	}
	if len(store.Enemies)+len(store.Pickups)+len(store.Obstacles) != 0 {
		t.Error("Store not empty")
	}
	if d.LastSpawnY < 5000+tuning.Spawn.Horizon {
		t.Error("Cursor must still advance through unusable river")
	}
}

// TestBossTimer verifies a single boss spawns when the timer expires
func TestBossTimer(t *testing.T) {
	d, tuning := newTestDirector(1)
	river := straightRiver(tuning, 220)
	store := NewEntityStore(config.DefaultLimits())

	d.BossTimer = 0.01
	if !d.TickBoss(0.02, 1000, river, store) {
		t.Fatal("Expected boss spawn")
	}
	if store.CountEnemies(EnemyBoss) != 1 {
		t.Fatalf("Expected one boss, got %d", store.CountEnemies(EnemyBoss))
	}
	boss := store.Enemies[0]
	if boss.Y != 1000+tuning.Spawn.ViewDepth || boss.HP != tuning.Enemies.Boss.HP {
		t.Errorf("Unexpected boss: %+v", boss)
	}
	if d.BossTimer < tuning.Spawn.BossInterval {
		t.Errorf("Timer not rearmed: %v", d.BossTimer)
	}

	// A live boss blocks the next one
	d.BossTimer = 0
	if d.TickBoss(0.02, 1000, river, store) {
		t.Error("Second boss spawned while the first is alive")
	}
}
