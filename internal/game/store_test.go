package game

import (
	"math"
	"testing"

	"river-strike/internal/config"
)

func testFrame(tuning *config.Tuning, scroll float64, in Intent) Frame {
	return Frame{
		River:  straightRiver(tuning, 220),
		Tuning: tuning,
		Scroll: scroll,
		Speed:  tuning.Clock.BaseSpeed,
		Intent: in,
	}
}

// TestStoreCaps verifies every collection refuses inserts past its limit
func TestStoreCaps(t *testing.T) {
	limits := config.ResourceLimits{
		MaxEnemies: 2, MaxPlayerBullets: 1, MaxEnemyBullets: 1,
		MaxPickups: 1, MaxObstacles: 1, MaxParticles: 2,
	}
	s := NewEntityStore(limits)

	if !s.AddEnemy(Enemy{}) || !s.AddEnemy(Enemy{}) {
		t.Fatal("Enemies under the cap were rejected")
	}
	if s.AddEnemy(Enemy{}) {
		t.Error("Enemy cap not enforced")
	}
	if !s.AddPlayerBullet(Bullet{}) || s.AddPlayerBullet(Bullet{}) {
		t.Error("Player bullet cap not enforced")
	}
	if !s.AddEnemyBullet(Bullet{}) || s.AddEnemyBullet(Bullet{}) {
		t.Error("Enemy bullet cap not enforced")
	}
	if !s.AddPickup(Pickup{}) || s.AddPickup(Pickup{}) {
		t.Error("Pickup cap not enforced")
	}
	if !s.AddObstacle(Obstacle{}) || s.AddObstacle(Obstacle{}) {
		t.Error("Obstacle cap not enforced")
	}
	for i := 0; i < 5; i++ {
		s.AddParticle(Particle{Life: 1})
	}
	if len(s.Particles) != 2 {
		t.Errorf("Expected 2 particles, got %d", len(s.Particles))
	}
}

// TestStoreIDsUnique verifies every inserted entity gets a fresh ID
func TestStoreIDsUnique(t *testing.T) {
	s := NewEntityStore(config.DefaultLimits())
	s.AddEnemy(Enemy{})
	s.AddPickup(Pickup{})
	s.AddObstacle(Obstacle{})
	s.AddEnemy(Enemy{})

	seen := map[uint32]bool{}
	for _, id := range []uint32{s.Enemies[0].ID, s.Pickups[0].ID, s.Obstacles[0].ID, s.Enemies[1].ID} {
		if id == 0 || seen[id] {
			t.Fatalf("Duplicate or zero ID %d", id)
		}
		seen[id] = true
	}

	s.Reset(Player{})
	if len(s.Enemies) != 0 || cap(s.Enemies) != config.DefaultLimits().MaxEnemies {
		t.Errorf("Reset should empty but keep capacity")
	}
}

// TestCompactPreservesOrder verifies removal keeps survivors in insertion order
func TestCompactPreservesOrder(t *testing.T) {
	s := NewEntityStore(config.DefaultLimits())
	for i := 0; i < 5; i++ {
		s.AddEnemy(Enemy{})
	}
	s.Enemies[1].Dead = true
	s.Enemies[3].Dead = true

	s.Compact()

	want := []uint32{1, 3, 5}
	if len(s.Enemies) != len(want) {
		t.Fatalf("Expected %d enemies, got %d", len(want), len(s.Enemies))
	}
	for i, id := range want {
		if s.Enemies[i].ID != id {
			t.Errorf("Position %d: ID %d, want %d", i, s.Enemies[i].ID, id)
		}
	}
}

// TestDespawnWindow verifies entities outside the live window are removed
func TestDespawnWindow(t *testing.T) {
	tuning := config.DefaultTuning()
	sp := tuning.Spawn
	s := NewEntityStore(config.DefaultLimits())
	scroll := 1000.0

	s.AddEnemy(Enemy{Y: scroll - sp.DespawnMargin - 1})
	s.AddEnemy(Enemy{Y: scroll + 10})
	s.AddEnemy(Enemy{Y: scroll + sp.Horizon + sp.AheadSlack + 1})
	s.AddPickup(Pickup{Y: scroll - sp.DespawnMargin - 1})
	// Starts behind the window but its deck still reaches into it
	s.AddObstacle(Obstacle{Y: scroll - sp.DespawnMargin - 5, Deck: 8})
	s.AddPlayerBullet(Bullet{Y: scroll + sp.ViewDepth + tuning.Player.BulletOvershoot + 1})
	s.AddPlayerBullet(Bullet{Y: scroll + 100})
	s.AddEnemyBullet(Bullet{Y: scroll + 100, Traveled: tuning.Enemies.BulletTravel + 1})

	s.Despawn(scroll, &tuning)

	if len(s.Enemies) != 1 || s.Enemies[0].Y != scroll+10 {
		t.Errorf("Expected only the live enemy, got %d", len(s.Enemies))
	}
	if len(s.Pickups) != 0 {
		t.Errorf("Pickup behind the window survived")
	}
	if len(s.Obstacles) != 1 {
		t.Errorf("Obstacle with its deck in the window was removed")
	}
	if len(s.PlayerBullets) != 1 {
		t.Errorf("Expected one player bullet, got %d", len(s.PlayerBullets))
	}
	if len(s.EnemyBullets) != 0 {
		t.Errorf("Spent enemy bullet survived")
	}
}

// TestParticlesExpire verifies debris fades out
func TestParticlesExpire(t *testing.T) {
	tuning := config.DefaultTuning()
	s := NewEntityStore(config.DefaultLimits())
	s.Reset(Player{X: 210, Offset: 140, Radius: 15})
	s.AddParticle(Particle{Life: 0.01, MaxLife: 0.5, VX: 10})
	s.AddParticle(Particle{Life: 1, MaxLife: 1, VX: 10})

	s.Advance(0.02, testFrame(&tuning, 0, Intent{}))

	if len(s.Particles) != 1 {
		t.Fatalf("Expected 1 particle, got %d", len(s.Particles))
	}
	if s.Particles[0].VX >= 10 {
		t.Errorf("Drag not applied: vx %v", s.Particles[0].VX)
	}
}

// TestPlayerMovementClamped verifies the aircraft stays inside the field and offset band
func TestPlayerMovementClamped(t *testing.T) {
	tuning := config.DefaultTuning()
	pt := tuning.Player
	s := NewEntityStore(config.DefaultLimits())
	s.Reset(Player{X: 210, Offset: pt.StartOffset, Radius: pt.Radius})

	for i := 0; i < 200; i++ {
		s.Advance(0.035, testFrame(&tuning, 500, Intent{MoveX: 5, MoveY: -5}))
	}

	p := s.Player
	if p.X != tuning.River.FieldWidth-pt.EdgeInset {
		t.Errorf("X = %v, want %v", p.X, tuning.River.FieldWidth-pt.EdgeInset)
	}
	if p.Offset != pt.MaxOffset || p.Y != 500+pt.MaxOffset {
		t.Errorf("Offset %v / Y %v not clamped to %v", p.Offset, p.Y, pt.MaxOffset)
	}

	for i := 0; i < 200; i++ {
		s.Advance(0.035, testFrame(&tuning, 500, Intent{MoveX: -1, MoveY: 1}))
	}
	if s.Player.X != pt.EdgeInset || s.Player.Offset != pt.MinOffset {
		t.Errorf("Lower clamps failed: X %v offset %v", s.Player.X, s.Player.Offset)
	}
}

// TestIntentSanitized verifies axes are clamped and NaN is neutral
func TestIntentSanitized(t *testing.T) {
	in := Intent{MoveX: math.NaN(), MoveY: 7, Firing: true}.Sanitized()
	if in.MoveX != 0 || in.MoveY != 1 || !in.Firing {
		t.Errorf("Unexpected sanitized intent: %+v", in)
	}
	if got := (Intent{MoveX: -3}).Sanitized().MoveX; got != -1 {
		t.Errorf("MoveX -3 sanitized to %v", got)
	}
}

// TestKamikazePursues verifies kamikazes close on the player
func TestKamikazePursues(t *testing.T) {
	tuning := config.DefaultTuning()
	s := NewEntityStore(config.DefaultLimits())
	s.Reset(Player{X: 210, Offset: 140, Radius: 15})
	s.AddEnemy(Enemy{Kind: EnemyKamikaze, X: 300, Y: 600, Radius: 16, HP: 2})

	f := testFrame(&tuning, 0, Intent{})
	start := math.Hypot(300-210, 600-140)
	s.Advance(0.1, f)

	e := s.Enemies[0]
	dist := math.Hypot(e.X-s.Player.X, e.Y-s.Player.Y)
	want := start - tuning.Enemies.KamikazeSpeed*0.1
	if math.Abs(dist-want) > 1e-6 {
		t.Errorf("Distance %v, want %v", dist, want)
	}
}

// TestPatrolBouncesOffBanks verifies patrols reverse at the bank inset
func TestPatrolBouncesOffBanks(t *testing.T) {
	tuning := config.DefaultTuning()
	s := NewEntityStore(config.DefaultLimits())
	s.Reset(Player{X: 210, Offset: 140, Radius: 15})
	s.AddEnemy(Enemy{Kind: EnemyBoat, X: 300, Y: 600, VX: 50, Radius: 14, HP: 1})

	s.Advance(1, testFrame(&tuning, 0, Intent{}))

	e := s.Enemies[0]
	limit := 210 + 110 - tuning.Enemies.BankInset
	if e.X != limit || e.VX != -50 {
		t.Errorf("Expected bounce at %v with vx -50, got x %v vx %v", limit, e.X, e.VX)
	}
}

// TestEntityMotion verifies per-kind movement on a straight 220-wide channel
// centered at 210 (banks at 100 and 320)
func TestEntityMotion(t *testing.T) {
	tuning := config.DefaultTuning()
	et := tuning.Enemies
	sweepRight := math.Pi / 2 / et.BossSweepRate
	sweepLeft := 3 * math.Pi / 2 / et.BossSweepRate

	tests := []struct {
		name    string
		elapsed float64
		dt      float64
		setup   func(s *EntityStore)
		check   func(t *testing.T, s *EntityStore)
	}{
		{"boss sweep clamped at right bank", sweepRight, 1, func(s *EntityStore) {
			s.AddEnemy(Enemy{Kind: EnemyBoss, X: 315, Y: 600, Radius: 30})
		}, func(t *testing.T, s *EntityStore) {
			if want := 320 - et.BossInset; s.Enemies[0].X != want {
				t.Errorf("Boss X %v, want %v", s.Enemies[0].X, want)
			}
		}},
		{"boss sweep clamped at left bank", sweepLeft, 1, func(s *EntityStore) {
			s.AddEnemy(Enemy{Kind: EnemyBoss, X: 105, Y: 600, Radius: 30})
		}, func(t *testing.T, s *EntityStore) {
			if want := 100 + et.BossInset; s.Enemies[0].X != want {
				t.Errorf("Boss X %v, want %v", s.Enemies[0].X, want)
			}
		}},
		{"boss sweep inside channel", sweepRight, 0.5, func(s *EntityStore) {
			s.AddEnemy(Enemy{Kind: EnemyBoss, X: 210, Y: 600, Radius: 30})
		}, func(t *testing.T, s *EntityStore) {
			if want := 210 + et.BossSweep*0.5; math.Abs(s.Enemies[0].X-want) > 1e-9 {
				t.Errorf("Boss X %v, want %v", s.Enemies[0].X, want)
			}
		}},
		{"pickup pulled toward center", 0, 0.5, func(s *EntityStore) {
			s.AddPickup(Pickup{Kind: PickupFuel, X: 120, Y: 600, Radius: 14})
		}, func(t *testing.T, s *EntityStore) {
			want := 120 + (210-120)*tuning.Pickups.Pull*0.5
			if x := s.Pickups[0].X; math.Abs(x-want) > 1e-9 {
				t.Errorf("Pickup X %v, want %v", x, want)
			}
		}},
		{"pickup pull saturates at center", 0, 2, func(s *EntityStore) {
			s.AddPickup(Pickup{Kind: PickupFuel, X: 300, Y: 600, Radius: 14})
		}, func(t *testing.T, s *EntityStore) {
			if x := s.Pickups[0].X; x != 210 {
				t.Errorf("Pickup X %v, want 210", x)
			}
		}},
		{"island keeps its lane", 0, 1, func(s *EntityStore) {
			s.AddObstacle(Obstacle{Kind: ObstacleIsland, X: 150, Y: 600, Radius: 16, Drift: tuning.Obstacles.IslandDrift})
		}, func(t *testing.T, s *EntityStore) {
			o := s.Obstacles[0]
			if o.X != 150 {
				t.Errorf("Island drifted sideways to %v", o.X)
			}
			if want := 600 + tuning.Obstacles.IslandDrift*tuning.Clock.BaseSpeed; math.Abs(o.Y-want) > 1e-9 {
				t.Errorf("Island Y %v, want %v", o.Y, want)
			}
		}},
		{"bullets fly straight", 0, 0.5, func(s *EntityStore) {
			s.AddPlayerBullet(Bullet{X: 200, Y: 300, VX: 300, VY: 400})
			s.AddEnemyBullet(Bullet{X: 200, Y: 300, VX: -30, VY: -40})
		}, func(t *testing.T, s *EntityStore) {
			pb, eb := s.PlayerBullets[0], s.EnemyBullets[0]
			if pb.X != 350 || pb.Y != 500 || math.Abs(pb.Traveled-250) > 1e-9 {
				t.Errorf("Player bullet at (%v, %v) traveled %v", pb.X, pb.Y, pb.Traveled)
			}
			if eb.X != 185 || eb.Y != 280 || math.Abs(eb.Traveled-25) > 1e-9 {
				t.Errorf("Enemy bullet at (%v, %v) traveled %v", eb.X, eb.Y, eb.Traveled)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewEntityStore(config.DefaultLimits())
			s.Reset(Player{X: 210, Offset: 140, Radius: 15})
			tt.setup(s)

			f := testFrame(&tuning, 0, Intent{})
			f.Elapsed = tt.elapsed
			s.Advance(tt.dt, f)

			tt.check(t, s)
		})
	}
}

// TestEnemyBulletTravelLimit verifies enemy shots expire once they fly past BulletTravel
func TestEnemyBulletTravelLimit(t *testing.T) {
	tuning := config.DefaultTuning()
	limit := tuning.Enemies.BulletTravel

	tests := []struct {
		name        string
		traveled    float64
		vy          float64
		expectAlive bool
	}{
		{"short of the limit", limit - 1, 0, true},
		{"exactly at the limit", limit, 0, true},
		{"past the limit", limit + 0.5, 0, false},
		{"crosses the limit in flight", limit - 5, -100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewEntityStore(config.DefaultLimits())
			s.Reset(Player{X: 210, Offset: 140, Radius: 15})
			s.AddEnemyBullet(Bullet{X: 210, Y: 500, VY: tt.vy, Radius: 3, Traveled: tt.traveled})

			s.Advance(0.1, testFrame(&tuning, 0, Intent{}))
			s.Despawn(0, &tuning)

			if alive := len(s.EnemyBullets) == 1; alive != tt.expectAlive {
				t.Errorf("Bullet alive = %v, want %v", alive, tt.expectAlive)
			}
		})
	}
}
