package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"river-strike/internal/config"
)

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{
		TickRate: 60,
		Seed:     42,
		Tuning:   config.DefaultTuning(),
		Limits:   config.DefaultLimits(),
	})
}

// fakeRecorder captures recorded scores
type fakeRecorder struct {
	got chan int
}

func (f *fakeRecorder) Record(runID string, score int, at time.Time) error {
	f.got <- score
	return nil
}

// TestNewEngine verifies engine creation with correct defaults
func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		tickRate int
		want     int
	}{
		{"standard 60 TPS", 60, 60},
		{"low 30 TPS", 30, 30},
		{"zero falls back", 0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(EngineConfig{TickRate: tt.tickRate, Tuning: config.DefaultTuning(), Limits: config.DefaultLimits()})
			if engine == nil {
				t.Fatal("NewEngine returned nil")
			}
			if engine.tickRate != tt.want {
				t.Errorf("tickRate = %d, want %d", engine.tickRate, tt.want)
			}
			if s := engine.GetSnapshot(); s.State != "idle" {
				t.Errorf("Expected idle snapshot, got %s", s.State)
			}
		})
	}
}

// TestEngineStartStop verifies engine can start and stop without panics
func TestEngineStartStop(t *testing.T) {
	engine := newTestEngine()
	engine.StartRun()

	engine.Start()
	time.Sleep(100 * time.Millisecond)
	engine.Stop()

	// Should not panic on double stop
	engine.Stop()

	if engine.GetSnapshot().TickNumber == 0 {
		t.Error("Expected the loop to tick while running")
	}
}

// TestEngineRestart verifies a stopped loop can be started again
func TestEngineRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping wall-clock loop test in short mode")
	}

	engine := newTestEngine()
	engine.StartRun()

	engine.Start()
	time.Sleep(50 * time.Millisecond)
	engine.Stop()
	stopped := engine.GetSnapshot().TickNumber

	// One tick may already be in flight when Stop returns
	time.Sleep(50 * time.Millisecond)
	stopped = engine.GetSnapshot().TickNumber
	time.Sleep(50 * time.Millisecond)
	if got := engine.GetSnapshot().TickNumber; got != stopped {
		t.Fatalf("Loop kept ticking after Stop: %d -> %d", stopped, got)
	}

	engine.Start()
	defer engine.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for engine.GetSnapshot().TickNumber == stopped {
		if time.Now().After(deadline) {
			t.Fatal("Restarted loop never ticked")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestEngineStepAndRun verifies runs start and advance under Step
func TestEngineStepAndRun(t *testing.T) {
	engine := newTestEngine()

	if got := engine.RiverSamples(0, 100, 10); got != nil {
		t.Errorf("Expected no river before the first run")
	}

	runID := engine.StartRun()
	if runID == "" {
		t.Fatal("Expected run ID")
	}
	if engine.State() != StateRunning {
		t.Fatalf("Expected running, got %s", engine.State())
	}

	for i := 0; i < 10; i++ {
		engine.Step(1.0 / 60)
	}

	snap := engine.GetSnapshot()
	if snap.TickNumber != 10 || snap.RunID != runID {
		t.Errorf("Snapshot tick %d run %s", snap.TickNumber, snap.RunID)
	}
	if snap.Scroll <= 0 {
		t.Error("Scroll did not advance")
	}
	if len(snap.River) == 0 {
		t.Error("Snapshot carries no river samples")
	}
	if got := engine.RiverSamples(0, 100, 10); len(got) != 11 {
		t.Errorf("Expected 11 river samples, got %d", len(got))
	}

	stats := engine.GetStats()
	if stats["state"] != "running" || stats["totalRuns"] != 1 {
		t.Errorf("Unexpected stats: %v", stats)
	}
}

// TestEnginePauseResume verifies control errors propagate
func TestEnginePauseResume(t *testing.T) {
	engine := newTestEngine()

	if err := engine.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Pause while idle: %v", err)
	}

	engine.StartRun()
	if err := engine.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if engine.GetSnapshot().State != "paused" {
		t.Error("Snapshot not republished on pause")
	}

	engine.Step(1.0 / 60)
	if engine.GetSnapshot().TickNumber != 0 {
		t.Error("Paused engine advanced")
	}

	if err := engine.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := engine.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Double resume: %v", err)
	}
}

// TestSnapshotIsolation verifies readers get private copies
func TestSnapshotIsolation(t *testing.T) {
	engine := newTestEngine()
	engine.StartRun()
	engine.Step(1.0 / 60)

	a := engine.GetSnapshot()
	center := a.River[0].Center
	a.River[0].Center = -1
	a.Enemies = append(a.Enemies, EnemySnapshot{ID: 9999})
	a.Score = -5

	b := engine.GetSnapshot()
	if b.River[0].Center != center {
		t.Error("River sample mutation leaked into engine")
	}
	if b.Score == -5 {
		t.Error("Score mutation leaked into engine")
	}
	for _, e := range b.Enemies {
		if e.ID == 9999 {
			t.Fatal("Enemy append leaked into engine")
		}
	}
}

// TestConcurrentSnapshotReads verifies readers and the tick do not race
func TestConcurrentSnapshotReads(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	engine := newTestEngine()
	engine.StartRun()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					snap := engine.GetSnapshot()
					_ = len(snap.Enemies) + len(snap.River)
				}
			}
		}()
	}

	for i := 0; i < 300; i++ {
		engine.SetIntent(Intent{Firing: true, MoveX: 0.3})
		engine.Step(1.0 / 60)
	}
	close(stop)
	wg.Wait()
}

// TestSetIntentSanitizes verifies stored input is clamped
func TestSetIntentSanitizes(t *testing.T) {
	engine := newTestEngine()
	engine.SetIntent(Intent{MoveX: 9, MoveY: -9, Firing: true})

	in := engine.GetIntent()
	if in.MoveX != 1 || in.MoveY != -1 || !in.Firing {
		t.Errorf("Unexpected intent: %+v", in)
	}

	engine.StartRun()
	if (engine.GetIntent() != Intent{}) {
		t.Error("StartRun should clear the intent")
	}
}

// TestEngineListenersAndRecorder verifies event fan-out and score persistence
func TestEngineListenersAndRecorder(t *testing.T) {
	engine := newTestEngine()
	rec := &fakeRecorder{got: make(chan int, 1)}
	engine.SetScoreRecorder(rec)

	var events []Event
	engine.AddListener(func(ev Event) { events = append(events, ev) })

	var observed int
	engine.SetTickObserver(func(took time.Duration, snap *GameSnapshot) { observed++ })

	engine.StartRun()

	// Park the aircraft on the bank with one HP left
	engine.mu.Lock()
	engine.session.Store.Player.HP = 1
	engine.session.Store.Player.X = 0
	engine.mu.Unlock()

	engine.Step(1.0 / 60)

	if engine.State() != StateGameOver {
		t.Fatalf("Expected game over, got %s", engine.State())
	}
	if observed != 1 {
		t.Errorf("Tick observer called %d times", observed)
	}

	select {
	case score := <-rec.got:
		if score != engine.GetSnapshot().FinalScore {
			t.Errorf("Recorded %d, final %d", score, engine.GetSnapshot().FinalScore)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Score was never recorded")
	}

	if len(events) == 0 || events[0].Type != EventTypeRunStart {
		t.Fatal("Expected runStart as the first event")
	}
	if events[len(events)-1].Type != EventTypeGameOver {
		t.Errorf("Expected gameOver last, got %s", events[len(events)-1].Type)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Sequence <= events[i-1].Sequence {
			t.Fatalf("Sequence not increasing at %d", i)
		}
	}
}
