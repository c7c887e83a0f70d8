package game

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"river-strike/internal/config"
)

// ScoreRecorder persists the final score of a finished run.
type ScoreRecorder interface {
	Record(runID string, score int, at time.Time) error
}

// TickObserver is called after every simulated tick with its wall duration.
// It runs under the engine lock and must not call back into the Engine.
type TickObserver func(took time.Duration, snap *GameSnapshot)

// EngineConfig configures the host loop.
type EngineConfig struct {
	TickRate int
	Seed     int64 // 0 = fresh time-based seed per run
	Tuning   config.Tuning
	Limits   config.ResourceLimits
}

// Engine hosts a Session: it owns the wall clock, serializes control calls
// with the tick, and publishes snapshots and events to readers.
type Engine struct {
	mu      sync.RWMutex
	session *Session
	intent  Intent

	tickRate int
	seed     int64
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	lastTick time.Time
	now      func() time.Time

	snapshotPool *SnapshotPool
	eventLog     *EventLog
	eventSeq     uint64 // atomic

	listeners []EventSink
	recorder  ScoreRecorder
	onTick    TickObserver

	totalRuns int
}

// NewEngine creates an engine with an idle session.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}

	e := &Engine{
		tickRate:     cfg.TickRate,
		seed:         cfg.Seed,
		now:          time.Now,
		snapshotPool: NewSnapshotPool(cfg.Limits, RiverSampleCount(&cfg.Tuning)),
		eventLog:     NewEventLog(config.DefaultEventLog()),
	}
	e.session = NewSession(cfg.Tuning, cfg.Limits, e.dispatch)
	e.produceSnapshot()
	return e
}

// SetEventLog replaces the journal. Call before StartEventLog.
func (e *Engine) SetEventLog(el *EventLog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventLog = el
}

// AddListener registers an event consumer. Listeners run on the tick
// goroutine and must not block.
func (e *Engine) AddListener(l EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// SetScoreRecorder sets where final scores go.
func (e *Engine) SetScoreRecorder(r ScoreRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = r
}

// SetTickObserver installs the per-tick metrics hook.
func (e *Engine) SetTickObserver(fn TickObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// Start begins the game loop. A stopped engine can be started again.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = e.now()
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.stopChan = make(chan struct{})
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 River engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 River engine stopped")
}

// tick measures wall-clock dt; the session clamps it.
func (e *Engine) tick() {
	now := e.now()
	e.mu.Lock()
	dt := now.Sub(e.lastTick).Seconds()
	e.lastTick = now
	e.mu.Unlock()

	e.Step(dt)
}

// Step advances the session by dt seconds and publishes a snapshot.
// Exposed for headless hosts and tests that drive time themselves.
func (e *Engine) Step(dt float64) {
	start := time.Now()

	e.mu.Lock()
	before := e.session.State
	e.session.Tick(dt, e.intent)
	after := e.session.State
	snap := e.produceSnapshot()

	var finished bool
	var runID string
	var score int
	if before == StateRunning && after == StateGameOver {
		finished = true
		runID, score = e.session.RunID, e.session.FinalScore
	}
	if e.onTick != nil {
		e.onTick(time.Since(start), snap)
	}
	recorder := e.recorder
	e.mu.Unlock()

	if finished && recorder != nil {
		go func() {
			if err := recorder.Record(runID, score, time.Now()); err != nil {
				log.Printf("⚠️ Failed to record score for run %s: %v", runID, err)
			}
		}()
	}
}

// StartRun begins a fresh run and returns its ID.
func (e *Engine) StartRun() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	seed := e.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.intent = Intent{}
	e.session.StartRun(seed)
	e.totalRuns++
	e.produceSnapshot()
	return e.session.RunID
}

// Pause freezes the current run.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.session.Pause(); err != nil {
		return err
	}
	e.produceSnapshot()
	return nil
}

// Resume continues a paused run.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.session.Resume(); err != nil {
		return err
	}
	e.lastTick = e.now()
	e.produceSnapshot()
	return nil
}

// SetIntent replaces the control input read at the start of the next tick.
func (e *Engine) SetIntent(in Intent) {
	e.mu.Lock()
	e.intent = in.Sanitized()
	e.mu.Unlock()
}

// GetIntent returns the current control input.
func (e *Engine) GetIntent() Intent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.intent
}

// State returns the run state.
func (e *Engine) State() RunState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.State
}

// GetSnapshot returns a private copy of the latest published snapshot.
func (e *Engine) GetSnapshot() *GameSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotPool.AcquireRead().Clone()
}

// RiverSamples samples the current run's channel. Empty before the first run.
func (e *Engine) RiverSamples(from, to, step float64) []Channel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session.River == nil {
		return nil
	}
	return e.session.River.Sample(from, to, step)
}

// GetStats returns counters for the stats endpoint.
func (e *Engine) GetStats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.session
	return map[string]interface{}{
		"state":      s.State.String(),
		"runId":      s.RunID,
		"tick":       s.TickNum,
		"score":      s.ScoreInt(),
		"kills":      s.Kills,
		"wave":       s.Wave,
		"enemies":    len(s.Store.Enemies),
		"bullets":    len(s.Store.PlayerBullets) + len(s.Store.EnemyBullets),
		"particles":  len(s.Store.Particles),
		"totalRuns":  e.totalRuns,
		"tickRate":   e.tickRate,
		"maxEnemies": e.snapshotPool.GetLimits().MaxEnemies,
		"eventLog":   e.eventLog.GetStats(),
		"lastSpawnY": e.lastSpawnY(),
	}
}

func (e *Engine) lastSpawnY() float64 {
	if e.session.Spawner == nil {
		return 0
	}
	return e.session.Spawner.LastSpawnY
}

// produceSnapshot copies the session into the next pool slot. Caller holds mu.
func (e *Engine) produceSnapshot() *GameSnapshot {
	snap := e.snapshotPool.AcquireWrite()
	e.session.Fill(snap)
	e.snapshotPool.PublishWrite()
	return snap
}

// dispatch fans an event out to the journal and listeners. Runs under mu.
func (e *Engine) dispatch(ev Event) {
	ev.Sequence = atomic.AddUint64(&e.eventSeq, 1)
	e.eventLog.Emit(ev)
	for _, l := range e.listeners {
		l(ev)
	}
}

// StartEventLog starts the journal writer.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the journal.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns journal counters.
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
