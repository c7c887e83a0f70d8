package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"river-strike/internal/api"
	"river-strike/internal/config"
	"river-strike/internal/game"
	"river-strike/internal/render"
	"river-strike/internal/scores"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🌊 ================================")
	log.Println("🌊  RIVER STRIKE - GO ENGINE")
	log.Println("🌊 ================================")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server
	limits := appConfig.Limits

	if simCfg.TuningFile != "" {
		log.Printf("🎛️ Tuning overlay: %s", simCfg.TuningFile)
	}
	log.Printf("🎮 Config: %d TPS, %d broadcasts/s, seed %d", simCfg.TickRate, simCfg.BroadcastRate, simCfg.Seed)
	log.Printf("🛡️ Resource limits: %d enemies, %d+%d bullets, %d particles, %d ws clients",
		limits.MaxEnemies, limits.MaxPlayerBullets, limits.MaxEnemyBullets, limits.MaxParticles, limits.MaxWSClients)

	store, err := scores.Open(appConfig.Scores.Path, appConfig.Scores.Size)
	if err != nil {
		log.Fatalf("❌ Failed to open score store: %v", err)
	}
	if best, err := store.Best(); err == nil {
		log.Printf("🏆 High score: %d", best.Score)
	}

	engine := game.NewEngine(game.EngineConfig{
		TickRate: simCfg.TickRate,
		Seed:     simCfg.Seed,
		Tuning:   appConfig.Tuning,
		Limits:   limits,
	})
	engine.SetScoreRecorder(store)
	engine.SetTickObserver(api.ObserveTick)
	engine.AddListener(api.RecordEvent)

	// Start event log
	engine.SetEventLog(game.NewEventLog(appConfig.EventLog))
	if err := engine.StartEventLog(appConfig.EventLog.Path); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if appConfig.EventLog.Path != "" {
		log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
	}

	// Start debug server
	if err := api.StartDebugServer(api.ObservabilityFromPort(appConfig.Debug.Enabled, appConfig.Debug.Port)); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	renderer := render.NewRenderer(render.Config{
		Scale:    1,
		FontPath: os.Getenv("FONT_PATH"),
	})

	server := api.NewServer(engine, store, renderer, appConfig)
	engine.AddListener(server.Hub().EventListener())

	engine.Start()
	log.Println("✅ Game Engine started")

	if simCfg.AutoStart {
		runID := engine.StartRun()
		log.Printf("🎮 Auto-started run %s", runID)
	}

	// Start API server in goroutine
	go func() {
		addr := fmt.Sprintf(":%d", serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("📡 WebSocket: ws://localhost%s/ws (add ?codec=msgpack for binary)", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
