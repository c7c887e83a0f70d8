// =============================================================================
// RIVER STRIKE - FRAME DUMP
// =============================================================================
// Headless runner: plays one seeded run on autopilot with a fixed timestep
// and writes every Nth frame as a PNG. Useful for eyeballing generation and
// tuning changes without a browser.
//
// USAGE:
//   go run ./cmd/framedump -seed 42 -seconds 30 -out frames
//   ffmpeg -framerate 20 -i frames/frame_%06d.png run.mp4
// =============================================================================
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"river-strike/internal/config"
	"river-strike/internal/game"
	"river-strike/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	seed := flag.Int64("seed", 1, "run seed")
	seconds := flag.Float64("seconds", 30, "simulated seconds to play")
	tps := flag.Int("tps", 60, "fixed simulation ticks per second")
	every := flag.Int("every", 3, "write every Nth tick")
	out := flag.String("out", "frames", "output directory")
	scale := flag.Float64("scale", 1, "pixels per world unit")
	workers := flag.Int("workers", 0, "encoder goroutines (0 = NumCPU)")
	tuningFile := flag.String("tuning", os.Getenv("TUNING_FILE"), "YAML tuning overlay")
	flag.Parse()

	if *tps <= 0 || *every <= 0 || *seconds <= 0 {
		log.Fatal("❌ -tps, -every and -seconds must be positive")
	}

	tuning := config.DefaultTuning()
	if *tuningFile != "" {
		t, err := config.LoadTuning(*tuningFile)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		tuning = t
	}

	engine := game.NewEngine(game.EngineConfig{
		TickRate: *tps,
		Seed:     *seed,
		Tuning:   tuning,
		Limits:   config.DefaultLimits(),
	})

	pool := render.NewPNGWorkerPool(*out, *workers, render.Config{
		Scale:    *scale,
		FontPath: os.Getenv("FONT_PATH"),
	})
	if err := pool.Start(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	runID := engine.StartRun()
	log.Printf("🌊 Run %s (seed %d), %.0fs at %d TPS → %s", runID, *seed, *seconds, *tps, *out)

	start := time.Now()
	dt := 1 / float64(*tps)
	ticks := int(*seconds * float64(*tps))
	frame := 0
	for i := 0; i < ticks; i++ {
		snap := engine.GetSnapshot()
		engine.SetIntent(game.Autopilot(snap))
		engine.Step(dt)

		if i%*every == 0 {
			pool.Submit(frame, engine.GetSnapshot())
			frame++
		}
		if engine.State() == game.StateGameOver {
			pool.Submit(frame, engine.GetSnapshot())
			frame++
			break
		}
	}

	if err := pool.Stop(); err != nil {
		log.Printf("⚠️ Some frames failed: %v", err)
	}

	final := engine.GetSnapshot()
	stats := pool.GetStats()
	log.Printf("✅ %d frames in %s (avg encode %.1fms)", frame, time.Since(start).Round(time.Millisecond), stats["avgEncodeMs"])
	log.Printf("🏁 State %s, score %d, kills %d, wave %d", final.State, final.Score, final.Kills, final.Wave)
}
