// Package config provides centralized configuration management.
// Gameplay constants live in Tuning; everything else is process settings
// with environment overrides.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	RequestsPerSec float64 // Per-IP API rate
	Burst          int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		RequestsPerSec: 20,
		Burst:          40,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origin := os.Getenv("ALLOWED_ORIGIN"); origin != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
	}
	if rps := getEnvFloat("API_RATE", 0); rps > 0 {
		cfg.RequestsPerSec = rps
	}
	if b := getEnvInt("API_BURST", 0); b > 0 {
		cfg.Burst = b
	}

	return cfg
}

// =============================================================================
// SIMULATION HOST CONFIGURATION
// =============================================================================

// SimConfig controls how the host drives the simulation.
type SimConfig struct {
	TickRate      int    // Ticks per second
	Seed          int64  // 0 = time-based seed per run
	TuningFile    string // Optional YAML overlay for Tuning
	AutoStart     bool   // Start a run as soon as the engine starts
	BroadcastRate int    // Websocket snapshot broadcasts per second
}

// DefaultSim returns the default simulation host configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:      60,
		BroadcastRate: 10,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	cfg.TuningFile = os.Getenv("TUNING_FILE")
	if os.Getenv("AUTO_START") == "true" {
		cfg.AutoStart = true
	}
	if br := getEnvInt("BROADCAST_RATE", 0); br > 0 {
		cfg.BroadcastRate = br
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits caps per-run collections and snapshot sizes.
type ResourceLimits struct {
	MaxEnemies       int
	MaxPlayerBullets int
	MaxEnemyBullets  int
	MaxPickups       int
	MaxObstacles     int
	MaxParticles     int
	MaxWSClients     int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxEnemies:       64,
		MaxPlayerBullets: 96,
		MaxEnemyBullets:  48,
		MaxPickups:       32,
		MaxObstacles:     32,
		MaxParticles:     240,
		MaxWSClients:     64,
	}
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig controls the append-only event journal.
type EventLogConfig struct {
	Path          string // Empty disables file output
	MaxPerSec     int
	FlushInterval time.Duration
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		MaxPerSec:     2000,
		FlushInterval: 100 * time.Millisecond,
	}
}

// EventLogFromEnv returns event log configuration with environment variable overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	cfg.Path = os.Getenv("EVENT_LOG")
	if n := getEnvInt("EVENT_LOG_RATE", 0); n > 0 {
		cfg.MaxPerSec = n
	}

	return cfg
}

// =============================================================================
// SCORE STORE / DEBUG
// =============================================================================

// ScoresConfig points at the leaderboard file.
type ScoresConfig struct {
	Path string
	Size int
}

// DefaultScores returns the default score store configuration.
func DefaultScores() ScoresConfig {
	return ScoresConfig{
		Path: "data/scores.json",
		Size: 5,
	}
}

// ScoresFromEnv returns score store configuration with environment variable overrides.
func ScoresFromEnv() ScoresConfig {
	cfg := DefaultScores()
	if p := os.Getenv("SCORES_FILE"); p != "" {
		cfg.Path = p
	}
	return cfg
}

// DebugConfig controls the localhost-only pprof/metrics listener.
type DebugConfig struct {
	Enabled bool
	Port    int
}

// DebugFromEnv returns debug server configuration.
func DebugFromEnv() DebugConfig {
	return DebugConfig{
		Enabled: os.Getenv("DEBUG_SERVER") != "false",
		Port:    getEnvInt("DEBUG_PORT", 6060),
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server   ServerConfig
	Sim      SimConfig
	Limits   ResourceLimits
	EventLog EventLogConfig
	Scores   ScoresConfig
	Debug    DebugConfig
	Tuning   Tuning
}

// Load returns the complete configuration with environment overrides.
// The tuning overlay is applied when TUNING_FILE is set.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		Server:   ServerFromEnv(),
		Sim:      SimFromEnv(),
		Limits:   DefaultLimits(),
		EventLog: EventLogFromEnv(),
		Scores:   ScoresFromEnv(),
		Debug:    DebugFromEnv(),
		Tuning:   DefaultTuning(),
	}

	if cfg.Sim.TuningFile != "" {
		t, err := LoadTuning(cfg.Sim.TuningFile)
		if err != nil {
			return cfg, err
		}
		cfg.Tuning = t
	}

	return cfg, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
