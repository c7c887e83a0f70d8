package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaultTuningValid verifies the stock balance passes validation
func TestDefaultTuningValid(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("DefaultTuning invalid: %v", err)
	}
}

// TestLoadTuningOverlay verifies unspecified keys keep their defaults
func TestLoadTuningOverlay(t *testing.T) {
	path := writeTuning(t, `
river:
  segments: 40
combo:
  maxMultiplier: 6
enemies:
  boss:
    hp: 20
`)

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}

	def := DefaultTuning()
	if tuning.River.Segments != 40 || tuning.Combo.MaxMultiplier != 6 || tuning.Enemies.Boss.HP != 20 {
		t.Errorf("Overlay not applied: %+v", tuning.River)
	}
	if tuning.River.SegmentStep != def.River.SegmentStep || tuning.Combo.Step != def.Combo.Step {
		t.Error("Defaults lost under overlay")
	}
	if tuning.Enemies.Boss.Reward != def.Enemies.Boss.Reward {
		t.Error("Nested defaults lost under overlay")
	}
}

// TestLoadTuningErrors verifies bad files are reported
func TestLoadTuningErrors(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || errors.Is(err, ErrInvalidTuning) {
		t.Errorf("Missing file: %v", err)
	}

	if _, err := LoadTuning(writeTuning(t, "river: [1, 2")); err == nil || errors.Is(err, ErrInvalidTuning) {
		t.Errorf("Malformed YAML: %v", err)
	}

	if _, err := LoadTuning(writeTuning(t, "river:\n  minWidth: 300\n")); !errors.Is(err, ErrInvalidTuning) {
		t.Errorf("Inverted widths: expected ErrInvalidTuning, got %v", err)
	}
}

// TestValidate verifies each invariant is enforced
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"one segment", func(t *Tuning) { t.River.Segments = 1 }},
		{"zero step", func(t *Tuning) { t.River.SegmentStep = 0 }},
		{"initial width out of range", func(t *Tuning) { t.River.InitialWidth = 500 }},
		{"river wider than field", func(t *Tuning) { t.River.FieldWidth = 200 }},
		{"inverted gaps", func(t *Tuning) { t.Spawn.MaxGap = t.Spawn.MinGap - 1 }},
		{"horizon inside view", func(t *Tuning) { t.Spawn.Horizon = t.Spawn.ViewDepth - 1 }},
		{"zero max dt", func(t *Tuning) { t.Clock.MaxDT = 0 }},
		{"no hp", func(t *Tuning) { t.Player.HP = 0 }},
		{"no fuel", func(t *Tuning) { t.Player.MaxFuel = 0 }},
		{"fuel above cap", func(t *Tuning) { t.Player.MaxFuel = FuelCap + 1 }},
		{"island outpays boat", func(t *Tuning) { t.Obstacles.IslandReward = t.Enemies.Boat.Reward }},
		{"offset band inverted", func(t *Tuning) { t.Player.MinOffset = t.Player.MaxOffset + 1 }},
		{"zero combo step", func(t *Tuning) { t.Combo.Step = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := DefaultTuning()
			tt.mutate(&tuning)
			if err := tuning.Validate(); !errors.Is(err, ErrInvalidTuning) {
				t.Errorf("Expected ErrInvalidTuning, got %v", err)
			}
		})
	}
}

// TestLoadFromEnv verifies environment overrides
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TICK_RATE", "30")
	t.Setenv("SIM_SEED", "77")
	t.Setenv("AUTO_START", "true")
	t.Setenv("ALLOWED_ORIGIN", "https://river.example")
	t.Setenv("EVENT_LOG", "logs/events.jsonl")
	t.Setenv("TUNING_FILE", writeTuning(t, "clock:\n  baseSpeed: 200\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Sim.TickRate != 30 || cfg.Sim.Seed != 77 || !cfg.Sim.AutoStart {
		t.Errorf("Env overrides not applied: %+v %+v", cfg.Server, cfg.Sim)
	}
	if cfg.Server.AllowedOrigins[len(cfg.Server.AllowedOrigins)-1] != "https://river.example" {
		t.Errorf("Origin not appended: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.EventLog.Path != "logs/events.jsonl" {
		t.Errorf("Event log path %q", cfg.EventLog.Path)
	}
	if cfg.Tuning.Clock.BaseSpeed != 200 {
		t.Errorf("Tuning overlay not applied: %v", cfg.Tuning.Clock.BaseSpeed)
	}
}

// TestLoadBadTuningFile verifies a broken overlay fails startup
func TestLoadBadTuningFile(t *testing.T) {
	t.Setenv("TUNING_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Expected error for missing tuning file")
	}
}
