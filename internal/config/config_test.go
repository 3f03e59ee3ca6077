package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestEmbeddedDefaultMatchesHardcoded(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		t.Fatalf("embedded default does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("embedded default does not validate: %v", err)
	}

	want := Default()
	if cfg.Placement != want.Placement {
		t.Errorf("placement: %+v, want %+v", cfg.Placement, want.Placement)
	}
	if cfg.SpikeStrip != want.SpikeStrip {
		t.Errorf("spike strip: %+v, want %+v", cfg.SpikeStrip, want.SpikeStrip)
	}
	if len(cfg.Levels) != len(want.Levels) {
		t.Fatalf("levels: %d, want %d", len(cfg.Levels), len(want.Levels))
	}
	for i := range cfg.Levels {
		if cfg.Levels[i] != want.Levels[i] {
			t.Errorf("level %d: %+v, want %+v", i+1, cfg.Levels[i], want.Levels[i])
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, DefaultYAML(), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SpikeStrip.DeployRange != 50 {
		t.Fatalf("deploy range %v, want 50", cfg.SpikeStrip.DeployRange)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing custom path")
	}
}

func TestLoadRejectsInvalidCustomConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	body := "placement:\n  heading_tolerance: -5\n  min_lane_clearance: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Placement.HeadingTolerance = 0 }},
		{"huge tolerance", func(c *Config) { c.Placement.HeadingTolerance = 181 }},
		{"zero clearance", func(c *Config) { c.Placement.MinLaneClearance = 0 }},
		{"negative margin", func(c *Config) { c.Clipping.Margin = -1 }},
		{"zero deploy range", func(c *Config) { c.SpikeStrip.DeployRange = 0 }},
		{"no levels", func(c *Config) { c.Levels = nil }},
		{"duplicate level", func(c *Config) { c.Levels[1].Level = 1 }},
		{"level zero", func(c *Config) { c.Levels[0].Level = 0 }},
		{"no vehicle", func(c *Config) { c.Levels[0].VehicleModel = "" }},
		{"no cops", func(c *Config) { c.Levels[0].CopsPerVehicle = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLevelFor(t *testing.T) {
	cfg := Default()
	lvl, err := cfg.LevelFor(3)
	if err != nil {
		t.Fatalf("LevelFor(3): %v", err)
	}
	if lvl.VehicleModel != "policet" {
		t.Fatalf("level 3 vehicle %q", lvl.VehicleModel)
	}
	if _, err := cfg.LevelFor(99); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if cfg.MaxLevel() != 5 {
		t.Fatalf("max level %d, want 5", cfg.MaxLevel())
	}
}

func TestLevelManagerEscalation(t *testing.T) {
	m := NewLevelManager(Default())

	if got := m.Level(0, false); got != 1 {
		t.Fatalf("fresh pursuit level %d, want 1", got)
	}
	if got := m.Level(5*time.Minute, false); got != 3 {
		t.Fatalf("5 minute pursuit level %d, want 3", got)
	}
	if got := m.Level(time.Hour, false); got != 5 {
		t.Fatalf("long pursuit should cap at 5, got %d", got)
	}

	// Lethal force raises the floor even early on.
	if got := m.Level(0, true); got != 3 {
		t.Fatalf("lethal force level %d, want 3", got)
	}

	m.SetEscalation(false)
	if got := m.Level(time.Hour, false); got != 1 {
		t.Fatalf("escalation disabled, level %d, want 1", got)
	}

	m.SetInitialLevel(4)
	if got := m.Level(0, false); got != 4 {
		t.Fatalf("initial level override, got %d, want 4", got)
	}
	m.SetInitialLevel(99)
	if got := m.Level(0, false); got != 5 {
		t.Fatalf("initial level clamps to max, got %d", got)
	}
}
