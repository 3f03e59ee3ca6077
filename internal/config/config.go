// Package config provides YAML-based configuration loading for the
// roadblock engine: placement tuning, spike strip timing, monitor
// intervals and the per-level crew composition table.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the engine.
type Config struct {
	Placement  PlacementConfig  `yaml:"placement"`
	Clipping   ClippingConfig   `yaml:"clipping"`
	SpikeStrip SpikeStripConfig `yaml:"spike_strip"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	SpeedZone  SpeedZoneConfig  `yaml:"speed_zone"`
	Levels     []LevelSpec      `yaml:"levels"`
}

// PlacementConfig tunes lane selection.
type PlacementConfig struct {
	// HeadingTolerance is the maximum angle, in degrees, between a
	// lane's heading and the pursuit heading for the lane to count as
	// facing the target.
	HeadingTolerance float64 `yaml:"heading_tolerance"`

	// MinLaneClearance is the distance, in world units, under which two
	// lanes are considered too close to hold separate slot vehicles.
	MinLaneClearance float64 `yaml:"min_lane_clearance"`
}

// ClippingConfig tunes the vehicle overhang resolver.
type ClippingConfig struct {
	// Margin is added on top of the lane/vehicle length difference when
	// displacing a slot sideways.
	Margin float64 `yaml:"margin"`
}

// SpikeStripConfig tunes spike strip deployment and retrieval.
type SpikeStripConfig struct {
	// DeployRange is the target distance, in world units, at which an
	// idle strip deploys.
	DeployRange float64 `yaml:"deploy_range"`

	PollIntervalMs  int `yaml:"poll_interval_ms"`
	HitGraceMs      int `yaml:"hit_grace_ms"`
	RetrieveDelayMs int `yaml:"retrieve_delay_ms"`
}

// PollInterval returns how often the proximity monitor samples the
// target distance.
func (c SpikeStripConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// HitGrace returns how long a hit strip stays deployed before it is
// undeployed. A bypassed strip undeploys immediately.
func (c SpikeStripConfig) HitGrace() time.Duration {
	return time.Duration(c.HitGraceMs) * time.Millisecond
}

// RetrieveDelay returns the pause between undeploying a strip and
// starting its retrieval.
func (c SpikeStripConfig) RetrieveDelay() time.Duration {
	return time.Duration(c.RetrieveDelayMs) * time.Millisecond
}

// MonitorConfig tunes the roadblock's background checks.
type MonitorConfig struct {
	CrewIntervalMs int `yaml:"crew_interval_ms"`
	MarkerDelayMs  int `yaml:"marker_delay_ms"`
}

// CrewInterval returns how often crew liveness is sampled.
func (c MonitorConfig) CrewInterval() time.Duration {
	return time.Duration(c.CrewIntervalMs) * time.Millisecond
}

// MarkerDelay returns how long the map marker lingers after release.
func (c MonitorConfig) MarkerDelay() time.Duration {
	return time.Duration(c.MarkerDelayMs) * time.Millisecond
}

// SpeedZoneConfig tunes the slowdown zone placed around a roadblock.
type SpeedZoneConfig struct {
	Radius float64 `yaml:"radius"`
	Limit  float64 `yaml:"limit"`
}

// LevelSpec describes the crew composition for one roadblock level.
type LevelSpec struct {
	Level          int    `yaml:"level"`
	VehicleModel   string `yaml:"vehicle_model"`
	CopModel       string `yaml:"cop_model"`
	CopsPerVehicle int    `yaml:"cops_per_vehicle"`

	// Barrier is the prop model placed ahead of each slot vehicle.
	// Empty means no barrier for this level.
	Barrier string `yaml:"barrier"`

	// Light is the light prop model placed beside each slot vehicle.
	// Empty means no light for this level.
	Light string `yaml:"light"`
}

// Validate checks the configuration for values the engine cannot work
// with.
func (c Config) Validate() error {
	if c.Placement.HeadingTolerance <= 0 || c.Placement.HeadingTolerance > 180 {
		return fmt.Errorf("config: heading_tolerance %.1f out of range (0, 180]", c.Placement.HeadingTolerance)
	}
	if c.Placement.MinLaneClearance <= 0 {
		return fmt.Errorf("config: min_lane_clearance must be positive, got %.1f", c.Placement.MinLaneClearance)
	}
	if c.Clipping.Margin < 0 {
		return fmt.Errorf("config: clipping margin must not be negative, got %.1f", c.Clipping.Margin)
	}
	if c.SpikeStrip.DeployRange <= 0 {
		return fmt.Errorf("config: deploy_range must be positive, got %.1f", c.SpikeStrip.DeployRange)
	}
	if c.SpikeStrip.PollIntervalMs <= 0 {
		return fmt.Errorf("config: poll_interval_ms must be positive, got %d", c.SpikeStrip.PollIntervalMs)
	}
	if c.Monitor.CrewIntervalMs <= 0 {
		return fmt.Errorf("config: crew_interval_ms must be positive, got %d", c.Monitor.CrewIntervalMs)
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("config: at least one level is required")
	}
	seen := make(map[int]bool, len(c.Levels))
	for _, lvl := range c.Levels {
		if lvl.Level < 1 {
			return fmt.Errorf("config: level numbers start at 1, got %d", lvl.Level)
		}
		if seen[lvl.Level] {
			return fmt.Errorf("config: duplicate level %d", lvl.Level)
		}
		seen[lvl.Level] = true
		if lvl.VehicleModel == "" {
			return fmt.Errorf("config: level %d has no vehicle model", lvl.Level)
		}
		if lvl.CopsPerVehicle < 1 {
			return fmt.Errorf("config: level %d needs at least one cop per vehicle", lvl.Level)
		}
	}
	return nil
}

// LevelFor returns the spec for a level number.
func (c Config) LevelFor(level int) (LevelSpec, error) {
	for _, lvl := range c.Levels {
		if lvl.Level == level {
			return lvl, nil
		}
	}
	return LevelSpec{}, fmt.Errorf("config: unknown level %d", level)
}

// MaxLevel returns the highest configured level number.
func (c Config) MaxLevel() int {
	max := 0
	for _, lvl := range c.Levels {
		if lvl.Level > max {
			max = lvl.Level
		}
	}
	return max
}
