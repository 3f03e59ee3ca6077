package config

import (
	_ "embed"
)

//go:embed defaults/cordon.yaml
var defaultYAML []byte

// Default returns the hardcoded default configuration, used when the
// embedded YAML cannot be parsed.
func Default() Config {
	return Config{
		Placement: PlacementConfig{
			HeadingTolerance: 45,
			MinLaneClearance: 4,
		},
		Clipping: ClippingConfig{
			Margin: 0.5,
		},
		SpikeStrip: SpikeStripConfig{
			DeployRange:     50,
			PollIntervalMs:  100,
			HitGraceMs:      2500,
			RetrieveDelayMs: 1000,
		},
		Monitor: MonitorConfig{
			CrewIntervalMs: 500,
			MarkerDelayMs:  30000,
		},
		SpeedZone: SpeedZoneConfig{
			Radius: 40,
			Limit:  8,
		},
		Levels: []LevelSpec{
			{Level: 1, VehicleModel: "police", CopModel: "cop", CopsPerVehicle: 1},
			{Level: 2, VehicleModel: "police", CopModel: "cop", CopsPerVehicle: 2, Barrier: "cone"},
			{Level: 3, VehicleModel: "policet", CopModel: "cop", CopsPerVehicle: 2, Barrier: "cone", Light: "flare"},
			{Level: 4, VehicleModel: "fbi", CopModel: "swat", CopsPerVehicle: 2, Barrier: "barrier", Light: "flare"},
			{Level: 5, VehicleModel: "riot", CopModel: "swat", CopsPerVehicle: 3, Barrier: "barrier", Light: "spotlight"},
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
