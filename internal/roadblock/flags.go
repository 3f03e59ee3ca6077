package roadblock

import "strings"

// Flags are the behavioral options of a roadblock. The zero value
// disables everything.
type Flags struct {
	// SlowTraffic places a speed-reduction zone around the roadblock.
	SlowTraffic bool

	// EnableLights spawns the level's light props beside each slot.
	EnableLights bool

	// ForceInVehicle warps crew into their vehicles right after spawn.
	ForceInVehicle bool

	// SpikeStrips equips pursuit roadblock slots with spike strips.
	SpikeStrips bool

	// JoinPursuit lets released crew join the pursuit from any deployed
	// state. JoinPursuitOnBypass and JoinPursuitOnHit restrict the
	// hand-off to the matching outcome.
	JoinPursuit         bool
	JoinPursuitOnBypass bool
	JoinPursuitOnHit    bool
}

func (f Flags) String() string {
	var set []string
	for _, opt := range []struct {
		name string
		on   bool
	}{
		{"slow-traffic", f.SlowTraffic},
		{"lights", f.EnableLights},
		{"force-in-vehicle", f.ForceInVehicle},
		{"spike-strips", f.SpikeStrips},
		{"join-pursuit", f.JoinPursuit},
		{"join-pursuit-on-bypass", f.JoinPursuitOnBypass},
		{"join-pursuit-on-hit", f.JoinPursuitOnHit},
	} {
		if opt.on {
			set = append(set, opt.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, ",")
}
