package roadblock

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/geo"
)

// resolveClipping walks adjacent slot pairs in lane order and corrects
// vehicles whose footprint exceeds their lane width. An overhang is
// tolerated when the next slot has at least that much spare width;
// otherwise the vehicle is displaced away from the road center, along
// heading minus ninety degrees, by the overhang plus the margin.
//
// Runs once, synchronously, after slot creation and before any spawn.
func resolveClipping(slots []Slot, heading, margin float64, logger *log.Logger) {
	for i := 0; i+1 < len(slots); i++ {
		slot, next := slots[i], slots[i+1]
		if slot.BackupUnit() == BackupNone {
			continue
		}

		difference := slot.Lane().Width - slot.VehicleLength()
		if difference >= 0 {
			continue
		}
		overhang := -difference

		nextDifference := next.Lane().Width - next.VehicleLength()
		if nextDifference >= overhang {
			// The neighbor has room; the vehicles interleave.
			continue
		}

		displacement := overhang + margin
		corrected := geo.Offset(slot.Position(), heading-90, displacement)
		slot.ModifyVehiclePosition(corrected)
		logger.Debug("displaced clipping vehicle",
			"lane", slot.Lane().Number,
			"overhang", overhang,
			"displacement", displacement)
	}
}
