package roadblock

import (
	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
)

// resolveHeading picks the roadblock heading: the first lane heading
// within tolerance of the target heading, or the first lane's heading
// when none matches.
func resolveHeading(r *road.Road, targetHeading, tolerance float64) float64 {
	for _, lane := range r.Lanes {
		if geo.HeadingDelta(lane.Heading, targetHeading) <= tolerance {
			return lane.Heading
		}
	}
	return r.Lanes[0].Heading
}

// matchingLanes returns the lanes whose heading is within tolerance of
// the given heading, preserving order.
func matchingLanes(r *road.Road, heading, tolerance float64) []road.Lane {
	var out []road.Lane
	for _, lane := range r.Lanes {
		if geo.HeadingDelta(lane.Heading, heading) <= tolerance {
			out = append(out, lane)
		}
	}
	return out
}

// filterLanesTooClose walks the lanes in order and drops any lane whose
// position is within minClearance of the previously kept lane. The
// first lane is always kept. If the filter would drop every lane, the
// input is returned unchanged so a road with lanes is never left
// unblocked.
func filterLanesTooClose(lanes []road.Lane, minClearance float64) []road.Lane {
	if len(lanes) == 0 {
		return lanes
	}

	kept := []road.Lane{lanes[0]}
	last := lanes[0]
	for _, lane := range lanes[1:] {
		if lane.Position.DistanceTo(last.Position) < minClearance {
			continue
		}
		kept = append(kept, lane)
		last = lane
	}

	if len(kept) == 0 {
		return lanes
	}
	return kept
}
