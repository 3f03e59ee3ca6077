// Package road models the read-only lane geometry a roadblock is placed
// on. A Road is a snapshot from whatever provides lane data; the engine
// never mutates it. Lanes are ordered left to right when facing along
// the road's node heading.
package road

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/cordon/internal/geo"
)

var (
	// ErrNoLanes is returned when a road is built without any lanes.
	ErrNoLanes = errors.New("road: at least one lane is required")

	// ErrBadLaneWidth is returned for a non-positive lane width.
	ErrBadLaneWidth = errors.New("road: lane width must be positive")
)

// Lane is one traffic lane on a road.
type Lane struct {
	// Number is the 1-based index, counted left to right.
	Number int

	// Position is the world position of the lane's center at the node.
	Position geo.Vector

	// Width is the usable lane width in world units.
	Width float64

	// Heading is the travel direction of this lane.
	Heading float64

	// IsOppositeDirection marks lanes whose travel direction opposes the
	// road's node heading.
	IsOppositeDirection bool
}

func (l Lane) String() string {
	return fmt.Sprintf("lane %d at (%.1f, %.1f) heading %.0f width %.1f",
		l.Number, l.Position.X, l.Position.Y, l.Heading, l.Width)
}

// Road is an ordered set of lanes with the edge geometry needed to
// classify positions against it.
type Road struct {
	// Position is the road's center reference point at the node.
	Position geo.Vector

	// LeftSide and RightSide are the outer edge positions, left/right
	// relative to the node heading.
	LeftSide  geo.Vector
	RightSide geo.Vector

	// NodeHeading is the road's reference direction.
	NodeHeading float64

	// Width spans the full road across all lanes.
	Width float64

	// LanesSameDirection and LanesOppositeDirection count lanes
	// traveling with and against the node heading.
	LanesSameDirection     int
	LanesOppositeDirection int

	// Lanes in stable left-to-right order.
	Lanes []Lane
}

// NumberOfLanes returns the total lane count in both directions.
func (r *Road) NumberOfLanes() int {
	return len(r.Lanes)
}

func (r *Road) String() string {
	return fmt.Sprintf("road at (%.1f, %.1f) heading %.0f with %d lanes",
		r.Position.X, r.Position.Y, r.NodeHeading, len(r.Lanes))
}

// Params describes a synthetic road for Build.
type Params struct {
	Position               geo.Vector // center reference point
	Heading                float64    // node heading
	LaneWidth              float64
	LanesSameDirection     int // lanes traveling along Heading
	LanesOppositeDirection int // lanes traveling against Heading
}

// Build synthesizes a consistent Road from Params: lanes are laid out
// left to right with opposite-direction lanes on the left half
// (right-hand traffic), each centered inside its own lane-width strip.
func Build(p Params) (*Road, error) {
	total := p.LanesSameDirection + p.LanesOppositeDirection
	if total < 1 {
		return nil, ErrNoLanes
	}
	if p.LaneWidth <= 0 {
		return nil, ErrBadLaneWidth
	}

	heading := geo.NormalizeHeading(p.Heading)
	width := p.LaneWidth * float64(total)
	half := width / 2

	r := &Road{
		Position:               p.Position,
		LeftSide:               geo.Offset(p.Position, heading+90, half),
		RightSide:              geo.Offset(p.Position, heading-90, half),
		NodeHeading:            heading,
		Width:                  width,
		LanesSameDirection:     p.LanesSameDirection,
		LanesOppositeDirection: p.LanesOppositeDirection,
		Lanes:                  make([]Lane, 0, total),
	}

	for i := 0; i < total; i++ {
		center := geo.Offset(r.LeftSide, heading-90, (float64(i)+0.5)*p.LaneWidth)
		opposite := i < p.LanesOppositeDirection
		laneHeading := heading
		if opposite {
			laneHeading = geo.Opposite(heading)
		}
		r.Lanes = append(r.Lanes, Lane{
			Number:              i + 1,
			Position:            center,
			Width:               p.LaneWidth,
			Heading:             laneHeading,
			IsOppositeDirection: opposite,
		})
	}

	return r, nil
}
