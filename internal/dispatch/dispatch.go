// Package dispatch is the external dispatcher around the roadblock
// engine: it stages a deployment in a simulated world, drives the
// pursued vehicle toward the block, consumes the engine's event stream
// and reports the outcome. The engine itself never knows it is being
// simulated; dispatch talks to it only through its public surface.
package dispatch

import (
	"time"

	"github.com/vovakirdan/cordon/internal/geo"
)

// Deployment outcomes as recorded in history.
const (
	OutcomeHit      = "hit"
	OutcomeBypassed = "bypassed"
	OutcomeError    = "error"
)

// Record is the result of one finished deployment.
type Record struct {
	Variant      string
	Level        int
	Flags        string
	RoadPosition geo.Vector
	Heading      float64
	LanesBlocked int
	Outcome      string
	CopsReleased int
	CopsKilled   int
	Strips       []StripRecord

	// Ticks and Duration measure simulated pursuit time, independent
	// of how fast the wall clock ran the simulation.
	Ticks    uint64
	Duration time.Duration
}

// StripRecord is the per-location spike strip summary of a deployment.
type StripRecord struct {
	Location string
	State    string
	Deployed bool
}

// Saver persists finished deployments. Implementations must tolerate
// being called from the simulation goroutine.
type Saver interface {
	SaveDeployment(rec Record) error
}
