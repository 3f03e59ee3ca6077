package roadblock

import (
	"time"

	"github.com/vovakirdan/cordon/internal/world"
)

// Event is a lifecycle notification emitted by a roadblock. Consumers
// read them from Roadblock.Events.
type Event interface {
	roadblockEvent()
}

// StateChangedEvent fires exactly once per state transition. It never
// fires for a self-transition.
type StateChangedEvent struct {
	State State
	At    time.Time
}

func (StateChangedEvent) roadblockEvent() {}

// CopKilledEvent fires once per crew member found dead while the
// roadblock is deployed.
type CopKilledEvent struct {
	Cop world.Entity
}

func (CopKilledEvent) roadblockEvent() {}

// CopsJoiningPursuitEvent fires when released crew is handed to the
// pursuit collaborator.
type CopsJoiningPursuitEvent struct {
	Cops []world.Entity
}

func (CopsJoiningPursuitEvent) roadblockEvent() {}

// StripStateChangedEvent fires on every spike strip transition.
type StripStateChangedEvent struct {
	Location StripLocation
	State    StripState
}

func (StripStateChangedEvent) roadblockEvent() {}
