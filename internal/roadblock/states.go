// Package roadblock implements the placement and lifecycle engine for a
// road-blocking formation: lane selection, per-slot geometry, the
// anti-clipping pass, the roadblock state machine and the spike strip
// sub-machine with its proximity monitor.
package roadblock

// State is the roadblock lifecycle state.
type State int

const (
	// StatePreparing means slots are computed but nothing exists in the
	// world yet.
	StatePreparing State = iota

	// StateActive means all entities are spawned and monitors run.
	StateActive

	// StateBypassed means the target drove around the roadblock.
	StateBypassed

	// StateHit means the target struck the roadblock.
	StateHit

	// StateDisposing means teardown is in progress.
	StateDisposing

	// StateDisposed means all owned entities are gone.
	StateDisposed

	// StateError means a spawn failure left the roadblock unusable.
	StateError
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateActive:
		return "active"
	case StateBypassed:
		return "bypassed"
	case StateHit:
		return "hit"
	case StateDisposing:
		return "disposing"
	case StateDisposed:
		return "disposed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Deployed reports whether the roadblock still stands in the world.
// Bypassed and Hit are sub-states of a deployed roadblock: the target
// outcome is known but the formation has not been torn down.
func (s State) Deployed() bool {
	return s == StateActive || s == StateBypassed || s == StateHit
}

// Terminal reports whether no further lifecycle transitions can occur.
func (s State) Terminal() bool {
	return s == StateDisposed || s == StateError
}
