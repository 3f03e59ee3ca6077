// Package world defines the surface the roadblock engine needs from its
// host environment: spawning and deleting entities, speed zones, map
// markers, animations, and the pursuit takeover hand-off. The engine
// only ever talks to these interfaces; SimWorld provides the in-process
// implementation used by the dispatch simulator, the TUI, and tests.
package world

import "github.com/vovakirdan/cordon/internal/geo"

// EntityKind classifies spawned entities.
type EntityKind int

const (
	KindVehicle EntityKind = iota
	KindPed
	KindProp
)

func (k EntityKind) String() string {
	switch k {
	case KindVehicle:
		return "vehicle"
	case KindPed:
		return "ped"
	case KindProp:
		return "prop"
	default:
		return "unknown"
	}
}

// Entity is a live handle to a spawned object. Position and Heading
// reflect the current world state, not the spawn-time values.
type Entity interface {
	ID() int64
	Kind() EntityKind
	Model() string
	Position() geo.Vector
	Heading() float64
	Alive() bool
}

// World is the host environment the engine places a roadblock into.
//
// Create calls return an error when the world refuses the spawn; the
// engine treats a failed spawn as fatal for the deployment. Delete,
// speed zones and markers are best-effort side effects with no failure
// contract.
type World interface {
	CreateVehicle(model string, position geo.Vector, heading float64) (Entity, error)
	CreatePed(model string, position geo.Vector, heading float64) (Entity, error)
	CreateProp(model string, position geo.Vector, heading float64) (Entity, error)

	// CreatePreview spawns a non-interactive ghost of the given kind.
	// Preview entities are deleted like any other entity.
	CreatePreview(kind EntityKind, model string, position geo.Vector, heading float64) (Entity, error)

	// Delete removes an entity from the world. Deleting an already
	// removed entity is a no-op.
	Delete(e Entity)

	// WarpIntoVehicle seats a ped inside a vehicle. Seat -1 is the
	// driver, 0 and up are passenger seats.
	WarpIntoVehicle(ped, vehicle Entity, seat int) error

	// PlayAnimation starts a named animation on an entity.
	PlayAnimation(e Entity, dictionary, name string) error

	// IsAnimationPlaying reports whether the animation is still running.
	IsAnimationPlaying(e Entity, dictionary, name string) bool

	// VehicleLength returns the bumper-to-bumper length for a vehicle
	// model, falling back to a default for unknown models.
	VehicleLength(model string) float64

	CreateSpeedZone(position geo.Vector, radius, limit float64) int64
	DeleteSpeedZone(id int64)

	CreateMarker(position geo.Vector, label string) int64
	DeleteMarker(id int64)
}

// Pursuit is the AI collaborator that takes over released crew. After
// Takeover returns, the caller must no longer control the entities.
type Pursuit interface {
	Takeover(cops []Entity, vehicle Entity)
}
