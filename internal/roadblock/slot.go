package roadblock

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/world"
)

const (
	// vehicleHeadingMaxOffset is the parking jitter in degrees, so the
	// formation never looks perfectly uniform.
	vehicleHeadingMaxOffset = 10.0

	// copCoverDistance is how far behind the vehicle (away from the
	// approaching target) crew takes cover.
	copCoverDistance = 3.0

	// copSpacing is the lateral gap between crew members.
	copSpacing = 1.2

	// barrierDistance is how far ahead of the vehicle (toward the
	// approaching target) barrier props are placed.
	barrierDistance = 4.0

	// lightDistance is how far beside the vehicle light props go.
	lightDistance = 2.0
)

// Slot is one lane's occupant: a vehicle, its crew, scenery and an
// optional spike strip. Slots are owned by exactly one roadblock; all
// calls are serialized by the owning roadblock.
type Slot interface {
	Lane() road.Lane
	Heading() float64

	// Position is the authoritative vehicle position, including any
	// clipping correction.
	Position() geo.Vector
	VehicleLength() float64
	BackupUnit() BackupUnit

	Vehicle() world.Entity
	Cops() []world.Entity

	// Strip returns the slot's spike strip, or nil when it has none.
	Strip() *Strip

	// ModifyVehiclePosition overrides the computed vehicle position.
	// Idempotent and only meaningful before Spawn.
	ModifyVehiclePosition(pos geo.Vector)

	Spawn() error
	WarpCrewIntoVehicle()

	// Release detaches the alive crew and the vehicle from the slot's
	// ownership and returns them. Dead crew stays owned so Dispose can
	// clean it up.
	Release() (cops []world.Entity, vehicle world.Entity)

	CreatePreview()
	DeletePreview()
	IsPreviewActive() bool

	Dispose()
}

type slotDeps struct {
	log *log.Logger
	w   world.World
	rng *rand.Rand
}

// slotGeometry holds the overridable placement hooks. Variants replace
// individual entries before geometry is computed.
type slotGeometry struct {
	vehiclePosition       func(*baseSlot) geo.Vector
	vehicleHeading        func(*baseSlot) float64
	positionBehindVehicle func(*baseSlot) geo.Vector
	copHeading            func(*baseSlot) float64
}

func defaultSlotGeometry() slotGeometry {
	return slotGeometry{
		vehiclePosition: func(s *baseSlot) geo.Vector {
			return geo.Offset(s.lane.Position, s.heading, s.offset)
		},
		vehicleHeading: func(s *baseSlot) float64 {
			jitter := (s.deps.rng.Float64()*2 - 1) * vehicleHeadingMaxOffset
			return geo.NormalizeHeading(s.heading + 90 + jitter)
		},
		positionBehindVehicle: func(s *baseSlot) geo.Vector {
			return geo.Offset(s.position, s.heading, copCoverDistance)
		},
		copHeading: func(s *baseSlot) float64 {
			return geo.Opposite(s.heading)
		},
	}
}

type baseSlot struct {
	deps    slotDeps
	lane    road.Lane
	plan    CrewPlan
	heading float64
	offset  float64
	lights  bool
	geom    slotGeometry

	position       geo.Vector
	vehicleHeading float64
	vehicleLength  float64

	vehicle world.Entity
	cops    []world.Entity
	scenery []world.Entity
	ghosts  []world.Entity
	preview bool
}

func newBaseSlot(deps slotDeps, lane road.Lane, plan CrewPlan, heading float64, lights bool, offset float64) (*baseSlot, error) {
	if lane.Width <= 0 {
		return nil, fmt.Errorf("%w: lane %d has width %.2f", ErrBadLane, lane.Number, lane.Width)
	}

	s := &baseSlot{
		deps:    deps,
		lane:    lane,
		plan:    plan,
		heading: geo.NormalizeHeading(heading),
		offset:  offset,
		lights:  lights,
		geom:    defaultSlotGeometry(),
	}
	if plan.Unit != BackupNone {
		s.vehicleLength = deps.w.VehicleLength(plan.VehicleModel)
	}
	return s, nil
}

// computeGeometry runs the placement hooks. Called once after the
// variant had a chance to override hooks.
func (s *baseSlot) computeGeometry() {
	s.position = s.geom.vehiclePosition(s)
	s.vehicleHeading = s.geom.vehicleHeading(s)
}

func (s *baseSlot) Lane() road.Lane        { return s.lane }
func (s *baseSlot) Heading() float64       { return s.heading }
func (s *baseSlot) Position() geo.Vector   { return s.position }
func (s *baseSlot) VehicleLength() float64 { return s.vehicleLength }
func (s *baseSlot) BackupUnit() BackupUnit { return s.plan.Unit }
func (s *baseSlot) Vehicle() world.Entity  { return s.vehicle }
func (s *baseSlot) Strip() *Strip          { return nil }
func (s *baseSlot) IsPreviewActive() bool  { return s.preview }

func (s *baseSlot) Cops() []world.Entity {
	out := make([]world.Entity, len(s.cops))
	copy(out, s.cops)
	return out
}

func (s *baseSlot) ModifyVehiclePosition(pos geo.Vector) {
	s.position = pos
}

func (s *baseSlot) copPosition(i int) geo.Vector {
	behind := s.geom.positionBehindVehicle(s)
	lateral := (float64(i) - float64(s.plan.Cops-1)/2) * copSpacing
	return geo.Offset(behind, s.heading+90, lateral)
}

// Spawn materializes scenery, vehicle and crew. The owning roadblock
// guards against double-spawn via its state machine.
func (s *baseSlot) Spawn() error {
	if s.plan.Barrier != "" {
		pos := geo.Offset(s.position, geo.Opposite(s.heading), barrierDistance)
		prop, err := s.deps.w.CreateProp(s.plan.Barrier, pos, s.heading)
		if err != nil {
			return fmt.Errorf("spawn barrier for lane %d: %w", s.lane.Number, err)
		}
		s.scenery = append(s.scenery, prop)
	}
	if s.lights && s.plan.Light != "" {
		pos := geo.Offset(s.position, s.heading+90, lightDistance)
		prop, err := s.deps.w.CreateProp(s.plan.Light, pos, s.heading)
		if err != nil {
			return fmt.Errorf("spawn light for lane %d: %w", s.lane.Number, err)
		}
		s.scenery = append(s.scenery, prop)
	}

	if s.plan.Unit == BackupNone {
		return nil
	}

	vehicle, err := s.deps.w.CreateVehicle(s.plan.VehicleModel, s.position, s.vehicleHeading)
	if err != nil {
		return fmt.Errorf("spawn vehicle for lane %d: %w", s.lane.Number, err)
	}
	s.vehicle = vehicle

	copHeading := s.geom.copHeading(s)
	for i := 0; i < s.plan.Cops; i++ {
		cop, err := s.deps.w.CreatePed(s.plan.CopModel, s.copPosition(i), copHeading)
		if err != nil {
			return fmt.Errorf("spawn cop %d for lane %d: %w", i+1, s.lane.Number, err)
		}
		s.cops = append(s.cops, cop)
	}
	return nil
}

// WarpCrewIntoVehicle seats the crew, driver first. Best-effort: a full
// vehicle or dead cop is logged and skipped.
func (s *baseSlot) WarpCrewIntoVehicle() {
	if s.vehicle == nil {
		return
	}
	for i, cop := range s.cops {
		if err := s.deps.w.WarpIntoVehicle(cop, s.vehicle, i-1); err != nil {
			s.deps.log.Warn("could not warp cop into vehicle",
				"lane", s.lane.Number, "cop", cop, "err", err)
		}
	}
}

func (s *baseSlot) Release() (cops []world.Entity, vehicle world.Entity) {
	var kept []world.Entity
	for _, cop := range s.cops {
		if cop.Alive() {
			cops = append(cops, cop)
		} else {
			kept = append(kept, cop)
		}
	}
	s.cops = kept

	if s.vehicle != nil && s.vehicle.Alive() {
		vehicle = s.vehicle
		s.vehicle = nil
	}
	return cops, vehicle
}

// CreatePreview spawns non-interactive ghosts of the planned layout.
// Idempotent; spawn failures are logged and skipped.
func (s *baseSlot) CreatePreview() {
	if s.preview {
		return
	}
	s.preview = true

	add := func(kind world.EntityKind, model string, pos geo.Vector, heading float64) {
		if model == "" {
			return
		}
		ghost, err := s.deps.w.CreatePreview(kind, model, pos, heading)
		if err != nil {
			s.deps.log.Warn("could not create preview entity",
				"lane", s.lane.Number, "model", model, "err", err)
			return
		}
		s.ghosts = append(s.ghosts, ghost)
	}

	if s.plan.Barrier != "" {
		add(world.KindProp, s.plan.Barrier, geo.Offset(s.position, geo.Opposite(s.heading), barrierDistance), s.heading)
	}
	if s.plan.Unit != BackupNone {
		add(world.KindVehicle, s.plan.VehicleModel, s.position, s.vehicleHeading)
		copHeading := s.geom.copHeading(s)
		for i := 0; i < s.plan.Cops; i++ {
			add(world.KindPed, s.plan.CopModel, s.copPosition(i), copHeading)
		}
	}
}

func (s *baseSlot) DeletePreview() {
	if !s.preview {
		return
	}
	for _, ghost := range s.ghosts {
		s.deps.w.Delete(ghost)
	}
	s.ghosts = nil
	s.preview = false
}

func (s *baseSlot) Dispose() {
	s.DeletePreview()
	for _, prop := range s.scenery {
		s.deps.w.Delete(prop)
	}
	s.scenery = nil
	for _, cop := range s.cops {
		s.deps.w.Delete(cop)
	}
	s.cops = nil
	if s.vehicle != nil {
		s.deps.w.Delete(s.vehicle)
		s.vehicle = nil
	}
}

func (s *baseSlot) String() string {
	return fmt.Sprintf("slot lane %d (%s)", s.lane.Number, s.plan.Unit)
}

// standardSlot is the plain vehicle-and-crew slot.
type standardSlot struct {
	baseSlot
}

func newStandardSlot(deps slotDeps, lane road.Lane, plan CrewPlan, heading float64, lights bool, offset float64) (*standardSlot, error) {
	base, err := newBaseSlot(deps, lane, plan, heading, lights, offset)
	if err != nil {
		return nil, err
	}
	s := &standardSlot{baseSlot: *base}
	s.computeGeometry()
	return s, nil
}
