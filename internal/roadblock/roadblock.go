package roadblock

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/world"
)

var (
	// ErrNoRoad is returned when a roadblock is built without a road.
	ErrNoRoad = errors.New("roadblock: a road is required")

	// ErrNoWorld is returned when no world collaborator is provided.
	ErrNoWorld = errors.New("roadblock: a world is required")

	// ErrNoTarget is returned when a pursuit roadblock is built without
	// a target vehicle.
	ErrNoTarget = errors.New("roadblock: pursuit roadblocks need a target vehicle")

	// ErrBadLane is returned for lanes the slot geometry cannot use.
	ErrBadLane = errors.New("roadblock: unusable lane")

	// ErrNotPreparing is returned when Spawn is called twice or after
	// a failure.
	ErrNotPreparing = errors.New("roadblock: spawn is only valid while preparing")
)

const eventBufferSize = 64

// Deps are the collaborators a roadblock needs. World is required;
// everything else has a usable default.
type Deps struct {
	World   world.World
	Pursuit world.Pursuit
	Config  config.Config
	Logger  *log.Logger

	// Rand drives the vehicle heading jitter. Defaults to a
	// time-seeded source.
	Rand *rand.Rand

	// Now is the timestamp source for state changes. Defaults to
	// time.Now.
	Now func() time.Time
}

func (d *Deps) fill() error {
	if d.World == nil {
		return ErrNoWorld
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return nil
}

// Params describe one roadblock deployment.
type Params struct {
	Road          *road.Road
	TargetHeading float64
	Level         int
	Flags         Flags

	// Offset displaces every slot along the resolved heading.
	Offset float64

	// Target is the pursued vehicle. Required for pursuit roadblocks,
	// ignored by standard ones. Borrowed, never disposed.
	Target world.Entity
}

// variantSpec is what distinguishes the closed set of roadblock
// variants: how candidate lanes are narrowed, how slots are built and
// whether crew liveness is monitored.
type variantSpec struct {
	name           string
	candidateLanes func(r *road.Road, heading, tolerance float64) []road.Lane
	newSlot        func(rb *Roadblock, lane road.Lane, plan CrewPlan) (Slot, error)
	monitorCrew    bool
}

// Roadblock is the aggregate root: it owns its slots and scenery,
// runs the lifecycle state machine and aggregates slot-level events.
// All exported methods are safe for concurrent use.
type Roadblock struct {
	deps    Deps
	variant string
	level   int
	flags   Flags
	road    *road.Road
	target  world.Entity
	heading float64
	offset  float64

	mu              sync.Mutex
	state           State
	lastStateChange time.Time
	slots           []Slot
	released        bool
	previewActive   bool
	speedZone       int64
	marker          int64
	reportedDead    map[int64]bool

	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// NewStandard builds a manual roadblock: every lane of the road is
// blocked and no target is tracked.
func NewStandard(deps Deps, p Params) (*Roadblock, error) {
	return newRoadblock(deps, p, variantSpec{
		name: "standard",
		newSlot: func(rb *Roadblock, lane road.Lane, plan CrewPlan) (Slot, error) {
			return newStandardSlot(rb.slotDeps(), lane, plan, rb.heading, rb.flags.EnableLights, rb.offset)
		},
	})
}

// NewPursuit builds a roadblock ahead of a pursued vehicle: only lanes
// matching the pursuit heading are blocked, crew liveness is monitored,
// and slots carry spike strips when the flag asks for them.
func NewPursuit(deps Deps, p Params) (*Roadblock, error) {
	if p.Target == nil {
		return nil, ErrNoTarget
	}
	return newRoadblock(deps, p, variantSpec{
		name:           "pursuit",
		candidateLanes: matchingLanes,
		monitorCrew:    true,
		newSlot: func(rb *Roadblock, lane road.Lane, plan CrewPlan) (Slot, error) {
			if !rb.flags.SpikeStrips {
				return newStandardSlot(rb.slotDeps(), lane, plan, rb.heading, rb.flags.EnableLights, rb.offset)
			}
			return newSpikeStripSlot(rb.slotDeps(), rb.road, lane, plan, rb.heading,
				rb.flags.EnableLights, rb.offset, rb.deps.Config.SpikeStrip,
				rb.target, rb.onStripState)
		},
	})
}

// newRoadblock computes everything synchronously: heading resolution,
// lane selection, slot creation and the clipping pass. A returned
// roadblock is fully placed and ready to Spawn.
func newRoadblock(deps Deps, p Params, variant variantSpec) (*Roadblock, error) {
	if err := deps.fill(); err != nil {
		return nil, err
	}
	if p.Road == nil {
		return nil, ErrNoRoad
	}
	if len(p.Road.Lanes) == 0 {
		return nil, road.ErrNoLanes
	}
	levelSpec, err := deps.Config.LevelFor(p.Level)
	if err != nil {
		return nil, err
	}

	rb := &Roadblock{
		deps:         deps,
		variant:      variant.name,
		level:        p.Level,
		flags:        p.Flags,
		road:         p.Road,
		target:       p.Target,
		offset:       p.Offset,
		state:        StatePreparing,
		reportedDead: make(map[int64]bool),
		events:       make(chan Event, eventBufferSize),
		done:         make(chan struct{}),
	}
	rb.deps.Logger = deps.Logger.WithPrefix(variant.name)
	rb.lastStateChange = rb.deps.Now()

	tolerance := deps.Config.Placement.HeadingTolerance
	rb.heading = resolveHeading(p.Road, p.TargetHeading, tolerance)

	lanes := p.Road.Lanes
	if variant.candidateLanes != nil {
		if narrowed := variant.candidateLanes(p.Road, rb.heading, tolerance); len(narrowed) > 0 {
			lanes = narrowed
		}
	}
	lanes = filterLanesTooClose(lanes, deps.Config.Placement.MinLaneClearance)
	if len(lanes) == 0 {
		lanes = p.Road.Lanes
	}

	plan := PlanForLevel(levelSpec)
	for _, lane := range lanes {
		slot, err := variant.newSlot(rb, lane, plan)
		if err != nil {
			return nil, fmt.Errorf("create slot: %w", err)
		}
		rb.slots = append(rb.slots, slot)
	}

	resolveClipping(rb.slots, rb.heading, deps.Config.Clipping.Margin, rb.deps.Logger)

	rb.deps.Logger.Info("roadblock prepared",
		"road", p.Road, "heading", rb.heading, "level", p.Level,
		"slots", len(rb.slots), "flags", rb.flags)
	return rb, nil
}

func (r *Roadblock) slotDeps() slotDeps {
	return slotDeps{log: r.deps.Logger, w: r.deps.World, rng: r.deps.Rand}
}

// Variant returns the variant name the roadblock was built with.
func (r *Roadblock) Variant() string { return r.variant }

// Level returns the severity tier.
func (r *Roadblock) Level() int { return r.level }

// Flags returns the behavioral options.
func (r *Roadblock) Flags() Flags { return r.flags }

// Heading returns the resolved roadblock heading.
func (r *Roadblock) Heading() float64 { return r.heading }

// Road returns the backing road snapshot.
func (r *Roadblock) Road() *road.Road { return r.road }

// Target returns the pursued vehicle, or nil for standard roadblocks.
func (r *Roadblock) Target() world.Entity { return r.target }

// Position returns the roadblock's reference position.
func (r *Roadblock) Position() geo.Vector { return r.road.Position }

// NumberOfSlots returns how many lanes the roadblock occupies.
func (r *Roadblock) NumberOfSlots() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Slots returns a snapshot of the owned slots.
func (r *Roadblock) Slots() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// State returns the current lifecycle state.
func (r *Roadblock) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastStateChange returns when the state last changed.
func (r *Roadblock) LastStateChange() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStateChange
}

// IsPreviewActive reports whether preview ghosts are in the world.
func (r *Roadblock) IsPreviewActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previewActive
}

// Events returns the lifecycle event stream. Events are dropped oldest
// first when the consumer falls behind.
func (r *Roadblock) Events() <-chan Event {
	return r.events
}

// Done closes when the roadblock is disposed.
func (r *Roadblock) Done() <-chan struct{} {
	return r.done
}

// Spawn materializes the roadblock: preview ghosts are removed, the
// speed zone and every slot are spawned, crew is optionally warped into
// vehicles, the map marker is placed and monitors start. Any spawn
// failure moves the roadblock to the error state and is returned.
func (r *Roadblock) Spawn() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePreparing {
		return fmt.Errorf("%w: state is %s", ErrNotPreparing, r.state)
	}

	r.deletePreviewLocked()

	if r.flags.SlowTraffic {
		zone := r.deps.Config.SpeedZone
		r.speedZone = r.deps.World.CreateSpeedZone(r.road.Position, zone.Radius, zone.Limit)
	}

	for i, slot := range r.slots {
		if err := slot.Spawn(); err != nil {
			r.deps.Logger.Error("roadblock spawn failed", "slot", slot, "err", err)
			for _, spawned := range r.slots[:i+1] {
				spawned.Dispose()
			}
			if r.speedZone != 0 {
				r.deps.World.DeleteSpeedZone(r.speedZone)
				r.speedZone = 0
			}
			r.transitionLocked(StateError)
			return fmt.Errorf("roadblock spawn: %w", err)
		}
	}

	if r.flags.ForceInVehicle {
		for _, slot := range r.slots {
			slot.WarpCrewIntoVehicle()
		}
	}

	r.marker = r.deps.World.CreateMarker(r.road.Position, "roadblock")
	r.transitionLocked(StateActive)

	for _, slot := range r.slots {
		if strip := slot.Strip(); strip != nil {
			go strip.Monitor()
		}
	}
	if r.variantMonitorsCrew() {
		go r.crewMonitor()
	}
	return nil
}

func (r *Roadblock) variantMonitorsCrew() bool {
	return r.variant == "pursuit"
}

// MarkBypassed records that the target drove around the roadblock and
// forwards the bypass to any deployed spike strips.
func (r *Roadblock) MarkBypassed() {
	r.markOutcome(StateBypassed, func(s *Strip) { s.MarkBypassed() })
}

// MarkHit records that the target struck the roadblock and forwards
// the hit to any deployed spike strips.
func (r *Roadblock) MarkHit() {
	r.markOutcome(StateHit, func(s *Strip) { s.MarkHit() })
}

func (r *Roadblock) markOutcome(next State, forward func(*Strip)) {
	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return
	}
	r.transitionLocked(next)
	strips := r.stripsLocked()
	r.mu.Unlock()

	for _, strip := range strips {
		forward(strip)
	}
}

func (r *Roadblock) stripsLocked() []*Strip {
	var strips []*Strip
	for _, slot := range r.slots {
		if strip := slot.Strip(); strip != nil {
			strips = append(strips, strip)
		}
	}
	return strips
}

// Release hands crew and vehicles to the pursuit collaborator. It only
// proceeds while the roadblock is deployed, at most once, and only when
// the join-pursuit flags match the current state (or releaseAll forces
// it). Ownership of the released entities transfers to the pursuit;
// the roadblock never touches them again.
func (r *Roadblock) Release(releaseAll bool) {
	r.mu.Lock()
	if !r.state.Deployed() || r.released {
		r.mu.Unlock()
		return
	}

	eligible := releaseAll ||
		r.previewActive ||
		r.flags.JoinPursuit ||
		(r.flags.JoinPursuitOnBypass && r.state == StateBypassed) ||
		(r.flags.JoinPursuitOnHit && r.state == StateHit)
	if !eligible {
		r.deps.Logger.Debug("release skipped, flags do not match state", "state", r.state)
		r.mu.Unlock()
		return
	}
	r.released = true

	type handoff struct {
		cops    []world.Entity
		vehicle world.Entity
	}
	var handoffs []handoff
	var allCops []world.Entity
	for _, slot := range r.slots {
		cops, vehicle := slot.Release()
		if len(cops) == 0 && vehicle == nil {
			continue
		}
		handoffs = append(handoffs, handoff{cops: cops, vehicle: vehicle})
		allCops = append(allCops, cops...)
	}
	marker := r.marker
	r.marker = 0
	r.mu.Unlock()

	if r.deps.Pursuit != nil {
		for _, h := range handoffs {
			r.deps.Pursuit.Takeover(h.cops, h.vehicle)
		}
	}
	if len(allCops) > 0 {
		r.deps.Logger.Info("cops joining pursuit", "count", len(allCops))
		r.publish(CopsJoiningPursuitEvent{Cops: allCops})
	}
	if marker != 0 {
		go r.removeMarkerLater(marker)
	}
}

// removeMarkerLater deletes the map marker after the configured delay,
// or right away when the roadblock is disposed first.
func (r *Roadblock) removeMarkerLater(marker int64) {
	timer := time.NewTimer(r.deps.Config.Monitor.MarkerDelay())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.done:
	}
	r.deps.World.DeleteMarker(marker)
}

// CreatePreview places non-interactive ghosts of the planned layout.
// Idempotent with DeletePreview as its pair.
func (r *Roadblock) CreatePreview() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.previewActive || r.state != StatePreparing {
		return
	}
	for _, slot := range r.slots {
		slot.CreatePreview()
	}
	r.previewActive = true
}

// DeletePreview removes all preview ghosts. Idempotent.
func (r *Roadblock) DeletePreview() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletePreviewLocked()
}

func (r *Roadblock) deletePreviewLocked() {
	if !r.previewActive {
		return
	}
	for _, slot := range r.slots {
		slot.DeletePreview()
	}
	r.previewActive = false
}

// Dispose tears down the preview, marker, speed zone, slots and strips
// and stops all monitors. Safe to call repeatedly.
func (r *Roadblock) Dispose() {
	r.mu.Lock()
	if r.state == StateDisposed {
		r.mu.Unlock()
		return
	}
	r.transitionLocked(StateDisposing)
	r.deletePreviewLocked()

	if r.marker != 0 {
		r.deps.World.DeleteMarker(r.marker)
		r.marker = 0
	}
	if r.speedZone != 0 {
		r.deps.World.DeleteSpeedZone(r.speedZone)
		r.speedZone = 0
	}
	for _, slot := range r.slots {
		slot.Dispose()
	}
	r.transitionLocked(StateDisposed)
	r.mu.Unlock()

	r.doneOnce.Do(func() {
		close(r.done)
	})
}

// transitionLocked applies a state change and fires the notification
// exactly once. Self-transitions are ignored. Caller holds r.mu.
func (r *Roadblock) transitionLocked(next State) {
	if r.state == next {
		return
	}
	r.state = next
	r.lastStateChange = r.deps.Now()
	r.deps.Logger.Info("roadblock state changed", "state", next)
	r.publish(StateChangedEvent{State: next, At: r.lastStateChange})
}

// publish sends an event without blocking. When the buffer is full the
// oldest event is dropped so slow consumers never stall the engine.
func (r *Roadblock) publish(evt Event) {
	select {
	case <-r.done:
		return
	default:
	}

	select {
	case r.events <- evt:
	default:
		select {
		case <-r.events:
		default:
		}
		select {
		case r.events <- evt:
		default:
		}
	}
}

func (r *Roadblock) onStripState(location StripLocation, state StripState) {
	r.publish(StripStateChangedEvent{Location: location, State: state})
}

// crewMonitor reports each crew member found dead exactly once while
// the roadblock is deployed.
func (r *Roadblock) crewMonitor() {
	ticker := time.NewTicker(r.deps.Config.Monitor.CrewInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.crewCheckOnce()
		case <-r.done:
			return
		}
	}
}

// crewCheckOnce is one liveness sweep over all slots.
func (r *Roadblock) crewCheckOnce() {
	r.mu.Lock()
	if !r.state.Deployed() {
		r.mu.Unlock()
		return
	}
	var killed []world.Entity
	for _, slot := range r.slots {
		for _, cop := range slot.Cops() {
			if !cop.Alive() && !r.reportedDead[cop.ID()] {
				r.reportedDead[cop.ID()] = true
				killed = append(killed, cop)
			}
		}
	}
	r.mu.Unlock()

	for _, cop := range killed {
		r.deps.Logger.Warn("roadblock cop killed", "cop", cop)
		r.publish(CopKilledEvent{Cop: cop})
	}
}
