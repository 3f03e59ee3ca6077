package roadblock

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/world"
)

const (
	stripModel = "spikestrip"

	// stripLeadDistance places the strip ahead of the slot vehicle so
	// tires cross it before reaching the block.
	stripLeadDistance = 2.0

	// middleAdvanceDistance moves a middle thrower's anchor forward
	// along the roadblock heading before the lateral offset applies.
	middleAdvanceDistance = 3.0

	throwAnimationDict = "spikestrip"
	throwAnimationName = "throw"
	grabAnimationName  = "grab"
)

// StripState is the spike strip sub-machine state.
type StripState int

const (
	// StripIdle means the strip exists but is not laid across the road.
	StripIdle StripState = iota

	// StripDeployed means the strip lies across the lane.
	StripDeployed

	// StripHit means a vehicle drove over the deployed strip.
	StripHit

	// StripBypassed means the target avoided the deployed strip.
	StripBypassed

	// StripUndeployed is terminal: the strip has been pulled back.
	StripUndeployed
)

func (s StripState) String() string {
	switch s {
	case StripIdle:
		return "idle"
	case StripDeployed:
		return "deployed"
	case StripHit:
		return "hit"
	case StripBypassed:
		return "bypassed"
	case StripUndeployed:
		return "undeployed"
	default:
		return "unknown"
	}
}

// StripLocation is the strip's throw side, fixed at construction.
type StripLocation int

const (
	LocationLeft StripLocation = iota
	LocationMiddle
	LocationRight
)

func (l StripLocation) String() string {
	switch l {
	case LocationLeft:
		return "left"
	case LocationMiddle:
		return "middle"
	case LocationRight:
		return "right"
	default:
		return "unknown"
	}
}

// ResolveStripLocation classifies a lane against the road geometry.
// On roads with more than two lanes, a lane strictly nearer the center
// line than either edge is Middle; otherwise the nearer edge wins, with
// ties going Right.
func ResolveStripLocation(r *road.Road, lane road.Lane) StripLocation {
	left := lane.Position.DistanceTo2D(r.LeftSide)
	right := lane.Position.DistanceTo2D(r.RightSide)
	center := lane.Position.DistanceTo2D(r.Position)

	if r.NumberOfLanes() > 2 && center < left && center < right {
		return LocationMiddle
	}
	if left < right {
		return LocationLeft
	}
	return LocationRight
}

// Strip is the deployable spike strip sub-engine. It owns the strip
// prop, a one-shot deploy latch, the proximity monitor and the delayed
// undeploy sequences. The target vehicle is borrowed and never touched
// beyond distance reads.
type Strip struct {
	log      *log.Logger
	w        world.World
	cfg      config.SpikeStripConfig
	location StripLocation
	position geo.Vector
	heading  float64
	target   world.Entity
	onState  func(StripLocation, StripState)

	mu          sync.Mutex
	state       StripState
	hasDeployed bool
	entity      world.Entity
	thrower     world.Entity

	done     chan struct{}
	doneOnce sync.Once
}

func newStrip(logger *log.Logger, w world.World, cfg config.SpikeStripConfig,
	location StripLocation, position geo.Vector, heading float64,
	target world.Entity, onState func(StripLocation, StripState)) *Strip {
	return &Strip{
		log:      logger,
		w:        w,
		cfg:      cfg,
		location: location,
		position: position,
		heading:  heading,
		target:   target,
		onState:  onState,
		state:    StripIdle,
		done:     make(chan struct{}),
	}
}

// Location returns the strip's throw side.
func (s *Strip) Location() StripLocation { return s.location }

// Position returns where the strip lies across the lane.
func (s *Strip) Position() geo.Vector { return s.position }

// State returns the current sub-machine state.
func (s *Strip) State() StripState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasBeenDeployed reports whether the one-shot deploy latch has fired.
func (s *Strip) HasBeenDeployed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDeployed
}

// setThrower assigns the crew member used for throw and grab
// animations. A nil thrower is allowed; animations are then skipped.
func (s *Strip) setThrower(cop world.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thrower = cop
}

// Monitor polls the target distance until the strip deploys or the
// strip is disposed. Runs as its own goroutine.
func (s *Strip) Monitor() {
	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.pollOnce() {
				return
			}
		case <-s.done:
			return
		}
	}
}

// pollOnce performs one proximity check and returns true once the
// monitor should stop.
func (s *Strip) pollOnce() bool {
	if s.target == nil || !s.target.Alive() {
		return false
	}
	if s.target.Position().DistanceTo(s.position) > s.cfg.DeployRange {
		return false
	}
	s.Deploy()
	return true
}

// Deploy lays the strip across the lane. The latch guarantees this
// happens at most once per strip, no matter how often proximity checks
// observe the target in range.
func (s *Strip) Deploy() {
	s.mu.Lock()
	if s.hasDeployed || s.state != StripIdle {
		s.mu.Unlock()
		return
	}
	s.hasDeployed = true
	s.state = StripDeployed
	thrower := s.thrower
	s.mu.Unlock()

	entity, err := s.w.CreateProp(stripModel, s.position, s.heading)
	if err != nil {
		s.log.Warn("could not create spike strip prop", "location", s.location, "err", err)
	} else {
		s.mu.Lock()
		s.entity = entity
		s.mu.Unlock()
	}

	s.playAnimation(thrower, throwAnimationName)
	s.log.Info("spike strip deployed", "location", s.location)
	s.emit(StripDeployed)
}

// MarkHit reacts to a vehicle driving over the deployed strip: the
// strip stays down for the grace window (more tires may pop), then the
// undeploy sequence runs.
func (s *Strip) MarkHit() {
	if !s.transitionFromDeployed(StripHit) {
		return
	}
	s.emit(StripHit)
	go s.undeploySequence(s.cfg.HitGrace())
}

// MarkBypassed reacts to the target avoiding the strip: the undeploy
// sequence starts immediately.
func (s *Strip) MarkBypassed() {
	if !s.transitionFromDeployed(StripBypassed) {
		return
	}
	s.emit(StripBypassed)
	go s.undeploySequence(0)
}

func (s *Strip) transitionFromDeployed(next StripState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StripDeployed {
		return false
	}
	s.state = next
	return true
}

// undeploySequence waits out the grace window, undeploys, then after
// the retrieve delay plays the grab animation and removes the strip.
// Every wait is interruptible by dispose.
func (s *Strip) undeploySequence(grace time.Duration) {
	if !s.sleep(grace) {
		return
	}

	s.mu.Lock()
	if s.state != StripHit && s.state != StripBypassed {
		s.mu.Unlock()
		return
	}
	s.state = StripUndeployed
	thrower := s.thrower
	s.mu.Unlock()

	s.log.Info("spike strip undeployed", "location", s.location)
	s.emit(StripUndeployed)

	if !s.sleep(s.cfg.RetrieveDelay()) {
		return
	}
	s.playAnimation(thrower, grabAnimationName)
	s.removeEntity()
}

// sleep waits for d and reports false when the strip was disposed
// before the wait finished.
func (s *Strip) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.done:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.done:
		return false
	}
}

// playAnimation is best-effort: a missing thrower or a failed playback
// is logged and ignored.
func (s *Strip) playAnimation(thrower world.Entity, name string) {
	if thrower == nil {
		s.log.Warn("no crew member available for spike strip animation",
			"location", s.location, "animation", name)
		return
	}
	if err := s.w.PlayAnimation(thrower, throwAnimationDict, name); err != nil {
		s.log.Warn("spike strip animation failed",
			"location", s.location, "animation", name, "err", err)
	}
}

func (s *Strip) removeEntity() {
	s.mu.Lock()
	entity := s.entity
	s.entity = nil
	s.mu.Unlock()
	if entity != nil {
		s.w.Delete(entity)
	}
}

func (s *Strip) emit(state StripState) {
	if s.onState != nil {
		s.onState(s.location, state)
	}
}

// Dispose stops the monitor and any pending sequence and removes the
// strip prop. Safe to call multiple times and to race with a running
// undeploy sequence.
func (s *Strip) Dispose() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
	s.removeEntity()
}

func (s *Strip) String() string {
	return fmt.Sprintf("spike strip %s (%s)", s.location, s.State())
}

// spikeStripSlot is a slot whose crew throws a spike strip from the
// road side resolved at construction.
type spikeStripSlot struct {
	baseSlot
	strip *Strip
}

func newSpikeStripSlot(deps slotDeps, r *road.Road, lane road.Lane, plan CrewPlan,
	heading float64, lights bool, offset float64, stripCfg config.SpikeStripConfig,
	target world.Entity, onState func(StripLocation, StripState)) (*spikeStripSlot, error) {

	base, err := newBaseSlot(deps, lane, plan, heading, lights, offset)
	if err != nil {
		return nil, err
	}

	location := ResolveStripLocation(r, lane)
	stripPos := geo.Offset(
		geo.Offset(lane.Position, base.heading, offset),
		geo.Opposite(base.heading), stripLeadDistance)

	s := &spikeStripSlot{baseSlot: *base}
	s.strip = newStrip(deps.log, deps.w, stripCfg, location, stripPos, base.heading, target, onState)

	// The thrower stands off the carriageway on the strip's side and
	// faces the strip.
	s.geom.positionBehindVehicle = func(b *baseSlot) geo.Vector {
		return s.throwerPosition()
	}
	s.geom.copHeading = func(b *baseSlot) float64 {
		return geo.HeadingBetween(s.throwerPosition(), s.strip.position)
	}
	s.computeGeometry()
	return s, nil
}

func (s *spikeStripSlot) throwerPosition() geo.Vector {
	anchor := s.strip.position
	if s.strip.location == LocationMiddle {
		anchor = geo.Offset(anchor, s.heading, middleAdvanceDistance)
	}
	side := s.heading - 90
	if s.strip.location == LocationRight {
		side = s.heading + 90
	}
	return geo.Offset(anchor, side, s.lane.Width)
}

func (s *spikeStripSlot) Strip() *Strip { return s.strip }

// Spawn places the slot like a standard one and hands the first crew
// member to the strip as its thrower.
func (s *spikeStripSlot) Spawn() error {
	if err := s.baseSlot.Spawn(); err != nil {
		return err
	}
	if len(s.cops) > 0 {
		s.strip.setThrower(s.cops[0])
	}
	return nil
}

func (s *spikeStripSlot) Release() (cops []world.Entity, vehicle world.Entity) {
	s.strip.setThrower(nil)
	return s.baseSlot.Release()
}

func (s *spikeStripSlot) Dispose() {
	s.strip.Dispose()
	s.baseSlot.Dispose()
}
