package dispatch

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/registry"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/roadblock"
	"github.com/vovakirdan/cordon/internal/world"
)

const (
	// collisionRadius is how close the target must get to a slot
	// vehicle before the approach counts as a ram.
	collisionRadius = 2.5
	// passClearance is how far past the block line the target must be
	// before the deployment counts as bypassed.
	passClearance = 5.0
	// escapeMargin is how far beyond the road edge a swerving target
	// steers.
	escapeMargin = 4.0

	minTickInterval = 100 * time.Microsecond
)

type phase int

const (
	phaseApproach phase = iota
	phaseLinger
)

// Deps are the collaborators of a Simulation. Zero values are filled
// with working defaults.
type Deps struct {
	World  *world.SimWorld
	Config config.Config
	Logger *log.Logger
	Rand   *rand.Rand

	// Saver, when set, receives the finished Record. Save errors are
	// logged, never fatal.
	Saver Saver

	// OnEvent, when set, observes every engine event after the
	// simulation has processed it. Called from the simulation
	// goroutine.
	OnEvent func(roadblock.Event)
}

func (d *Deps) fill() {
	if d.World == nil {
		d.World = world.NewSim()
	}
	if len(d.Config.Levels) == 0 {
		d.Config = config.Default()
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Params shape one deployment. DefaultParams returns the tuning used
// by the CLI; the zero chances mean the target never swerves and never
// injures crew, which keeps hand-built test setups deterministic.
type Params struct {
	Variant string
	Level   int
	Flags   roadblock.Flags

	// Road to block. When nil a straight road is built from Lanes,
	// OppositeLanes and LaneWidth at the origin.
	Road          *road.Road
	Lanes         int
	OppositeLanes int
	LaneWidth     float64

	TargetModel string

	// TickRate is simulated ticks per simulated second. TimeScale
	// compresses wall time: at 4, one simulated second passes in a
	// quarter of a real one.
	TickRate  int
	TimeScale float64

	// Speed is the target's speed in units per simulated second.
	Speed         float64
	StartDistance float64

	// DecisionDistance is how far from the block the target commits to
	// ramming or swerving. BypassChance is the swerve probability,
	// CasualtyChance the chance a ram kills a crew member.
	DecisionDistance float64
	BypassChance     float64
	CasualtyChance   float64

	// LingerTicks is how long the scene stays up after the outcome
	// before the engine is told to dispose.
	LingerTicks int
}

// DefaultParams returns the stock deployment tuning.
func DefaultParams() Params {
	return Params{
		Variant:          "pursuit",
		Level:            1,
		Lanes:            2,
		OppositeLanes:    1,
		LaneWidth:        5.5,
		TargetModel:      "sultan",
		TickRate:         30,
		TimeScale:        4,
		Speed:            30,
		StartDistance:    200,
		DecisionDistance: 30,
		BypassChance:     0.5,
		CasualtyChance:   0.25,
	}
}

func (p *Params) fill() {
	if p.Variant == "" {
		p.Variant = "pursuit"
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.Lanes < 1 {
		p.Lanes = 2
	}
	if p.LaneWidth <= 0 {
		p.LaneWidth = 5.5
	}
	if p.TargetModel == "" {
		p.TargetModel = "sultan"
	}
	if p.TickRate < 1 {
		p.TickRate = 30
	}
	if p.TimeScale <= 0 {
		p.TimeScale = 1
	}
	if p.Speed <= 0 {
		p.Speed = 30
	}
	if p.StartDistance <= 0 {
		p.StartDistance = 200
	}
	if p.DecisionDistance <= 0 {
		p.DecisionDistance = 30
	}
	if p.LingerTicks < 1 {
		p.LingerTicks = p.TickRate
	}
}

// Simulation runs a single deployment to completion. Construction
// builds the scene; Run drives it on a ticker until the target either
// rams the block or slips past it.
type Simulation struct {
	w      *world.SimWorld
	log    *log.Logger
	rng    *rand.Rand
	saver  Saver
	params Params

	road      *road.Road
	heading   float64
	axis      geo.Vector
	rightAxis geo.Vector

	rb      *roadblock.Roadblock
	target  world.Entity
	onEvent func(roadblock.Event)

	phase       phase
	ticks       uint64
	linger      int
	decided     bool
	swerving    bool
	escapeRight bool
	released    bool

	outcome      string
	copsReleased int
	copsKilled   int
	strips       map[roadblock.StripLocation]*StripRecord

	done     chan struct{}
	doneOnce sync.Once
}

// NewSimulation stages the scene: road, target vehicle on a random
// same-direction lane, and a roadblock from the registry. Nothing is
// spawned until Run.
func NewSimulation(deps Deps, p Params) (*Simulation, error) {
	deps.fill()
	p.fill()

	r := p.Road
	if r == nil {
		var err error
		r, err = road.Build(road.Params{
			Position:               geo.Vector{},
			Heading:                0,
			LaneWidth:              p.LaneWidth,
			LanesSameDirection:     p.Lanes,
			LanesOppositeDirection: p.OppositeLanes,
		})
		if err != nil {
			return nil, fmt.Errorf("building road: %w", err)
		}
	}

	s := &Simulation{
		w:       deps.World,
		log:     deps.Logger.WithPrefix("dispatch"),
		rng:     deps.Rand,
		saver:   deps.Saver,
		params:  p,
		road:    r,
		heading: r.NodeHeading,
		onEvent: deps.OnEvent,
		strips:  make(map[roadblock.StripLocation]*StripRecord),
		done:    make(chan struct{}),
	}
	s.axis = geo.Direction(s.heading)
	s.rightAxis = geo.Direction(s.heading - 90)

	lanes := make([]road.Lane, 0, len(r.Lanes))
	for _, lane := range r.Lanes {
		if !lane.IsOppositeDirection {
			lanes = append(lanes, lane)
		}
	}
	if len(lanes) == 0 {
		lanes = r.Lanes
	}
	startLane := lanes[s.rng.Intn(len(lanes))]
	startPos := geo.Offset(startLane.Position, geo.Opposite(s.heading), p.StartDistance)

	target, err := deps.World.CreateVehicle(p.TargetModel, startPos, s.heading)
	if err != nil {
		return nil, fmt.Errorf("creating target: %w", err)
	}
	s.target = target

	rb, err := registry.Create(p.Variant, roadblock.Deps{
		World:   deps.World,
		Pursuit: deps.World,
		Config:  deps.Config,
		Logger:  deps.Logger,
		Rand:    deps.Rand,
	}, roadblock.Params{
		Road:          r,
		TargetHeading: s.heading,
		Level:         p.Level,
		Flags:         p.Flags,
		Target:        target,
	})
	if err != nil {
		deps.World.Delete(target)
		return nil, err
	}
	s.rb = rb
	return s, nil
}

// Roadblock exposes the deployment under simulation, for observers
// such as the monitor UI. Safe for concurrent use.
func (s *Simulation) Roadblock() *roadblock.Roadblock { return s.rb }

// Road returns the blocked road.
func (s *Simulation) Road() *road.Road { return s.road }

// Target returns the pursued vehicle.
func (s *Simulation) Target() world.Entity { return s.target }

// Run spawns the roadblock and drives the pursuit until it resolves,
// then calls onComplete with the finished record. Blocks; callers
// wanting it in the background start their own goroutine. Stop aborts
// the run early.
func (s *Simulation) Run(onComplete func(Record)) {
	defer s.doneOnce.Do(func() { close(s.done) })

	if err := s.rb.Spawn(); err != nil {
		s.log.Error("deployment failed", "err", err)
		s.drainEvents()
		rec := s.buildRecord()
		rec.Outcome = OutcomeError
		s.save(rec)
		if onComplete != nil {
			onComplete(rec)
		}
		return
	}
	s.log.Info("deployment live",
		"variant", s.rb.Variant(),
		"level", s.rb.Level(),
		"slots", s.rb.NumberOfSlots())

	ticker := time.NewTicker(s.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if rec, finished := s.runTick(); finished {
				if onComplete != nil {
					onComplete(rec)
				}
				return
			}
		case evt := <-s.rb.Events():
			s.observe(evt)
		case <-s.done:
			s.rb.Dispose()
			return
		}
	}
}

// Stop aborts the run; the roadblock is disposed and no record is
// produced. Safe to call more than once.
func (s *Simulation) Stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Simulation) tickInterval() time.Duration {
	interval := time.Duration(float64(time.Second) / (float64(s.params.TickRate) * s.params.TimeScale))
	if interval < minTickInterval {
		interval = minTickInterval
	}
	return interval
}

// runTick advances the pursuit by one simulated tick and reports
// whether the deployment finished.
func (s *Simulation) runTick() (Record, bool) {
	s.drainEvents()

	switch s.phase {
	case phaseApproach:
		s.ticks++
		s.advanceTarget()
		if s.resolveOutcome() {
			s.phase = phaseLinger
			s.linger = s.params.LingerTicks
		}
	case phaseLinger:
		s.ticks++
		if !s.released {
			s.released = true
			s.rb.Release(false)
		}
		s.linger--
		if s.linger <= 0 {
			s.rb.Dispose()
			s.drainEvents()
			rec := s.buildRecord()
			s.save(rec)
			return rec, true
		}
	}
	return Record{}, false
}

// advanceTarget moves the pursued vehicle one step down the road. Past
// the decision point it either holds its lane to ram or drifts toward
// the road edge to slip around the block.
func (s *Simulation) advanceTarget() {
	pos := s.target.Position()
	remaining := s.road.Position.Sub(pos).Dot(s.axis)

	if !s.decided && remaining <= s.params.DecisionDistance {
		s.decided = true
		s.swerving = s.rng.Float64() < s.params.BypassChance
		if s.swerving {
			s.escapeRight = s.rng.Float64() < 0.5
			s.log.Debug("target swerving for the shoulder", "right", s.escapeRight)
		} else {
			s.log.Debug("target holding its lane")
		}
	}

	step := s.params.Speed / float64(s.params.TickRate)
	next := geo.Offset(pos, s.heading, step)

	if s.swerving {
		want := s.road.Width/2 + escapeMargin
		if !s.escapeRight {
			want = -want
		}
		lateral := next.Sub(s.road.Position).Dot(s.rightAxis)
		drift := want - lateral
		if drift > step {
			drift = step
		} else if drift < -step {
			drift = -step
		}
		next = geo.Offset(next, s.heading-90, drift)
	}

	s.w.MoveEntity(s.target, next, s.heading)
}

// resolveOutcome checks the target against the slot vehicles and the
// block line and marks the roadblock accordingly.
func (s *Simulation) resolveOutcome() bool {
	pos := s.target.Position()

	for _, slot := range s.rb.Slots() {
		vehicle := slot.Vehicle()
		if vehicle == nil || !vehicle.Alive() {
			continue
		}
		if pos.DistanceTo2D(vehicle.Position()) <= collisionRadius {
			s.resolveHit(slot)
			return true
		}
	}

	remaining := s.road.Position.Sub(pos).Dot(s.axis)
	if remaining < -passClearance {
		s.outcome = OutcomeBypassed
		s.log.Info("target slipped past the roadblock", "ticks", s.ticks)
		s.rb.MarkBypassed()
		return true
	}
	return false
}

func (s *Simulation) resolveHit(slot roadblock.Slot) {
	s.outcome = OutcomeHit
	s.log.Info("target rammed the roadblock", "lane", slot.Lane().Number, "ticks", s.ticks)
	if cops := slot.Cops(); len(cops) > 0 && s.rng.Float64() < s.params.CasualtyChance {
		s.w.KillPed(cops[0])
		s.copsKilled++
	}
	s.rb.MarkHit()
}

func (s *Simulation) drainEvents() {
	for {
		select {
		case evt := <-s.rb.Events():
			s.observe(evt)
		default:
			return
		}
	}
}

func (s *Simulation) observe(evt roadblock.Event) {
	switch e := evt.(type) {
	case roadblock.StateChangedEvent:
		s.log.Debug("roadblock state changed", "state", e.State)
	case roadblock.CopsJoiningPursuitEvent:
		s.copsReleased += len(e.Cops)
	case roadblock.StripStateChangedEvent:
		rec, ok := s.strips[e.Location]
		if !ok {
			rec = &StripRecord{Location: e.Location.String()}
			s.strips[e.Location] = rec
		}
		rec.State = e.State.String()
		if e.State == roadblock.StripDeployed {
			rec.Deployed = true
		}
	}
	if s.onEvent != nil {
		s.onEvent(evt)
	}
}

func (s *Simulation) buildRecord() Record {
	rec := Record{
		Variant:      s.rb.Variant(),
		Level:        s.rb.Level(),
		Flags:        s.rb.Flags().String(),
		RoadPosition: s.road.Position,
		Heading:      s.rb.Heading(),
		LanesBlocked: s.rb.NumberOfSlots(),
		Outcome:      s.outcome,
		CopsReleased: s.copsReleased,
		CopsKilled:   s.copsKilled,
		Ticks:        s.ticks,
		Duration:     time.Duration(s.ticks) * time.Second / time.Duration(s.params.TickRate),
	}
	for _, loc := range []roadblock.StripLocation{roadblock.LocationLeft, roadblock.LocationMiddle, roadblock.LocationRight} {
		if sr, ok := s.strips[loc]; ok {
			rec.Strips = append(rec.Strips, *sr)
		}
	}
	return rec
}

func (s *Simulation) save(rec Record) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveDeployment(rec); err != nil {
		s.log.Error("saving deployment record", "err", err)
	}
}
