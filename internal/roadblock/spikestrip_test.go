package roadblock

import (
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/world"
)

func TestStripLocationTwoLaneRoadNeverMiddle(t *testing.T) {
	r := testRoad(t, 2, 0)
	for _, lane := range r.Lanes {
		loc := ResolveStripLocation(r, lane)
		if loc == LocationMiddle {
			t.Errorf("lane %d on a 2-lane road resolved to middle", lane.Number)
		}
	}
	if got := ResolveStripLocation(r, r.Lanes[0]); got != LocationLeft {
		t.Errorf("left lane resolved to %v", got)
	}
	if got := ResolveStripLocation(r, r.Lanes[1]); got != LocationRight {
		t.Errorf("right lane resolved to %v", got)
	}
}

func TestStripLocationMiddleOnWideRoad(t *testing.T) {
	// 3 same-direction lanes plus 1 opposite: the lanes flanking the
	// center line are strictly nearer to it than to either edge.
	r, err := road.Build(road.Params{
		Position:               geo.Vector{X: 100, Y: 200},
		Heading:                0,
		LaneWidth:              4,
		LanesSameDirection:     3,
		LanesOppositeDirection: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := ResolveStripLocation(r, r.Lanes[1]); got != LocationMiddle {
		t.Errorf("lane 2 resolved to %v, want middle", got)
	}
	if got := ResolveStripLocation(r, r.Lanes[0]); got != LocationLeft {
		t.Errorf("lane 1 resolved to %v, want left", got)
	}
	if got := ResolveStripLocation(r, r.Lanes[3]); got != LocationRight {
		t.Errorf("lane 4 resolved to %v, want right", got)
	}
}

func TestStripLocationTieGoesRight(t *testing.T) {
	// A single centered lane is equidistant from both edges.
	r, err := road.Build(road.Params{
		Heading:            0,
		LaneWidth:          8,
		LanesSameDirection: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := ResolveStripLocation(r, r.Lanes[0]); got != LocationRight {
		t.Errorf("tie resolved to %v, want right", got)
	}
}

func TestStripLocationIsDeterministic(t *testing.T) {
	r := testRoad(t, 3, 1)
	for _, lane := range r.Lanes {
		first := ResolveStripLocation(r, lane)
		for i := 0; i < 10; i++ {
			if got := ResolveStripLocation(r, lane); got != first {
				t.Fatalf("lane %d: %v then %v", lane.Number, first, got)
			}
		}
	}
}

func testStrip(w *world.SimWorld, target world.Entity, onState func(StripLocation, StripState)) *Strip {
	cfg := testConfig().SpikeStrip
	return newStrip(log.New(io.Discard), w, cfg, LocationLeft,
		geo.Vector{X: 97, Y: 198}, 0, target, onState)
}

func TestStripDeployLatchFiresOnce(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 97, Y: 190}, 0)

	var deploys int
	strip := testStrip(w, target, func(_ StripLocation, s StripState) {
		if s == StripDeployed {
			deploys++
		}
	})

	// The target is already in range; every poll observes that, but
	// only the first one deploys.
	for i := 0; i < 20; i++ {
		strip.pollOnce()
	}
	strip.Deploy()

	if deploys != 1 {
		t.Fatalf("deploy fired %d times, want 1", deploys)
	}
	if !strip.HasBeenDeployed() {
		t.Fatal("deploy latch not set")
	}
	if strip.State() != StripDeployed {
		t.Fatalf("state %v, want deployed", strip.State())
	}
	if got := w.EntityCount(); got != 2 { // target + strip prop
		t.Fatalf("world holds %d entities, want 2", got)
	}
}

func TestStripIgnoresTargetOutOfRange(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 97, Y: 500}, 0)

	strip := testStrip(w, target, nil)
	for i := 0; i < 10; i++ {
		if strip.pollOnce() {
			t.Fatal("poll deployed with target out of range")
		}
	}
	if strip.State() != StripIdle {
		t.Fatalf("state %v, want idle", strip.State())
	}

	// Exactly at the deploy range counts as in range.
	w.MoveEntity(target, geo.Vector{X: 97, Y: 198 - 50}, 0)
	if !strip.pollOnce() {
		t.Fatal("poll did not deploy at the range boundary")
	}
}

// stripRecorder collects state callbacks; the undeploy sequence emits
// from its own goroutine, so access is locked.
type stripRecorder struct {
	mu     sync.Mutex
	states []StripState
}

func (r *stripRecorder) record(_ StripLocation, s StripState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stripRecorder) snapshot() []StripState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StripState(nil), r.states...)
}

func TestStripHitRunsUndeploySequence(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 97, Y: 190}, 0)

	rec := &stripRecorder{}
	strip := testStrip(w, target, rec.record)
	strip.pollOnce()
	strip.MarkHit()

	waitFor(t, func() bool { return strip.State() == StripUndeployed },
		"strip never reached undeployed")
	waitFor(t, func() bool { return w.EntityCount() == 1 },
		"strip prop never removed") // only the target remains

	// MarkHit after the fact does nothing.
	strip.MarkHit()
	strip.MarkBypassed()
	if strip.State() != StripUndeployed {
		t.Fatalf("terminal state left: %v", strip.State())
	}

	want := []StripState{StripDeployed, StripHit, StripUndeployed}
	states := rec.snapshot()
	if len(states) != len(want) {
		t.Fatalf("observed states %v, want %v", states, want)
	}
	for i, s := range want {
		if states[i] != s {
			t.Fatalf("state %d was %v, want %v", i, states[i], s)
		}
	}
}

func TestStripBypassUndeploysImmediately(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 97, Y: 190}, 0)

	strip := testStrip(w, target, nil)
	strip.Deploy()
	strip.MarkBypassed()

	waitFor(t, func() bool { return strip.State() == StripUndeployed },
		"bypassed strip never undeployed")
}

func TestStripHitRequiresDeployment(t *testing.T) {
	w := newTestWorld()
	strip := testStrip(w, nil, nil)

	strip.MarkHit()
	if strip.State() != StripIdle {
		t.Fatalf("idle strip transitioned to %v on hit", strip.State())
	}
	strip.MarkBypassed()
	if strip.State() != StripIdle {
		t.Fatalf("idle strip transitioned to %v on bypass", strip.State())
	}
}

func TestStripDisposeStopsPendingSequence(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 97, Y: 190}, 0)

	cfg := testConfig().SpikeStrip
	cfg.HitGraceMs = 60000 // long grace so dispose wins the race
	strip := newStrip(log.New(io.Discard), w, cfg, LocationRight,
		geo.Vector{X: 103, Y: 198}, 0, target, nil)

	strip.Deploy()
	strip.MarkHit()
	strip.Dispose()

	waitFor(t, func() bool { return w.EntityCount() == 1 },
		"disposed strip left its prop behind")
	if strip.State() == StripUndeployed {
		t.Fatal("disposed strip still ran its undeploy transition")
	}
	// Dispose twice is fine.
	strip.Dispose()
}

func TestStripDeployWithoutCrewIsLoggedNotFatal(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 97, Y: 190}, 0)

	strip := testStrip(w, target, nil)
	// No thrower assigned at all.
	strip.Deploy()
	if strip.State() != StripDeployed {
		t.Fatalf("deploy without crew failed: %v", strip.State())
	}
}

func TestSpikeStripSlotThrowerPlacement(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 100, Y: -500}, 0)
	r := testRoad(t, 2, 0)

	deps := testDeps(w)
	rb, err := NewPursuit(deps, Params{
		Road:   r,
		Level:  1,
		Flags:  Flags{SpikeStrips: true},
		Target: target,
	})
	if err != nil {
		t.Fatalf("NewPursuit: %v", err)
	}

	slots := rb.Slots()
	if len(slots) != 2 {
		t.Fatalf("%d slots, want 2", len(slots))
	}

	left, right := slots[0], slots[1]
	if left.Strip() == nil || right.Strip() == nil {
		t.Fatal("spike strip slots missing strips")
	}

	// Heading 0 travels +Y, so heading-90 points +X and heading+90
	// points -X. A left strip's thrower offsets by heading-90 and a
	// right strip's by heading+90: both stand toward the road interior.
	leftThrower := left.(*spikeStripSlot).throwerPosition()
	rightThrower := right.(*spikeStripSlot).throwerPosition()

	if leftThrower.X <= left.Strip().Position().X {
		t.Errorf("left thrower at X=%v, strip at X=%v; want thrower toward road center",
			leftThrower.X, left.Strip().Position().X)
	}
	if rightThrower.X >= right.Strip().Position().X {
		t.Errorf("right thrower at X=%v, strip at X=%v; want thrower toward road center",
			rightThrower.X, right.Strip().Position().X)
	}
	if got := leftThrower.DistanceTo2D(left.Strip().Position()); got != left.Lane().Width {
		t.Errorf("left thrower offset %v, want one lane width %v", got, left.Lane().Width)
	}
}

func TestSpikeStripSlotMiddleAdvancesAnchor(t *testing.T) {
	w := newTestWorld()
	target, _ := w.CreateVehicle("target", geo.Vector{X: 100, Y: -500}, 0)
	r := testRoad(t, 3, 1)

	rb, err := NewPursuit(testDeps(w), Params{
		Road:   r,
		Level:  1,
		Flags:  Flags{SpikeStrips: true},
		Target: target,
	})
	if err != nil {
		t.Fatalf("NewPursuit: %v", err)
	}

	var middle *spikeStripSlot
	for _, slot := range rb.Slots() {
		if strip := slot.Strip(); strip != nil && strip.Location() == LocationMiddle {
			middle = slot.(*spikeStripSlot)
			break
		}
	}
	if middle == nil {
		t.Fatal("no middle strip on a 4-lane road")
	}

	// The middle thrower's anchor moves forward along the heading
	// (heading 0 is +Y) before the lateral offset applies.
	thrower := middle.throwerPosition()
	if thrower.Y <= middle.Strip().Position().Y {
		t.Errorf("middle thrower at Y=%v, strip at Y=%v; want thrower advanced forward",
			thrower.Y, middle.Strip().Position().Y)
	}
}
