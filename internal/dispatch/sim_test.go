package dispatch

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/roadblock"
	"github.com/vovakirdan/cordon/internal/world"
)

type stubSaver struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (s *stubSaver) SaveDeployment(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *stubSaver) saved() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func testDeps(seed int64) (Deps, *world.SimWorld, *stubSaver) {
	w := world.NewSim()
	saver := &stubSaver{}
	cfg := config.Default()
	cfg.SpikeStrip.PollIntervalMs = 1
	cfg.SpikeStrip.HitGraceMs = 1
	cfg.SpikeStrip.RetrieveDelayMs = 1
	cfg.Monitor.CrewIntervalMs = 1
	cfg.Monitor.MarkerDelayMs = 1
	deps := Deps{
		World:  w,
		Config: cfg,
		Logger: log.New(io.Discard),
		Rand:   rand.New(rand.NewSource(seed)),
		Saver:  saver,
	}
	return deps, w, saver
}

// testParams shortens the approach and disables the random decisions
// so each test forces the outcome it wants.
func testParams() Params {
	p := DefaultParams()
	p.StartDistance = 60
	p.TimeScale = 1000
	p.BypassChance = 0
	p.CasualtyChance = 0
	p.LingerTicks = 5
	return p
}

// runToCompletion steps the simulation by hand instead of on the wall
// clock ticker. A non-zero pause gives the engine's background
// monitors room to fire between ticks.
func runToCompletion(t *testing.T, sim *Simulation, pause time.Duration) Record {
	t.Helper()
	if err := sim.rb.Spawn(); err != nil {
		t.Fatalf("spawning roadblock: %v", err)
	}
	for i := 0; i < 100000; i++ {
		if rec, finished := sim.runTick(); finished {
			return rec
		}
		if pause > 0 {
			time.Sleep(pause)
		}
	}
	t.Fatal("deployment never finished")
	return Record{}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRamEndsInHit(t *testing.T) {
	deps, _, saver := testDeps(3)
	p := testParams()
	p.CasualtyChance = 1
	p.Flags = roadblock.Flags{JoinPursuitOnHit: true, ForceInVehicle: true}

	sim, err := NewSimulation(deps, p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	rec := runToCompletion(t, sim, 0)

	if rec.Outcome != OutcomeHit {
		t.Fatalf("outcome = %q, want %q", rec.Outcome, OutcomeHit)
	}
	if rec.CopsKilled != 1 {
		t.Errorf("CopsKilled = %d, want 1", rec.CopsKilled)
	}
	// Level 1 staffs one cop per slot on a two lane road. The casualty
	// stays behind, the survivor joins the pursuit.
	if rec.CopsReleased != 1 {
		t.Errorf("CopsReleased = %d, want 1", rec.CopsReleased)
	}
	if rec.Ticks == 0 {
		t.Error("Ticks = 0, want the approach to take time")
	}
	if want := time.Duration(rec.Ticks) * time.Second / 30; rec.Duration != want {
		t.Errorf("Duration = %v, want %v", rec.Duration, want)
	}
	if rec.LanesBlocked != 2 {
		t.Errorf("LanesBlocked = %d, want 2", rec.LanesBlocked)
	}
	if len(rec.Strips) != 0 {
		t.Errorf("Strips = %v, want none without the flag", rec.Strips)
	}
	if got := sim.Roadblock().State(); got != roadblock.StateDisposed {
		t.Errorf("state after run = %v, want %v", got, roadblock.StateDisposed)
	}
	if got := saver.saved(); len(got) != 1 || got[0].Outcome != OutcomeHit {
		t.Errorf("saved records = %+v, want one hit", got)
	}
}

func TestSwerveEndsInBypass(t *testing.T) {
	deps, _, saver := testDeps(11)
	p := testParams()
	p.BypassChance = 1
	p.Flags = roadblock.Flags{JoinPursuitOnBypass: true}

	sim, err := NewSimulation(deps, p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	rec := runToCompletion(t, sim, 0)

	if rec.Outcome != OutcomeBypassed {
		t.Fatalf("outcome = %q, want %q", rec.Outcome, OutcomeBypassed)
	}
	if rec.CopsKilled != 0 {
		t.Errorf("CopsKilled = %d, want 0", rec.CopsKilled)
	}
	if rec.CopsReleased != 2 {
		t.Errorf("CopsReleased = %d, want the whole crew", rec.CopsReleased)
	}
	if got := sim.Roadblock().State(); got != roadblock.StateDisposed {
		t.Errorf("state after run = %v, want %v", got, roadblock.StateDisposed)
	}
	if len(saver.saved()) != 1 {
		t.Errorf("saver called %d times, want 1", len(saver.saved()))
	}
}

func TestReplaysAreDeterministic(t *testing.T) {
	run := func(seed int64) Record {
		t.Helper()
		deps, _, _ := testDeps(seed)
		p := testParams()
		p.BypassChance = 0.5
		p.CasualtyChance = 0.5
		sim, err := NewSimulation(deps, p)
		if err != nil {
			t.Fatalf("NewSimulation: %v", err)
		}
		return runToCompletion(t, sim, 0)
	}

	a := run(99)
	b := run(99)
	if a.Outcome != b.Outcome || a.Ticks != b.Ticks || a.CopsKilled != b.CopsKilled {
		t.Errorf("same seed diverged: %+v vs %+v", a, b)
	}
}

func TestRecordsStripOutcomes(t *testing.T) {
	deps, _, _ := testDeps(5)
	p := testParams()
	p.Flags = roadblock.Flags{SpikeStrips: true}
	p.LingerTicks = 50

	sim, err := NewSimulation(deps, p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	rec := runToCompletion(t, sim, time.Millisecond)

	if rec.Outcome != OutcomeHit {
		t.Fatalf("outcome = %q, want %q", rec.Outcome, OutcomeHit)
	}
	if len(rec.Strips) != 2 {
		t.Fatalf("Strips = %+v, want one per blocked lane", rec.Strips)
	}
	for _, sr := range rec.Strips {
		if !sr.Deployed {
			t.Errorf("strip %s never deployed", sr.Location)
		}
		if sr.State != roadblock.StripUndeployed.String() {
			t.Errorf("strip %s ended in %q, want %q", sr.Location, sr.State, roadblock.StripUndeployed)
		}
	}
}

func TestSpawnFailureReportsError(t *testing.T) {
	deps, w, saver := testDeps(9)
	sim, err := NewSimulation(deps, testParams())
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}

	w.FailNext(world.KindVehicle, errors.New("no vehicle slot"))

	var rec Record
	sim.Run(func(r Record) { rec = r })

	if rec.Outcome != OutcomeError {
		t.Fatalf("outcome = %q, want %q", rec.Outcome, OutcomeError)
	}
	if got := sim.Roadblock().State(); got != roadblock.StateError {
		t.Errorf("state = %v, want %v", got, roadblock.StateError)
	}
	if got := saver.saved(); len(got) != 1 || got[0].Outcome != OutcomeError {
		t.Errorf("saved records = %+v, want one error record", got)
	}
}

func TestSaveErrorIsNotFatal(t *testing.T) {
	deps, _, saver := testDeps(13)
	saver.err = errors.New("disk full")

	sim, err := NewSimulation(deps, testParams())
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	rec := runToCompletion(t, sim, 0)

	if rec.Outcome != OutcomeHit {
		t.Errorf("outcome = %q, want %q despite the save error", rec.Outcome, OutcomeHit)
	}
	if len(saver.saved()) != 1 {
		t.Errorf("saver called %d times, want 1", len(saver.saved()))
	}
}

func TestStopAbortsRun(t *testing.T) {
	deps, _, saver := testDeps(21)
	p := testParams()
	// A glacial tick so the run is still mid-approach when stopped.
	p.TimeScale = 0.001

	sim, err := NewSimulation(deps, p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}

	completed := make(chan Record, 1)
	finished := make(chan struct{})
	go func() {
		sim.Run(func(r Record) { completed <- r })
		close(finished)
	}()

	waitFor(t, func() bool { return sim.Roadblock().State() == roadblock.StateActive }, "roadblock never activated")
	sim.Stop()
	sim.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	select {
	case rec := <-completed:
		t.Errorf("onComplete fired for an aborted run: %+v", rec)
	default:
	}
	if got := sim.Roadblock().State(); got != roadblock.StateDisposed {
		t.Errorf("state after stop = %v, want %v", got, roadblock.StateDisposed)
	}
	if len(saver.saved()) != 0 {
		t.Errorf("aborted run saved %d records, want 0", len(saver.saved()))
	}
}

func TestOnEventSeesEngineEvents(t *testing.T) {
	deps, _, _ := testDeps(17)

	var mu sync.Mutex
	var states []roadblock.State
	deps.OnEvent = func(evt roadblock.Event) {
		if e, ok := evt.(roadblock.StateChangedEvent); ok {
			mu.Lock()
			states = append(states, e.State)
			mu.Unlock()
		}
	}

	sim, err := NewSimulation(deps, testParams())
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	runToCompletion(t, sim, 0)

	mu.Lock()
	defer mu.Unlock()
	want := []roadblock.State{
		roadblock.StateActive,
		roadblock.StateHit,
		roadblock.StateDisposing,
		roadblock.StateDisposed,
	}
	if len(states) != len(want) {
		t.Fatalf("observed states %v, want %v", states, want)
	}
	for i, st := range want {
		if states[i] != st {
			t.Fatalf("observed states %v, want %v", states, want)
		}
	}
}
