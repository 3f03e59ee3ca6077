package dispatch

import (
	"testing"
)

// Each test deployment runs roughly 2 simulated seconds, so with the
// 90 second intercept gap the third deployment crosses the two minute
// escalation threshold.

func TestSeriesEscalatesWithPursuitDuration(t *testing.T) {
	deps, _, saver := testDeps(31)
	series := NewSeries(deps, testParams(), 3)

	var calls int
	records, err := series.Run(func(n int, rec Record) {
		calls++
		if n != calls {
			t.Errorf("onDeployment ordinal = %d, want %d", n, calls)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 3 || calls != 3 {
		t.Fatalf("got %d records and %d callbacks, want 3 each", len(records), calls)
	}

	for i, want := range []int{1, 1, 2} {
		if records[i].Level != want {
			t.Errorf("deployment %d level = %d, want %d", i+1, records[i].Level, want)
		}
	}
	for i, rec := range records {
		if rec.Outcome != OutcomeHit {
			t.Errorf("deployment %d outcome = %q, want %q", i+1, rec.Outcome, OutcomeHit)
		}
	}
	if len(saver.saved()) != 3 {
		t.Errorf("saver called %d times, want 3", len(saver.saved()))
	}
}

func TestSeriesLethalForceRaisesFloor(t *testing.T) {
	deps, _, _ := testDeps(37)
	p := testParams()
	p.CasualtyChance = 1

	records, err := NewSeries(deps, p, 3).Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The first ram kills a crew member, so every later deployment
	// jumps to the lethal force floor.
	for i, want := range []int{1, 3, 3} {
		if records[i].Level != want {
			t.Errorf("deployment %d level = %d, want %d", i+1, records[i].Level, want)
		}
	}
}

func TestSeriesWithoutEscalationHoldsLevel(t *testing.T) {
	deps, _, _ := testDeps(41)
	p := testParams()
	p.Level = 2

	series := NewSeries(deps, p, 3)
	series.SetEscalation(false)

	records, err := series.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, rec := range records {
		if rec.Level != 2 {
			t.Errorf("deployment %d level = %d, want 2", i+1, rec.Level)
		}
	}
}
