package geo

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func vectorAlmostEqual(a, b Vector) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y) && almostEqual(a.Z, b.Z)
}

func TestDirectionCardinals(t *testing.T) {
	cases := []struct {
		heading float64
		want    Vector
	}{
		{0, Vector{X: 0, Y: 1}},
		{90, Vector{X: -1, Y: 0}},
		{180, Vector{X: 0, Y: -1}},
		{270, Vector{X: 1, Y: 0}},
		{360, Vector{X: 0, Y: 1}},
		{-90, Vector{X: 1, Y: 0}},
	}

	for _, c := range cases {
		got := Direction(c.heading)
		if !vectorAlmostEqual(got, c.want) {
			t.Errorf("Direction(%v) = %+v, want %+v", c.heading, got, c.want)
		}
	}
}

func TestDirectionIsUnit(t *testing.T) {
	for h := -720.0; h <= 720; h += 7.5 {
		if l := Direction(h).Length(); !almostEqual(l, 1) {
			t.Errorf("Direction(%v) has length %v, want 1", h, l)
		}
	}
}

func TestRightOfTravel(t *testing.T) {
	// Facing north (heading 0), the right-hand side is east (+X).
	right := Direction(-90)
	if !vectorAlmostEqual(right, Vector{X: 1, Y: 0}) {
		t.Errorf("Direction(heading-90) facing north = %+v, want east (+X)", right)
	}
}

func TestDotProjectsOntoHeading(t *testing.T) {
	// Projecting a displacement onto the travel axis recovers the
	// forward distance regardless of lateral drift.
	axis := Direction(0)
	moved := Offset(Offset(Vector{}, 0, 8), -90, 3)
	if got := moved.Dot(axis); !almostEqual(got, 8) {
		t.Errorf("forward projection = %v, want 8", got)
	}
	if got := Direction(-90).Dot(axis); !almostEqual(got, 0) {
		t.Errorf("perpendicular projection = %v, want 0", got)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	start := Vector{X: 12.5, Y: -3, Z: 31}
	moved := Offset(start, 42, 10)
	back := Offset(moved, Opposite(42), 10)

	if !vectorAlmostEqual(back, start) {
		t.Errorf("Offset round trip = %+v, want %+v", back, start)
	}
	if !almostEqual(start.DistanceTo(moved), 10) {
		t.Errorf("Offset moved %v units, want 10", start.DistanceTo(moved))
	}
	if !almostEqual(moved.Z, start.Z) {
		t.Errorf("Offset changed Z to %v, want %v", moved.Z, start.Z)
	}
}

func TestNormalizeHeading(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{360, 0},
		{365, 5},
		{-5, 355},
		{-360, 0},
		{725, 5},
	}
	for _, c := range cases {
		if got := NormalizeHeading(c.in); !almostEqual(got, c.want) {
			t.Errorf("NormalizeHeading(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestHeadingDeltaWrapsAround(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{0, 0, 0},
		{350, 10, 20},
		{10, 350, 20},
		{0, 180, 180},
		{90, 45, 45},
		{-10, 10, 20},
	}
	for _, c := range cases {
		if got := HeadingDelta(c.a, c.b); !almostEqual(got, c.want) {
			t.Errorf("HeadingDelta(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestHeadingBetween(t *testing.T) {
	origin := Vector{}
	cases := []struct {
		to   Vector
		want float64
	}{
		{Vector{X: 0, Y: 5}, 0},
		{Vector{X: -5, Y: 0}, 90},
		{Vector{X: 0, Y: -5}, 180},
		{Vector{X: 5, Y: 0}, 270},
	}
	for _, c := range cases {
		if got := HeadingBetween(origin, c.to); !almostEqual(got, c.want) {
			t.Errorf("HeadingBetween(origin, %+v) = %v, want %v", c.to, got, c.want)
		}
	}

	// Degenerate case: identical points.
	if got := HeadingBetween(origin, origin); got != 0 {
		t.Errorf("HeadingBetween(origin, origin) = %v, want 0", got)
	}
}

func TestHeadingBetweenMatchesDirection(t *testing.T) {
	// Offsetting along a heading and measuring back must recover it.
	from := Vector{X: 3, Y: 7}
	for h := 0.0; h < 360; h += 15 {
		to := Offset(from, h, 25)
		if got := HeadingBetween(from, to); !almostEqual(got, h) {
			t.Errorf("HeadingBetween after Offset(%v) = %v", h, got)
		}
	}
}
