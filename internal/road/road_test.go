package road

import (
	"errors"
	"math"
	"testing"

	"github.com/vovakirdan/cordon/internal/geo"
)

const eps = 1e-9

func TestBuildRejectsEmptyRoad(t *testing.T) {
	_, err := Build(Params{LaneWidth: 4})
	if !errors.Is(err, ErrNoLanes) {
		t.Fatalf("expected ErrNoLanes, got %v", err)
	}
}

func TestBuildRejectsBadLaneWidth(t *testing.T) {
	_, err := Build(Params{LanesSameDirection: 2, LaneWidth: 0})
	if !errors.Is(err, ErrBadLaneWidth) {
		t.Fatalf("expected ErrBadLaneWidth, got %v", err)
	}
	_, err = Build(Params{LanesSameDirection: 2, LaneWidth: -3})
	if !errors.Is(err, ErrBadLaneWidth) {
		t.Fatalf("expected ErrBadLaneWidth, got %v", err)
	}
}

func TestBuildNorthboundTwoPlusTwo(t *testing.T) {
	r, err := Build(Params{
		Position:               geo.Vector{X: 100, Y: 200},
		Heading:                0,
		LaneWidth:              4,
		LanesSameDirection:     2,
		LanesOppositeDirection: 2,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if r.NumberOfLanes() != 4 {
		t.Fatalf("expected 4 lanes, got %d", r.NumberOfLanes())
	}
	if r.Width != 16 {
		t.Fatalf("expected width 16, got %v", r.Width)
	}

	// Heading 0 points along +Y, so left is -X and right is +X.
	if math.Abs(r.LeftSide.X-92) > eps || math.Abs(r.RightSide.X-108) > eps {
		t.Fatalf("unexpected edges: left %v right %v", r.LeftSide, r.RightSide)
	}

	wantX := []float64{94, 98, 102, 106}
	for i, lane := range r.Lanes {
		if lane.Number != i+1 {
			t.Errorf("lane %d: number %d", i, lane.Number)
		}
		if math.Abs(lane.Position.X-wantX[i]) > eps {
			t.Errorf("lane %d: X %v, want %v", i, lane.Position.X, wantX[i])
		}
		if math.Abs(lane.Position.Y-200) > eps {
			t.Errorf("lane %d: Y %v, want 200", i, lane.Position.Y)
		}
	}

	// Opposite-direction lanes sit on the left half.
	for i, lane := range r.Lanes {
		wantOpposite := i < 2
		if lane.IsOppositeDirection != wantOpposite {
			t.Errorf("lane %d: opposite=%v, want %v", i, lane.IsOppositeDirection, wantOpposite)
		}
		wantHeading := 0.0
		if wantOpposite {
			wantHeading = 180
		}
		if math.Abs(lane.Heading-wantHeading) > eps {
			t.Errorf("lane %d: heading %v, want %v", i, lane.Heading, wantHeading)
		}
	}
}

func TestBuildEdgesSpanWidth(t *testing.T) {
	r, err := Build(Params{
		Position:               geo.Vector{X: -40, Y: 7},
		Heading:                233,
		LaneWidth:              3.5,
		LanesSameDirection:     3,
		LanesOppositeDirection: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	span := r.LeftSide.DistanceTo(r.RightSide)
	if math.Abs(span-r.Width) > eps {
		t.Fatalf("edge span %v, want width %v", span, r.Width)
	}

	// Lane centers keep one lane width between neighbors.
	for i := 1; i < len(r.Lanes); i++ {
		d := r.Lanes[i].Position.DistanceTo(r.Lanes[i-1].Position)
		if math.Abs(d-3.5) > eps {
			t.Fatalf("lanes %d-%d spaced %v, want 3.5", i, i+1, d)
		}
	}
}

func TestBuildSingleLane(t *testing.T) {
	r, err := Build(Params{Heading: 90, LaneWidth: 5, LanesSameDirection: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.NumberOfLanes() != 1 {
		t.Fatalf("expected 1 lane, got %d", r.NumberOfLanes())
	}
	lane := r.Lanes[0]
	if lane.IsOppositeDirection {
		t.Fatal("single same-direction lane flagged as opposite")
	}
	if lane.Position.DistanceTo(r.Position) > eps {
		t.Fatalf("single lane center %v should match road center %v", lane.Position, r.Position)
	}
}
