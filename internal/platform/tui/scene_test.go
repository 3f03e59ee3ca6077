package tui

import (
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/roadblock"
	"github.com/vovakirdan/cordon/internal/world"
)

// stageRoadblock builds and spawns a standard roadblock on a fresh
// three-lane road.
func stageRoadblock(t *testing.T, w *world.SimWorld) (*road.Road, *roadblock.Roadblock) {
	t.Helper()

	r, err := road.Build(road.Params{
		LaneWidth:              5.5,
		LanesSameDirection:     2,
		LanesOppositeDirection: 1,
	})
	if err != nil {
		t.Fatalf("road.Build: %v", err)
	}

	rb, err := roadblock.NewStandard(roadblock.Deps{
		World:  w,
		Config: config.Default(),
		Logger: log.New(io.Discard),
		Rand:   rand.New(rand.NewSource(1)),
	}, roadblock.Params{
		Road:          r,
		TargetHeading: r.NodeHeading,
		Level:         1,
	})
	if err != nil {
		t.Fatalf("NewStandard: %v", err)
	}
	t.Cleanup(rb.Dispose)
	return r, rb
}

// sceneViewport mirrors the transform Draw uses, so assertions can map
// world positions to cells.
func sceneViewport(r *road.Road, c *Canvas) viewport {
	return viewport{
		origin: r.Position,
		axis:   geo.Direction(r.NodeHeading),
		right:  geo.Direction(r.NodeHeading - 90),
		cx:     c.Width() / 2,
		cy:     c.Height() / 3,
	}
}

func TestSceneDrawsSlotVehicles(t *testing.T) {
	w := world.NewSim()
	r, rb := stageRoadblock(t, w)
	if err := rb.Spawn(); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	c := NewCanvas(60, 30)
	scene := Scene{Road: r, World: w}
	scene.Draw(c)

	v := sceneViewport(r, c)
	for _, slot := range rb.Slots() {
		vehicle := slot.Vehicle()
		if vehicle == nil {
			t.Fatal("spawned slot has no vehicle")
		}
		x, y := v.cell(vehicle.Position())
		if got := c.Get(x, y); got != 'V' {
			t.Errorf("slot vehicle at %v not drawn: cell (%d, %d) = %q",
				vehicle.Position(), x, y, got)
		}
	}
}

func TestSceneDrawsPreviewGhostsGray(t *testing.T) {
	w := world.NewSim()
	r, rb := stageRoadblock(t, w)
	rb.CreatePreview()

	c := NewCanvas(60, 30)
	scene := Scene{Road: r, World: w}
	scene.Draw(c)

	v := sceneViewport(r, c)
	ghosts := 0
	for _, e := range w.Entities() {
		if !e.IsPreview() || e.Kind() != world.KindVehicle {
			continue
		}
		ghosts++
		x, y := v.cell(e.Position())
		if cell := c.GetCell(x, y); cell.Color != ColorGray {
			t.Errorf("preview ghost at (%d, %d) drawn in color %d, expected gray", x, y, cell.Color)
		}
	}
	if ghosts == 0 {
		t.Fatal("CreatePreview placed no vehicle ghosts")
	}
}

func TestSceneMarksTarget(t *testing.T) {
	w := world.NewSim()
	r, _ := stageRoadblock(t, w)

	pos := geo.Offset(r.Position, geo.Opposite(r.NodeHeading), 10)
	target, err := w.CreateVehicle("sultan", pos, r.NodeHeading)
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}

	c := NewCanvas(60, 30)
	scene := Scene{Road: r, World: w, Target: target}
	scene.Draw(c)

	v := sceneViewport(r, c)
	x, y := v.cell(target.Position())
	if got := c.Get(x, y); got != 'T' {
		t.Errorf("target not marked: cell (%d, %d) = %q", x, y, got)
	}
}

func TestSceneDrawsLaneArrows(t *testing.T) {
	w := world.NewSim()
	r, _ := stageRoadblock(t, w)

	c := NewCanvas(60, 30)
	scene := Scene{Road: r, World: w}
	scene.Draw(c)

	v := sceneViewport(r, c)
	for _, lane := range r.Lanes {
		x, _ := v.cell(lane.Position)
		want := '▲'
		if lane.IsOppositeDirection {
			want = '▼'
		}
		if got := c.Get(x, 0); got != want {
			t.Errorf("lane %d arrow = %q, expected %q", lane.Number, got, want)
		}
	}
}
