package tui

import (
	"math"
	"sort"

	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/world"
)

// Scene projection scale. Lateral resolution is finer than
// longitudinal so a road fits a terminal while the approach stays
// visible.
const (
	cellsPerUnit = 2.0
	rowsPerUnit  = 0.4
)

// Scene draws a top-down view of a staged road onto a canvas. The
// blocked lanes' travel direction points at the top edge; the block
// line sits in the upper third so the approach below stays in frame.
type Scene struct {
	Road   *road.Road
	World  *world.SimWorld
	Target world.Entity
}

// viewport is the world-to-canvas transform for one draw.
type viewport struct {
	origin geo.Vector
	axis   geo.Vector
	right  geo.Vector
	cx, cy int
}

func (v viewport) cell(pos geo.Vector) (int, int) {
	rel := pos.Sub(v.origin)
	lateral := rel.Dot(v.right)
	along := rel.Dot(v.axis)
	x := v.cx + int(math.Round(lateral*cellsPerUnit))
	y := v.cy - int(math.Round(along*rowsPerUnit))
	return x, y
}

// Draw renders the scene into the canvas, clearing it first.
func (sc *Scene) Draw(c *Canvas) {
	if sc.Road == nil || sc.World == nil {
		c.Clear()
		return
	}

	c.Clear()
	v := viewport{
		origin: sc.Road.Position,
		axis:   geo.Direction(sc.Road.NodeHeading),
		right:  geo.Direction(sc.Road.NodeHeading - 90),
		cx:     c.Width() / 2,
		cy:     c.Height() / 3,
	}

	sc.drawRoad(c, v)
	sc.drawZones(c, v)
	sc.drawMarkers(c, v)
	sc.drawEntities(c, v)
}

func (sc *Scene) drawRoad(c *Canvas, v viewport) {
	half := sc.Road.Width / 2
	leftX := v.cx - int(math.Round(half*cellsPerUnit))
	rightX := v.cx + int(math.Round(half*cellsPerUnit))

	c.DrawVLine(leftX, 0, c.Height(), '║', ColorGray)
	c.DrawVLine(rightX, 0, c.Height(), '║', ColorGray)

	// Lane dividers and direction hints.
	for i, lane := range sc.Road.Lanes {
		laneX, _ := v.cell(lane.Position)
		if i > 0 {
			boundary := laneX - int(math.Round(lane.Width/2*cellsPerUnit))
			for y := 0; y < c.Height(); y += 2 {
				c.Set(boundary, y, '┆', ColorGray)
			}
		}

		arrow := '▲'
		if lane.IsOppositeDirection {
			arrow = '▼'
		}
		c.Set(laneX, 0, arrow, ColorGray)
		c.Set(laneX, c.Height()-1, arrow, ColorGray)
	}
}

// drawZones marks speed zone extents as dotted lines across the road.
func (sc *Scene) drawZones(c *Canvas, v viewport) {
	half := sc.Road.Width / 2
	leftX := v.cx - int(math.Round(half*cellsPerUnit))
	rightX := v.cx + int(math.Round(half*cellsPerUnit))

	for _, zone := range sc.World.SpeedZones() {
		top := geo.Offset(zone.Position, sc.Road.NodeHeading, zone.Radius)
		bottom := geo.Offset(zone.Position, geo.Opposite(sc.Road.NodeHeading), zone.Radius)
		for _, edge := range []geo.Vector{top, bottom} {
			_, y := v.cell(edge)
			for x := leftX + 1; x < rightX; x += 2 {
				c.Set(x, y, '·', ColorGray)
			}
		}
	}
}

func (sc *Scene) drawMarkers(c *Canvas, v viewport) {
	for _, marker := range sc.World.Markers() {
		x, y := v.cell(marker.Position)
		c.Set(x, y, '◎', ColorBrightYellow)
	}
}

func (sc *Scene) drawEntities(c *Canvas, v viewport) {
	entities := sc.World.Entities()
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID() < entities[j].ID() })

	for _, e := range entities {
		// Seated crew renders with its vehicle.
		if e.Kind() == world.KindPed && e.InVehicle() != 0 {
			continue
		}

		x, y := v.cell(e.Position())
		r, color := entityGlyph(e, sc.Target)
		if e.IsPreview() {
			color = ColorGray
		}

		if e.Kind() == world.KindProp && e.Model() == "spikestrip" {
			// A strip lies across the lane.
			c.DrawHLine(x-2, y, 5, r, color)
			continue
		}
		c.Set(x, y, r, color)
	}
}

func entityGlyph(e *world.SimEntity, target world.Entity) (rune, Color) {
	if target != nil && e.ID() == target.ID() {
		return 'T', ColorBrightRed
	}

	switch e.Kind() {
	case world.KindVehicle:
		if !e.Alive() {
			return 'V', ColorRed
		}
		return 'V', ColorBrightBlue
	case world.KindPed:
		if !e.Alive() {
			return 'x', ColorRed
		}
		return 'c', ColorBrightCyan
	case world.KindProp:
		switch e.Model() {
		case "spikestrip":
			return '═', ColorBrightMagenta
		case "barrier":
			return '#', ColorWhite
		case "cone":
			return '^', ColorOrange
		case "flare":
			return '*', ColorBrightYellow
		case "spotlight":
			return '!', ColorBrightWhite
		default:
			return '+', ColorGray
		}
	}
	return '?', ColorGray
}
