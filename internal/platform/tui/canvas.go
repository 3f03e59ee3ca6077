// Package tui provides the Bubble Tea surfaces of cordon: the
// deployment preview console, the live pursuit monitor, the history
// browser, and the Wish SSH server that serves them remotely.
package tui

import "strings"

// Color is a foreground color for a canvas cell, mapped to ANSI
// styles at render time.
type Color uint8

// Predefined colors for scene elements.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
	ColorOrange
	ColorGray
)

// Cell is one character of the canvas with its color.
type Cell struct {
	Rune  rune
	Color Color
}

// Canvas is a 2D colored character buffer the scene renderer draws
// into. It decouples scene drawing from the terminal; the platform
// turns it into styled output.
type Canvas struct {
	width  int
	height int
	cells  [][]Cell
}

// NewCanvas creates a canvas with the given dimensions.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		width:  width,
		height: height,
	}
	c.allocate()
	c.Clear()
	return c
}

func (c *Canvas) allocate() {
	c.cells = make([][]Cell, c.height)
	for y := range c.cells {
		c.cells[y] = make([]Cell, c.width)
	}
}

// Width returns the canvas width in characters.
func (c *Canvas) Width() int {
	return c.width
}

// Height returns the canvas height in characters.
func (c *Canvas) Height() int {
	return c.height
}

// Resize changes the canvas dimensions, preserving content where
// possible.
func (c *Canvas) Resize(width, height int) {
	if width == c.width && height == c.height {
		return
	}

	oldCells := c.cells
	oldW, oldH := c.width, c.height

	c.width = width
	c.height = height
	c.allocate()
	c.Clear()

	copyW := min(oldW, width)
	copyH := min(oldH, height)
	for y := 0; y < copyH; y++ {
		for x := 0; x < copyW; x++ {
			c.cells[y][x] = oldCells[y][x]
		}
	}
}

// Clear fills the entire canvas with spaces in the default color.
func (c *Canvas) Clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = Cell{Rune: ' ', Color: ColorDefault}
		}
	}
}

// Set places a colored rune at the given position. Out-of-bounds
// coordinates are silently ignored.
func (c *Canvas) Set(x, y int, r rune, color Color) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.cells[y][x] = Cell{Rune: r, Color: color}
}

// Get returns the rune at the given position. Returns space for
// out-of-bounds coordinates.
func (c *Canvas) Get(x, y int) rune {
	return c.GetCell(x, y).Rune
}

// GetCell returns the cell at the given position. Returns a default
// space cell for out-of-bounds coordinates.
func (c *Canvas) GetCell(x, y int) Cell {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return Cell{Rune: ' ', Color: ColorDefault}
	}
	return c.cells[y][x]
}

// DrawText writes a string horizontally starting at (x, y).
// Characters that extend beyond canvas bounds are clipped.
func (c *Canvas) DrawText(x, y int, text string, color Color) {
	for i, r := range text {
		c.Set(x+i, y, r, color)
	}
}

// DrawTextCentered draws text centered horizontally at the given y.
func (c *Canvas) DrawTextCentered(y int, text string, color Color) {
	x := (c.width - len(text)) / 2
	c.DrawText(x, y, text, color)
}

// DrawHLine draws a horizontal line from (x, y) with the given length.
func (c *Canvas) DrawHLine(x, y, length int, r rune, color Color) {
	for i := 0; i < length; i++ {
		c.Set(x+i, y, r, color)
	}
}

// DrawVLine draws a vertical line from (x, y) with the given length.
func (c *Canvas) DrawVLine(x, y, length int, r rune, color Color) {
	for i := 0; i < length; i++ {
		c.Set(x, y+i, r, color)
	}
}

// String converts the canvas to a plain string without styling.
// Each row is joined with newlines.
func (c *Canvas) String() string {
	var sb strings.Builder
	sb.Grow(c.width*c.height + c.height)

	for y := 0; y < c.height; y++ {
		if y > 0 {
			sb.WriteRune('\n')
		}
		for x := 0; x < c.width; x++ {
			sb.WriteRune(c.cells[y][x].Rune)
		}
	}
	return sb.String()
}

// Row returns a copy of the specified row as a plain string.
func (c *Canvas) Row(y int) string {
	if y < 0 || y >= c.height {
		return strings.Repeat(" ", c.width)
	}
	var sb strings.Builder
	sb.Grow(c.width)
	for x := 0; x < c.width; x++ {
		sb.WriteRune(c.cells[y][x].Rune)
	}
	return sb.String()
}
