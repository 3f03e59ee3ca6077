package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// colorStyles maps canvas colors to lipgloss styles.
var colorStyles = map[Color]lipgloss.Style{
	ColorDefault:       lipgloss.NewStyle(),
	ColorRed:           lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	ColorGreen:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	ColorYellow:        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	ColorBlue:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	ColorMagenta:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	ColorCyan:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	ColorWhite:         lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	ColorBrightRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	ColorBrightGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	ColorBrightYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	ColorBrightBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	ColorBrightMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	ColorBrightCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	ColorBrightWhite:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	ColorOrange:        lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	ColorGray:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

// RenderCanvas converts a canvas to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape
// sequences.
func RenderCanvas(c *Canvas) string {
	var sb strings.Builder
	sb.Grow(c.Width()*c.Height()*2 + c.Height())

	for y := 0; y < c.Height(); y++ {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < c.Width() {
			startColor := c.GetCell(x, y).Color

			var run strings.Builder
			for x < c.Width() {
				cell := c.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}
