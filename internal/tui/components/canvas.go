package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r3"
)

// ─────────────────────────────────────────────────────────────────────────────
// Canvas component
// ─────────────────────────────────────────────────────────────────────────────

// cellAspect is how many times taller a terminal cell is than it is wide.
const cellAspect = 2.0

// Mark is one glyph placed on the canvas at a world position.
type Mark struct {
	Pos   r3.Vec
	Glyph rune
	Style lipgloss.Style
}

// Canvas projects the x–z plane onto a grid of terminal cells. The y axis points
// at the viewer and is dropped. Span world units around Center fit the shorter
// screen dimension after aspect correction.
type Canvas struct {
	Width  int
	Height int
	Center r3.Vec
	Span   float64
}

// scale returns columns per world unit. Rows per unit is scale/cellAspect.
func (c Canvas) scale() float64 {
	if c.Span <= 0 || c.Width <= 0 || c.Height <= 0 {
		return 0
	}
	return math.Min(float64(c.Width)/c.Span, cellAspect*float64(c.Height)/c.Span)
}

// Project maps a world position to a (col, row) cell. ok is false when the
// point falls outside the canvas. +z is up on screen.
func (c Canvas) Project(p r3.Vec) (col, row int, ok bool) {
	s := c.scale()
	if s == 0 {
		return 0, 0, false
	}
	col = int(math.Floor(float64(c.Width)/2 + (p.X-c.Center.X)*s))
	row = int(math.Floor(float64(c.Height)/2 - (p.Z-c.Center.Z)*s/cellAspect))
	ok = col >= 0 && col < c.Width && row >= 0 && row < c.Height
	return col, row, ok
}

// Render draws marks in order; later marks overwrite earlier ones in the same cell.
func (c Canvas) Render(marks []Mark) string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}
	type cell struct {
		glyph rune
		style *lipgloss.Style
	}
	grid := make([][]cell, c.Height)
	for i := range grid {
		grid[i] = make([]cell, c.Width)
	}
	for i := range marks {
		col, row, ok := c.Project(marks[i].Pos)
		if !ok {
			continue
		}
		grid[row][col] = cell{glyph: marks[i].Glyph, style: &marks[i].Style}
	}

	var b strings.Builder
	for r, line := range grid {
		for _, cl := range line {
			if cl.style == nil {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(cl.style.Render(string(cl.glyph)))
		}
		if r < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
