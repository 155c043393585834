package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCanvasProject(t *testing.T) {
	c := Canvas{Width: 40, Height: 20, Span: 6}

	tests := []struct {
		name     string
		p        r3.Vec
		col, row int
		ok       bool
	}{
		{"center", r3.Vec{}, 20, 10, true},
		{"inside right edge", r3.Vec{X: 2.9}, 39, 10, true},
		{"past right edge", r3.Vec{X: 3.5}, 43, 10, false},
		{"up is negative rows", r3.Vec{Z: 1.35}, 20, 5, true},
		{"y is dropped", r3.Vec{Y: 100}, 20, 10, true},
		{"far left", r3.Vec{X: -10}, -47, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, row, ok := c.Project(tt.p)
			if col != tt.col || row != tt.row || ok != tt.ok {
				t.Errorf("Project(%v) = (%d, %d, %v), want (%d, %d, %v)",
					tt.p, col, row, ok, tt.col, tt.row, tt.ok)
			}
		})
	}
}

func TestCanvasProjectOffCenter(t *testing.T) {
	c := Canvas{Width: 40, Height: 20, Span: 6, Center: r3.Vec{X: -5.9, Z: 0.3}}
	col, row, ok := c.Project(r3.Vec{X: -5.9, Z: 0.3})
	if !ok || col != 20 || row != 10 {
		t.Errorf("center maps to (%d, %d, %v), want (20, 10, true)", col, row, ok)
	}
}

func TestCanvasRender(t *testing.T) {
	c := Canvas{Width: 40, Height: 20, Span: 6}
	plain := lipgloss.NewStyle()
	out := c.Render([]Mark{
		{Pos: r3.Vec{}, Glyph: '+', Style: plain},
		{Pos: r3.Vec{Z: 1.35}, Glyph: '·', Style: plain},
		{Pos: r3.Vec{Z: 1.35}, Glyph: '●', Style: plain}, // overwrites the trail dot
		{Pos: r3.Vec{X: 50}, Glyph: 'x', Style: plain},  // off-canvas
	})

	lines := strings.Split(out, "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d rows, want 20", len(lines))
	}
	if got := []rune(lines[10])[20]; got != '+' {
		t.Errorf("center cell = %q, want '+'", got)
	}
	if got := []rune(lines[5])[20]; got != '●' {
		t.Errorf("body cell = %q, want '●'", got)
	}
	if strings.ContainsAny(out, "x·") {
		t.Error("off-canvas or overwritten marks leaked into the output")
	}
}

func TestCanvasEmpty(t *testing.T) {
	if out := (Canvas{}).Render([]Mark{{Glyph: '+'}}); out != "" {
		t.Errorf("zero canvas rendered %q", out)
	}
	if _, _, ok := (Canvas{Width: 10, Height: 10}).Project(r3.Vec{}); ok {
		t.Error("zero span should not project")
	}
}
