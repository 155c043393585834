// Package components: TUI sub-components for the inspiral view.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ─────────────────────────────────────────────────────────────────────────────
// Header component
// ─────────────────────────────────────────────────────────────────────────────

// Status is the live readout shown in the header.
type Status struct {
	RunID       string
	Tick        int
	Budget      int
	Phase       float64
	Radius      float64
	AngularStep float64
	Speed       int
	State       string // running | paused | merged | stopped
}

// Header renders the top status bar.
type Header struct {
	status Status
}

// NewHeader creates an empty Header.
func NewHeader() Header { return Header{} }

// SetStatus replaces the readout.
func (h *Header) SetStatus(s Status) { h.status = s }

// View renders the header bar at the given terminal width.
func (h *Header) View(width int) string {
	s := h.status
	left := fmt.Sprintf(" ◎ INSPIRAL  %s  %s ", s.RunID, strings.ToUpper(s.State))
	right := fmt.Sprintf(" tick %d/%d · θ %.3f · r %.3f · Δθ %.4f · ×%d ",
		s.Tick, s.Budget, s.Phase, s.Radius, s.AngularStep, s.Speed)
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return lipgloss.NewStyle().
		Background(lipgloss.Color("#9F7AEA")).
		Foreground(lipgloss.Color("#05060B")).
		Bold(true).
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// ─────────────────────────────────────────────────────────────────────────────
// Footer component
// ─────────────────────────────────────────────────────────────────────────────

// Footer renders the bottom hint bar, or the last error or log line.
type Footer struct {
	err   error
	hints string
	note  string
}

// NewFooter creates a Footer.
func NewFooter() Footer { return Footer{} }

// SetError sets an error message to display. nil clears it.
func (f *Footer) SetError(err error) { f.err = err }

// SetHints sets the rendered key hints.
func (f *Footer) SetHints(s string) { f.hints = s }

// SetNote shows a log line next to the hints.
func (f *Footer) SetNote(s string) { f.note = s }

// View renders the footer.
func (f *Footer) View(width int) string {
	content := f.hints
	if f.note != "" {
		content += lipgloss.NewStyle().Foreground(lipgloss.Color("#4A5568")).Render("  │ " + f.note)
	}

	if f.err != nil {
		content = lipgloss.NewStyle().Foreground(lipgloss.Color("#F56565")).
			Render("Error: " + f.err.Error())
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#12101F")).
		Width(width).Padding(0, 1).
		MaxHeight(1).
		Render(content)
}
