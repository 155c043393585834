// Package tui: Lipgloss styles for the "Event Horizon" theme.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the Lipgloss styles used by the orbit view.
type Styles struct {
	// Colors
	Background lipgloss.Color
	Surface    lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Danger     lipgloss.Color
	Success    lipgloss.Color
	Muted      lipgloss.Color
	Text       lipgloss.Color

	// Component styles
	Canvas  lipgloss.Style
	Center  lipgloss.Style
	Trail   lipgloss.Style
	Merged  lipgloss.Style
	Paused  lipgloss.Style
	Modal   lipgloss.Style
	ErrText lipgloss.Style
}

// newStyles returns the "Event Horizon" theme styles.
func newStyles() Styles {
	bg := lipgloss.Color("#05060B")
	surface := lipgloss.Color("#12101F")
	primary := lipgloss.Color("#9F7AEA")
	accent := lipgloss.Color("#F6E05E")
	danger := lipgloss.Color("#F56565")
	success := lipgloss.Color("#68D391")
	muted := lipgloss.Color("#4A5568")
	text := lipgloss.Color("#E2E8F0")

	return Styles{
		Background: bg, Surface: surface, Primary: primary,
		Accent: accent, Danger: danger, Success: success,
		Muted: muted, Text: text,

		Canvas: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted),

		Center: lipgloss.NewStyle().Foreground(muted),
		Trail:  lipgloss.NewStyle().Foreground(primary),

		Merged: lipgloss.NewStyle().Foreground(accent).Bold(true),

		Paused: lipgloss.NewStyle().Foreground(muted).Bold(true),

		Modal: lipgloss.NewStyle().
			Background(surface).Foreground(text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),

		ErrText: lipgloss.NewStyle().Foreground(danger),
	}
}

// bodyStyle returns the style for a sphere colour, falling back to plain text.
func (s Styles) bodyStyle(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle().Foreground(s.Text).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}
