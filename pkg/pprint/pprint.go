// Package pprint provides terminal output helpers for the inspiral CLI:
// status lines, key/value blocks, tables and an inline progress bar.
package pprint

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out is where the helpers print. Errors always go to stderr.
var Out io.Writer = os.Stdout

// ─────────────────────────────────────────────────────────────────────────────
// Colour palette
// ─────────────────────────────────────────────────────────────────────────────

var (
	ColorPrimary = lipgloss.Color("#9F7AEA") // Accretion violet
	ColorAccent  = lipgloss.Color("#F6E05E") // Photon-ring gold
	ColorSuccess = lipgloss.Color("#48BB78")
	ColorWarning = lipgloss.Color("#F6AD55")
	ColorError   = lipgloss.Color("#FC8181")
	ColorMuted   = lipgloss.Color("#4A5568")
	ColorText    = lipgloss.Color("#E2E8F0")
	ColorBg      = lipgloss.Color("#05060B") // Event-horizon black
)

// ─────────────────────────────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────────────────────────────

var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleAccent  = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Width(16)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(1, 2)
)

// ─────────────────────────────────────────────────────────────────────────────
// Status lines
// ─────────────────────────────────────────────────────────────────────────────

// Success prints a green ✓ line.
func Success(format string, args ...any) {
	fmt.Fprintln(Out, StyleSuccess.Render("✓ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Warn prints an amber ⚠ line.
func Warn(format string, args ...any) {
	fmt.Fprintln(Out, StyleWarning.Render("⚠ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Error prints a red ✗ line to stderr.
func Error(format string, args ...any) {
	fmt.Fprintln(os.Stderr, StyleError.Render("✗ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Info prints a dimmed line.
func Info(format string, args ...any) {
	fmt.Fprintln(Out, StyleMuted.Render("  "+fmt.Sprintf(format, args...)))
}

// Header prints a section header.
func Header(title string) {
	bar := strings.Repeat("─", 60)
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, StylePrimary.Render(bar))
	fmt.Fprintln(Out, StylePrimary.Render(" ◎ "+strings.ToUpper(title)))
	fmt.Fprintln(Out, StylePrimary.Render(bar))
}

// KV prints a labelled key-value pair.
func KV(key, value string) {
	fmt.Fprintln(Out, StyleLabel.Render(key)+StyleText.Render(value))
}

// Panel renders a rounded-border box with an optional title.
func Panel(title, body string) {
	content := body
	if title != "" {
		content = StyleAccent.Render(" "+title+" ") + "\n" + body
	}
	fmt.Fprintln(Out, StylePanel.Render(content))
}

// ─────────────────────────────────────────────────────────────────────────────
// Table
// ─────────────────────────────────────────────────────────────────────────────

// Table renders a plain column-aligned table with a coloured header.
type Table struct {
	headers []string
	rows    [][]string
	out     io.Writer
}

// NewTable creates a Table writing to Out.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, out: Out}
}

// To redirects the table to w.
func (t *Table) To(w io.Writer) *Table {
	t.out = w
	return t
}

// AddRow appends a data row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Render prints the table.
func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	fmt.Fprintln(t.out, StylePrimary.Render(t.line(t.headers, widths)))
	sep := ""
	for _, w := range widths {
		sep += strings.Repeat("─", w+2)
	}
	fmt.Fprintln(t.out, StyleMuted.Render(sep))
	for _, row := range t.rows {
		fmt.Fprintln(t.out, StyleText.Render(t.line(row, widths)))
	}
}

func (t *Table) line(cells []string, widths []int) string {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(cell)
		if i < len(widths)-1 {
			b.WriteString(strings.Repeat(" ", w+2-lipgloss.Width(cell)))
		}
	}
	return b.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress bar
// ─────────────────────────────────────────────────────────────────────────────

// Progress renders an inline progress bar, redrawn in place with \r.
type Progress struct {
	label string
	total int
	width int
	out   io.Writer
}

// NewProgress creates a Progress bar writing to Out.
func NewProgress(label string, total, width int) *Progress {
	return &Progress{label: label, total: total, width: width, out: Out}
}

// Set redraws the bar at current. Reaching total ends the line.
func (p *Progress) Set(current int) {
	if p.total <= 0 || p.width <= 0 {
		return
	}
	current = min(max(current, 0), p.total)
	pct := float64(current) / float64(p.total)
	filled := int(pct * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.out, "\r%s [%s] %3.0f%%",
		StyleText.Render(p.label),
		StyleAccent.Render(bar),
		pct*100,
	)
	if current == p.total {
		fmt.Fprintln(p.out)
	}
}
