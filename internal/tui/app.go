// Package tui defines the Bubble Tea model for the interactive orbit view.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/internal/orbit"
	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/internal/tui/components"
)

const (
	minSpeed = 1
	maxSpeed = 16

	// frame interval used when the configured rate is unpaced
	unpacedInterval = 16 * time.Millisecond
)

// Config carries dependencies into the TUI app.
type Config struct {
	RateHz float64 // frames per second
	Trail  int     // trail length in ticks
	Width  int     // canvas columns; 0 = fit terminal
	Height int     // canvas rows; 0 = fit terminal

	// NewRunner builds a fresh run drawing on surface. It is called once at
	// start and again on every restart.
	NewRunner func(surface render.Surface) (*orbit.Runner, error)

	Log      *logger.Logger
	LogLines <-chan string // optional; see logger.SetTUISink
}

// Model is the root Bubble Tea model (Elm architecture). It is also the
// render.Surface the current run draws on.
type Model struct {
	cfg Config
	ctx context.Context

	// Dimensions
	width  int
	height int

	// Current run
	runner *orbit.Runner
	bodies []*sphere
	trail  [][2]r3.Vec
	record *v1.RunRecord // set once the current run has finished
	gen    int           // bumped on restart so stale frame messages are dropped

	paused   bool
	speed    int // ticks per frame
	showHelp bool
	err      error

	header components.Header
	footer components.Footer
	help   help.Model
	styles Styles
	keys   Keymap
}

// frameMsg is emitted by the frame ticker.
type frameMsg struct{ gen int }

// logLineMsg carries a log line from the logger's TUI sink.
type logLineMsg string

// New constructs the model and starts the first run.
func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	h := help.New()
	h.ShowAll = true
	m := &Model{
		cfg:    cfg,
		ctx:    ctx,
		speed:  minSpeed,
		header: components.NewHeader(),
		footer: components.NewFooter(),
		help:   h,
		styles: newStyles(),
		keys:   defaultKeymap(),
	}
	if err := m.start(); err != nil {
		return nil, err
	}
	return m, nil
}

// Run runs the program in the alternate screen until the user quits or ctx
// ends. The current run is finished as interrupted if it is still going.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	m.stop(context.Canceled)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Record returns the record of the current run, or nil while it is still going.
func (m *Model) Record() *v1.RunRecord { return m.record }

// ─────────────────────────────────────────────────────────────────────────────
// render.Surface
// ─────────────────────────────────────────────────────────────────────────────

type sphere struct {
	name  string
	color string
	pos   r3.Vec
}

func (b *sphere) Name() string { return b.name }

func (b *sphere) SetPos(pos r3.Vec) error {
	b.pos = pos
	return nil
}

func (m *Model) AddSphere(spec v1.SphereSpec) (render.Sphere, error) {
	b := &sphere{name: spec.Name, color: spec.Color, pos: spec.Pos}
	m.bodies = append(m.bodies, b)
	return b, nil
}

func (m *Model) Close() error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Run lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) start() error {
	m.gen++
	m.bodies = nil
	m.trail = nil
	m.record = nil
	m.runner = nil

	r, err := m.cfg.NewRunner(m)
	if err != nil {
		return err
	}
	m.runner = r
	if err := r.Begin(m.ctx); err != nil {
		m.stop(err)
		return err
	}
	return nil
}

// stop finishes the current run once. cause follows Runner.Finish.
func (m *Model) stop(cause error) {
	if m.runner == nil || m.record != nil {
		return
	}
	rec := m.runner.Finish(m.ctx, cause)
	m.record = &rec
}

func (m *Model) step() {
	for i := 0; i < m.speed; i++ {
		f, done, err := m.runner.Step(m.ctx)
		if err != nil {
			m.err = err
			m.stop(err)
			return
		}
		m.trail = append(m.trail, [2]r3.Vec{f.Body1, f.Body2})
		if extra := len(m.trail) - m.cfg.Trail; extra > 0 {
			m.trail = m.trail[extra:]
		}
		if done {
			m.stop(nil)
			return
		}
	}
}

// State is running, paused, merged, or stopped.
func (m *Model) State() string {
	switch {
	case m.record != nil && m.record.Result == v1.ResultCompleted:
		return "merged"
	case m.record != nil || m.runner == nil:
		return "stopped"
	case m.paused:
		return "paused"
	default:
		return "running"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Init
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.waitLogCmd())
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case frameMsg:
		if msg.gen != m.gen || m.runner == nil || m.record != nil {
			return m, nil
		}
		if !m.paused {
			m.step()
		}
		if m.record != nil {
			return m, nil
		}
		return m, m.tickCmd()

	case logLineMsg:
		m.footer.SetNote(string(msg))
		return m, m.waitLogCmd()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stop(context.Canceled)
		return tea.Quit

	case m.showHelp:
		// any other key closes the help modal
		m.showHelp = false

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused

	case key.Matches(msg, m.keys.Faster):
		m.speed = min(m.speed*2, maxSpeed)

	case key.Matches(msg, m.keys.Slower):
		m.speed = max(m.speed/2, minSpeed)

	case key.Matches(msg, m.keys.Restart):
		m.stop(context.Canceled)
		m.err = m.start()
		m.paused = false
		if m.err != nil {
			m.cfg.Log.Error("restart failed", "err", m.err)
			return nil
		}
		return m.tickCmd()
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// View
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	m.header.SetStatus(m.status())
	m.footer.SetError(m.err)
	m.footer.SetHints(m.help.ShortHelpView(m.keys.ShortHelp()))
	header := m.header.View(m.width)
	footer := m.footer.View(m.width)

	cw, ch := m.canvasSize()
	body := m.styles.Canvas.Render(m.canvas(cw, ch).Render(m.marks()))

	var banner string
	switch m.State() {
	case "merged":
		banner = m.styles.Merged.Render("✦ merged ✦")
	case "paused":
		banner = m.styles.Paused.Render("paused")
	case "stopped":
		banner = m.styles.ErrText.Render("stopped")
	}
	body = lipgloss.JoinVertical(lipgloss.Center, body, banner)
	body = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, body)

	if m.showHelp {
		modal := m.styles.Modal.Render(m.help.View(m.keys))
		body = lipgloss.Place(m.width, lipgloss.Height(body), lipgloss.Center, lipgloss.Center, modal)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) status() components.Status {
	s := components.Status{Speed: m.speed, State: m.State()}
	if m.runner == nil {
		return s
	}
	sim := m.runner.Simulator()
	s.RunID = m.runner.ID()
	s.Tick = sim.Ticks()
	s.Budget = sim.Budget()
	s.Phase = sim.Phase()
	s.Radius = sim.Radius()
	s.AngularStep = sim.AngularStep()
	return s
}

// canvasSize leaves room for the header, footer, banner and canvas border.
func (m *Model) canvasSize() (int, int) {
	w, h := m.cfg.Width, m.cfg.Height
	if w <= 0 {
		w = m.width - 2
	}
	if h <= 0 {
		h = m.height - 5
	}
	return max(w, 10), max(h, 5)
}

func (m *Model) canvas(w, h int) components.Canvas {
	c := components.Canvas{Width: w, Height: h, Span: 1}
	if m.runner == nil {
		return c
	}
	sim := m.runner.Simulator()
	c.Center = sim.Center()
	if r0 := sim.Params().Radius; r0 > 0 {
		c.Span = 2 * r0 * 1.15
	}
	return c
}

func (m *Model) marks() []components.Mark {
	marks := make([]components.Mark, 0, 2*len(m.trail)+len(m.bodies)+1)
	if m.runner != nil {
		marks = append(marks, components.Mark{Pos: m.runner.Simulator().Center(), Glyph: '+', Style: m.styles.Center})
	}
	for _, pair := range m.trail {
		marks = append(marks,
			components.Mark{Pos: pair[0], Glyph: '·', Style: m.styles.Trail},
			components.Mark{Pos: pair[1], Glyph: '·', Style: m.styles.Trail},
		)
	}
	for _, b := range m.bodies {
		marks = append(marks, components.Mark{Pos: b.pos, Glyph: '●', Style: m.styles.bodyStyle(b.color)})
	}
	return marks
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) tickCmd() tea.Cmd {
	gen := m.gen
	interval := orbit.Period(m.cfg.RateHz)
	if interval <= 0 {
		interval = unpacedInterval
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

func (m *Model) waitLogCmd() tea.Cmd {
	ch := m.cfg.LogLines
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logLineMsg(line)
	}
}
