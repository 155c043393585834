package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/orbit"
	"github.com/f9-o/inspiral/internal/render"
)

// runLog records the outcome of every run the model starts.
type runLog struct {
	records []v1.RunRecord
}

func (l *runLog) ObserveFrame(context.Context, v1.Frame) error { return nil }

func (l *runLog) RunFinished(_ context.Context, rec v1.RunRecord) error {
	l.records = append(l.records, rec)
	return nil
}

func newModel(t *testing.T, trail int) (*Model, *runLog, *int) {
	t.Helper()
	log := &runLog{}
	starts := 0
	m, err := New(context.Background(), Config{
		RateHz: 0,
		Trail:  trail,
		NewRunner: func(s render.Surface) (*orbit.Runner, error) {
			starts++
			return orbit.NewRunner(orbit.RunnerConfig{
				ID:          fmt.Sprintf("run-%06d", starts),
				SurfaceName: "tui",
				Params:      v1.DefaultOrbitParams(),
				Surface:     s,
				Observers:   []render.FrameObserver{log},
			})
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, log, &starts
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func frame(m *Model) tea.Cmd {
	_, cmd := m.Update(frameMsg{gen: m.gen})
	return cmd
}

func TestFramesStepUntilMerged(t *testing.T) {
	m, log, _ := newModel(t, 5)

	if len(m.bodies) != 2 {
		t.Fatalf("bodies = %d, want 2", len(m.bodies))
	}
	for i := 0; i < 1000 && m.State() == "running"; i++ {
		frame(m)
	}

	if m.State() != "merged" {
		t.Fatalf("state = %q, want merged", m.State())
	}
	sim := m.runner.Simulator()
	if sim.Ticks() != 300 {
		t.Errorf("ticks = %d, want 300", sim.Ticks())
	}
	if len(m.trail) != 5 {
		t.Errorf("trail = %d, want 5", len(m.trail))
	}
	p1, p2 := sim.Positions()
	if m.bodies[0].pos != p1 || m.bodies[1].pos != p2 {
		t.Error("surface spheres do not match the simulator")
	}
	if len(log.records) != 1 || log.records[0].Result != v1.ResultCompleted {
		t.Fatalf("records = %+v", log.records)
	}
	if cmd := frame(m); cmd != nil {
		t.Error("a finished run should stop scheduling frames")
	}
}

func TestPauseHoldsTheRun(t *testing.T) {
	m, _, _ := newModel(t, 10)
	frame(m)
	m.Update(press("p"))
	if m.State() != "paused" {
		t.Fatalf("state = %q, want paused", m.State())
	}
	if cmd := frame(m); cmd == nil {
		t.Error("paused model should keep its frame ticker")
	}
	if got := m.runner.Simulator().Ticks(); got != 1 {
		t.Errorf("ticks while paused = %d, want 1", got)
	}
	m.Update(press("p"))
	frame(m)
	if got := m.runner.Simulator().Ticks(); got != 2 {
		t.Errorf("ticks after resume = %d, want 2", got)
	}
}

func TestSpeedIsClamped(t *testing.T) {
	m, _, _ := newModel(t, 10)
	for i := 0; i < 6; i++ {
		m.Update(press("+"))
	}
	if m.speed != maxSpeed {
		t.Errorf("speed = %d, want %d", m.speed, maxSpeed)
	}
	frame(m)
	if got := m.runner.Simulator().Ticks(); got != maxSpeed {
		t.Errorf("ticks after one frame = %d, want %d", got, maxSpeed)
	}
	for i := 0; i < 6; i++ {
		m.Update(press("-"))
	}
	if m.speed != minSpeed {
		t.Errorf("speed = %d, want %d", m.speed, minSpeed)
	}
}

func TestRestartStartsAFreshRun(t *testing.T) {
	m, log, starts := newModel(t, 10)
	frame(m)
	frame(m)
	oldGen := m.gen

	_, cmd := m.Update(press("r"))
	if cmd == nil {
		t.Fatal("restart should schedule a frame")
	}
	if *starts != 2 {
		t.Fatalf("runners built = %d, want 2", *starts)
	}
	if len(log.records) != 1 || log.records[0].Result != v1.ResultInterrupted || log.records[0].Ticks != 2 {
		t.Fatalf("first run record = %+v", log.records)
	}
	if m.runner.ID() != "run-000002" || m.runner.Simulator().Ticks() != 0 {
		t.Errorf("new run = %s at tick %d", m.runner.ID(), m.runner.Simulator().Ticks())
	}
	if len(m.bodies) != 2 || len(m.trail) != 0 {
		t.Errorf("bodies = %d, trail = %d", len(m.bodies), len(m.trail))
	}

	m.Update(frameMsg{gen: oldGen})
	if got := m.runner.Simulator().Ticks(); got != 0 {
		t.Errorf("stale frame advanced the new run to tick %d", got)
	}
}

func TestQuitInterruptsTheRun(t *testing.T) {
	m, log, _ := newModel(t, 10)
	frame(m)

	_, cmd := m.Update(press("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command does not quit")
	}
	if m.Record() == nil || m.Record().Result != v1.ResultInterrupted {
		t.Errorf("record = %+v", m.Record())
	}
	// quitting twice does not report the run twice
	m.Update(press("q"))
	if len(log.records) != 1 {
		t.Errorf("records = %d, want 1", len(log.records))
	}
}

func TestHelpToggle(t *testing.T) {
	m, _, _ := newModel(t, 10)
	m.Update(press("?"))
	if !m.showHelp {
		t.Fatal("help not shown")
	}
	m.Update(press("p"))
	if m.showHelp || m.paused {
		t.Error("a key while help is open should only close help")
	}
}

func TestViewShowsBodies(t *testing.T) {
	m, _, _ := newModel(t, 10)
	if got := m.View(); got != "Loading..." {
		t.Errorf("view before size = %q", got)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	frame(m)

	v := m.View()
	for _, want := range []string{"INSPIRAL", "run-000001", "●", "+"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
