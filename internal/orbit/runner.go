package orbit

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/pkg/errs"
)

// Bodies controls how the two spheres are displayed.
type Bodies struct {
	Radius float64
	Color1 string
	Color2 string
}

// DefaultBodies are two white spheres of radius 0.5.
func DefaultBodies() Bodies {
	return Bodies{Radius: 0.5, Color1: "#FFFFFF", Color2: "#FFFFFF"}
}

// RunnerConfig carries dependencies into a Runner.
type RunnerConfig struct {
	ID          string
	SurfaceName string // recorded on the RunRecord: tui | stream | headless
	Params      v1.OrbitParams
	Bodies      Bodies
	Surface     render.Surface
	Observers   []render.FrameObserver
	Pacer       Pacer
	MaxTicks    int // 0 = run until the radius reaches zero
	Log         *logger.Logger
}

// Runner drives a Simulator and publishes every tick to a rendering surface.
type Runner struct {
	cfg     RunnerConfig
	sim     *Simulator
	spheres [2]render.Sphere
	started time.Time
	begun   bool
}

// NewRunner validates the params and builds a Runner positioned before its first tick.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	sim, err := New(cfg.Params)
	if err != nil {
		return nil, err
	}
	if cfg.Surface == nil {
		cfg.Surface = render.Discard{}
	}
	if cfg.Pacer == nil {
		cfg.Pacer = Unpaced()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	if cfg.Bodies == (Bodies{}) {
		cfg.Bodies = DefaultBodies()
	}
	return &Runner{cfg: cfg, sim: sim}, nil
}

// Simulator exposes the underlying state for read-only display.
func (r *Runner) Simulator() *Simulator { return r.sim }

// ID returns the run identifier.
func (r *Runner) ID() string { return r.cfg.ID }

// Begin creates both spheres at their initial positions.
func (r *Runner) Begin(ctx context.Context) error {
	if r.begun {
		return nil
	}
	p := r.sim.Params()
	specs := [2]v1.SphereSpec{
		{Name: "bob1", Pos: p.Body1, Radius: r.cfg.Bodies.Radius, Color: r.cfg.Bodies.Color1},
		{Name: "bob2", Pos: p.Body2, Radius: r.cfg.Bodies.Radius, Color: r.cfg.Bodies.Color2},
	}
	for i, spec := range specs {
		sp, err := r.cfg.Surface.AddSphere(spec)
		if err != nil {
			return errs.Wrap(err, errs.ErrRenderSurface, "run.begin.add_sphere").WithResource(spec.Name)
		}
		r.spheres[i] = sp
	}
	r.started = time.Now().UTC()
	r.begun = true

	r.cfg.Log.Info("run.start",
		"run", r.cfg.ID,
		"radius", p.Radius,
		"phase", p.Phase,
		"center", fmt.Sprintf("(%.4f, %.4f, %.4f)", r.sim.Center().X, r.sim.Center().Y, r.sim.Center().Z),
		"budget", r.sim.Budget(),
	)
	return nil
}

// Step advances one tick, moves both spheres and notifies observers. It reports
// done once the radius has reached zero or MaxTicks is spent.
func (r *Runner) Step(ctx context.Context) (v1.Frame, bool, error) {
	if !r.begun {
		if err := r.Begin(ctx); err != nil {
			return v1.Frame{}, true, err
		}
	}
	if r.exhausted() {
		return r.sim.Frame(), true, nil
	}

	f := r.sim.Tick()
	if err := r.spheres[0].SetPos(f.Body1); err != nil {
		return f, true, errs.Wrap(err, errs.ErrRenderSurface, "run.step.move").WithResource(r.spheres[0].Name())
	}
	if err := r.spheres[1].SetPos(f.Body2); err != nil {
		return f, true, errs.Wrap(err, errs.ErrRenderSurface, "run.step.move").WithResource(r.spheres[1].Name())
	}
	for _, o := range r.cfg.Observers {
		if err := o.ObserveFrame(ctx, f); err != nil {
			return f, true, fmt.Errorf("observe frame %d: %w", f.Tick, err)
		}
	}

	r.cfg.Log.Debug("tick", "run", r.cfg.ID, "n", f.Tick, "phase", f.Phase, "radius", f.Radius)
	return f, r.exhausted(), nil
}

func (r *Runner) exhausted() bool {
	if r.sim.Done() {
		return true
	}
	return r.cfg.MaxTicks > 0 && r.sim.Ticks() >= r.cfg.MaxTicks
}

// Run steps until the orbit collapses, ctx is cancelled, or a surface fails,
// waiting on the Pacer between ticks. The returned record is valid even when
// err is non-nil.
func (r *Runner) Run(ctx context.Context) (v1.RunRecord, error) {
	defer r.cfg.Pacer.Stop()

	if err := r.Begin(ctx); err != nil {
		return r.Finish(ctx, err), err
	}

	for !r.exhausted() {
		if err := ctx.Err(); err != nil {
			return r.Finish(ctx, err), nil
		}
		if _, _, err := r.Step(ctx); err != nil {
			return r.Finish(ctx, err), err
		}
		if r.exhausted() {
			break
		}
		if err := r.cfg.Pacer.Wait(ctx); err != nil {
			return r.Finish(ctx, err), nil
		}
	}
	return r.Finish(ctx, nil), nil
}

// Finish builds the RunRecord and notifies RunObservers. cause is the error that
// stopped the run; context cancellation maps to ResultInterrupted.
func (r *Runner) Finish(ctx context.Context, cause error) v1.RunRecord {
	now := time.Now().UTC()
	started := r.started
	if started.IsZero() {
		started = now
	}
	rec := v1.RunRecord{
		ID:          r.cfg.ID,
		Params:      r.sim.Params(),
		StartedAt:   started,
		CompletedAt: now,
		Ticks:       r.sim.Ticks(),
		FinalPhase:  r.sim.Phase(),
		DurationMS:  now.Sub(started).Milliseconds(),
		Surface:     r.cfg.SurfaceName,
	}

	switch {
	case cause == nil && r.sim.Done():
		rec.Result = v1.ResultCompleted
	case cause == nil, errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		rec.Result = v1.ResultInterrupted
	default:
		rec.Result = v1.ResultFailed
		rec.Error = cause.Error()
	}

	// Observers still get told when the run context is already gone.
	notifyCtx := context.WithoutCancel(ctx)
	for _, o := range r.cfg.Observers {
		ro, ok := o.(render.RunObserver)
		if !ok {
			continue
		}
		if err := ro.RunFinished(notifyCtx, rec); err != nil {
			r.cfg.Log.Warn("run observer failed", "run", r.cfg.ID, "err", err)
		}
	}

	r.cfg.Log.Info("run.done",
		"run", rec.ID,
		"result", rec.Result,
		"ticks", rec.Ticks,
		"duration_ms", rec.DurationMS,
	)
	return rec
}
