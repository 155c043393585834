package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/internal/core/state"
	"github.com/f9-o/inspiral/internal/metrics"
	"github.com/f9-o/inspiral/internal/orbit"
	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/internal/sink"
)

// session builds runners that publish to every configured observer: the
// history recorder, the metrics collector and the Redis channel.
type session struct {
	rt      *Runtime
	record  bool
	metrics *metrics.Collector
}

// runSpec is what differs between a headless run and a TUI run.
type runSpec struct {
	Surface     render.Surface
	SurfaceName string
	Observers   []render.FrameObserver // called before the session observers
	Pacer       orbit.Pacer
	MaxTicks    int
}

// newSession starts the metrics endpoint when enabled. It stops with ctx.
func newSession(ctx context.Context, rt *Runtime, record bool) (*session, error) {
	s := &session{rt: rt, record: record}
	if !rt.Config.Metrics.Enabled {
		return s, nil
	}

	col, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	s.metrics = col
	addr := rt.Config.Metrics.Addr
	go func() {
		if err := col.Serve(ctx, addr, rt.Log); err != nil {
			rt.Log.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	return s, nil
}

// newRunner allocates a run ID and wires a Runner for it.
func (s *session) newRunner(ctx context.Context, spec runSpec) (*orbit.Runner, error) {
	cfg := s.rt.Config
	id, err := s.rt.State.NewRunID()
	if err != nil {
		return nil, err
	}

	observers := append([]render.FrameObserver{}, spec.Observers...)
	if s.record {
		observers = append(observers, state.NewRecorder(s.rt.State, id, cfg.State.RecordFrames))
	}
	if s.metrics != nil {
		observers = append(observers, s.metrics)
	}
	hook := &auditHook{log: s.rt.Log, op: "run." + spec.SurfaceName}
	if cfg.Redis.Enabled {
		pub, err := sink.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Channel, id)
		if err != nil {
			return nil, err
		}
		observers = append(observers, pub)
		hook.closer = pub
	}
	observers = append(observers, hook)

	r, err := orbit.NewRunner(orbit.RunnerConfig{
		ID:          id,
		SurfaceName: spec.SurfaceName,
		Params:      cfg.Orbit,
		Bodies: orbit.Bodies{
			Radius: cfg.Bodies.Radius,
			Color1: cfg.Bodies.Color1,
			Color2: cfg.Bodies.Color2,
		},
		Surface:   spec.Surface,
		Observers: observers,
		Pacer:     spec.Pacer,
		MaxTicks:  spec.MaxTicks,
		Log:       s.rt.Log,
	})
	if err != nil {
		if hook.closer != nil {
			_ = hook.closer.Close()
		}
		return nil, err
	}
	return r, nil
}

// auditHook is the last observer of every run: it writes the audit entry and
// releases per-run connections.
type auditHook struct {
	log    *logger.Logger
	op     string
	closer interface{ Close() error }
}

func (h *auditHook) ObserveFrame(context.Context, v1.Frame) error { return nil }

func (h *auditHook) RunFinished(_ context.Context, rec v1.RunRecord) error {
	h.log.Audit(logger.AuditEntry{
		Timestamp: time.Now(),
		Op:        h.op,
		User:      logger.CurrentUser(),
		RunID:     rec.ID,
		Result:    string(rec.Result),
		Meta:      map[string]string{"ticks": strconv.Itoa(rec.Ticks)},
	})
	if h.closer != nil {
		return h.closer.Close()
	}
	return nil
}
