// Package metrics exposes the state of running simulations as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/pkg/errs"
)

// ShutdownTimeout bounds how long Serve waits for in-flight scrapes.
const ShutdownTimeout = 5 * time.Second

// Collector bundles the simulation metrics. It implements render.FrameObserver
// and render.RunObserver so a Runner can feed it directly.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	Radius       prometheus.Gauge
	Phase        prometheus.Gauge
	AngularStep  prometheus.Gauge
	Separation   prometheus.Gauge
	Runs         *prometheus.CounterVec
	TickInterval prometheus.Histogram

	mu        sync.Mutex
	lastPhase float64
	lastTick  time.Time
	hasLast   bool
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspiral_ticks_total",
		Help: "Total number of simulation ticks published.",
	}))
	if err != nil {
		return nil, err
	}
	radius, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspiral_orbit_radius",
		Help: "Orbital radius the bodies were last placed with.",
	}))
	if err != nil {
		return nil, err
	}
	phase, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspiral_orbit_phase_radians",
		Help: "Phase of body 1 at the last tick.",
	}))
	if err != nil {
		return nil, err
	}
	step, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspiral_angular_step_radians",
		Help: "Phase advance between the last two ticks.",
	}))
	if err != nil {
		return nil, err
	}
	separation, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspiral_body_separation",
		Help: "Distance between the two bodies at the last tick.",
	}))
	if err != nil {
		return nil, err
	}
	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspiral_runs_total",
		Help: "Finished runs, labeled by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}
	interval, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspiral_tick_duration_seconds",
		Help:    "Wall-clock time between consecutive ticks.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.15, 0.25, 0.5, 1},
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		Ticks:        ticks,
		Radius:       radius,
		Phase:        phase,
		AngularStep:  step,
		Separation:   separation,
		Runs:         runs,
		TickInterval: interval,
	}, nil
}

// ObserveFrame updates the gauges from the latest frame.
func (c *Collector) ObserveFrame(_ context.Context, f v1.Frame) error {
	if c == nil {
		return nil
	}
	now := time.Now()

	c.mu.Lock()
	if c.hasLast {
		c.AngularStep.Set(f.Phase - c.lastPhase)
		c.TickInterval.Observe(now.Sub(c.lastTick).Seconds())
	}
	c.lastPhase, c.lastTick, c.hasLast = f.Phase, now, true
	c.mu.Unlock()

	c.Ticks.Inc()
	c.Radius.Set(f.Radius)
	c.Phase.Set(f.Phase)
	c.Separation.Set(f.Separation())
	return nil
}

// RunFinished counts the run and resets the per-run state.
func (c *Collector) RunFinished(_ context.Context, rec v1.RunRecord) error {
	if c == nil {
		return nil
	}
	c.Runs.WithLabelValues(string(rec.Result)).Inc()
	c.mu.Lock()
	c.hasLast = false
	c.mu.Unlock()
	return nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, log *logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(err, errs.ErrMetricsServe, "metrics.serve").WithResource(addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, errs.ErrMetricsServe, "metrics.shutdown").WithResource(addr)
		}
		return nil
	}
}

// register adds col to reg, returning the already-registered collector of the
// same type when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
