package metrics

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/pkg/netutil"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return c, reg
}

func TestObserveFrameUpdatesGauges(t *testing.T) {
	c, reg := newTestCollector(t)
	ctx := context.Background()

	_ = c.ObserveFrame(ctx, v1.Frame{Tick: 1, Phase: 0.1, Radius: 3, Body1: r3.Vec{X: 3}, Body2: r3.Vec{X: -3}})
	_ = c.ObserveFrame(ctx, v1.Frame{Tick: 2, Phase: 0.15, Radius: 2.99, Body1: r3.Vec{X: 2.99}, Body2: r3.Vec{X: -2.99}})

	if got := testutil.ToFloat64(c.Ticks); got != 2 {
		t.Fatalf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Radius); got != 2.99 {
		t.Fatalf("radius = %v", got)
	}
	if got := testutil.ToFloat64(c.Separation); math.Abs(got-5.98) > 1e-12 {
		t.Fatalf("separation = %v", got)
	}
	if got := testutil.ToFloat64(c.AngularStep); got < 0.0499 || got > 0.0501 {
		t.Fatalf("angular step = %v, want ≈0.05", got)
	}
	if n := histogramCount(t, reg, "inspiral_tick_duration_seconds"); n != 1 {
		t.Fatalf("tick interval samples = %d, want 1", n)
	}
}

func TestRunFinishedCountsByResult(t *testing.T) {
	c, _ := newTestCollector(t)
	ctx := context.Background()
	_ = c.RunFinished(ctx, v1.RunRecord{Result: v1.ResultCompleted})
	_ = c.RunFinished(ctx, v1.RunRecord{Result: v1.ResultCompleted})
	_ = c.RunFinished(ctx, v1.RunRecord{Result: v1.ResultInterrupted})

	if got := testutil.ToFloat64(c.Runs.WithLabelValues("completed")); got != 2 {
		t.Fatalf("completed runs = %v", got)
	}
	if got := testutil.ToFloat64(c.Runs.WithLabelValues("interrupted")); got != 1 {
		t.Fatalf("interrupted runs = %v", got)
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	b, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	a.Ticks.Inc()
	if got := testutil.ToFloat64(b.Ticks); got != 1 {
		t.Fatalf("second collector does not share the counter: %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, _ := newTestCollector(t)
	_ = c.ObserveFrame(context.Background(), v1.Frame{Tick: 1, Radius: 3})

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{"inspiral_ticks_total 1", "inspiral_orbit_radius 3"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics body missing %q:\n%s", want, body)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	c, _ := newTestCollector(t)

	port, err := netutil.FreePort()
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	addr := "127.0.0.1:" + strconv.Itoa(port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, addr, logger.Discard()) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := netutil.WaitTCP(waitCtx, addr, 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "inspiral_ticks_total") {
		t.Fatalf("unexpected body: %s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not stop")
	}
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	mf := findFamily(t, reg, name)
	if mf == nil {
		return 0
	}
	var total uint64
	for _, m := range mf.GetMetric() {
		total += m.GetHistogram().GetSampleCount()
	}
	return total
}

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
