package orbit

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/pkg/errs"
)

const tol = 1e-9

func newDefault(t *testing.T) *Simulator {
	t.Helper()
	sim, err := New(v1.DefaultOrbitParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim
}

func TestCenterFromInitialConditions(t *testing.T) {
	sim := newDefault(t)

	c := sim.Center()
	wantX := -3 - 3*math.Cos(math.Pi-0.1)
	wantZ := 0 + 3*math.Sin(math.Pi-0.1)
	if math.Abs(c.X-wantX) > tol || math.Abs(c.Z-wantZ) > tol || c.Y != 0 {
		t.Fatalf("center = %+v, want (%v, 0, %v)", c, wantX, wantZ)
	}
}

func TestZeroTicksKeepsInitialPositions(t *testing.T) {
	sim := newDefault(t)
	p1, p2 := sim.Positions()
	if p1 != (r3.Vec{X: -3}) || p2 != (r3.Vec{X: 1}) {
		t.Fatalf("positions before first tick = %v, %v", p1, p2)
	}
	if sim.Ticks() != 0 || sim.Radius() != 3 || sim.Phase() != 0.1 {
		t.Fatalf("state mutated before first tick: ticks=%d radius=%v phase=%v", sim.Ticks(), sim.Radius(), sim.Phase())
	}
}

func TestRunLengthIsThreeHundredTicks(t *testing.T) {
	sim := newDefault(t)
	if got := sim.Budget(); got != 300 {
		t.Fatalf("Budget() = %d, want 300", got)
	}

	n := 0
	for !sim.Done() {
		sim.Tick()
		n++
		if n > 1000 {
			t.Fatalf("run did not terminate")
		}
	}
	if n != 300 {
		t.Fatalf("ticks = %d, want 300", n)
	}
	if sim.Radius() > 0 {
		t.Fatalf("radius after final tick = %v, want ≤ 0", sim.Radius())
	}
}

func TestTickInvariants(t *testing.T) {
	sim := newDefault(t)
	p := sim.Params()

	prevPhase := math.Inf(-1)
	prevStep := 0.0
	for n := 1; !sim.Done(); n++ {
		stepBefore := sim.AngularStep()
		f := sim.Tick()

		if f.Tick != n {
			t.Fatalf("frame tick = %d, want %d", f.Tick, n)
		}
		// Antipodal on the circle of the radius used for placement.
		if d := f.Separation(); math.Abs(d-2*f.Radius) > tol {
			t.Fatalf("tick %d: separation %v, want %v", n, d, 2*f.Radius)
		}
		mid := r3.Scale(0.5, r3.Add(f.Body1, f.Body2))
		if r3.Norm(r3.Sub(mid, sim.Center())) > tol {
			t.Fatalf("tick %d: midpoint %v is not the center %v", n, mid, sim.Center())
		}
		if f.Body1.Y != 0 || f.Body2.Y != 0 {
			t.Fatalf("tick %d: bodies left the orbital plane: %v %v", n, f.Body1, f.Body2)
		}

		if want := p.Radius - p.RadiusStep*float64(n); sim.Radius() != want {
			t.Fatalf("radius after %d ticks = %v, want %v", n, sim.Radius(), want)
		}

		if f.Phase <= prevPhase {
			t.Fatalf("tick %d: phase %v did not increase from %v", n, f.Phase, prevPhase)
		}
		prevPhase = f.Phase

		if stepBefore < prevStep {
			t.Fatalf("tick %d: angular step shrank from %v to %v", n, prevStep, stepBefore)
		}
		prevStep = stepBefore
	}
}

func TestFirstTickPlacement(t *testing.T) {
	sim := newDefault(t)
	f := sim.Tick()

	c := sim.Center()
	want1 := r3.Vec{X: c.X + 3*math.Cos(0.1), Z: c.Z + 3*math.Sin(0.1)}
	want2 := r3.Vec{X: c.X + 3*math.Cos(0.1-math.Pi), Z: c.Z + 3*math.Sin(0.1-math.Pi)}
	if r3.Norm(r3.Sub(f.Body1, want1)) > tol || r3.Norm(r3.Sub(f.Body2, want2)) > tol {
		t.Fatalf("first frame bodies = %v %v, want %v %v", f.Body1, f.Body2, want1, want2)
	}

	wantPhase := 0.1 + 0.05*math.Pow(3/2.99, 1.5)
	if math.Abs(sim.Phase()-wantPhase) > tol {
		t.Fatalf("phase after first tick = %v, want %v", sim.Phase(), wantPhase)
	}
}

func TestNonPositiveRadiusRunsZeroTicks(t *testing.T) {
	for _, r0 := range []float64{0, -1} {
		p := v1.DefaultOrbitParams()
		p.Radius = r0
		sim, err := New(p)
		if err != nil {
			t.Fatalf("New(radius=%v): %v", r0, err)
		}
		if !sim.Done() || sim.Budget() != 0 {
			t.Fatalf("radius=%v: Done=%v Budget=%d", r0, sim.Done(), sim.Budget())
		}
		f := sim.Tick()
		if f.Tick != 0 || f.Body1 != p.Body1 {
			t.Fatalf("Tick on a finished run mutated state: %+v", f)
		}
	}
}

func TestUnevenStepTerminates(t *testing.T) {
	p := v1.DefaultOrbitParams()
	p.Radius = 0.015
	sim, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := 0
	for !sim.Done() {
		sim.Tick()
		n++
	}
	if n != 2 {
		t.Fatalf("ticks = %d, want 2", n)
	}
	if math.IsNaN(sim.Phase()) || math.IsInf(sim.Phase(), 0) {
		t.Fatalf("phase after terminal tick = %v", sim.Phase())
	}
}

func TestHugeRadiusStillTicks(t *testing.T) {
	p := v1.DefaultOrbitParams()
	p.Radius = 1e20
	p.RadiusStep = 1
	sim, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sim.Budget() != math.MaxInt {
		t.Fatalf("budget = %d, want math.MaxInt", sim.Budget())
	}
	if sim.Done() {
		t.Fatal("simulator done before its first tick")
	}
	if f := sim.Tick(); f.Tick != 1 {
		t.Fatalf("first frame tick = %d, want 1", f.Tick)
	}
}

func TestResidualRadiusGetsItsTick(t *testing.T) {
	p := v1.DefaultOrbitParams()
	p.Radius = 5 + 5e-10
	p.RadiusStep = 1
	sim, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := 0
	for !sim.Done() {
		sim.Tick()
		n++
	}
	if n != 6 {
		t.Fatalf("ticks = %d, want 6", n)
	}
	if sim.Radius() > 0 {
		t.Fatalf("radius after last tick = %v, want <= 0", sim.Radius())
	}
}

func TestLegacyHalfTurn(t *testing.T) {
	p := v1.DefaultOrbitParams()
	p.HalfTurn = 3.14
	sim, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := sim.Center().X, -3-3*math.Cos(3.14-0.1); math.Abs(got-want) > tol {
		t.Fatalf("center.x = %v, want %v", got, want)
	}
}

func TestNewRejectsNonTerminatingParams(t *testing.T) {
	cases := map[string]func(*v1.OrbitParams){
		"zero step":     func(p *v1.OrbitParams) { p.RadiusStep = 0 },
		"negative step": func(p *v1.OrbitParams) { p.RadiusStep = -0.01 },
		"nan phase":     func(p *v1.OrbitParams) { p.Phase = math.NaN() },
		"inf radius":    func(p *v1.OrbitParams) { p.Radius = math.Inf(1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := v1.DefaultOrbitParams()
			mutate(&p)
			if _, err := New(p); !errs.IsCode(err, errs.ErrValidation) {
				t.Fatalf("New() error = %v, want %s", err, errs.ErrValidation)
			}
		})
	}
}

func TestBudget(t *testing.T) {
	cases := []struct {
		r0, step float64
		want     int
	}{
		{3.0, 0.01, 300},
		{1.0, 0.1, 10},
		{0.015, 0.01, 2},
		{0.5, 0.3, 2},
		{0, 0.01, 0},
		{-2, 0.01, 0},
		{5 + 5e-10, 1, 6},
		{1e20, 1, math.MaxInt},
		{3, 1e-300, math.MaxInt},
	}
	for _, c := range cases {
		if got := Budget(c.r0, c.step); got != c.want {
			t.Errorf("Budget(%v, %v) = %d, want %d", c.r0, c.step, got, c.want)
		}
	}
}
