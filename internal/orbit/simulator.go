// Package orbit implements the inspiral kinematics: two bodies held antipodal on a
// circle whose radius shrinks by a fixed step per tick while the phase advances
// faster and faster. The rule is kinematic, not a gravity integration.
package orbit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/pkg/errs"
)

// budgetEpsilon is the relative slack on r₀/step that absorbs its representation
// error, so that 3.0/0.01 budgets 300 ticks, not 301.
const budgetEpsilon = 1e-12

// Simulator holds the orbital state of the binary. It is not safe for concurrent use.
type Simulator struct {
	params v1.OrbitParams
	center r3.Vec

	body1, body2 r3.Vec
	phase        float64
	radius       float64
	ticks        int
	budget       int
}

// New places the circle so that Body1 sits on it at angle HalfTurn−Phase and
// returns a simulator positioned before its first tick. A non-positive Radius
// is accepted and yields a run of zero ticks.
func New(p v1.OrbitParams) (*Simulator, error) {
	if err := checkParams(p); err != nil {
		return nil, err
	}

	center := r3.Vec{
		X: p.Body1.X - p.Radius*math.Cos(p.HalfTurn-p.Phase),
		Y: p.Body1.Y,
		Z: p.Body1.Z + p.Radius*math.Sin(p.HalfTurn-p.Phase),
	}

	return &Simulator{
		params: p,
		center: center,
		body1:  p.Body1,
		body2:  p.Body2,
		phase:  p.Phase,
		radius: p.Radius,
		budget: Budget(p.Radius, p.RadiusStep),
	}, nil
}

// Budget returns the number of ticks a run with initial radius r0 and the given
// radius step performs: ⌈r0/step⌉, or 0 when r0 ≤ 0. Quotients beyond the int
// range saturate at math.MaxInt.
func Budget(r0, step float64) int {
	if r0 <= 0 || step <= 0 {
		return 0
	}
	q := r0 / step
	n := math.Ceil(q - q*budgetEpsilon)
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

func checkParams(p v1.OrbitParams) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"orbit.body1.x", p.Body1.X}, {"orbit.body1.y", p.Body1.Y}, {"orbit.body1.z", p.Body1.Z},
		{"orbit.body2.x", p.Body2.X}, {"orbit.body2.y", p.Body2.Y}, {"orbit.body2.z", p.Body2.Z},
		{"orbit.phase", p.Phase},
		{"orbit.radius", p.Radius},
		{"orbit.radius_step", p.RadiusStep},
		{"orbit.phase_step", p.PhaseStep},
		{"orbit.exponent", p.Exponent},
		{"orbit.half_turn", p.HalfTurn},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errs.Newf(errs.ErrValidation, "orbit.new", "%s must be finite, got %v", f.name, f.v).
				WithResource(f.name)
		}
	}
	// A non-positive step never drives the radius to zero.
	if p.RadiusStep <= 0 {
		return errs.Newf(errs.ErrValidation, "orbit.new", "radius_step must be > 0, got %v", p.RadiusStep).
			WithResource("orbit.radius_step").
			WithAdvice("set orbit.radius_step to a positive value, e.g. 0.01")
	}
	return nil
}

// Tick moves both bodies onto the circle of the current radius at the current
// phase, then shrinks the radius by one step and advances the phase by
// PhaseStep·(r₀/radius)^Exponent. It returns the frame the bodies were placed
// with. Once Done, Tick is a no-op that returns the last frame.
func (s *Simulator) Tick() v1.Frame {
	if s.Done() {
		return s.Frame()
	}

	h := s.params.HalfTurn
	s.body1 = r3.Add(s.center, r3.Scale(s.radius, unitXZ(s.phase)))
	s.body2 = r3.Add(s.center, r3.Scale(s.radius, unitXZ(s.phase-h)))
	f := s.Frame()
	f.Tick = s.ticks + 1

	s.ticks++
	s.radius = s.params.Radius - s.params.RadiusStep*float64(s.ticks)
	// (r₀/radius)^k is undefined once the radius reaches zero; the run is over anyway.
	if s.radius > 0 {
		s.phase += s.AngularStep()
	}
	return f
}

// Frame returns the state as last published: bodies, center and the radius and
// phase that will be used by the next tick.
func (s *Simulator) Frame() v1.Frame {
	return v1.Frame{
		Tick:   s.ticks,
		Phase:  s.phase,
		Radius: s.radius,
		Center: s.center,
		Body1:  s.body1,
		Body2:  s.body2,
	}
}

// AngularStep is the phase increment for the current radius.
func (s *Simulator) AngularStep() float64 {
	if s.radius <= 0 {
		return 0
	}
	return s.params.PhaseStep * math.Pow(s.params.Radius/s.radius, s.params.Exponent)
}

// Done reports whether the radius has reached zero (or the tick budget is spent).
func (s *Simulator) Done() bool {
	return s.radius <= 0 || s.ticks >= s.budget
}

func (s *Simulator) Center() r3.Vec { return s.center }
func (s *Simulator) Positions() (r3.Vec, r3.Vec) { return s.body1, s.body2 }
func (s *Simulator) Radius() float64 { return s.radius }
func (s *Simulator) Phase() float64 { return s.phase }
func (s *Simulator) Ticks() int { return s.ticks }
func (s *Simulator) Budget() int { return s.budget }
func (s *Simulator) Params() v1.OrbitParams { return s.params }

func unitXZ(theta float64) r3.Vec {
	return r3.Vec{X: math.Cos(theta), Z: math.Sin(theta)}
}
