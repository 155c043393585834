// Package v1 defines the public data types shared across all inspiral layers.
package v1

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// ─────────────────────────────────────────────────────────────────────────────
// Run results
// ─────────────────────────────────────────────────────────────────────────────

// RunResult is the terminal outcome of a simulation run.
type RunResult string

const (
	ResultCompleted   RunResult = "completed"
	ResultInterrupted RunResult = "interrupted"
	ResultFailed      RunResult = "failed"
)

// ─────────────────────────────────────────────────────────────────────────────
// Specification types (derived from inspiral.yaml)
// ─────────────────────────────────────────────────────────────────────────────

// OrbitParams are the initial conditions and update constants of the inspiral.
type OrbitParams struct {
	Body1      r3.Vec  `json:"body1"       mapstructure:"body1"       toml:"body1"`
	Body2      r3.Vec  `json:"body2"       mapstructure:"body2"       toml:"body2"`
	Phase      float64 `json:"phase"       mapstructure:"phase"       toml:"phase"`  // θ₀, radians
	Radius     float64 `json:"radius"      mapstructure:"radius"      toml:"radius"` // r₀
	RadiusStep float64 `json:"radius_step" mapstructure:"radius_step" toml:"radius_step"`
	PhaseStep  float64 `json:"phase_step"  mapstructure:"phase_step"  toml:"phase_step"`
	Exponent   float64 `json:"exponent"    mapstructure:"exponent"    toml:"exponent"`
	HalfTurn   float64 `json:"half_turn"   mapstructure:"half_turn"   toml:"half_turn"`
}

// DefaultOrbitParams returns the literal initial conditions of the binary:
// bodies at (-3,0,0) and (1,0,0), θ₀ = 0.1, r₀ = 3.
func DefaultOrbitParams() OrbitParams {
	return OrbitParams{
		Body1:      r3.Vec{X: -3},
		Body2:      r3.Vec{X: 1},
		Phase:      0.1,
		Radius:     3.0,
		RadiusStep: 0.01,
		PhaseStep:  0.05,
		Exponent:   1.5,
		HalfTurn:   math.Pi,
	}
}

// SphereSpec describes a renderable sphere handed to a rendering surface.
type SphereSpec struct {
	Name   string  `json:"name"`
	Pos    r3.Vec  `json:"pos"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"` // hex, e.g. "#FFFFFF"
}

// ─────────────────────────────────────────────────────────────────────────────
// Runtime state types (persisted in BoltDB)
// ─────────────────────────────────────────────────────────────────────────────

// Frame is the published state of the binary after one tick.
// Radius and Phase are the values the bodies were placed with.
type Frame struct {
	Tick   int     `json:"tick"   toml:"tick"`
	Phase  float64 `json:"phase"  toml:"phase"`
	Radius float64 `json:"radius" toml:"radius"`
	Center r3.Vec  `json:"center" toml:"center"`
	Body1  r3.Vec  `json:"body1"  toml:"body1"`
	Body2  r3.Vec  `json:"body2"  toml:"body2"`
}

// Separation returns the distance between the two bodies.
func (f Frame) Separation() float64 {
	return r3.Norm(r3.Sub(f.Body1, f.Body2))
}

// RunRecord is the persisted summary of one simulation run.
type RunRecord struct {
	ID          string      `json:"id"                   toml:"id"`
	Params      OrbitParams `json:"params"               toml:"params"`
	StartedAt   time.Time   `json:"started_at"           toml:"started_at"`
	CompletedAt time.Time   `json:"completed_at"         toml:"completed_at"`
	Ticks       int         `json:"ticks"                toml:"ticks"`
	FinalPhase  float64     `json:"final_phase"          toml:"final_phase"`
	Result      RunResult   `json:"result"               toml:"result"`
	DurationMS  int64       `json:"duration_ms"          toml:"duration_ms"`
	Surface     string      `json:"surface"              toml:"surface"` // tui | stream | headless
	Error       string      `json:"error,omitempty"      toml:"error,omitempty"`
}
