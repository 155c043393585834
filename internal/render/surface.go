// Package render defines the rendering collaborator the simulation publishes to.
// A Surface creates spheres and moves them; it knows nothing about orbits.
package render

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
)

// Surface is a 3D display that accepts spheres.
type Surface interface {
	// AddSphere creates a renderable sphere and returns a handle to move it.
	AddSphere(spec v1.SphereSpec) (Sphere, error)
	Close() error
}

// Sphere is a handle to a sphere created on a Surface.
type Sphere interface {
	Name() string
	SetPos(pos r3.Vec) error
}

// FrameObserver receives the full state after every tick.
type FrameObserver interface {
	ObserveFrame(ctx context.Context, f v1.Frame) error
}

// RunObserver is implemented by observers that need to know when a run ends.
type RunObserver interface {
	RunFinished(ctx context.Context, rec v1.RunRecord) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Multi
// ─────────────────────────────────────────────────────────────────────────────

type multiSurface struct {
	surfaces []Surface
}

// Multi fans sphere creation and moves out to every surface, in order.
func Multi(surfaces ...Surface) Surface {
	return &multiSurface{surfaces: surfaces}
}

func (m *multiSurface) AddSphere(spec v1.SphereSpec) (Sphere, error) {
	ms := &multiSphere{name: spec.Name}
	for _, s := range m.surfaces {
		sp, err := s.AddSphere(spec)
		if err != nil {
			return nil, fmt.Errorf("add sphere %q: %w", spec.Name, err)
		}
		ms.spheres = append(ms.spheres, sp)
	}
	return ms, nil
}

func (m *multiSurface) Close() error {
	var errs []error
	for _, s := range m.surfaces {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type multiSphere struct {
	name    string
	spheres []Sphere
}

func (s *multiSphere) Name() string { return s.name }

func (s *multiSphere) SetPos(pos r3.Vec) error {
	for _, sp := range s.spheres {
		if err := sp.SetPos(pos); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Discard
// ─────────────────────────────────────────────────────────────────────────────

// Discard is a Surface that accepts everything and displays nothing.
type Discard struct{}

func (Discard) AddSphere(spec v1.SphereSpec) (Sphere, error) {
	return &PointSphere{name: spec.Name, pos: spec.Pos}, nil
}

func (Discard) Close() error { return nil }

// PointSphere is a Sphere that only remembers its last position.
type PointSphere struct {
	name string
	pos  r3.Vec
}

// NewPointSphere returns a PointSphere at pos.
func NewPointSphere(name string, pos r3.Vec) *PointSphere {
	return &PointSphere{name: name, pos: pos}
}

func (p *PointSphere) Name() string { return p.name }

func (p *PointSphere) SetPos(pos r3.Vec) error {
	p.pos = pos
	return nil
}

// Pos returns the last position set.
func (p *PointSphere) Pos() r3.Vec { return p.pos }
