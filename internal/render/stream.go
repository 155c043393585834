package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/pkg/pprint"
)

// Stream formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatNone  = "none"
)

// Stream is a text surface: sphere moves are tracked and every observed frame is
// written to out as a table row or a JSON line.
type Stream struct {
	mu     sync.Mutex
	out    io.Writer
	format string
	header bool

	spheres []*PointSphere
}

// NewStream returns a Stream writing to out in the given format.
func NewStream(out io.Writer, format string) (*Stream, error) {
	switch format {
	case FormatTable, FormatJSON, FormatNone:
	default:
		return nil, fmt.Errorf("unknown frame format %q (want table | json | none)", format)
	}
	return &Stream{out: out, format: format}, nil
}

func (s *Stream) AddSphere(spec v1.SphereSpec) (Sphere, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := NewPointSphere(spec.Name, spec.Pos)
	s.spheres = append(s.spheres, sp)
	return sp, nil
}

// Positions returns the current position of every sphere, in creation order.
func (s *Stream) Positions() []r3.Vec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]r3.Vec, len(s.spheres))
	for i, sp := range s.spheres {
		out[i] = sp.Pos()
	}
	return out
}

// ObserveFrame writes one frame.
func (s *Stream) ObserveFrame(_ context.Context, f v1.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case FormatJSON:
		return json.NewEncoder(s.out).Encode(f)
	case FormatTable:
		if !s.header {
			fmt.Fprintln(s.out, pprint.StylePrimary.Render(fmt.Sprintf("%6s  %9s  %8s  %-24s  %-24s",
				"TICK", "PHASE", "RADIUS", "BODY 1 (x, z)", "BODY 2 (x, z)")))
			s.header = true
		}
		_, err := fmt.Fprintf(s.out, "%6d  %9.4f  %8.4f  %-24s  %-24s\n",
			f.Tick, f.Phase, f.Radius, fmtXZ(f.Body1), fmtXZ(f.Body2))
		return err
	}
	return nil
}

func (s *Stream) Close() error { return nil }

func fmtXZ(v r3.Vec) string {
	return fmt.Sprintf("(%+.4f, %+.4f)", v.X, v.Z)
}
