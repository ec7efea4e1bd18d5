package simulation

import (
	"errors"
	"testing"

	"github.com/Faultbox/surfroll/internal/physics"
	"github.com/Faultbox/surfroll/internal/terrain"
	"github.com/Faultbox/surfroll/pkg/math"
)

// memorySink records everything a world emits.
type memorySink struct {
	frames []Frame
	events []Event
}

func (s *memorySink) WriteFrame(f Frame) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *memorySink) WriteEvent(e Event) error {
	s.events = append(s.events, e)
	return nil
}

var errSinkFull = errors.New("sink full")

type failingSink struct{}

func (failingSink) WriteFrame(Frame) error { return errSinkFull }
func (failingSink) WriteEvent(Event) error { return errSinkFull }

// flatSurface builds an n*n grid of unit cells at y = 0.
func flatSurface(t *testing.T, n int) *terrain.Surface {
	t.Helper()

	heights := make([][]float64, n+1)
	for i := range heights {
		heights[i] = make([]float64, n+1)
	}
	vertices, records, err := terrain.BuildGrid(heights, 1, math.Vec3{})
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	m, err := terrain.NewMesh(vertices, records)
	if err != nil {
		t.Fatalf("NewMesh failed: %v", err)
	}
	return terrain.NewSurface(m, terrain.NewGridSeeder(m, 1))
}

func mustBody(t *testing.T, p physics.Params) *physics.Body {
	t.Helper()
	if p.Mass == 0 {
		p.Mass = 1
	}
	if p.Radius == 0 {
		p.Radius = 0.5
	}
	b, err := physics.NewBody(p)
	if err != nil {
		t.Fatalf("NewBody failed: %v", err)
	}
	return b
}
