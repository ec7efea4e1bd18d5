package terrain

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/surfroll/pkg/math"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return gomath.Abs(a-b) < tolerance
}

func approxVec(a, b math.Vec3) bool {
	return a.Distance(b) < tolerance
}

// gridSurface builds an nx*nz grid of unit cells anchored at origin with heights from fn.
func gridSurface(t *testing.T, nx, nz int, origin math.Vec3, fn func(i, j int) float64) *Surface {
	t.Helper()

	heights := make([][]float64, nx+1)
	for i := range heights {
		heights[i] = make([]float64, nz+1)
		for j := range heights[i] {
			heights[i][j] = fn(i, j)
		}
	}

	vertices, records, err := BuildGrid(heights, 1, origin)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	m, err := NewMesh(vertices, records)
	if err != nil {
		t.Fatalf("NewMesh failed: %v", err)
	}
	return NewSurface(m, NewGridSeeder(m, 1))
}

func flat(int, int) float64 { return 0 }

func bumpy(i, j int) float64 {
	return 0.5*gomath.Sin(float64(i)*0.9) + 0.3*gomath.Cos(float64(j)*1.3)
}

// centroidXZ returns the horizontal centroid of triangle t at the given height.
func centroid(m *Mesh, t int) math.Vec3 {
	p, q, r := m.Corners(t)
	return p.Add(q).Add(r).Scale(1.0 / 3.0)
}
