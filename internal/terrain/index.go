package terrain

import (
	gomath "math"

	"github.com/Faultbox/surfroll/pkg/math"
)

// Seeder picks a starting triangle for a walk. The seed is a hint only: any valid index is
// acceptable because the walk corrects it.
type Seeder interface {
	Seed(x, z float64) int
}

// GridSeeder is a uniform-grid spatial hash from a horizontal point to a triangle index.
//
// It assumes the mesh is a regular grid of cellSize squares, each split into exactly two
// triangles, stored in X-major strips of RowWidth cells (the layout BuildGrid produces):
//
//	i = floor((x - xMin) / cellSize)
//	j = floor((z - zMin) / cellSize)
//	seed = 2 * (j + i*rowsPerStrip)
//
// On other triangulations the seed is merely less accurate and walks take more hops.
// For irregular meshes prefer ScanSeeder.
type GridSeeder struct {
	xMin, zMin    float64
	cellSize      float64
	rowsPerStrip  int
	triangleCount int
}

// NewGridSeeder derives a GridSeeder from a mesh. A non-positive cellSize or an empty mesh
// gives a seeder that always returns 0.
func NewGridSeeder(m *Mesh, cellSize float64) *GridSeeder {
	if m.IsEmpty() || cellSize <= 0 {
		return &GridSeeder{}
	}
	return &GridSeeder{
		xMin:          m.Bounds.XMin,
		zMin:          m.Bounds.ZMin,
		cellSize:      cellSize,
		rowsPerStrip:  m.RowWidth(cellSize),
		triangleCount: m.TriangleCount(),
	}
}

// Seed returns the first triangle of the grid cell containing (x, z), or 0 when that index
// falls outside the mesh.
func (g *GridSeeder) Seed(x, z float64) int {
	if g.cellSize <= 0 {
		return 0
	}
	fi := gomath.Floor((x - g.xMin) / g.cellSize)
	fj := gomath.Floor((z - g.zMin) / g.cellSize)
	// guards the int conversion against NaN and far-off points
	if gomath.IsNaN(fi) || gomath.IsNaN(fj) || gomath.Abs(fi) > 1<<30 || gomath.Abs(fj) > 1<<30 {
		return 0
	}

	seed := 2 * (int(fj) + int(fi)*g.rowsPerStrip)
	if seed < 0 || seed >= g.triangleCount {
		return 0
	}
	return seed
}

// CellSize returns the configured resolution.
func (g *GridSeeder) CellSize() float64 {
	return g.cellSize
}

// ScanSeeder tests every triangle and returns the first whose horizontal projection contains
// the point. It is O(n) per seed but correct for any triangulation.
type ScanSeeder struct {
	mesh *Mesh
}

// NewScanSeeder creates a ScanSeeder for m.
func NewScanSeeder(m *Mesh) *ScanSeeder {
	return &ScanSeeder{mesh: m}
}

// Seed returns the containing triangle, or 0 when no triangle contains (x, z).
func (s *ScanSeeder) Seed(x, z float64) int {
	if s.mesh.IsEmpty() {
		return 0
	}
	p := math.Vec2{X: x, Y: z}
	for t := range s.mesh.Triangles {
		if inside(barycentricXZ(s.mesh, t, p)) {
			return t
		}
	}
	return 0
}
