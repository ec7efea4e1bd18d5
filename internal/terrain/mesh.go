package terrain

import (
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/pkg/formats"
	"github.com/Faultbox/surfroll/pkg/math"
)

// ErrDegenerateTriangle reports a triangle with (near) zero area, either in 3D or in its
// horizontal projection. Such a triangle has no usable normal or cannot be walked.
var ErrDegenerateTriangle = errors.New("degenerate triangle")

const degenerateEpsilon = 1e-12

// Mesh is an immutable triangulated surface. Its slices must not be modified after
// construction; a Mesh may be shared by any number of goroutines.
//
// Adjacency must be geometrically consistent: if triangle A lists B across an edge, B shares
// that edge's two vertices. This is not re-verified; a violation can make walks fail.
type Mesh struct {
	Vertices  []math.Vec3
	Triangles []Triangle
	Bounds    Bounds
}

// EmptyMesh returns a mesh with no triangles. Every query against it yields the sentinel contact.
func EmptyMesh() *Mesh {
	return &Mesh{}
}

// NewMesh builds a mesh from vertex positions and triangle records.
//
// Empty input yields an empty mesh. Records that index past the vertex or triangle tables
// also yield an empty mesh, with a warning. Degenerate triangles fail with ErrDegenerateTriangle.
func NewMesh(vertices []math.Vec3, records []formats.TriangleRecord) (*Mesh, error) {
	if len(vertices) == 0 || len(records) == 0 {
		return EmptyMesh(), nil
	}

	log := logger.Named("terrain")
	if idx, reason := findMalformed(len(vertices), records); idx >= 0 {
		log.Warn("malformed triangle table, using empty mesh",
			zap.Int("triangle", idx), zap.String("reason", reason))
		return EmptyMesh(), nil
	}

	triangles := make([]Triangle, len(records))
	for i, r := range records {
		normal, err := faceNormal(vertices[r.Vertices[0]], vertices[r.Vertices[1]], vertices[r.Vertices[2]])
		if err != nil {
			return nil, fmt.Errorf("triangle %d: %w", i, err)
		}
		triangles[i] = Triangle{
			Vertices:  r.Vertices,
			Neighbors: r.Neighbors,
			Normal:    normal,
		}
	}

	m := &Mesh{
		Vertices:  vertices,
		Triangles: triangles,
		Bounds:    computeBounds(vertices),
	}
	log.Debug("mesh built",
		zap.Int("vertices", len(vertices)),
		zap.Int("triangles", len(triangles)),
		zap.Float64("width", m.Bounds.Width()),
		zap.Float64("height", m.Bounds.Height()))
	return m, nil
}

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Triangles) == 0
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Triangles)
}

// Corners returns the three vertex positions of triangle t.
func (m *Mesh) Corners(t int) (p, q, r math.Vec3) {
	tri := &m.Triangles[t]
	return m.Vertices[tri.Vertices[0]], m.Vertices[tri.Vertices[1]], m.Vertices[tri.Vertices[2]]
}

// RowWidth returns floor(Bounds.Height / cellSize), the number of grid rows per X strip
// assumed by the spatial hash.
func (m *Mesh) RowWidth(cellSize float64) int {
	if m.IsEmpty() || cellSize <= 0 {
		return 0
	}
	// the small bias absorbs rounding in Height for exact multiples of cellSize
	return int(gomath.Floor(m.Bounds.Height()/cellSize + 1e-9))
}

// findMalformed returns the first record with an out-of-range index, or -1.
func findMalformed(vertexCount int, records []formats.TriangleRecord) (int, string) {
	for i, r := range records {
		for _, v := range r.Vertices {
			if v < 0 || v >= vertexCount {
				return i, fmt.Sprintf("vertex index %d out of range", v)
			}
		}
		for _, n := range r.Neighbors {
			if n < formats.NoNeighbor || n >= len(records) {
				return i, fmt.Sprintf("neighbor index %d out of range", n)
			}
		}
	}
	return -1, ""
}

// faceNormal returns the unit normal of (v1-v0) x (v2-v0).
func faceNormal(v0, v1, v2 math.Vec3) (math.Vec3, error) {
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)

	n := e1.Cross(e2)
	if n.Length() < degenerateEpsilon {
		return math.Vec3{}, fmt.Errorf("%w: zero area", ErrDegenerateTriangle)
	}
	if gomath.Abs(e1.XZ().Cross(e2.XZ())) < degenerateEpsilon {
		return math.Vec3{}, fmt.Errorf("%w: vertical face", ErrDegenerateTriangle)
	}
	return n.Normalize(), nil
}

func computeBounds(vertices []math.Vec3) Bounds {
	b := Bounds{
		XMin: gomath.Inf(1), YMin: gomath.Inf(1), ZMin: gomath.Inf(1),
		XMax: gomath.Inf(-1), YMax: gomath.Inf(-1), ZMax: gomath.Inf(-1),
	}
	for _, v := range vertices {
		updateBounds(&b, v)
	}
	return b
}

func updateBounds(b *Bounds, p math.Vec3) {
	b.XMin = gomath.Min(b.XMin, p.X)
	b.XMax = gomath.Max(b.XMax, p.X)
	b.YMin = gomath.Min(b.YMin, p.Y)
	b.YMax = gomath.Max(b.YMax, p.Y)
	b.ZMin = gomath.Min(b.ZMin, p.Z)
	b.ZMax = gomath.Max(b.ZMax, p.Z)
}
