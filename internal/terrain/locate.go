package terrain

import (
	"go.uber.org/zap"

	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/pkg/math"
)

// insideEpsilon is how far below zero a barycentric weight may fall and still count as
// inside. Points on a shared edge are therefore inside both triangles.
const insideEpsilon = 1e-9

// Surface pairs an immutable mesh with its seeding strategy. It is read-only after
// construction and may be shared by any number of bodies and goroutines.
type Surface struct {
	Mesh   *Mesh
	Seeder Seeder
}

// NewSurface creates a Surface. A nil mesh is replaced by an empty one and a nil seeder by a
// GridSeeder with unit cells.
func NewSurface(m *Mesh, seeder Seeder) *Surface {
	if m == nil {
		m = EmptyMesh()
	}
	if seeder == nil {
		seeder = NewGridSeeder(m, 1)
	}
	return &Surface{Mesh: m, Seeder: seeder}
}

// NewLocator returns a walker for one body. Locators hold mutable cache state and must not
// be shared between bodies.
func (s *Surface) NewLocator() *Locator {
	return &Locator{surface: s, current: -1}
}

// Locator walks a Surface and remembers the last triangle it stood on, so consecutive
// queries from one moving body start next to the answer.
type Locator struct {
	surface *Surface
	current int
}

// Surface returns the surface being walked.
func (l *Locator) Surface() *Surface {
	return l.surface
}

// Current returns the cached triangle, or -1 if none.
func (l *Locator) Current() int {
	return l.current
}

// SetCurrent seeds the cache with an externally known triangle. Out-of-range values clear it.
func (l *Locator) SetCurrent(t int) {
	if t < 0 || t >= l.surface.Mesh.TriangleCount() {
		t = -1
	}
	l.current = t
}

// Locate finds the triangle whose horizontal projection contains p, starting from the cached
// triangle or, when there is none, from the surface's seeder. The cache follows every hop,
// so after a failed walk it holds the boundary triangle where the walk left the mesh.
func (l *Locator) Locate(p math.Vec3) Location {
	m := l.surface.Mesh
	if m.IsEmpty() {
		return Location{Triangle: -1}
	}

	seed := l.current
	if seed < 0 {
		seed = l.surface.Seeder.Seed(p.X, p.Z)
	}
	return walk(m, seed, p, func(t int) { l.current = t })
}

// Walk locates p starting at seed without any cached state.
func Walk(m *Mesh, seed int, p math.Vec3) Location {
	if m.IsEmpty() {
		return Location{Triangle: -1}
	}
	if seed < 0 || seed >= len(m.Triangles) {
		seed = 0
	}
	return walk(m, seed, p, nil)
}

// walk hops across shared edges toward p, always leaving through the edge opposite the most
// negative barycentric weight. visit is called with each triangle entered, including the seed.
func walk(m *Mesh, seed int, p math.Vec3, visit func(int)) Location {
	query := p.XZ()
	current := seed
	maxHops := len(m.Triangles)

	for hops := 0; ; hops++ {
		if visit != nil {
			visit(current)
		}

		weights := barycentricXZ(m, current, query)
		if inside(weights) {
			return Location{Triangle: current, Weights: weights, Hops: hops, Found: true}
		}

		next := m.Triangles[current].Neighbors[exitEdge(weights)]
		if next < 0 {
			return Location{Triangle: current, Weights: weights, Hops: hops}
		}
		if hops >= maxHops {
			// only reachable when adjacency is inconsistent with the geometry
			logger.Named("terrain").Warn("walk exceeded hop limit, adjacency is likely malformed",
				zap.Int("seed", seed), zap.Int("triangle", current), zap.Int("hops", hops))
			return Location{Triangle: current, Weights: weights, Hops: hops}
		}
		current = next
	}
}

// exitEdge picks the edge opposite the most negative weight. Ties go to the lower edge.
func exitEdge(w [3]float64) int {
	u, v, x := w[0], w[1], w[2]
	switch {
	case u <= v && u <= x:
		return 0
	case v <= x:
		return 1
	default:
		return 2
	}
}

func inside(w [3]float64) bool {
	return w[0] >= -insideEpsilon && w[1] >= -insideEpsilon && w[2] >= -insideEpsilon
}

// barycentricXZ returns the weights (u, v, w) of x relative to the triangle's vertices
// (p, q, r), using only the horizontal coordinates. u + v + w = 1.
func barycentricXZ(m *Mesh, t int, x math.Vec2) [3]float64 {
	p, q, r := m.Corners(t)
	return barycentric(p.XZ(), q.XZ(), r.XZ(), x)
}

// barycentric solves x - p = v*(q - p) + w*(r - p) by Cramer's rule.
func barycentric(p, q, r, x math.Vec2) [3]float64 {
	pq := q.Sub(p)
	pr := r.Sub(p)
	px := x.Sub(p)

	det := pq.Cross(pr)
	v := px.Cross(pr) / det
	w := pq.Cross(px) / det
	return [3]float64{1 - v - w, v, w}
}
