package terrain

import "github.com/Faultbox/surfroll/pkg/math"

// Contact locates p and projects it onto the containing triangle. When p lies outside the
// mesh footprint the sentinel contact is returned.
func (l *Locator) Contact(p math.Vec3, mode ProjectionMode) Contact {
	loc := l.Locate(p)
	if !loc.Found {
		return Contact{}
	}
	return project(l.surface.Mesh, loc, p, mode)
}

// HeightContact is Contact with ProjectVertical.
func (l *Locator) HeightContact(p math.Vec3) Contact {
	return l.Contact(p, ProjectVertical)
}

// ClosestContact is Contact with ProjectAlongNormal.
func (l *Locator) ClosestContact(p math.Vec3) Contact {
	return l.Contact(p, ProjectAlongNormal)
}

// ContactAt projects p onto an already located triangle.
func ContactAt(m *Mesh, loc Location, p math.Vec3, mode ProjectionMode) Contact {
	if !loc.Found || loc.Triangle < 0 || loc.Triangle >= m.TriangleCount() {
		return Contact{}
	}
	return project(m, loc, p, mode)
}

// HeightAt returns the surface height under (x, z). It uses a throwaway locator and is meant
// for tooling rather than per-tick queries.
func (s *Surface) HeightAt(x, z float64) (float64, bool) {
	c := s.NewLocator().HeightContact(math.Vec3{X: x, Z: z})
	if c.IsSentinel() {
		return 0, false
	}
	return c.Point.Y, true
}

func project(m *Mesh, loc Location, p math.Vec3, mode ProjectionMode) Contact {
	a, b, c := m.Corners(loc.Triangle)
	normal := m.Triangles[loc.Triangle].Normal

	w := loc.Weights
	hit := a.Scale(w[0]).Add(b.Scale(w[1])).Add(c.Scale(w[2]))

	if mode == ProjectAlongNormal {
		// foot of the perpendicular from p onto the triangle's plane
		hit = p.Sub(normal.Scale(p.Sub(hit).Dot(normal)))
	}
	return Contact{Point: hit, Normal: normal}
}
