// Package terrain locates points on a triangulated height-field surface and resolves
// the contact point and normal beneath them.
//
// Point location works in the horizontal X/Z plane only: the surface must be a single-valued
// height field (no overhangs, no vertical faces, one layer per footprint).
package terrain

import "github.com/Faultbox/surfroll/pkg/math"

// Triangle is one face of a Mesh.
type Triangle struct {
	// Vertices indexes Mesh.Vertices. Winding sets the sign of Normal.
	Vertices [3]int
	// Neighbors[k] is the triangle across the edge opposite Vertices[k], or -1 on the boundary.
	Neighbors [3]int
	// Normal is the unit normal of (v1-v0) x (v2-v0), computed once at construction.
	Normal math.Vec3
}

// Bounds holds the axis-aligned extents of a mesh. Only X and Z drive point location;
// the vertical range is informational.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// Width returns the X extent.
func (b Bounds) Width() float64 { return b.XMax - b.XMin }

// Height returns the Z extent (the horizontal "height" used by the spatial hash).
func (b Bounds) Height() float64 { return b.ZMax - b.ZMin }

// ContainsXZ reports whether the horizontal point lies within the box.
func (b Bounds) ContainsXZ(x, z float64) bool {
	return x >= b.XMin && x <= b.XMax && z >= b.ZMin && z <= b.ZMax
}

// Contact is a point on the surface with the unit normal there.
type Contact struct {
	Point  math.Vec3
	Normal math.Vec3
}

// IsSentinel reports whether c is the "no surface here" contact (zero normal).
func (c Contact) IsSentinel() bool {
	return c.Normal.IsZero()
}

// Location is the result of a walk.
type Location struct {
	// Triangle is the containing triangle when Found, otherwise the last triangle visited
	// (the boundary triangle the walk stopped at), or -1 for an empty mesh.
	Triangle int
	// Weights are the barycentric weights (u, v, w) of the query in Triangle.
	Weights [3]float64
	// Hops counts the edges crossed.
	Hops  int
	Found bool
}

// ProjectionMode selects how a located point is projected onto its triangle.
type ProjectionMode int

const (
	// ProjectVertical returns the surface point straight above or below the query.
	ProjectVertical ProjectionMode = iota
	// ProjectAlongNormal returns the closest point on the triangle's plane.
	ProjectAlongNormal
)

// String returns the config name of the mode.
func (m ProjectionMode) String() string {
	switch m {
	case ProjectVertical:
		return "vertical"
	case ProjectAlongNormal:
		return "normal"
	default:
		return "unknown"
	}
}
