// Package formats provides parsers for the surface input files: the vertex and triangle
// text tables, and Ragnarok Online GAT altitude grids.
package formats

// Note: vertex tables are implemented in vertices.go
// Note: triangle/adjacency tables are implemented in triangles.go
// Note: GAT (Ground Altitude Table) is implemented in gat.go
