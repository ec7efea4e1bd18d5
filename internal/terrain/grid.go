package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/surfroll/pkg/formats"
	"github.com/Faultbox/surfroll/pkg/math"
)

// ErrInvalidGrid reports a height grid that is too small or not rectangular.
var ErrInvalidGrid = errors.New("invalid height grid")

// BuildGrid triangulates a regular height grid.
//
// heights[i][j] is the height of the grid point at (origin.X + i*cellSize, origin.Z + j*cellSize);
// the grid needs at least 2x2 points. Each cell (i, j) is split along its (i+1, j)-(i, j+1)
// diagonal into triangles 2*(j + i*nz) and 2*(j + i*nz)+1, where nz is the number of cells
// along Z. This X-major strip order is the layout GridSeeder assumes.
func BuildGrid(heights [][]float64, cellSize float64, origin math.Vec3) ([]math.Vec3, []formats.TriangleRecord, error) {
	if cellSize <= 0 {
		return nil, nil, fmt.Errorf("%w: cell size %v", ErrInvalidGrid, cellSize)
	}
	if len(heights) < 2 || len(heights[0]) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2x2 points", ErrInvalidGrid)
	}
	pointsZ := len(heights[0])
	for i, column := range heights {
		if len(column) != pointsZ {
			return nil, nil, fmt.Errorf("%w: column %d has %d points, want %d", ErrInvalidGrid, i, len(column), pointsZ)
		}
	}

	nx := len(heights) - 1
	nz := pointsZ - 1

	vertices := make([]math.Vec3, 0, len(heights)*pointsZ)
	for i, column := range heights {
		for j, h := range column {
			vertices = append(vertices, math.Vec3{
				X: origin.X + float64(i)*cellSize,
				Y: origin.Y + h,
				Z: origin.Z + float64(j)*cellSize,
			})
		}
	}

	vertex := func(i, j int) int { return i*pointsZ + j }
	lower := func(i, j int) int {
		if i < 0 || j < 0 || i >= nx || j >= nz {
			return formats.NoNeighbor
		}
		return 2 * (j + i*nz)
	}
	upper := func(i, j int) int {
		if t := lower(i, j); t != formats.NoNeighbor {
			return t + 1
		}
		return formats.NoNeighbor
	}

	records := make([]formats.TriangleRecord, 0, 2*nx*nz)
	for i := 0; i < nx; i++ {
		for j := 0; j < nz; j++ {
			a := vertex(i, j)
			b := vertex(i+1, j)
			c := vertex(i, j+1)
			d := vertex(i+1, j+1)

			// (a, c, b) and (b, c, d) wind so the normal points up (+Y)
			records = append(records,
				formats.TriangleRecord{
					Vertices:  [3]int{a, c, b},
					Neighbors: [3]int{upper(i, j), upper(i, j-1), upper(i-1, j)},
				},
				formats.TriangleRecord{
					Vertices:  [3]int{b, c, d},
					Neighbors: [3]int{lower(i, j+1), lower(i+1, j), lower(i, j)},
				},
			)
		}
	}

	return vertices, records, nil
}

// GridFromGAT converts a GAT altitude table into a height grid for BuildGrid.
//
// GAT stores four corner altitudes per cell, and neighbouring cells may disagree on a shared
// corner; the grid uses their average. RO altitudes grow downwards, so they are negated to
// give +Y up. GAT cell (x, y) maps to grid cell (i, j) = (x, y).
func GridFromGAT(gat *formats.GAT) ([][]float64, error) {
	if gat == nil || gat.Width == 0 || gat.Height == 0 {
		return nil, fmt.Errorf("%w: empty GAT", ErrInvalidGrid)
	}

	w := int(gat.Width)
	h := int(gat.Height)

	sums := make([][]float64, w+1)
	counts := make([][]int, w+1)
	for i := range sums {
		sums[i] = make([]float64, h+1)
		counts[i] = make([]int, h+1)
	}

	// corner k of cell (x, y) sits at grid point (x + k%2, y + k/2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cell := gat.GetCell(x, y)
			for k, alt := range cell.Heights {
				i, j := x+k%2, y+k/2
				sums[i][j] += float64(-alt)
				counts[i][j]++
			}
		}
	}

	for i := range sums {
		for j := range sums[i] {
			sums[i][j] /= float64(counts[i][j])
		}
	}
	return sums, nil
}
