package formats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// NoNeighbor marks a triangle edge on the mesh boundary.
const NoNeighbor = -1

// TriangleRecord is one row of the triangle table.
// Neighbors[k] lies across the edge opposite Vertices[k].
type TriangleRecord struct {
	Vertices  [3]int
	Neighbors [3]int
}

// ParseTriangles parses a triangle table: a count line followed by
// "v0 v1 v2 n0 n1 n2" records, where a neighbor of -1 marks a boundary edge.
func ParseTriangles(data []byte) ([]TriangleRecord, error) {
	lines := splitLines(data)
	count, err := parseCount(lines)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if len(lines)-1 < count {
		return nil, fmt.Errorf("%w: declared %d, found %d", ErrTruncatedData, count, len(lines)-1)
	}

	records := make([]TriangleRecord, count)
	for i := 0; i < count; i++ {
		fields := strings.Fields(lines[i+1])
		if len(fields) < 6 {
			return nil, fmt.Errorf("%w: line %d: expected 6 integers, got %d", ErrInvalidRecord, i+2, len(fields))
		}
		var values [6]int
		for j := 0; j < 6; j++ {
			v, err := strconv.Atoi(fields[j])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, i+2, err)
			}
			values[j] = v
		}
		records[i] = TriangleRecord{
			Vertices:  [3]int{values[0], values[1], values[2]},
			Neighbors: [3]int{values[3], values[4], values[5]},
		}
	}

	return records, nil
}

// ParseTrianglesFile parses a triangle table from disk.
func ParseTrianglesFile(path string) ([]TriangleRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading triangle file: %w", err)
	}
	return ParseTriangles(data)
}

// WriteTriangles writes a triangle table.
func WriteTriangles(w io.Writer, records []TriangleRecord) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(records))
	for _, r := range records {
		fmt.Fprintf(bw, "%d %d %d %d %d %d\n",
			r.Vertices[0], r.Vertices[1], r.Vertices[2],
			r.Neighbors[0], r.Neighbors[1], r.Neighbors[2])
	}
	return bw.Flush()
}
