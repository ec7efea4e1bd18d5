package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/surfroll/pkg/math"
)

// Table format errors.
var (
	ErrMissingCount  = errors.New("missing record count")
	ErrInvalidCount  = errors.New("invalid record count")
	ErrTruncatedData = errors.New("fewer records than declared")
	ErrInvalidRecord = errors.New("invalid record")
)

// ParseVertices parses a vertex table.
//
// The first non-empty line holds the vertex count, followed by one vertex per line.
// The canonical encoding is whitespace separated "x y z". The legacy parenthesized
// "(x,y,z)" encoding is accepted on read but never written.
func ParseVertices(data []byte) ([]math.Vec3, error) {
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

	vertices := make([]math.Vec3, count)
	for i := 0; i < count; i++ {
		fields := vertexFields(lines[i+1])
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: line %d: expected 3 coordinates, got %d", ErrInvalidRecord, i+2, len(fields))
		}
		var xyz [3]float64
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, i+2, err)
			}
			xyz[j] = v
		}
		vertices[i] = math.FromArray(xyz)
	}

	return vertices, nil
}

// ParseVerticesFile parses a vertex table from disk.
func ParseVerticesFile(path string) ([]math.Vec3, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vertex file: %w", err)
	}
	return ParseVertices(data)
}

// WriteVertices writes vertices in the canonical "x y z" encoding.
func WriteVertices(w io.Writer, vertices []math.Vec3) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(vertices))
	for _, v := range vertices {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
	}
	return bw.Flush()
}

// vertexFields splits a vertex line in either encoding.
func vertexFields(line string) []string {
	if strings.ContainsAny(line, "(),") {
		return strings.FieldsFunc(line, func(r rune) bool {
			return r == '(' || r == ')' || r == ',' || r == ' ' || r == '\t'
		})
	}
	return strings.Fields(line)
}

// splitLines returns the non-empty, trimmed lines of data. Handles \n, \r\n and \r endings.
func splitLines(data []byte) []string {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	var lines []string
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseCount reads the leading record count.
func parseCount(lines []string) (int, error) {
	if len(lines) == 0 {
		return 0, ErrMissingCount
	}
	count, err := strconv.Atoi(lines[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, lines[0])
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	return count, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
