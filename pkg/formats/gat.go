package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// GAT format errors.
var (
	ErrInvalidGATMagic       = errors.New("invalid GAT magic: expected 'GRAT'")
	ErrUnsupportedGATVersion = errors.New("unsupported GAT version")
	ErrTruncatedGATData      = errors.New("truncated GAT data")
)

const gatHeaderSize = 14

// GATVersion represents the GAT file version.
type GATVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GATVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GATCellType is the walkability flag stored with each cell.
type GATCellType uint32

// Cell type constants.
const (
	GATWalkable      GATCellType = 0
	GATBlocked       GATCellType = 1
	GATWater         GATCellType = 2
	GATWalkableWater GATCellType = 3
	GATSnipeable     GATCellType = 4
	GATBlockedSnipe  GATCellType = 5
)

// String returns a human-readable cell type name.
func (t GATCellType) String() string {
	switch t {
	case GATWalkable:
		return "Walkable"
	case GATBlocked:
		return "Blocked"
	case GATWater:
		return "Water"
	case GATWalkableWater:
		return "Walkable+Water"
	case GATSnipeable:
		return "Snipeable"
	case GATBlockedSnipe:
		return "Blocked+Snipe"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// GATCell is one cell of the altitude grid.
type GATCell struct {
	// Heights holds the corner altitudes:
	// [0] = (x, y), [1] = (x+1, y), [2] = (x, y+1), [3] = (x+1, y+1).
	// RO altitudes grow downwards.
	Heights [4]float32
	Type    GATCellType
}

// GAT is a parsed Ground Altitude Table.
type GAT struct {
	Version GATVersion
	Width   uint32
	Height  uint32
	Cells   []GATCell
}

// GetCell returns the cell at the given coordinates, or nil when out of bounds.
func (g *GAT) GetCell(x, y int) *GATCell {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Cells[y*int(g.Width)+x]
}

// ParseGAT parses a GAT file from raw bytes.
func ParseGAT(data []byte) (*GAT, error) {
	if len(data) < gatHeaderSize {
		return nil, ErrTruncatedGATData
	}
	if string(data[0:4]) != "GRAT" {
		return nil, ErrInvalidGATMagic
	}

	// stored as [minor, major]
	version := GATVersion{Major: data[5], Minor: data[4]}
	if version.Major < 1 || version.Major > 3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGATVersion, version)
	}

	width := binary.LittleEndian.Uint32(data[6:10])
	height := binary.LittleEndian.Uint32(data[10:14])
	if width == 0 || height == 0 || width > 4096 || height > 4096 {
		return nil, fmt.Errorf("invalid GAT dimensions: %dx%d", width, height)
	}

	gat := &GAT{
		Version: version,
		Width:   width,
		Height:  height,
		Cells:   make([]GATCell, int(width*height)),
	}

	r := bytes.NewReader(data[gatHeaderSize:])
	for i := range gat.Cells {
		if err := binary.Read(r, binary.LittleEndian, &gat.Cells[i]); err != nil {
			return nil, fmt.Errorf("%w: cell %d", ErrTruncatedGATData, i)
		}
	}

	return gat, nil
}

// ParseGATFile parses a GAT file from disk.
func ParseGATFile(path string) (*GAT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GAT file: %w", err)
	}
	return ParseGAT(data)
}

// CountByType returns the count of cells for each type.
func (g *GAT) CountByType() map[GATCellType]int {
	counts := make(map[GATCellType]int)
	for _, cell := range g.Cells {
		counts[cell.Type]++
	}
	return counts
}

// GetAltitudeRange returns the minimum and maximum stored altitude.
func (g *GAT) GetAltitudeRange() (min, max float32) {
	if len(g.Cells) == 0 {
		return 0, 0
	}

	min = g.Cells[0].Heights[0]
	max = g.Cells[0].Heights[0]
	for _, cell := range g.Cells {
		for _, h := range cell.Heights {
			if h < min {
				min = h
			}
			if h > max {
				max = h
			}
		}
	}
	return min, max
}

// IsWalkable reports whether a character may stand on cells of this type.
func (t GATCellType) IsWalkable() bool {
	return t == GATWalkable || t == GATWalkableWater
}

// GATStats summarizes a grid for tooling and load logs.
type GATStats struct {
	Cells       int
	Walkable    int
	Blocked     int
	MinAltitude float32
	MaxAltitude float32
	ByType      map[GATCellType]int
}

// Stats returns the cell counts and altitude range of g.
func (g *GAT) Stats() GATStats {
	st := GATStats{Cells: len(g.Cells), ByType: g.CountByType()}
	st.MinAltitude, st.MaxAltitude = g.GetAltitudeRange()
	for t, n := range st.ByType {
		if t.IsWalkable() {
			st.Walkable += n
		} else {
			st.Blocked += n
		}
	}
	return st
}

// WriteGAT encodes g in the binary layout ParseGAT reads.
func WriteGAT(w io.Writer, g *GAT) error {
	if len(g.Cells) != int(g.Width*g.Height) {
		return fmt.Errorf("GAT has %d cells, want %dx%d", len(g.Cells), g.Width, g.Height)
	}

	header := make([]byte, gatHeaderSize)
	copy(header, "GRAT")
	header[4] = g.Version.Minor
	header[5] = g.Version.Major
	binary.LittleEndian.PutUint32(header[6:10], g.Width)
	binary.LittleEndian.PutUint32(header[10:14], g.Height)
	if _, err := w.Write(header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, g.Cells)
}
