package simulation

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/surfroll/internal/config"
	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/internal/terrain"
	"github.com/Faultbox/surfroll/pkg/formats"
	"github.com/Faultbox/surfroll/pkg/math"
)

// LoadSurface builds the surface described by cfg. It returns nil when no surface source is
// configured, which leaves bodies in free fall.
//
// GAT surfaces are triangulated with BuildGrid, so their grid seeder uses the GAT cell size
// regardless of cell_size.
func LoadSurface(cfg config.SurfaceConfig) (*terrain.Surface, error) {
	if !cfg.HasMesh() {
		return nil, nil
	}
	log := logger.Named("simulation")

	var (
		vertices []math.Vec3
		records  []formats.TriangleRecord
		cellSize = cfg.CellSize
		err      error
	)
	if cfg.GAT != "" {
		vertices, records, err = loadGAT(log, cfg.GAT, cfg.GATCellSize)
		cellSize = cfg.GATCellSize
	} else {
		vertices, records, err = loadText(log, cfg.Vertices, cfg.Triangles)
	}
	if err != nil {
		return nil, err
	}

	offset := math.FromArray(cfg.Offset)
	if !offset.IsZero() {
		for i := range vertices {
			vertices[i] = vertices[i].Sub(offset)
		}
	}

	mesh, err := terrain.NewMesh(vertices, records)
	if err != nil {
		return nil, fmt.Errorf("building mesh: %w", err)
	}

	var seeder terrain.Seeder
	switch cfg.Seeder {
	case config.SeederScan:
		seeder = terrain.NewScanSeeder(mesh)
	default:
		seeder = terrain.NewGridSeeder(mesh, cellSize)
	}

	b := mesh.Bounds
	log.Info("surface loaded",
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.String("seeder", cfg.Seeder),
		zap.Float64("cell_size", cellSize),
		zap.Float64s("x", []float64{b.XMin, b.XMax}),
		zap.Float64s("z", []float64{b.ZMin, b.ZMax}))
	if mesh.IsEmpty() {
		log.Warn("surface has no triangles, every body will be disabled on its first step")
	}

	return terrain.NewSurface(mesh, seeder), nil
}

// loadText reads the vertex and triangle tables. A file with no lines at all is an empty
// table, which yields an empty mesh.
func loadText(log *zap.Logger, verticesPath, trianglesPath string) ([]math.Vec3, []formats.TriangleRecord, error) {
	vertices, err := formats.ParseVerticesFile(verticesPath)
	if errors.Is(err, formats.ErrMissingCount) {
		log.Warn("vertex file is empty", zap.String("path", verticesPath))
		vertices, err = nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading vertices: %w", err)
	}

	records, err := formats.ParseTrianglesFile(trianglesPath)
	if errors.Is(err, formats.ErrMissingCount) {
		log.Warn("triangle file is empty", zap.String("path", trianglesPath))
		records, err = nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading triangles: %w", err)
	}
	return vertices, records, nil
}

func loadGAT(log *zap.Logger, path string, cellSize float64) ([]math.Vec3, []formats.TriangleRecord, error) {
	gat, err := formats.ParseGATFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading GAT: %w", err)
	}
	st := gat.Stats()
	log.Debug("GAT grid parsed",
		zap.String("path", path),
		zap.Uint32("width", gat.Width),
		zap.Uint32("height", gat.Height),
		zap.Int("walkable", st.Walkable),
		zap.Int("blocked", st.Blocked),
		zap.Float32("altitude_min", st.MinAltitude),
		zap.Float32("altitude_max", st.MaxAltitude))
	heights, err := terrain.GridFromGAT(gat)
	if err != nil {
		return nil, nil, err
	}
	return terrain.BuildGrid(heights, cellSize, math.Vec3{})
}
