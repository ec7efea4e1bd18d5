// meshtool is a CLI utility for inspecting surfroll surfaces and trajectory bundles.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Faultbox/surfroll/internal/config"
	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/internal/simulation"
	"github.com/Faultbox/surfroll/internal/terrain"
	"github.com/Faultbox/surfroll/internal/trajectory"
	"github.com/Faultbox/surfroll/pkg/formats"
	"github.com/Faultbox/surfroll/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "locate", "loc":
		cmdLocate(args)
	case "gat":
		cmdGAT(args)
	case "frames":
		cmdFrames(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - surfroll surface and trajectory utility

Usage:
  meshtool <command> [options]

Commands:
  info   [surface flags]                 Show mesh statistics and grid layout
  locate [surface flags] <x> <z> [y]     Locate a point and print both contacts
  gat    <file.gat> <out_dir>            Convert a GAT grid to vertex/triangle tables
  frames [-n N] <bundle_dir>             Dump a recorded trajectory
  config [path]                          Write the default configuration

Surface flags:
  -config <file>      Use the surface section of a config file
  -vertices <file>    Vertex table
  -triangles <file>   Triangle table
  -gat <file>         GAT altitude grid
  -cell <size>        Grid cell size (default 1)
  -seeder grid|scan   Seed strategy (default grid)

Examples:
  meshtool info -vertices mesh.vertices -triangles mesh.triangles
  meshtool locate -gat prontera.gat -cell 5 120 85
  meshtool gat prontera.gat ./mesh
  meshtool frames -n 10 ./runs/run-20260101T000000Z`)
}

var errStop = errors.New("frame limit reached")

// surfaceFlags registers the flags shared by commands that load a surface.
type surfaceFlags struct {
	config    *string
	vertices  *string
	triangles *string
	gat       *string
	cell      *float64
	seeder    *string
	verbose   *bool
}

func addSurfaceFlags(fs *flag.FlagSet) *surfaceFlags {
	return &surfaceFlags{
		config:    fs.String("config", "", "Config file whose surface section is used"),
		vertices:  fs.String("vertices", "", "Vertex table"),
		triangles: fs.String("triangles", "", "Triangle table"),
		gat:       fs.String("gat", "", "GAT altitude grid"),
		cell:      fs.Float64("cell", 1, "Grid cell size"),
		seeder:    fs.String("seeder", config.SeederGrid, "Seed strategy (grid or scan)"),
		verbose:   fs.Bool("v", false, "Log surface loading to stderr"),
	}
}

func (f *surfaceFlags) surfaceConfig() (config.SurfaceConfig, error) {
	if *f.config != "" {
		cfg, err := config.LoadFile(*f.config)
		if err != nil {
			return config.SurfaceConfig{}, err
		}
		return cfg.Surface, nil
	}
	return config.SurfaceConfig{
		Vertices:    *f.vertices,
		Triangles:   *f.triangles,
		GAT:         *f.gat,
		GATCellSize: *f.cell,
		CellSize:    *f.cell,
		Seeder:      *f.seeder,
	}, nil
}

func (f *surfaceFlags) load() (*terrain.Surface, config.SurfaceConfig) {
	if *f.verbose {
		if err := logger.Init("debug", ""); err != nil {
			fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
			os.Exit(1)
		}
	}

	sc, err := f.surfaceConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !sc.HasMesh() {
		fmt.Fprintln(os.Stderr, "Error: no surface given (use -config, -gat or -vertices/-triangles)")
		os.Exit(1)
	}

	surface, err := simulation.LoadSurface(sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return surface, sc
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	sf := addSurfaceFlags(fs)
	fs.Parse(args)

	surface, sc := sf.load()
	mesh := surface.Mesh
	b := mesh.Bounds

	cellSize := sc.CellSize
	if sc.GAT != "" {
		cellSize = sc.GATCellSize
	}

	fmt.Printf("Vertices:  %d\n", len(mesh.Vertices))
	fmt.Printf("Triangles: %d\n", mesh.TriangleCount())
	if mesh.IsEmpty() {
		fmt.Println("(empty mesh)")
		return
	}
	fmt.Printf("X:         %.4f .. %.4f (%.4f)\n", b.XMin, b.XMax, b.Width())
	fmt.Printf("Y:         %.4f .. %.4f\n", b.YMin, b.YMax)
	fmt.Printf("Z:         %.4f .. %.4f (%.4f)\n", b.ZMin, b.ZMax, b.Height())
	fmt.Printf("Cell size: %g\n", cellSize)
	fmt.Printf("Row width: %d\n", mesh.RowWidth(cellSize))
	fmt.Printf("Seeder:    %s\n", sc.Seeder)

	boundary := 0
	for _, t := range mesh.Triangles {
		for _, n := range t.Neighbors {
			if n == formats.NoNeighbor {
				boundary++
			}
		}
	}
	fmt.Printf("Boundary edges: %d\n", boundary)

	if sc.GAT != "" {
		gat, err := formats.ParseGATFile(sc.GAT)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		printGATStats(gat)
	}
}

// printGATStats prints the altitude range and cell type counts of a grid.
func printGATStats(gat *formats.GAT) {
	st := gat.Stats()
	fmt.Printf("GAT:       %dx%d, version %s\n", gat.Width, gat.Height, gat.Version)
	fmt.Printf("Altitude:  %.2f .. %.2f\n", st.MinAltitude, st.MaxAltitude)
	fmt.Printf("Walkable:  %d of %d cells\n", st.Walkable, st.Cells)
	fmt.Printf("Blocked:   %d\n", st.Blocked)

	types := make([]formats.GATCellType, 0, len(st.ByType))
	for t := range st.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Printf("  %-16s %d\n", t, st.ByType[t])
	}
}

func cmdLocate(args []string) {
	fs := flag.NewFlagSet("locate", flag.ExitOnError)
	sf := addSurfaceFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool locate [surface flags] <x> <z> [y]")
		os.Exit(1)
	}

	coords := make([]float64, fs.NArg())
	for i := range coords {
		v, err := strconv.ParseFloat(fs.Arg(i), 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid coordinate %q\n", fs.Arg(i))
			os.Exit(1)
		}
		coords[i] = v
	}
	p := math.Vec3{X: coords[0], Z: coords[1]}
	if len(coords) > 2 {
		p.Y = coords[2]
	}

	surface, _ := sf.load()
	seed := surface.Seeder.Seed(p.X, p.Z)
	loc := terrain.Walk(surface.Mesh, seed, p)

	fmt.Printf("Point:    (%g, %g, %g)\n", p.X, p.Y, p.Z)
	fmt.Printf("Seed:     %d\n", seed)
	fmt.Printf("Triangle: %d\n", loc.Triangle)
	fmt.Printf("Hops:     %d\n", loc.Hops)
	if !loc.Found {
		fmt.Println("Found:    no (outside the surface)")
		os.Exit(2)
	}
	fmt.Printf("Weights:  %.6f %.6f %.6f\n", loc.Weights[0], loc.Weights[1], loc.Weights[2])

	for _, mode := range []terrain.ProjectionMode{terrain.ProjectVertical, terrain.ProjectAlongNormal} {
		c := terrain.ContactAt(surface.Mesh, loc, p, mode)
		fmt.Printf("%-9s point (%.6f, %.6f, %.6f) normal (%.6f, %.6f, %.6f) distance %.6f\n",
			mode.String()+":",
			c.Point.X, c.Point.Y, c.Point.Z,
			c.Normal.X, c.Normal.Y, c.Normal.Z,
			p.Distance(c.Point))
	}
}

func cmdGAT(args []string) {
	fs := flag.NewFlagSet("gat", flag.ExitOnError)
	cell := fs.Float64("cell", 5, "Cell size in world units")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool gat [-cell N] <file.gat> <out_dir>")
		os.Exit(1)
	}

	gat, err := formats.ParseGATFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	heights, err := terrain.GridFromGAT(gat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	vertices, records, err := terrain.BuildGrid(heights, *cell, math.Vec3{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	outDir := fs.Arg(1)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	base := filepath.Base(fs.Arg(0))
	base = base[:len(base)-len(filepath.Ext(base))]
	verticesPath := filepath.Join(outDir, base+".vertices")
	trianglesPath := filepath.Join(outDir, base+".triangles")

	if err := writeFile(verticesPath, func(w *bufio.Writer) error {
		return formats.WriteVertices(w, vertices)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", verticesPath, err)
		os.Exit(1)
	}
	if err := writeFile(trianglesPath, func(w *bufio.Writer) error {
		return formats.WriteTriangles(w, records)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", trianglesPath, err)
		os.Exit(1)
	}

	fmt.Printf("Source:    %s\n", fs.Arg(0))
	printGATStats(gat)
	fmt.Println()
	fmt.Printf("Vertices:  %s (%d)\n", verticesPath, len(vertices))
	fmt.Printf("Triangles: %s (%d)\n", trianglesPath, len(records))
}

func writeFile(path string, fill func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdFrames(args []string) {
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N frames (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool frames [-n N] <bundle_dir>")
		os.Exit(1)
	}

	r, err := trajectory.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := r.Manifest()
	fmt.Printf("Bundle:  %s\n", fs.Arg(0))
	fmt.Printf("Created: %s\n", m.CreatedAt)
	fmt.Printf("Dt:      %g (every %d ticks)\n", m.Dt, m.Every)
	fmt.Printf("Bodies:  %d\n", m.Bodies)
	fmt.Println()

	count := 0
	err = r.EachFrame(func(f simulation.Frame) error {
		fmt.Printf("tick %d t=%.4f\n", f.Tick, f.Time)
		for _, b := range f.Bodies {
			fmt.Printf("  #%d %-8s tri %-6d pos (%.4f, %.4f, %.4f) vel (%.4f, %.4f, %.4f)\n",
				b.Index, b.State, b.Triangle,
				b.Position.X, b.Position.Y, b.Position.Z,
				b.Velocity.X, b.Velocity.Y, b.Velocity.Z)
		}
		count++
		if *limit > 0 && count >= *limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	events, err := r.Events()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading events: %v\n", err)
		os.Exit(1)
	}
	if len(events) > 0 {
		fmt.Println()
		fmt.Println("Events:")
		for _, e := range events {
			fmt.Printf("  tick %d t=%.4f body %d %s at (%.4f, %.4f, %.4f)\n",
				e.Tick, e.Time, e.Body, e.Type, e.Position.X, e.Position.Y, e.Position.Z)
		}
	}

	fmt.Fprintf(os.Stderr, "\n(%d frames shown)\n", count)
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)

	path := filepath.Join(config.ConfigDir(), "config.yaml")
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	if err := config.Default().SaveTo(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}
