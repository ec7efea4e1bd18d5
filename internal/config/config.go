// Package config handles simulation configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig reports a configuration value that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Seeder names accepted in surface.seeder.
const (
	SeederGrid = "grid"
	SeederScan = "scan"
)

// Config holds all simulation settings.
type Config struct {
	Surface    SurfaceConfig    `yaml:"surface"`
	Simulation SimulationConfig `yaml:"simulation"`
	Bodies     []BodyConfig     `yaml:"bodies"`
	Recording  RecordingConfig  `yaml:"recording"`
	Readout    ReadoutConfig    `yaml:"readout"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SurfaceConfig selects the terrain. Either Vertices and Triangles or GAT may be set; with
// neither, bodies fall freely.
type SurfaceConfig struct {
	Vertices    string     `yaml:"vertices"`      // Text vertex file
	Triangles   string     `yaml:"triangles"`     // Text triangle file
	GAT         string     `yaml:"gat"`           // RO altitude table, triangulated as a grid
	GATCellSize float64    `yaml:"gat_cell_size"` // World units per GAT cell
	Offset      [3]float64 `yaml:"offset"`        // Subtracted from every vertex
	CellSize    float64    `yaml:"cell_size"`     // Spatial hash resolution
	Seeder      string     `yaml:"seeder"`        // "grid" or "scan"
}

// HasMesh reports whether any surface source is configured.
func (s SurfaceConfig) HasMesh() bool {
	return s.GAT != "" || s.Vertices != "" || s.Triangles != ""
}

// SimulationConfig holds integration settings.
type SimulationConfig struct {
	Dt            float64       `yaml:"dt"`             // Fixed timestep in seconds
	Steps         int           `yaml:"steps"`          // Ticks to run; 0 runs until all bodies stop
	Gravity       [3]float64    `yaml:"gravity"`        // Acceleration in m/s^2
	Workers       int           `yaml:"workers"`        // Goroutines stepping bodies
	Realtime      bool          `yaml:"realtime"`       // Pace ticks against the wall clock
	TickHz        float64       `yaml:"tick_hz"`        // Wall-clock tick rate in realtime mode
	StatsInterval time.Duration `yaml:"stats_interval"` // How often tick statistics are logged
}

// BodyConfig describes one body's initial state.
type BodyConfig struct {
	Position          [3]float64 `yaml:"position"`
	Velocity          [3]float64 `yaml:"velocity"`
	Mass              float64    `yaml:"mass"`
	Radius            float64    `yaml:"radius"`
	Restitution       float64    `yaml:"restitution"`
	RollingResistance float64    `yaml:"rolling_resistance"`
	Triangle          *int       `yaml:"triangle,omitempty"` // Starting triangle hint
}

// RecordingConfig holds trajectory recording settings.
type RecordingConfig struct {
	Dir   string `yaml:"dir"`   // Bundle root; empty disables recording
	Every int    `yaml:"every"` // Record one frame every N ticks
}

// ReadoutConfig holds live readout settings.
type ReadoutConfig struct {
	Listen string `yaml:"listen"` // HTTP address for the websocket readout; empty disables it
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Surface: SurfaceConfig{
			GATCellSize: 1,
			CellSize:    1,
			Seeder:      SeederGrid,
		},
		Simulation: SimulationConfig{
			Dt:            1.0 / 60,
			Steps:         600,
			Gravity:       [3]float64{0, -9.81, 0},
			Workers:       1,
			Realtime:      false,
			TickHz:        60,
			StatsInterval: 5 * time.Second,
		},
		Bodies: []BodyConfig{
			{
				Position:    [3]float64{0, 5, 0},
				Mass:        1,
				Radius:      0.5,
				Restitution: 0.5,
			},
		},
		Recording: RecordingConfig{
			Dir:   "",
			Every: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first unusable value.
func (c *Config) Validate() error {
	s := c.Surface
	if s.GAT != "" && (s.Vertices != "" || s.Triangles != "") {
		return fmt.Errorf("%w: surface.gat and surface.vertices/triangles are exclusive", ErrInvalidConfig)
	}
	if (s.Vertices == "") != (s.Triangles == "") {
		return fmt.Errorf("%w: surface.vertices and surface.triangles must be set together", ErrInvalidConfig)
	}
	if !(s.CellSize > 0) {
		return fmt.Errorf("%w: surface.cell_size %v must be positive", ErrInvalidConfig, s.CellSize)
	}
	if s.GAT != "" && !(s.GATCellSize > 0) {
		return fmt.Errorf("%w: surface.gat_cell_size %v must be positive", ErrInvalidConfig, s.GATCellSize)
	}
	if s.Seeder != SeederGrid && s.Seeder != SeederScan {
		return fmt.Errorf("%w: surface.seeder %q must be %q or %q", ErrInvalidConfig, s.Seeder, SeederGrid, SeederScan)
	}

	sim := c.Simulation
	if !(sim.Dt > 0) {
		return fmt.Errorf("%w: simulation.dt %v must be positive", ErrInvalidConfig, sim.Dt)
	}
	if sim.Steps < 0 {
		return fmt.Errorf("%w: simulation.steps %d is negative", ErrInvalidConfig, sim.Steps)
	}
	if sim.Workers < 0 {
		return fmt.Errorf("%w: simulation.workers %d is negative", ErrInvalidConfig, sim.Workers)
	}
	if sim.Realtime && !(sim.TickHz > 0) {
		return fmt.Errorf("%w: simulation.tick_hz %v must be positive", ErrInvalidConfig, sim.TickHz)
	}

	for i, b := range c.Bodies {
		switch {
		case !(b.Mass > 0):
			return fmt.Errorf("%w: bodies[%d].mass %v must be positive", ErrInvalidConfig, i, b.Mass)
		case !(b.Radius > 0):
			return fmt.Errorf("%w: bodies[%d].radius %v must be positive", ErrInvalidConfig, i, b.Radius)
		case b.Restitution < 0 || b.Restitution > 1:
			return fmt.Errorf("%w: bodies[%d].restitution %v outside [0, 1]", ErrInvalidConfig, i, b.Restitution)
		case b.RollingResistance < 0:
			return fmt.Errorf("%w: bodies[%d].rolling_resistance %v is negative", ErrInvalidConfig, i, b.RollingResistance)
		}
	}

	if c.Recording.Dir != "" && c.Recording.Every < 1 {
		return fmt.Errorf("%w: recording.every %d must be at least 1", ErrInvalidConfig, c.Recording.Every)
	}
	return nil
}
