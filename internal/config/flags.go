package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagSteps    = flag.Int("steps", -1, "Number of ticks to run (0 = until all bodies stop)")
	flagDt       = flag.Float64("dt", 0, "Fixed timestep in seconds")
	flagWorkers  = flag.Int("workers", 0, "Goroutines stepping bodies")
	flagRecord   = flag.String("record", "", "Directory to write trajectory bundles to")
	flagListen   = flag.String("listen", "", "Address to serve the websocket readout on")
	flagRealtime = flag.Bool("realtime", false, "Pace ticks against the wall clock")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSteps >= 0 {
		cfg.Simulation.Steps = *flagSteps
	}
	if *flagDt > 0 {
		cfg.Simulation.Dt = *flagDt
	}
	if *flagWorkers > 0 {
		cfg.Simulation.Workers = *flagWorkers
	}
	if *flagRecord != "" {
		cfg.Recording.Dir = *flagRecord
	}
	if *flagListen != "" {
		cfg.Readout.Listen = *flagListen
	}
	if *flagRealtime {
		cfg.Simulation.Realtime = true
	}
}
