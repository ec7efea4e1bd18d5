// Package main is the entry point for the surfroll simulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/surfroll/internal/config"
	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/internal/readout"
	"github.com/Faultbox/surfroll/internal/simulation"
	"github.com/Faultbox/surfroll/internal/trajectory"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== surfroll ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("simulation error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("simulation closed normally")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	surface, err := simulation.LoadSurface(cfg.Surface)
	if err != nil {
		return fmt.Errorf("loading surface: %w", err)
	}
	if surface == nil {
		logger.Warn("no surface configured, bodies are in free fall")
	}

	world, err := simulation.NewWorldFromConfig(cfg, surface)
	if err != nil {
		return fmt.Errorf("creating world: %w", err)
	}

	if cfg.Recording.Dir != "" {
		w, manifest, err := trajectory.NewWriter(cfg.Recording.Dir, "run", trajectory.Options{
			Dt:     cfg.Simulation.Dt,
			Every:  cfg.Recording.Every,
			Bodies: len(world.Bodies()),
		})
		if err != nil {
			return fmt.Errorf("creating recorder: %w", err)
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("closing recorder", zap.Error(err))
				return
			}
			logger.Info("trajectory saved",
				zap.String("dir", w.Directory()),
				zap.Int("frames", w.FrameCount()))
		}()
		world.AddSink(w)
		logger.Info("recording trajectory",
			zap.String("dir", w.Directory()),
			zap.String("frames", manifest.FramesPath),
			zap.Int("every", manifest.Every))
	}

	if cfg.Readout.Listen != "" {
		hub := readout.NewHub()
		world.AddSink(hub)

		serveCtx, cancelServe := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := readout.Serve(serveCtx, cfg.Readout.Listen, hub); err != nil {
				logger.Error("readout server error", zap.Error(err))
			}
		}()
		defer func() {
			cancelServe()
			<-done
		}()
	}

	if cfg.Simulation.StatsInterval > 0 {
		statsCtx, cancelStats := context.WithCancel(ctx)
		defer cancelStats()
		go logStats(statsCtx, world.Monitor(), cfg.Simulation.StatsInterval)
	}

	if cfg.Simulation.Realtime {
		return world.RunRealtime(ctx, cfg.Simulation.TickHz, cfg.Simulation.Steps)
	}
	return world.Run(ctx, cfg.Simulation.Steps)
}

// logStats periodically reports tick timing until ctx is cancelled.
func logStats(ctx context.Context, monitor *simulation.TickMonitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("tick stats", monitor.Snapshot().Fields()...)
		}
	}
}
