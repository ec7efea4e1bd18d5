package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/surfroll/internal/config"
	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/internal/physics"
	"github.com/Faultbox/surfroll/internal/terrain"
	"github.com/Faultbox/surfroll/pkg/math"
)

// Options configures a World.
type Options struct {
	Dt      float64
	Gravity math.Vec3
	// Workers is the number of goroutines stepping bodies. Values below 2 step sequentially.
	Workers int
}

// World steps a set of bodies over one shared surface.
//
// A World is driven from a single goroutine. When Workers > 1, a tick fans the bodies out
// over that many goroutines; each body is stepped by exactly one of them and the surface is
// only read.
type World struct {
	surface *terrain.Surface
	bodies  []*physics.Body
	opts    Options

	tick    uint64
	sinks   []Sink
	monitor *TickMonitor
	log     *zap.Logger

	transitions []bool
}

// NewWorld binds every body to surface and returns a world at tick 0. A nil surface leaves
// all bodies in free fall.
func NewWorld(surface *terrain.Surface, bodies []*physics.Body, opts Options) *World {
	cfg := physics.Config{Gravity: opts.Gravity}
	for _, b := range bodies {
		b.Init(surface, cfg)
	}
	return &World{
		surface:     surface,
		bodies:      bodies,
		opts:        opts,
		monitor:     NewTickMonitor(),
		log:         logger.Named("simulation"),
		transitions: make([]bool, len(bodies)),
	}
}

// NewWorldFromConfig builds the bodies described by cfg and places them on surface.
func NewWorldFromConfig(cfg *config.Config, surface *terrain.Surface) (*World, error) {
	bodies := make([]*physics.Body, 0, len(cfg.Bodies))
	for i, bc := range cfg.Bodies {
		b, err := physics.NewBody(BodyParams(bc))
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		bodies = append(bodies, b)
	}

	return NewWorld(surface, bodies, Options{
		Dt:      cfg.Simulation.Dt,
		Gravity: math.FromArray(cfg.Simulation.Gravity),
		Workers: cfg.Simulation.Workers,
	}), nil
}

// BodyParams converts a body's config entry to integrator parameters.
func BodyParams(bc config.BodyConfig) physics.Params {
	triangle := -1
	if bc.Triangle != nil {
		triangle = *bc.Triangle
	}
	return physics.Params{
		Position:          math.FromArray(bc.Position),
		Velocity:          math.FromArray(bc.Velocity),
		Mass:              bc.Mass,
		Radius:            bc.Radius,
		Restitution:       bc.Restitution,
		RollingResistance: bc.RollingResistance,
		Triangle:          triangle,
	}
}

// AddSink registers a consumer for frames and events.
func (w *World) AddSink(s Sink) {
	w.sinks = append(w.sinks, s)
}

// Surface returns the shared surface, or nil in free fall.
func (w *World) Surface() *terrain.Surface {
	return w.surface
}

// Bodies returns the simulated bodies.
func (w *World) Bodies() []*physics.Body {
	return w.bodies
}

// TickCount returns the number of completed ticks.
func (w *World) TickCount() uint64 {
	return w.tick
}

// Time returns the simulated time in seconds.
func (w *World) Time() float64 {
	return float64(w.tick) * w.opts.Dt
}

// Monitor returns the tick timing statistics.
func (w *World) Monitor() *TickMonitor {
	return w.monitor
}

// ActiveCount returns the number of bodies still being integrated.
func (w *World) ActiveCount() int {
	n := 0
	for _, b := range w.bodies {
		if b.Active() {
			n++
		}
	}
	return n
}

// Snapshot returns the current state of every body.
func (w *World) Snapshot() Frame {
	samples := make([]BodySample, len(w.bodies))
	for i, b := range w.bodies {
		samples[i] = BodySample{
			Index:    i,
			State:    b.State(),
			Position: b.Position,
			Velocity: b.Velocity,
			Triangle: b.Triangle(),
		}
	}
	return Frame{Tick: w.tick, Time: w.Time(), Bodies: samples}
}

// Tick steps every body once, then emits one event per body disabled on this tick followed
// by the frame. The first sink error is returned after all sinks have been called.
func (w *World) Tick() (Frame, error) {
	start := time.Now()

	w.stepBodies()
	w.tick++

	var firstErr error
	now := w.Time()
	for i, disabled := range w.transitions {
		if !disabled {
			continue
		}
		b := w.bodies[i]
		pos := b.Position.Array()
		w.log.Info("body left the surface",
			zap.Int("body", i),
			zap.Uint64("tick", w.tick),
			zap.Float64("time", now),
			zap.Float64s("position", pos[:]),
			zap.Int("triangle", b.Triangle()))

		e := Event{Tick: w.tick, Time: now, Type: EventDisabled, Body: i, Position: b.Position}
		for _, s := range w.sinks {
			if err := s.WriteEvent(e); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("writing event: %w", err)
			}
		}
	}

	frame := w.Snapshot()
	for _, s := range w.sinks {
		if err := s.WriteFrame(frame); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("writing frame: %w", err)
		}
	}

	w.monitor.Observe(time.Since(start))
	return frame, firstErr
}

// stepBodies advances every body and records which ones were disabled by this step.
func (w *World) stepBodies() {
	dt := w.opts.Dt
	workers := w.opts.Workers
	if workers > len(w.bodies) {
		workers = len(w.bodies)
	}

	if workers < 2 {
		for i, b := range w.bodies {
			w.transitions[i] = b.Step(dt)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (len(w.bodies) + workers - 1) / workers
	for start := 0; start < len(w.bodies); start += chunk {
		end := min(start+chunk, len(w.bodies))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				w.transitions[i] = w.bodies[i].Step(dt)
			}
		}(start, end)
	}
	wg.Wait()
}

// Run ticks until steps ticks have run, every body is disabled or ctx is cancelled.
// steps <= 0 runs until one of the other two conditions. A cancelled context is not an error.
func (w *World) Run(ctx context.Context, steps int) error {
	w.log.Info("simulation started",
		zap.Int("bodies", len(w.bodies)),
		zap.Int("steps", steps),
		zap.Float64("dt", w.opts.Dt),
		zap.Int("workers", w.opts.Workers))

	for i := 0; steps <= 0 || i < steps; i++ {
		if ctx.Err() != nil {
			w.log.Info("simulation cancelled", zap.Uint64("tick", w.tick))
			return nil
		}
		if w.ActiveCount() == 0 {
			w.log.Info("all bodies disabled", zap.Uint64("tick", w.tick))
			break
		}
		if _, err := w.Tick(); err != nil {
			return err
		}
	}

	w.log.Info("simulation finished",
		append([]zap.Field{zap.Uint64("ticks", w.tick), zap.Int("active", w.ActiveCount())},
			w.monitor.Snapshot().Fields()...)...)
	return nil
}

// RunRealtime paces ticks at tickHz against the wall clock. It stops under the same
// conditions as Run.
func (w *World) RunRealtime(ctx context.Context, tickHz float64, steps int) error {
	if w.ActiveCount() == 0 {
		w.log.Info("all bodies disabled", zap.Uint64("tick", w.tick))
		return nil
	}

	loop := NewLoop(tickHz, steps, func() (bool, error) {
		if _, err := w.Tick(); err != nil {
			return false, err
		}
		return w.ActiveCount() > 0, nil
	})
	w.monitor.SetBudget(loop.Interval())

	w.log.Info("realtime simulation started",
		zap.Int("bodies", len(w.bodies)),
		zap.Float64("tick_hz", tickHz),
		zap.Duration("interval", loop.Interval()))

	err := loop.Run(ctx)

	w.log.Info("realtime simulation finished",
		append([]zap.Field{
			zap.Uint64("ticks", w.tick),
			zap.Int("active", w.ActiveCount()),
			zap.Duration("dropped", loop.Dropped()),
		}, w.monitor.Snapshot().Fields()...)...)
	return err
}
