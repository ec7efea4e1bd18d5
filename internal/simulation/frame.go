// Package simulation runs bodies over a shared surface and fans their state out to sinks.
package simulation

import (
	"github.com/Faultbox/surfroll/internal/physics"
	"github.com/Faultbox/surfroll/pkg/math"
)

// EventDisabled is the event type emitted when a body leaves the surface.
const EventDisabled = "disabled"

// BodySample is one body's state at the end of a tick.
type BodySample struct {
	Index    int           `json:"index"`
	State    physics.State `json:"state"`
	Position math.Vec3     `json:"position"`
	Velocity math.Vec3     `json:"velocity"`
	Triangle int           `json:"triangle"`
}

// Frame is the state of every body after a tick.
type Frame struct {
	Tick   uint64       `json:"tick"`
	Time   float64      `json:"time"` // Simulated seconds
	Bodies []BodySample `json:"bodies"`
}

// Event records a discrete state change of one body.
type Event struct {
	Tick     uint64    `json:"tick"`
	Time     float64   `json:"time"`
	Type     string    `json:"type"`
	Body     int       `json:"body"`
	Position math.Vec3 `json:"position"`
}

// Sink consumes frames and events produced by a World. Sinks are called from the ticking
// goroutine, one call at a time.
type Sink interface {
	WriteFrame(f Frame) error
	WriteEvent(e Event) error
}
