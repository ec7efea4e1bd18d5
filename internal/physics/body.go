// Package physics integrates rigid spheres rolling and bouncing on a terrain surface.
package physics

import (
	"errors"
	"fmt"

	"github.com/Faultbox/surfroll/internal/terrain"
	"github.com/Faultbox/surfroll/pkg/math"
)

// ErrInvalidBody reports body parameters that cannot be simulated.
var ErrInvalidBody = errors.New("invalid body")

// restSpeedEpsilon is the speed below which rolling resistance is not applied, so a body at
// rest does not drift.
const restSpeedEpsilon = 1e-6

// DefaultGravity is standard gravity along -Y.
var DefaultGravity = math.Vec3{Y: -9.81}

// State is the lifecycle state of a body.
type State uint8

const (
	// StateActive bodies are integrated every step.
	StateActive State = iota
	// StateDisabled bodies have left the surface. The transition is one-way and Step is a no-op.
	StateDisabled
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText encodes the state by name, so JSON readouts show "active" or "disabled".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = StateActive
	case "disabled":
		*s = StateDisabled
	default:
		return fmt.Errorf("unknown body state %q", text)
	}
	return nil
}

// Params holds the initial state of a body.
type Params struct {
	Position          math.Vec3
	Velocity          math.Vec3
	Mass              float64
	Radius            float64
	Restitution       float64 // 0 = no bounce, 1 = perfectly elastic
	RollingResistance float64
	// Triangle seeds the body's locator. Negative lets the surface's seeder pick the start.
	Triangle int
}

// Validate checks that the parameters describe a simulatable body.
func (p Params) Validate() error {
	switch {
	case !(p.Mass > 0):
		return fmt.Errorf("%w: mass %v must be positive", ErrInvalidBody, p.Mass)
	case !(p.Radius > 0):
		return fmt.Errorf("%w: radius %v must be positive", ErrInvalidBody, p.Radius)
	case !(p.Restitution >= 0 && p.Restitution <= 1):
		return fmt.Errorf("%w: restitution %v outside [0, 1]", ErrInvalidBody, p.Restitution)
	case !(p.RollingResistance >= 0):
		return fmt.Errorf("%w: rolling resistance %v is negative", ErrInvalidBody, p.RollingResistance)
	case !p.Position.IsFinite() || !p.Velocity.IsFinite():
		return fmt.Errorf("%w: non-finite position or velocity", ErrInvalidBody)
	}
	return nil
}

// Config holds the environment a body is simulated in.
type Config struct {
	Gravity math.Vec3
}

// Body is a sphere integrated with Forward Euler against a surface.
//
// A Body is owned by one goroutine at a time. Its locator caches the last triangle it stood
// on, so bodies never share locators.
type Body struct {
	Position          math.Vec3
	Velocity          math.Vec3
	Mass              float64
	Radius            float64
	Restitution       float64
	RollingResistance float64

	state    State
	triangle int
	gravity  math.Vec3
	locator  *terrain.Locator
}

// NewBody creates an active body. It must be bound to a surface with Init before stepping.
func NewBody(p Params) (*Body, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Body{
		Position:          p.Position,
		Velocity:          p.Velocity,
		Mass:              p.Mass,
		Radius:            p.Radius,
		Restitution:       p.Restitution,
		RollingResistance: p.RollingResistance,
		triangle:          p.Triangle,
		gravity:           DefaultGravity,
	}, nil
}

// Init binds the body to a surface. A nil surface leaves the body in free fall.
func (b *Body) Init(surface *terrain.Surface, cfg Config) {
	b.gravity = cfg.Gravity
	if surface == nil {
		b.locator = nil
		return
	}
	b.locator = surface.NewLocator()
	if b.triangle >= 0 {
		b.locator.SetCurrent(b.triangle)
	}
}

// State returns the lifecycle state.
func (b *Body) State() State {
	return b.state
}

// Active reports whether the body is still being integrated.
func (b *Body) Active() bool {
	return b.state == StateActive
}

// Triangle returns the last triangle the body was located on, or -1.
func (b *Body) Triangle() int {
	if b.locator == nil {
		return -1
	}
	return b.locator.Current()
}

// Step advances the body by dt seconds. It returns true on the step that disables the body,
// which happens exactly once, when the body's position is no longer over the surface.
// Disabled bodies keep their last position and velocity.
func (b *Body) Step(dt float64) bool {
	if b.state == StateDisabled || !(dt > 0) {
		return false
	}

	netForce := b.gravity.Scale(b.Mass)
	if b.locator == nil {
		b.integrate(netForce, dt)
		return false
	}

	rollingCoeff := 0.0
	if b.Velocity.Length() > restSpeedEpsilon {
		rollingCoeff = b.RollingResistance
	}

	now := b.locator.ClosestContact(b.Position)
	if now.IsSentinel() {
		b.state = StateDisabled
		return true
	}
	next := b.locator.ClosestContact(b.Position.Add(b.Velocity.Scale(dt)))
	if next.IsSentinel() {
		// about to leave the surface; the current contact stands in for the look-ahead
		next = now
	}

	if b.Position.Distance(now.Point) <= b.Radius {
		netForce = b.resolveContact(now, next, netForce, rollingCoeff)
	}

	b.integrate(netForce, dt)
	return false
}

// resolveContact applies the bounce or seam response, snaps the body onto the surface and
// returns the force with its normal component cancelled and rolling resistance added.
func (b *Body) resolveContact(now, next terrain.Contact, netForce math.Vec3, rollingCoeff float64) math.Vec3 {
	n := now.Normal
	tangent := b.Velocity.ProjectOnPlane(n)
	tangentUnit := tangent.Normalize()

	reflect := n.Add(next.Normal).Normalize()
	if reflect.IsZero() {
		reflect = n
	}
	crossing := n.Cross(next.Normal).Dot(n.Cross(tangentUnit))

	if b.Restitution <= 0 && crossing < 0 {
		// rolling across a seam: redirect without losing speed
		b.Velocity = b.Velocity.Reflect(reflect)
	} else {
		b.Velocity = n.Scale(-b.Restitution * b.Velocity.Dot(n)).Add(tangent)
	}

	netForce = netForce.Sub(n.Sub(tangentUnit.Scale(rollingCoeff)).Scale(netForce.Dot(n)))
	b.Position = now.Point.Midpoint(next.Point).Add(reflect.Scale(b.Radius))
	return netForce
}

// integrate is explicit Euler. Velocity is updated before position.
func (b *Body) integrate(netForce math.Vec3, dt float64) {
	acceleration := netForce.Scale(1 / b.Mass)
	b.Velocity = b.Velocity.Add(acceleration.Scale(dt))
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
}
