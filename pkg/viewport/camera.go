package viewport

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is an immutable snapshot of the projection derived from one State.
// A new Camera is built for every size change; callers never see a half-updated one.
type Camera struct {
	state      State
	generation uint64
	ready      bool

	view           mgl64.Mat4
	projection     mgl64.Mat4
	viewProjection mgl64.Mat4
	inverse        mgl64.Mat4
}

// NewCamera derives view and projection matrices for s.
// The camera is not ready when the surface has no size yet or the matrices are singular.
func NewCamera(s State, generation uint64) *Camera {
	c := &Camera{state: s, generation: generation}
	if !s.Ready() || s.Camera.Validate() != nil {
		return c
	}

	in := s.Camera
	eye := in.Position
	switch in.Mode {
	case Orthographic:
		// Recenter over the target so the frustum is symmetric around it.
		eye = mgl64.Vec3{in.Target.X(), in.Target.Y(), in.Position.Z()}
		if eye.Sub(in.Target).Len() == 0 || in.Up.Cross(in.Target.Sub(eye)).Len() == 0 {
			return c
		}
		halfW := s.Width / (2 * in.PixelsPerUnit)
		halfH := s.Height / (2 * in.PixelsPerUnit)
		c.projection = mgl64.Ortho(-halfW, halfW, -halfH, halfH, in.Near, in.Far)
	default:
		c.projection = mgl64.Perspective(mgl64.DegToRad(in.FOV), s.Aspect(), in.Near, in.Far)
	}
	c.view = mgl64.LookAtV(eye, in.Target, in.Up)
	c.viewProjection = c.projection.Mul4(c.view)

	if math.Abs(c.viewProjection.Det()) < 1e-12 {
		return c
	}
	c.inverse = c.viewProjection.Inv()
	c.ready = true
	return c
}

// Ready reports whether the camera can project.
func (c *Camera) Ready() bool {
	return c != nil && c.ready
}

// State returns the surface state this camera was built from.
func (c *Camera) State() State {
	return c.state
}

// Generation increases with every accepted resize.
func (c *Camera) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.generation
}

// Unproject maps an NDC point (each axis in [-1,1]) to world space.
func (c *Camera) Unproject(ndc mgl64.Vec3) mgl64.Vec3 {
	v := c.inverse.Mul4x1(ndc.Vec4(1))
	return v.Vec3().Mul(1 / v.W())
}

// ToNDC maps a world point to normalized device coordinates.
func (c *Camera) ToNDC(world mgl64.Vec3) mgl64.Vec3 {
	v := c.viewProjection.Mul4x1(world.Vec4(1))
	return v.Vec3().Mul(1 / v.W())
}

// ToScreen maps a world point to normalized screen coordinates
// (x right, y down, [0,1] across the surface).
func (c *Camera) ToScreen(world mgl64.Vec3) (x, y float64) {
	ndc := c.ToNDC(world)
	return (ndc.X() + 1) / 2, (1 - ndc.Y()) / 2
}
