// Package viewport maps normalized face positions into renderer world space for the
// active camera and keeps that camera consistent with the rendering surface size.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mode is the camera projection mode.
type Mode string

const (
	Perspective  Mode = "perspective"
	Orthographic Mode = "orthographic"
)

// Intrinsics describe the renderer camera independent of surface size.
type Intrinsics struct {
	Mode Mode    `json:"mode"`
	FOV  float64 `json:"fov"` // Vertical field of view in degrees (perspective)
	Near float64 `json:"near"`
	Far  float64 `json:"far"`

	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
	Up       mgl64.Vec3 `json:"up"`

	// PixelsPerUnit sets orthographic frustum bounds from the surface size.
	PixelsPerUnit float64 `json:"pixels_per_unit"`
}

// DefaultIntrinsics matches the try-on canvas: 50° perspective camera at z=5
// looking at the origin.
func DefaultIntrinsics() Intrinsics {
	return Intrinsics{
		Mode:          Perspective,
		FOV:           50,
		Near:          0.1,
		Far:           1000,
		Position:      mgl64.Vec3{0, 0, 5},
		Target:        mgl64.Vec3{0, 0, 0},
		Up:            mgl64.Vec3{0, 1, 0},
		PixelsPerUnit: 100,
	}
}

// OrthographicIntrinsics returns an orthographic camera with one world unit per
// 100 CSS pixels.
func OrthographicIntrinsics() Intrinsics {
	in := DefaultIntrinsics()
	in.Mode = Orthographic
	return in
}

// ErrInvalidIntrinsics is returned when a camera description cannot be projected.
var ErrInvalidIntrinsics = errors.New("viewport: invalid camera intrinsics")

// Validate checks that the intrinsics produce an invertible projection.
func (in Intrinsics) Validate() error {
	switch in.Mode {
	case Perspective:
		if !(in.FOV > 0 && in.FOV < 180) {
			return fmt.Errorf("%w: fov %.1f must be within (0, 180)", ErrInvalidIntrinsics, in.FOV)
		}
	case Orthographic:
		if !(in.PixelsPerUnit > 0) {
			return fmt.Errorf("%w: pixels_per_unit must be > 0", ErrInvalidIntrinsics)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidIntrinsics, in.Mode)
	}
	if !(in.Near > 0) || !(in.Far > in.Near) {
		return fmt.Errorf("%w: need 0 < near < far", ErrInvalidIntrinsics)
	}
	if in.Target.Sub(in.Position).Len() == 0 {
		return fmt.Errorf("%w: position equals target", ErrInvalidIntrinsics)
	}
	if in.Up.Len() == 0 || in.Up.Cross(in.Target.Sub(in.Position)).Len() == 0 {
		return fmt.Errorf("%w: up vector parallel to view direction", ErrInvalidIntrinsics)
	}
	return nil
}

// State is the rendering surface plus the camera that draws into it.
// Width and Height are CSS (layout) pixels.
type State struct {
	Width            float64    `json:"width"`
	Height           float64    `json:"height"`
	DevicePixelRatio float64    `json:"dpr"`
	Camera           Intrinsics `json:"camera"`
}

// Ready reports whether the surface has been laid out.
func (s State) Ready() bool {
	return s.Width > 0 && s.Height > 0
}

// Aspect returns width/height, or 0 before layout.
func (s State) Aspect() float64 {
	if !s.Ready() {
		return 0
	}
	return s.Width / s.Height
}

// DrawingBufferSize returns the surface size in device pixels.
func (s State) DrawingBufferSize() (int, int) {
	dpr := s.DevicePixelRatio
	if !(dpr > 0) {
		dpr = 1
	}
	return int(math.Round(s.Width * dpr)), int(math.Round(s.Height * dpr))
}

// sanitize replaces negative or non-finite sizes with zero and a missing dpr with 1.
func sanitize(width, height, dpr float64) (float64, float64, float64) {
	fix := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}
	width, height, dpr = fix(width), fix(height), fix(dpr)
	if dpr == 0 {
		dpr = 1
	}
	return width, height, dpr
}
