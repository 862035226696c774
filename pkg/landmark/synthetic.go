package landmark

import "math"

// Head describes a synthetic face for replay tooling and tests.
type Head struct {
	X, Y     float64 // normalized anchor position
	Depth    float64 // detector depth of the eye line
	EyeWidth float64 // 3D distance between the outer eye corners
	Yaw      float64 // eye-line angle in the x/z plane, radians
	Roll     float64 // eye-line angle in the image plane, radians
}

// Synthetic builds a full-size frame for h. Points the pose pipeline does not read
// are placed at the anchor. Angles must be within (-π/2, π/2).
func Synthetic(h Head) Frame {
	half := Landmark{X: 1, Y: math.Tan(h.Roll), Z: math.Tan(h.Yaw)}
	n := math.Sqrt(half.X*half.X + half.Y*half.Y + half.Z*half.Z)
	s := h.EyeWidth / 2 / n
	half = Landmark{X: half.X * s, Y: half.Y * s, Z: half.Z * s}

	at := func(k float64) Landmark {
		return Landmark{X: h.X + half.X*k, Y: h.Y + half.Y*k, Z: h.Depth + half.Z*k}
	}

	f := make(Frame, MinLandmarks)
	for i := range f {
		f[i] = Landmark{X: h.X, Y: h.Y, Z: h.Depth}
	}
	f[LeftEyeOuter] = at(-1)
	f[RightEyeOuter] = at(1)
	f[LeftEyeInner] = at(-0.4)
	f[RightEyeInner] = at(0.4)
	f[NoseBridge] = Landmark{X: h.X, Y: h.Y + 0.02, Z: h.Depth - 0.01}
	f[NoseTip] = Landmark{X: h.X, Y: h.Y + 0.1, Z: h.Depth - 0.05}
	return f
}
