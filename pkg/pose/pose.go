// Package pose estimates a 6-DoF head pose (position, rotation, uniform scale) from a
// single frame of face landmarks.
package pose

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Euler is a rotation in radians applied in intrinsic XYZ order:
// pitch about X, then yaw about Y, then roll about Z.
type Euler struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// Quat returns the quaternion equivalent of e (Rx * Ry * Rz).
func (e Euler) Quat() mgl64.Quat {
	qx := mgl64.QuatRotate(e.Pitch, axisX)
	qy := mgl64.QuatRotate(e.Yaw, axisY)
	qz := mgl64.QuatRotate(e.Roll, axisZ)
	return qx.Mul(qy).Mul(qz).Normalize()
}

// Vec3 returns e as (pitch, yaw, roll).
func (e Euler) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{e.Pitch, e.Yaw, e.Roll}
}

// EulerFromVec3 builds an Euler from (x=pitch, y=yaw, z=roll).
func EulerFromVec3(v mgl64.Vec3) Euler {
	return Euler{Pitch: v[0], Yaw: v[1], Roll: v[2]}
}

// EulerFromQuat extracts XYZ Euler angles from a unit quaternion.
// Near gimbal lock (|yaw| = π/2) roll is reported as zero.
func EulerFromQuat(q mgl64.Quat) Euler {
	m := q.Normalize().Mat4()

	m02 := clamp(m.At(0, 2), -1, 1)
	e := Euler{Yaw: math.Asin(m02)}
	if math.Abs(m02) < 0.9999999 {
		e.Pitch = math.Atan2(-m.At(1, 2), m.At(2, 2))
		e.Roll = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		e.Pitch = math.Atan2(m.At(2, 1), m.At(1, 1))
	}
	return e
}

func (e Euler) String() string {
	return fmt.Sprintf("pitch=%.1f° yaw=%.1f° roll=%.1f°", Degrees(e.Pitch), Degrees(e.Yaw), Degrees(e.Roll))
}

// Pose is the estimated head pose for one frame.
// Position is normalized (x, y in [0,1], z detector depth) until it is projected.
// There is no zero-value "absent" pose: estimators return (Pose, false) instead.
type Pose struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation Euler      `json:"rotation"`
	Scale    float64    `json:"scale"`
}

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// WrapAngle maps a to [-π, π].
func WrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

// NormalizeRoll folds an amplified roll angle back into [-threshold, threshold] by
// shifting whole multiples of π, so a tilt that wrapped past vertical is not read as a
// 180° flip. The threshold is clamped to [π/2, π]; within that range the fold is
// idempotent.
func NormalizeRoll(roll, threshold float64) float64 {
	threshold = clamp(threshold, math.Pi/2, math.Pi)
	switch {
	case roll > threshold:
		roll -= math.Ceil((roll-threshold)/math.Pi) * math.Pi
	case roll < -threshold:
		roll += math.Ceil((-threshold-roll)/math.Pi) * math.Pi
	}
	return roll
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
