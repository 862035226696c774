package anchor

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

func samplePose() pose.Pose {
	return pose.Pose{
		Position: mgl64.Vec3{0.5, 0.5, 0},
		Rotation: pose.Euler{Pitch: 0.1, Yaw: -0.3, Roll: 0.2},
		Scale:    1.5,
	}
}

func TestBind_AbsentIsHidden(t *testing.T) {
	tr := Bind(samplePose(), false, mgl64.Vec3{1, 2, 3}, DefaultCalibration())
	assert.False(t, tr.Visible)
	assert.Equal(t, Hidden(), tr)
}

func TestBind_PositionAndScale(t *testing.T) {
	world := mgl64.Vec3{0.2, -0.1, 0.8}
	tr := Bind(samplePose(), true, world, DefaultCalibration())

	require.True(t, tr.Visible)
	assert.Equal(t, world, tr.Position, "position is forwarded untouched")
	assert.InDelta(t, 1.5*0.3, tr.Scale, 1e-12)
	assert.Greater(t, tr.Scale, 0.0)
	assert.Nil(t, tr.Mask)
}

func TestBind_BaseAppliedBeforeDynamic(t *testing.T) {
	cal := DefaultCalibration()
	p := samplePose()
	tr := Bind(p, true, mgl64.Vec3{}, cal)

	base := cal.BaseQuat()
	dyn := p.Rotation.Quat()
	v := mgl64.Vec3{1, 0.5, -0.25}

	want := dyn.Rotate(base.Rotate(v))
	got := tr.Rotation.Rotate(v)
	assert.True(t, got.ApproxEqualThreshold(want, 1e-9), "got %v want %v", got, want)

	reversed := base.Rotate(dyn.Rotate(v))
	assert.False(t, got.ApproxEqualThreshold(reversed, 1e-3), "composition order must matter")
}

func TestBind_IdentityPoseKeepsBaseRotation(t *testing.T) {
	cal := DefaultCalibration()
	tr := Bind(pose.Pose{Scale: 1}, true, mgl64.Vec3{}, cal)

	v := mgl64.Vec3{0, 0, 1}
	assert.True(t, tr.Rotation.Rotate(v).ApproxEqualThreshold(cal.BaseQuat().Rotate(v), 1e-9))
	// Rx(π)·Ry(π) is a half turn about Z: forward stays forward.
	assert.True(t, tr.Rotation.Rotate(v).ApproxEqualThreshold(v, 1e-9))
}

func TestBind_FlipNegatesAxis(t *testing.T) {
	p := samplePose()
	plain := Calibration{ScaleFactor: 1}
	flipped := Calibration{ScaleFactor: 1, Flip: Flip{Yaw: true}}

	a := Bind(p, true, mgl64.Vec3{}, plain)
	b := Bind(p, true, mgl64.Vec3{}, flipped)

	assert.InDelta(t, p.Rotation.Yaw, a.Euler.Yaw, 1e-9)
	assert.InDelta(t, -p.Rotation.Yaw, b.Euler.Yaw, 1e-9)
	assert.InDelta(t, a.Euler.Pitch, b.Euler.Pitch, 0.2, "other axes are only perturbed by recomposition")
}

func TestBind_Mask(t *testing.T) {
	cal := DefaultCalibration()
	cal.MaskRotation = &mgl64.Vec3{0, 0, 0}
	world := mgl64.Vec3{0.1, 0.2, 0.3}

	tr := Bind(samplePose(), true, world, cal)
	require.NotNil(t, tr.Mask)
	assert.True(t, tr.Mask.Visible)
	assert.Equal(t, world, tr.Mask.Position)
	assert.Equal(t, tr.Scale, tr.Mask.Scale)

	// With an identity mask correction the mask follows the dynamic pose alone.
	want := samplePose().Rotation.Quat()
	assert.InDelta(t, 1, math.Abs(tr.Mask.Rotation.Dot(want)), 1e-9)
}

func TestTransform_JSON(t *testing.T) {
	tr := Bind(samplePose(), true, mgl64.Vec3{1, 2, 3}, DefaultCalibration())
	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["visible"])
	assert.Len(t, decoded["quaternion"], 4)
	assert.NotContains(t, decoded, "mask")
	assert.NotContains(t, decoded, "Rotation")
}

func TestCalibration_Validate(t *testing.T) {
	require.NoError(t, DefaultCalibration().Validate())

	bad := DefaultCalibration()
	bad.ScaleFactor = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidCalibration)

	bad = DefaultCalibration()
	bad.OffsetY = math.NaN()
	assert.ErrorIs(t, bad.Validate(), ErrInvalidCalibration)

	bad = DefaultCalibration()
	bad.MaskRotation = &mgl64.Vec3{math.Inf(1), 0, 0}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidCalibration)
}

func TestBinding_SetCalibration(t *testing.T) {
	b, err := NewBinding(DefaultCalibration())
	require.NoError(t, err)

	next := DefaultCalibration()
	next.ScaleFactor = 0.5
	require.NoError(t, b.SetCalibration(next))
	assert.Equal(t, 0.5, b.Calibration().ScaleFactor)

	assert.Error(t, b.SetCalibration(Calibration{}))
	assert.Equal(t, 0.5, b.Calibration().ScaleFactor, "invalid calibration is rejected")

	tr := b.Bind(samplePose(), true, mgl64.Vec3{})
	assert.InDelta(t, 0.75, tr.Scale, 1e-12)

	_, err = NewBinding(Calibration{})
	assert.ErrorIs(t, err, ErrInvalidCalibration)
}
