package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

// Estimator derives a Pose from a single landmark frame.
// It keeps no temporal state; jitter is handled by the smoother.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator. The config should have passed Validate.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the estimator's configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate returns the pose for f, or false when the frame carries no usable face.
// A missing face is the expected steady state while the wearer is out of view.
func (e *Estimator) Estimate(f landmark.Frame) (Pose, bool) {
	if !f.HasFace() || !f.Finite() {
		return Pose{}, false
	}

	leftOuter := f.At(landmark.LeftEyeOuter)
	rightOuter := f.At(landmark.RightEyeOuter)

	position := e.Anchor(f)
	eyes := landmark.Sub(rightOuter, leftOuter)

	return Pose{
		Position: position,
		Rotation: Euler{
			Pitch: e.pitch(f.At(landmark.NoseTip), position),
			Yaw:   math.Atan2(eyes.Z, eyes.X),
			Roll:  NormalizeRoll(math.Atan2(eyes.Y, eyes.X)*e.cfg.RollMultiplier, e.cfg.RollFoldThreshold),
		},
		Scale: e.scale(leftOuter, rightOuter),
	}, true
}

// Anchor returns the normalized anchor point: the mean of the inner eye corners and the
// nose landmark, with the nose weighted on Y so the anchor rides the nose bridge rather
// than drifting with the jaw.
func (e *Estimator) Anchor(f landmark.Frame) mgl64.Vec3 {
	li := f.At(landmark.LeftEyeInner)
	ri := f.At(landmark.RightEyeInner)
	nose := f.At(landmark.NoseBridge)
	if e.cfg.AnchorOnNoseTip {
		nose = f.At(landmark.NoseTip)
	}

	w := e.cfg.NoseBridgeYWeight
	return mgl64.Vec3{
		(li.X + ri.X + nose.X) / 3,
		(li.Y + ri.Y + w*nose.Y) / (2 + w),
		(li.Z + ri.Z + nose.Z) / 3,
	}
}

// scale is the 3D outer-eye distance relative to the reference asset, never below MinScale.
func (e *Estimator) scale(left, right landmark.Landmark) float64 {
	s := landmark.Distance3D(left, right) / e.cfg.ReferenceEyeDistance
	if s < e.cfg.MinScale {
		return e.cfg.MinScale
	}
	return s
}

func (e *Estimator) pitch(tip landmark.Landmark, anchor mgl64.Vec3) float64 {
	raw := math.Atan2(tip.Y-anchor.Y(), tip.Z-anchor.Z())
	return WrapAngle(raw-e.cfg.PitchBaseline) * e.cfg.PitchScale
}
