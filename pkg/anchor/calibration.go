// Package anchor binds an estimated head pose to a specific eyewear asset,
// producing the final renderer transform.
package anchor

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

var validate = validator.New()

// ErrInvalidCalibration is returned for calibrations the renderer cannot use.
var ErrInvalidCalibration = errors.New("anchor: invalid calibration")

// Flip inverts individual dynamic rotation axes for one asset. Assets exported with
// different rest orientations need different sign corrections, so this lives with the
// asset rather than as a global constant.
type Flip struct {
	Pitch bool `json:"pitch"`
	Yaw   bool `json:"yaw"`
	Roll  bool `json:"roll"`
}

// Apply returns e with the flipped axes negated.
func (f Flip) Apply(e pose.Euler) pose.Euler {
	if f.Pitch {
		e.Pitch = -e.Pitch
	}
	if f.Yaw {
		e.Yaw = -e.Yaw
	}
	if f.Roll {
		e.Roll = -e.Roll
	}
	return e
}

// Calibration is the static per-asset correction applied on top of the dynamic pose.
// It is loaded once when an asset is selected and does not change until the next selection.
type Calibration struct {
	// BaseRotation is the asset's rest-pose correction as XYZ Euler radians.
	BaseRotation mgl64.Vec3 `json:"base_rotation"`
	ScaleFactor  float64    `json:"scale_factor" validate:"gt=0"`

	// World-unit offsets added after projection.
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	OffsetZ float64 `json:"offset_z"`

	// MaskRotation, when set, enables a depth-only occlusion anchor with its own
	// orientation correction.
	MaskRotation *mgl64.Vec3 `json:"mask_rotation,omitempty"`

	Flip Flip `json:"flip"`
}

// DefaultCalibration is the correction shared by the stock eyewear exports: the models
// face away from the camera (π about X and Y) and are authored ~3x too large.
func DefaultCalibration() Calibration {
	return Calibration{
		BaseRotation: mgl64.Vec3{math.Pi, math.Pi, 0},
		ScaleFactor:  0.3,
	}
}

// Offset returns the post-projection offset.
func (c Calibration) Offset() mgl64.Vec3 {
	return mgl64.Vec3{c.OffsetX, c.OffsetY, c.OffsetZ}
}

// BaseQuat returns the rest-pose correction as a quaternion.
func (c Calibration) BaseQuat() mgl64.Quat {
	return pose.EulerFromVec3(c.BaseRotation).Quat()
}

// Validate checks struct tags and that every angle and offset is finite.
func (c Calibration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
	}
	values := []float64{c.OffsetX, c.OffsetY, c.OffsetZ, c.BaseRotation[0], c.BaseRotation[1], c.BaseRotation[2]}
	if c.MaskRotation != nil {
		values = append(values, c.MaskRotation[0], c.MaskRotation[1], c.MaskRotation[2])
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite angle or offset", ErrInvalidCalibration)
		}
	}
	return nil
}
