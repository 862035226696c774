package anchor

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

// Transform is the per-frame output consumed by the renderer.
// Visible=false is the hidden state: the renderer must not draw the asset and must not
// reuse an earlier transform.
type Transform struct {
	Visible  bool       `json:"visible"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Quat `json:"-"`

	// Quaternion is Rotation as (x, y, z, w) for renderers that take arrays.
	Quaternion [4]float64 `json:"quaternion"`
	Euler      pose.Euler `json:"euler"`
	Scale      float64    `json:"scale"`

	// Mask is the optional occlusion anchor: same position and scale, own orientation.
	Mask *Transform `json:"mask,omitempty"`
}

// Hidden returns the transform for "no face".
func Hidden() Transform {
	return Transform{}
}

func newTransform(position mgl64.Vec3, rotation mgl64.Quat, scale float64) Transform {
	rotation = rotation.Normalize()
	return Transform{
		Visible:    true,
		Position:   position,
		Rotation:   rotation,
		Quaternion: [4]float64{rotation.X(), rotation.Y(), rotation.Z(), rotation.W},
		Euler:      pose.EulerFromQuat(rotation),
		Scale:      scale,
	}
}

// Compose applies base to the asset first and dynamic second (dynamic * base).
// Quaternion products do not commute; the order matters.
func Compose(base, dynamic mgl64.Quat) mgl64.Quat {
	return dynamic.Mul(base)
}

// Bind composes the asset calibration with the dynamic pose.
// world is the projected position with calibration offsets already applied; Bind
// forwards it untouched. When present is false the result is Hidden.
func Bind(p pose.Pose, present bool, world mgl64.Vec3, cal Calibration) Transform {
	if !present {
		return Hidden()
	}

	dynamic := cal.Flip.Apply(p.Rotation).Quat()
	scale := p.Scale * cal.ScaleFactor

	t := newTransform(world, Compose(cal.BaseQuat(), dynamic), scale)
	if cal.MaskRotation != nil {
		mask := newTransform(world, Compose(pose.EulerFromVec3(*cal.MaskRotation).Quat(), dynamic), scale)
		t.Mask = &mask
	}
	return t
}

// Binding owns the calibration of the currently selected asset.
type Binding struct {
	mu  sync.RWMutex
	cal Calibration
}

// NewBinding creates a binding for cal.
func NewBinding(cal Calibration) (*Binding, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &Binding{cal: cal}, nil
}

// SetCalibration replaces the calibration when a different asset is selected.
func (b *Binding) SetCalibration(cal Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.cal = cal
	b.mu.Unlock()
	return nil
}

// Calibration returns the current calibration.
func (b *Binding) Calibration() Calibration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cal
}

// Bind binds p with the current calibration.
func (b *Binding) Bind(p pose.Pose, present bool, world mgl64.Vec3) Transform {
	return Bind(p, present, world, b.Calibration())
}
