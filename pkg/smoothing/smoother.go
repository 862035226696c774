// Package smoothing low-pass filters successive head poses so per-frame detector
// jitter does not reach the renderer.
package smoothing

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

// Config holds independent time constants for each pose channel.
// A zero time constant passes that channel through unfiltered.
type Config struct {
	RotationTimeConstant time.Duration `json:"rotation_time_constant"`
	PositionTimeConstant time.Duration `json:"position_time_constant"`
	ScaleTimeConstant    time.Duration `json:"scale_time_constant"`
}

// DefaultConfig eases rotation over ~0.1s and passes position and scale through.
func DefaultConfig() Config {
	return Config{
		RotationTimeConstant: 100 * time.Millisecond,
	}
}

// SmoothConfig returns heavier filtering for slow detectors or noisy lighting.
func SmoothConfig() Config {
	return Config{
		RotationTimeConstant: 200 * time.Millisecond,
		PositionTimeConstant: 60 * time.Millisecond,
		ScaleTimeConstant:    120 * time.Millisecond,
	}
}

// ResponsiveConfig returns light rotation filtering for fast detectors.
func ResponsiveConfig() Config {
	return Config{
		RotationTimeConstant: 50 * time.Millisecond,
	}
}

// Alpha returns the first-order low-pass blend factor for a step of dt with time
// constant tau: 1 - e^(-dt/tau). tau <= 0 means no filtering (alpha = 1).
func Alpha(dt, tau time.Duration) float64 {
	if tau <= 0 {
		return 1
	}
	if dt <= 0 {
		return 0
	}
	return 1 - math.Exp(-dt.Seconds()/tau.Seconds())
}

// Smooth moves prev toward next by one step of dt. Rotation is interpolated along
// the shortest quaternion arc; position and scale are blended linearly.
// It is a pure function of its inputs.
func Smooth(prev, next pose.Pose, dt time.Duration, cfg Config) pose.Pose {
	out := next

	if a := Alpha(dt, cfg.RotationTimeConstant); a < 1 {
		out.Rotation = pose.EulerFromQuat(Slerp(prev.Rotation.Quat(), next.Rotation.Quat(), a))
	}
	if a := Alpha(dt, cfg.PositionTimeConstant); a < 1 {
		out.Position = prev.Position.Add(next.Position.Sub(prev.Position).Mul(a))
	}
	if a := Alpha(dt, cfg.ScaleTimeConstant); a < 1 {
		out.Scale = prev.Scale + (next.Scale-prev.Scale)*a
	}
	return out
}

// Slerp interpolates from a toward b by t along the shortest arc.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// Smoother carries the last applied pose between frames.
// It is not safe for concurrent use; the render loop owns it.
type Smoother struct {
	cfg  Config
	last pose.Pose
	has  bool
}

// New creates a smoother with no target.
func New(cfg Config) *Smoother {
	return &Smoother{cfg: cfg}
}

// Update feeds the next estimate. The first estimate after a reset is applied as-is.
// When present is false the smoother resets and reports no target, so the asset
// disappears on the same frame instead of easing toward a stale pose.
func (s *Smoother) Update(p pose.Pose, present bool, dt time.Duration) (pose.Pose, bool) {
	if !present {
		s.Reset()
		return pose.Pose{}, false
	}
	if !s.has {
		s.last, s.has = p, true
		return p, true
	}
	s.last = Smooth(s.last, p, dt, s.cfg)
	return s.last, true
}

// Reset forgets the last applied pose.
func (s *Smoother) Reset() {
	s.last = pose.Pose{}
	s.has = false
}

// Current returns the last applied pose, if any.
func (s *Smoother) Current() (pose.Pose, bool) {
	return s.last, s.has
}

// SetConfig changes the time constants. The current pose is kept.
func (s *Smoother) SetConfig(cfg Config) {
	s.cfg = cfg
}

// Config returns the smoother's time constants.
func (s *Smoother) Config() Config {
	return s.cfg
}
