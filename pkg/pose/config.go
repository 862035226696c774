package pose

import (
	"fmt"
	"math"
)

// Config holds the empirically tuned constants of the estimator.
// None of these have a derivation; they were fitted against a reference frame set
// and are kept configurable so they can be re-tuned per asset family.
type Config struct {
	// Anchor position
	NoseBridgeYWeight float64 `json:"nose_bridge_y_weight"` // Weight of the nose landmark on Y (inner eye corners weigh 1)
	AnchorOnNoseTip   bool    `json:"anchor_on_nose_tip"`   // Use the nose tip instead of the nose bridge

	// Scale
	ReferenceEyeDistance float64 `json:"reference_eye_distance"` // Outer-eye distance of a unit-scale asset
	MinScale             float64 `json:"min_scale"`              // Floor for degenerate (coincident) eyes

	// Roll
	RollMultiplier    float64 `json:"roll_multiplier"`     // Raw landmark roll under-represents head tilt
	RollFoldThreshold float64 `json:"roll_fold_threshold"` // Fold amplified roll beyond ±this (radians)

	// Pitch
	PitchBaseline float64 `json:"pitch_baseline"` // Raw pitch when looking straight ahead (radians)
	PitchScale    float64 `json:"pitch_scale"`    // Pitch is noisier than yaw/roll, damp it
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		NoseBridgeYWeight: 1.2,
		AnchorOnNoseTip:   false,

		ReferenceEyeDistance: 0.08,
		MinScale:             1e-3,

		RollMultiplier:    4.0,
		RollFoldThreshold: 0.8 * math.Pi,

		PitchBaseline: 3.0,
		PitchScale:    0.1,
	}
}

// RawConfig returns a configuration with no empirical amplification or damping.
// Useful for inspecting what the landmarks alone say.
func RawConfig() Config {
	cfg := DefaultConfig()
	cfg.NoseBridgeYWeight = 1.0
	cfg.RollMultiplier = 1.0
	cfg.RollFoldThreshold = math.Pi
	cfg.PitchBaseline = 0
	cfg.PitchScale = 1.0
	return cfg
}

// ConfigError reports an invalid estimator setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pose: invalid %s: %s", e.Field, e.Message)
}

// Validate checks that the configuration cannot produce division by zero,
// non-positive scale or a non-idempotent roll fold.
func (c Config) Validate() error {
	if c.NoseBridgeYWeight < 0 || math.IsNaN(c.NoseBridgeYWeight) {
		return &ConfigError{Field: "NoseBridgeYWeight", Message: "must be >= 0"}
	}
	if !(c.ReferenceEyeDistance > 0) {
		return &ConfigError{Field: "ReferenceEyeDistance", Message: "must be > 0"}
	}
	if !(c.MinScale > 0) {
		return &ConfigError{Field: "MinScale", Message: "must be > 0"}
	}
	if c.RollFoldThreshold < math.Pi/2 || c.RollFoldThreshold > math.Pi {
		return &ConfigError{Field: "RollFoldThreshold", Message: "must be within [π/2, π]"}
	}
	if math.IsNaN(c.RollMultiplier) || math.IsInf(c.RollMultiplier, 0) {
		return &ConfigError{Field: "RollMultiplier", Message: "must be finite"}
	}
	if math.IsNaN(c.PitchScale) || math.IsInf(c.PitchScale, 0) {
		return &ConfigError{Field: "PitchScale", Message: "must be finite"}
	}
	return nil
}
