package tracking

import (
	"time"

	"github.com/teslashibe/go-tryon/pkg/smoothing"
)

// TuningParams holds the real-time adjustable smoothing parameters.
// These can be modified via the tuning API without restarting the service.
type TuningParams struct {
	RotationTimeConstantMs float64 `json:"rotation_time_constant_ms"` // 0 = no rotation smoothing
	PositionTimeConstantMs float64 `json:"position_time_constant_ms"`
	ScaleTimeConstantMs    float64 `json:"scale_time_constant_ms"`
}

// Tuning returns the smoothing parameters currently in effect (or pending).
func (t *Tracker) Tuning() TuningParams {
	cfg := t.config.Smoothing
	if pending := t.tuning.Load(); pending != nil {
		cfg = *pending
	} else if applied := t.appliedTuning.Load(); applied != nil {
		cfg = *applied
	}
	return TuningParamsFromConfig(cfg)
}

// ApplyTuning updates smoothing at runtime. Every field is applied, including zeros.
func (t *Tracker) ApplyTuning(params TuningParams) error {
	return t.SetTuning(params.Config())
}

// Config converts the params to a smoothing config.
func (p TuningParams) Config() smoothing.Config {
	return smoothing.Config{
		RotationTimeConstant: millis(p.RotationTimeConstantMs),
		PositionTimeConstant: millis(p.PositionTimeConstantMs),
		ScaleTimeConstant:    millis(p.ScaleTimeConstantMs),
	}
}

// TuningParamsFromConfig converts a smoothing config to API params.
func TuningParamsFromConfig(cfg smoothing.Config) TuningParams {
	return TuningParams{
		RotationTimeConstantMs: float64(cfg.RotationTimeConstant) / float64(time.Millisecond),
		PositionTimeConstantMs: float64(cfg.PositionTimeConstant) / float64(time.Millisecond),
		ScaleTimeConstantMs:    float64(cfg.ScaleTimeConstant) / float64(time.Millisecond),
	}
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
