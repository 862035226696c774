package tracking

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-tryon/pkg/pose"
	"github.com/teslashibe/go-tryon/pkg/smoothing"
	"github.com/teslashibe/go-tryon/pkg/viewport"
)

// Config holds all tunable parameters for the render loop
type Config struct {
	// Timing
	RenderInterval time.Duration // Render tick (~60 Hz)
	StatsInterval  time.Duration // How often loop counters are logged; 0 disables

	Pose       pose.Config
	Smoothing  smoothing.Config
	Projection viewport.ProjectionConfig
	Camera     viewport.Intrinsics
}

// DefaultConfig returns the recommended configuration for a typical webcam detector
func DefaultConfig() Config {
	return Config{
		RenderInterval: 16 * time.Millisecond,
		StatsInterval:  10 * time.Second,

		Pose:       pose.DefaultConfig(),
		Smoothing:  smoothing.DefaultConfig(),
		Projection: viewport.DefaultProjectionConfig(),
		Camera:     viewport.DefaultIntrinsics(),
	}
}

// SlowConfig returns heavier smoothing for slow detectors or low light
func SlowConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = smoothing.SmoothConfig()
	return cfg
}

// AggressiveConfig returns a configuration for fast detectors and high refresh displays
func AggressiveConfig() Config {
	cfg := DefaultConfig()
	cfg.RenderInterval = 8 * time.Millisecond
	cfg.Smoothing = smoothing.ResponsiveConfig()
	return cfg
}

// Preset returns a named configuration: "default", "slow" or "aggressive".
func Preset(name string) (Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "slow":
		return SlowConfig(), nil
	case "aggressive":
		return AggressiveConfig(), nil
	}
	return Config{}, fmt.Errorf("tracking: unknown preset %q", name)
}

// Validate checks the loop timing and every component config.
func (c Config) Validate() error {
	if c.RenderInterval <= 0 {
		return fmt.Errorf("tracking: render interval must be positive, got %v", c.RenderInterval)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("tracking: stats interval must not be negative, got %v", c.StatsInterval)
	}
	if err := c.Pose.Validate(); err != nil {
		return err
	}
	if c.Smoothing.RotationTimeConstant < 0 || c.Smoothing.PositionTimeConstant < 0 || c.Smoothing.ScaleTimeConstant < 0 {
		return fmt.Errorf("tracking: smoothing time constants must not be negative")
	}
	if c.Projection.DepthScale < 0 || c.Projection.ParallelEpsilon <= 0 {
		return fmt.Errorf("tracking: invalid projection config")
	}
	return c.Camera.Validate()
}
