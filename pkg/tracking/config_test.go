package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_RenderInterval(t *testing.T) {
	cfg := DefaultConfig()

	// ~60 Hz
	if cfg.RenderInterval != 16*time.Millisecond {
		t.Errorf("Expected RenderInterval=16ms, got %v", cfg.RenderInterval)
	}
	if cfg.Smoothing.RotationTimeConstant != 100*time.Millisecond {
		t.Errorf("Expected RotationTimeConstant=100ms, got %v", cfg.Smoothing.RotationTimeConstant)
	}
}

func TestPresets_Valid(t *testing.T) {
	configs := []struct {
		name string
		cfg  Config
	}{
		{"Default", DefaultConfig()},
		{"Slow", SlowConfig()},
		{"Aggressive", AggressiveConfig()},
	}

	for _, tc := range configs {
		assert.NoError(t, tc.cfg.Validate(), tc.name)
	}

	assert.Greater(t, SlowConfig().Smoothing.RotationTimeConstant, DefaultConfig().Smoothing.RotationTimeConstant)
	assert.Less(t, AggressiveConfig().RenderInterval, DefaultConfig().RenderInterval)
}

func TestPreset(t *testing.T) {
	for _, name := range []string{"", "default", "slow", "aggressive"} {
		_, err := Preset(name)
		assert.NoError(t, err, name)
	}
	_, err := Preset("turbo")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"render interval", func(c *Config) { c.RenderInterval = 0 }},
		{"stats interval", func(c *Config) { c.StatsInterval = -time.Second }},
		{"pose", func(c *Config) { c.Pose.ReferenceEyeDistance = 0 }},
		{"smoothing", func(c *Config) { c.Smoothing.ScaleTimeConstant = -1 }},
		{"projection", func(c *Config) { c.Projection.ParallelEpsilon = 0 }},
		{"camera", func(c *Config) { c.Camera.Near = 0 }},
	}
	for _, tc := range tests {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		assert.Error(t, cfg.Validate(), tc.name)
	}

	_, err := New(Config{}, testAsset())
	require.Error(t, err)
}
