package camera

import (
	"errors"
	"fmt"
)

// Preset names accepted by Preset and by the "preset" key of Manager.Update.
const (
	PresetDefault  = "default"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetLowPower = "lowpower"
	PresetRear     = "rear"
)

// ErrUnknownPreset is returned for preset names not in PresetNames.
var ErrUnknownPreset = errors.New("camera: unknown preset")

// presets is ordered; PresetNames reports it in this order.
var presets = []struct {
	name  string
	apply func(*Config)
}{
	{PresetDefault, func(*Config) {}},
	{Preset720p, func(c *Config) { c.Width, c.Height = 1280, 720 }},
	// Steadier landmarks, slower detection.
	{Preset1080p, func(c *Config) { c.Width, c.Height = 1920, 1080 }},
	{PresetLowPower, func(c *Config) { c.Width, c.Height, c.Framerate = 320, 240, 15 }},
	// World-facing cameras show the scene as it is.
	{PresetRear, func(c *Config) { c.Mirror = false }},
}

// PresetNames lists the available presets.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

// Preset returns the named configuration, built on DefaultConfig.
func Preset(name string) (Config, error) {
	for _, p := range presets {
		if p.name == name {
			cfg := DefaultConfig()
			p.apply(&cfg)
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("%w %q (have %v)", ErrUnknownPreset, name, PresetNames())
}
