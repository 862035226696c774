// Package camera provides runtime-configurable capture settings for the landmark source.
// This follows the same pattern as pkg/tracking for tunable parameters.
package camera

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds all capture configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// Device is the capture device: an index ("0") or a file/stream URL.
	Device string `json:"device" validate:"required"`

	Width     int `json:"width" validate:"min=160,max=3840"`  // pixels
	Height    int `json:"height" validate:"min=120,max=2160"` // pixels
	Framerate int `json:"framerate" validate:"min=1,max=120"`

	// Mirror flips frames horizontally before detection so the wearer sees a mirror image.
	Mirror bool `json:"mirror"`

	// Brightness adjustment (-1.0 to +1.0), 0 leaves the driver default.
	Brightness float64 `json:"brightness" validate:"min=-1,max=1"`

	// Exposure is a driver-specific manual exposure value; 0 = auto.
	Exposure float64 `json:"exposure"`
}

var validate = validator.New()

// ErrInvalidConfig is returned by Manager.Set and Manager.Update for configs that fail validation.
var ErrInvalidConfig = errors.New("camera: invalid config")

// DefaultConfig returns the first device at 640x480, mirrored.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Mirror:    true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	var problems []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		default:
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return problems
}

// Capabilities describes the accepted ranges of Config and the available presets.
type Capabilities struct {
	MinWidth  int      `json:"min_width"`
	MaxWidth  int      `json:"max_width"`
	MinHeight int      `json:"min_height"`
	MaxHeight int      `json:"max_height"`
	MaxFPS    int      `json:"max_fps"`
	Presets   []string `json:"presets"`
}

// Supported returns the capabilities matching the validation rules on Config.
func Supported() Capabilities {
	return Capabilities{
		MinWidth:  160,
		MaxWidth:  3840,
		MinHeight: 120,
		MaxHeight: 2160,
		MaxFPS:    120,
		Presets:   PresetNames(),
	}
}
