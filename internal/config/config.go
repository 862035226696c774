// Package config loads go-tryon service settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Landmark sources.
const (
	SourceWebSocket = "ws"     // landmarks arrive from a browser detector on /ws/landmarks
	SourceCamera    = "camera" // landmarks come from the local camera via gocv
)

// Default service configuration.
const (
	DefaultPort          = "8080"
	DefaultYuNetModel    = "models/face_detection_yunet.onnx"
	DefaultFaceMeshModel = "models/face_mesh.onnx"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds the service settings.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // text or json; empty follows GO_ENV
	LogFile   string // empty = stdout only

	Preset string // tracking preset: default, slow, aggressive
	Source string // SourceWebSocket or SourceCamera

	CameraDevice  string
	CameraPreset  string
	YuNetModel    string
	FaceMeshModel string

	CatalogFile string // empty = embedded catalog

	Debug         bool
	DebugTracking bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:          DefaultPort,
		LogLevel:      "info",
		Preset:        "default",
		Source:        SourceWebSocket,
		CameraDevice:  "0",
		CameraPreset:  "default",
		YuNetModel:    DefaultYuNetModel,
		FaceMeshModel: DefaultFaceMeshModel,
	}
}

// Load reads .env files (default ".env") into the environment without overriding
// variables that are already set, then returns FromEnv. Missing files are not an error.
// The second result reports whether any file was loaded.
func Load(files ...string) (Config, bool, error) {
	loaded := true
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, false, fmt.Errorf("config: load env file: %w", err)
		}
		loaded = false
	}
	return FromEnv(), loaded, nil
}

// FromEnv applies TRYON_* environment variables over Default.
func FromEnv() Config {
	cfg := Default()
	setString(&cfg.Port, "TRYON_PORT")
	setString(&cfg.LogLevel, "TRYON_LOG_LEVEL")
	setString(&cfg.LogFormat, "TRYON_LOG_FORMAT")
	setString(&cfg.LogFile, "TRYON_LOG_FILE")
	setString(&cfg.Preset, "TRYON_PRESET")
	setString(&cfg.Source, "TRYON_SOURCE")
	setString(&cfg.CameraDevice, "TRYON_CAMERA_DEVICE")
	setString(&cfg.CameraPreset, "TRYON_CAMERA_PRESET")
	setString(&cfg.YuNetModel, "TRYON_YUNET_MODEL")
	setString(&cfg.FaceMeshModel, "TRYON_FACEMESH_MODEL")
	setString(&cfg.CatalogFile, "TRYON_CATALOG_FILE")
	setBool(&cfg.Debug, "TRYON_DEBUG")
	setBool(&cfg.DebugTracking, "TRYON_DEBUG_TRACKING")
	return cfg
}

// Validate checks the settings that are not validated by the components themselves.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.Source {
	case SourceWebSocket:
	case SourceCamera:
		if c.YuNetModel == "" || c.FaceMeshModel == "" {
			return fmt.Errorf("%w: camera source needs both model paths", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q (want %s or %s)", ErrInvalidConfig, c.Source, SourceWebSocket, SourceCamera)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setBool ignores values strconv.ParseBool rejects.
func setBool(dst *bool, key string) {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		*dst = v
	}
}
