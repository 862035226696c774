// go-tryon - real-time eyewear try-on anchoring service
// Turns facial landmarks into per-frame eyewear transforms for a 3D renderer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-tryon/internal/config"
	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/debug"
	"github.com/teslashibe/go-tryon/pkg/tracking"
	"github.com/teslashibe/go-tryon/pkg/tracking/detection"
	"github.com/teslashibe/go-tryon/pkg/web"
)

const maxRetryDelay = 30 * time.Second

func main() {
	cfg, envLoaded := parseFlags()

	log.InitWithOptions(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	debug.Enabled, debug.Tracking = cfg.Debug, cfg.DebugTracking
	if envLoaded {
		log.Debug("loaded .env")
	}

	if err := run(cfg); err != nil {
		log.Error("go-tryon failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	reg, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	trackCfg, err := tracking.Preset(cfg.Preset)
	if err != nil {
		return err
	}
	tracker, err := tracking.New(trackCfg, reg.Default())
	if err != nil {
		return err
	}

	var (
		cameras *camera.Manager
		src     tracking.Source
	)
	if cfg.Source == config.SourceCamera {
		camCfg, err := camera.Preset(cfg.CameraPreset)
		if err != nil {
			return err
		}
		camCfg.Device = cfg.CameraDevice
		cameras = camera.NewManager(camCfg)

		pipeline, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer pipeline.Close()
		src = detection.NewManagedSource(cameras, pipeline)
	}

	server := web.NewServer(cfg.Port, tracker, reg, cameras)
	tracker.AddRenderer(server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.Start(ctx); err != nil {
			log.Error("web server stopped", "error", err)
			cancel()
		}
	}()

	log.Info("go-tryon started",
		"session", tracker.SessionID(),
		"source", cfg.Source,
		"preset", cfg.Preset,
		"assets", reg.Count(),
		"asset", reg.Default().ID())

	return runTracker(ctx, tracker, src)
}

// runTracker keeps the render loop alive, retrying with backoff after the landmark
// source fails.
func runTracker(ctx context.Context, tracker *tracking.Tracker, src tracking.Source) error {
	delay := time.Second
	for {
		err := tracker.Run(ctx, src)
		if err == nil {
			return nil
		}
		if !errors.Is(err, tracking.ErrAcquisition) {
			return err
		}

		log.Warn("landmark acquisition failed, retrying", "error", err, "in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func loadCatalog(path string) (*catalog.Registry, error) {
	if path == "" {
		return catalog.LoadEmbedded()
	}
	reg, err := catalog.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", "file", path, "assets", reg.Count())
	return reg, nil
}

func newPipeline(cfg config.Config) (*detection.Pipeline, error) {
	faceCfg := detection.DefaultConfig()
	faceCfg.ModelPath = cfg.YuNetModel
	faces, err := detection.NewYuNet(faceCfg)
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}

	meshCfg := detection.DefaultFaceMeshConfig()
	meshCfg.ModelPath = cfg.FaceMeshModel
	mesh, err := detection.NewFaceMesh(meshCfg)
	if err != nil {
		faces.Close()
		return nil, fmt.Errorf("face mesh: %w", err)
	}
	return detection.NewPipeline(faces, mesh), nil
}

// parseFlags loads .env and the environment, then applies command line overrides.
func parseFlags() (config.Config, bool) {
	cfg, loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	debugFlag := flag.Bool("debug", cfg.Debug, "Enable verbose debug logging")
	debugTracking := flag.Bool("debug-tracking", cfg.DebugTracking, "Log the applied transform on every frame (very verbose)")
	port := flag.String("port", cfg.Port, "HTTP/websocket port (overrides TRYON_PORT)")
	source := flag.String("source", cfg.Source, "Landmark source: ws (browser detector) or camera (local gocv pipeline)")
	preset := flag.String("preset", cfg.Preset, "Tracking preset: default, slow, aggressive")
	catalogFile := flag.String("catalog", cfg.CatalogFile, "Asset catalog JSON (default: embedded)")
	device := flag.String("camera", cfg.CameraDevice, "Camera device index, path or URL")
	cameraPreset := flag.String("camera-preset", cfg.CameraPreset, "Capture preset: "+fmt.Sprint(camera.PresetNames()))
	yunet := flag.String("yunet-model", cfg.YuNetModel, "YuNet face detection ONNX model")
	faceMesh := flag.String("facemesh-model", cfg.FaceMeshModel, "Face mesh ONNX model")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", cfg.LogFormat, "Log format: text or json (default: json when GO_ENV=production)")
	flag.Parse()

	cfg.Debug, cfg.DebugTracking = *debugFlag, *debugTracking
	cfg.Port, cfg.Source, cfg.Preset, cfg.CatalogFile = *port, *source, *preset, *catalogFile
	cfg.CameraDevice, cfg.CameraPreset = *device, *cameraPreset
	cfg.YuNetModel, cfg.FaceMeshModel = *yunet, *faceMesh
	cfg.LogLevel, cfg.LogFormat = *logLevel, *logFormat
	if cfg.Debug && cfg.LogLevel == "info" {
		cfg.LogLevel = "debug"
	}
	return cfg, loaded
}
