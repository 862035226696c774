package detection

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

var (
	// ErrCameraUnavailable is returned when the capture device cannot be opened.
	ErrCameraUnavailable = errors.New("detection: camera unavailable")

	// ErrCaptureFailed is returned when the device stops delivering frames.
	ErrCaptureFailed = errors.New("detection: capture failed")
)

// Pipeline turns one image into one landmark frame: box detection, single-face
// selection, mesh fitting.
type Pipeline struct {
	faces Detector
	mesh  LandmarkDetector
}

// NewPipeline combines a face box detector and a mesh model.
func NewPipeline(faces Detector, mesh LandmarkDetector) *Pipeline {
	return &Pipeline{faces: faces, mesh: mesh}
}

// Process returns the landmarks of the best face in img, or nil when there is none.
func (p *Pipeline) Process(img gocv.Mat) (landmark.Frame, error) {
	dets, err := p.faces.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	best := SelectBest(dets)
	if best == nil {
		return nil, nil
	}
	return p.mesh.Landmarks(img, *best)
}

// Close releases both models.
func (p *Pipeline) Close() error {
	return errors.Join(p.faces.Close(), p.mesh.Close())
}

// CameraSource captures frames from a local device and publishes their landmarks.
type CameraSource struct {
	config   camera.Config
	pipeline *Pipeline

	// MaxReadFailures is how many consecutive empty reads end the capture.
	MaxReadFailures int
}

// NewCameraSource creates a source for cfg.
func NewCameraSource(cfg camera.Config, pipeline *Pipeline) *CameraSource {
	return &CameraSource{config: cfg, pipeline: pipeline, MaxReadFailures: 30}
}

// Run captures until ctx is done. Opening or reading the device fails with
// ErrCameraUnavailable or ErrCaptureFailed; per-frame detection errors are logged and
// published as "no face".
func (s *CameraSource) Run(ctx context.Context, publish func(landmark.Frame)) error {
	if problems := s.config.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %v", camera.ErrInvalidConfig, problems)
	}

	capture, err := gocv.OpenVideoCapture(deviceID(s.config.Device))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCameraUnavailable, s.config.Device, err)
	}
	defer capture.Close()
	if !capture.IsOpened() {
		return fmt.Errorf("%w: %s", ErrCameraUnavailable, s.config.Device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(s.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(s.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(s.config.Framerate))
	if s.config.Brightness != 0 {
		capture.Set(gocv.VideoCaptureBrightness, s.config.Brightness)
	}
	if s.config.Exposure != 0 {
		capture.Set(gocv.VideoCaptureExposure, s.config.Exposure)
	}

	log.Info("camera opened",
		"device", s.config.Device,
		"width", s.config.Width,
		"height", s.config.Height,
		"mirror", s.config.Mirror)

	img := gocv.NewMat()
	defer img.Close()

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if ok := capture.Read(&img); !ok || img.Empty() {
			failures++
			if failures >= s.MaxReadFailures {
				return fmt.Errorf("%w: %d consecutive empty reads from %s", ErrCaptureFailed, failures, s.config.Device)
			}
			continue
		}
		failures = 0

		if s.config.Mirror {
			gocv.Flip(img, &img, 1)
		}

		frame, err := s.pipeline.Process(img)
		if err != nil {
			log.Warn("landmark detection failed", "error", err)
			frame = nil
		}
		publish(frame)
	}
}

// deviceID turns "0" into a device index and leaves paths and URLs alone.
func deviceID(device string) interface{} {
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	return device
}
