package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-tryon/pkg/debug"
)

// YuNet output row: box (4), five keypoints (10), score.
const (
	yunetColumns  = 15
	yunetScoreCol = 14
)

// YuNetDetector finds face boxes with OpenCV's FaceDetectorYN.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // FaceDetectorYN is not safe for concurrent use
}

// NewYuNet loads the YuNet model at cfg.ModelPath.
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect returns the faces in a BGR image that are at least MinFaceSize wide,
// clipped to the image.
func (d *YuNetDetector) Detect(img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	if faces.Rows() > 0 && faces.Cols() < yunetColumns {
		return nil, fmt.Errorf("unexpected yunet output: %d columns", faces.Cols())
	}

	w, h := float64(img.Cols()), float64(img.Rows())
	var detections []Detection
	for r := 0; r < faces.Rows(); r++ {
		det := parseYuNetRow(func(c int) float64 { return float64(faces.GetFloatAt(r, c)) }, w, h)
		if det.W < d.config.MinFaceSize {
			continue
		}
		detections = append(detections, det)
	}

	debug.TrackLog("yunet detections", "raw", faces.Rows(), "kept", len(detections))
	return detections, nil
}

// parseYuNetRow converts one output row (pixels) to a normalized detection.
func parseYuNetRow(at func(col int) float64, w, h float64) Detection {
	det := Detection{
		X:          at(0) / w,
		Y:          at(1) / h,
		W:          at(2) / w,
		H:          at(3) / h,
		Confidence: at(yunetScoreCol),
	}
	for k := range det.Keypoints {
		det.Keypoints[k] = Point{X: at(4+2*k) / w, Y: at(5+2*k) / h}
	}
	return det.clip()
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
