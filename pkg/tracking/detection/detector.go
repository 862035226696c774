// Package detection produces landmark frames from a local camera using OpenCV:
// a face box detector followed by a face mesh landmark model.
package detection

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-tryon/pkg/landmark"
)

// Point is a normalized image position.
type Point struct {
	X, Y float64
}

// YuNet keypoint order.
const (
	KeypointRightEye = iota
	KeypointLeftEye
	KeypointNose
	KeypointRightMouth
	KeypointLeftMouth
)

// Detection is one face box, normalized to the image size.
type Detection struct {
	X, Y       float64 // Top-left corner
	W, H       float64
	Confidence float64
	Keypoints  [5]Point // See Keypoint* constants
}

// Center returns the center point of the box
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// EyeDistance returns the distance between the eye keypoints in normalized units.
func (d Detection) EyeDistance() float64 {
	l, r := d.Keypoints[KeypointLeftEye], d.Keypoints[KeypointRightEye]
	return math.Hypot(l.X-r.X, l.Y-r.Y)
}

// clip limits the box to the image.
func (d Detection) clip() Detection {
	x0, y0 := clamp01(d.X), clamp01(d.Y)
	x1, y1 := clamp01(d.X+d.W), clamp01(d.Y+d.H)
	d.X, d.Y, d.W, d.H = x0, y0, x1-x0, y1-y0
	return d
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Detector is the interface for face box backends
type Detector interface {
	// Detect finds faces in a BGR image
	Detect(img gocv.Mat) ([]Detection, error)

	// Close releases resources
	Close() error
}

// LandmarkDetector fits the face mesh inside a detected face box.
type LandmarkDetector interface {
	// Landmarks returns the mesh for face, or nil when the model rejects the crop.
	Landmarks(img gocv.Mat, face Detection) (landmark.Frame, error)

	Close() error
}

// Config holds face box detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	NMSThresh        float64 // Box overlap suppression
	TopK             int     // Candidates kept before NMS
	InputWidth       int     // Model input width; updated per image
	InputHeight      int     // Model input height

	// MinFaceSize drops boxes narrower than this fraction of the image; faces that
	// small give a mesh too coarse to anchor eyewear on.
	MinFaceSize float64
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.3,
		TopK:             5000,
		InputWidth:       320,
		InputHeight:      320,
		MinFaceSize:      0.05,
	}
}

// SelectBest picks the single face to fit the mesh on. The wearer is usually the
// largest, most central face in a try-on camera.
// Score: confidence*0.5 + relative area*0.3 + centrality*0.2
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		maxArea = math.Max(maxArea, d.Area())
	}

	bestScore := math.Inf(-1)
	var best *Detection
	for i := range dets {
		score := dets[i].Confidence*0.5 + centrality(dets[i])*0.2
		if maxArea > 0 {
			score += dets[i].Area() / maxArea * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}
	return best
}

// centrality is 1 at the image center and 0 in the corners.
func centrality(d Detection) float64 {
	x, y := d.Center()
	return 1 - math.Hypot(x-0.5, y-0.5)*math.Sqrt2
}
