// Package landmark defines the per-frame face landmark contract produced by an
// external detector (MediaPipe FaceMesh topology) and consumed by pose estimation.
package landmark

import "math"

// FaceMesh indices read by the pose pipeline.
// See: https://github.com/google/mediapipe/blob/master/mediapipe/modules/face_geometry/data/canonical_face_model_uv_visualization.png
const (
	NoseTip       = 1
	NoseBridge    = 6
	LeftEyeOuter  = 33
	LeftEyeInner  = 133
	RightEyeOuter = 263
	RightEyeInner = 362

	// MinLandmarks is the smallest frame that carries the full face mesh.
	// Refined meshes (iris landmarks) have 478 points and are accepted too.
	MinLandmarks = 468
)

// Landmark is a single face keypoint.
// X and Y are normalized to [0,1] relative to the detector's input frame,
// Z is a detector-relative depth (smaller = closer to the camera).
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is the ordered landmark sequence for one processed video frame.
// A nil or empty frame means no face was found.
type Frame []Landmark

// HasFace reports whether the frame carries a complete face mesh.
func (f Frame) HasFace() bool {
	return len(f) >= MinLandmarks
}

// At returns the landmark at index i. Callers check HasFace first.
func (f Frame) At(i int) Landmark {
	return f[i]
}

// Sub returns a - b component-wise.
func Sub(a, b Landmark) Landmark {
	return Landmark{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Distance3D returns the Euclidean distance between two landmarks using x, y and z.
func Distance3D(a, b Landmark) float64 {
	d := Sub(a, b)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Finite reports whether every coordinate of the landmarks the pipeline reads is a
// finite number. Detectors occasionally emit NaN for occluded points.
func (f Frame) Finite() bool {
	for _, i := range [...]int{NoseTip, NoseBridge, LeftEyeOuter, LeftEyeInner, RightEyeOuter, RightEyeInner} {
		l := f[i]
		if math.IsNaN(l.X) || math.IsNaN(l.Y) || math.IsNaN(l.Z) ||
			math.IsInf(l.X, 0) || math.IsInf(l.Y, 0) || math.IsInf(l.Z, 0) {
			return false
		}
	}
	return true
}
