package detection

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-tryon/pkg/landmark"
)

// FaceMeshConfig configures the face mesh landmark model.
type FaceMeshConfig struct {
	ModelPath string
	InputSize int // Square model input (192 for the MediaPipe mesh)

	// ROIScale grows the face box before cropping; the mesh expects some margin.
	ROIScale float64

	// Output blob names. An empty LandmarksOutput uses the network's default output;
	// an empty PresenceOutput skips the face-presence check.
	LandmarksOutput string
	PresenceOutput  string
	PresenceThresh  float64 // Minimum tracking confidence
}

// DefaultFaceMeshConfig returns defaults for the 468-point MediaPipe mesh exported to ONNX.
func DefaultFaceMeshConfig() FaceMeshConfig {
	return FaceMeshConfig{
		ModelPath:      "models/face_mesh.onnx",
		InputSize:      192,
		ROIScale:       1.5,
		PresenceThresh: 0.5,
	}
}

// FaceMeshDetector runs the face mesh model on a crop around a detected face
type FaceMeshDetector struct {
	net    gocv.Net
	config FaceMeshConfig
	mu     sync.Mutex
}

// NewFaceMesh loads the face mesh model
func NewFaceMesh(cfg FaceMeshConfig) (*FaceMeshDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load face mesh model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &FaceMeshDetector{net: net, config: cfg}, nil
}

// Landmarks fits the mesh inside face
func (d *FaceMeshDetector) Landmarks(img gocv.Mat, face Detection) (landmark.Frame, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	roi := cropRect(face, d.config.ROIScale, img.Cols(), img.Rows())
	if roi.Empty() {
		return nil, nil
	}

	crop := img.Region(roi)
	defer crop.Close()

	size := d.config.InputSize
	blob := gocv.BlobFromImage(crop, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")

	if d.config.PresenceOutput == "" {
		out := d.net.Forward(d.config.LandmarksOutput)
		defer out.Close()
		return d.decode(out, roi, img.Cols(), img.Rows())
	}

	outs := d.net.ForwardLayers([]string{d.config.LandmarksOutput, d.config.PresenceOutput})
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 2 {
		return nil, fmt.Errorf("face mesh: expected 2 outputs, got %d", len(outs))
	}

	presence, err := outs[1].DataPtrFloat32()
	if err != nil || len(presence) == 0 {
		return nil, fmt.Errorf("face mesh: read presence: %v", err)
	}
	if sigmoid(float64(presence[0])) < d.config.PresenceThresh {
		return nil, nil
	}
	return d.decode(outs[0], roi, img.Cols(), img.Rows())
}

func (d *FaceMeshDetector) decode(out gocv.Mat, roi image.Rectangle, imgW, imgH int) (landmark.Frame, error) {
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("face mesh: read landmarks: %w", err)
	}
	return meshToFrame(data, roi, d.config.InputSize, imgW, imgH)
}

// Close releases the model
func (d *FaceMeshDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// cropRect returns the square pixel region around face, grown by scale and clipped
// to the image.
func cropRect(face Detection, scale float64, imgW, imgH int) image.Rectangle {
	cx, cy := face.Center()
	side := math.Max(face.W*float64(imgW), face.H*float64(imgH)) * scale
	half := side / 2

	r := image.Rect(
		int(math.Round(cx*float64(imgW)-half)),
		int(math.Round(cy*float64(imgH)-half)),
		int(math.Round(cx*float64(imgW)+half)),
		int(math.Round(cy*float64(imgH)+half)),
	)
	return r.Intersect(image.Rect(0, 0, imgW, imgH))
}

// meshToFrame maps model output (x, y, z triples in input pixels) back to image-normalized
// coordinates. Z is scaled like X so depth and width share units.
func meshToFrame(data []float32, roi image.Rectangle, inputSize, imgW, imgH int) (landmark.Frame, error) {
	if len(data) < landmark.MinLandmarks*3 {
		return nil, fmt.Errorf("face mesh: expected %d values, got %d", landmark.MinLandmarks*3, len(data))
	}

	sx := float64(roi.Dx()) / float64(inputSize)
	sy := float64(roi.Dy()) / float64(inputSize)

	f := make(landmark.Frame, landmark.MinLandmarks)
	for i := range f {
		px, py, pz := float64(data[3*i]), float64(data[3*i+1]), float64(data[3*i+2])
		f[i] = landmark.Landmark{
			X: (float64(roi.Min.X) + px*sx) / float64(imgW),
			Y: (float64(roi.Min.Y) + py*sy) / float64(imgH),
			Z: pz * sx / float64(imgW),
		}
	}
	return f, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
