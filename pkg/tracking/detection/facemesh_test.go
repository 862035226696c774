package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/landmark"
)

func TestCropRect(t *testing.T) {
	tests := []struct {
		name   string
		face   Detection
		scale  float64
		expect image.Rectangle
	}{
		{
			name:   "centered square grows",
			face:   Detection{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			scale:  1.0,
			expect: image.Rect(100, 100, 300, 300),
		},
		{
			name:   "uses the longer side",
			face:   Detection{X: 0.4, Y: 0.3, W: 0.2, H: 0.4},
			scale:  1.0,
			expect: image.Rect(120, 120, 280, 280),
		},
		{
			name:   "clipped at the border",
			face:   Detection{X: 0, Y: 0, W: 0.2, H: 0.2},
			scale:  2.0,
			expect: image.Rect(0, 0, 120, 120),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, cropRect(tc.face, tc.scale, 400, 400))
		})
	}
}

func TestMeshToFrame(t *testing.T) {
	data := make([]float32, landmark.MinLandmarks*3)
	// Point 1 at the crop center, point 2 at the crop's top-left corner
	data[3], data[4], data[5] = 96, 96, 19.2
	data[6], data[7], data[8] = 0, 0, 0

	roi := image.Rect(100, 50, 292, 242) // 192x192 at (100,50)
	f, err := meshToFrame(data, roi, 192, 640, 480)
	require.NoError(t, err)
	require.True(t, f.HasFace())

	assert.InDelta(t, 196.0/640, f[1].X, 1e-9)
	assert.InDelta(t, 146.0/480, f[1].Y, 1e-9)
	assert.InDelta(t, 19.2/640, f[1].Z, 1e-6)
	assert.InDelta(t, 100.0/640, f[2].X, 1e-9)
	assert.InDelta(t, 50.0/480, f[2].Y, 1e-9)

	_, err = meshToFrame(data[:100], roi, 192, 640, 480)
	assert.Error(t, err)
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-12)
	assert.Greater(t, sigmoid(4), 0.98)
	assert.Less(t, sigmoid(-4), 0.02)
}

func TestDeviceID(t *testing.T) {
	assert.Equal(t, 0, deviceID("0"))
	assert.Equal(t, 2, deviceID("2"))
	assert.Equal(t, "/dev/video0", deviceID("/dev/video0"))
	assert.Equal(t, "rtsp://cam/stream", deviceID("rtsp://cam/stream"))
}

type fakeDetector struct {
	dets   []Detection
	err    error
	closed bool
}

func (f *fakeDetector) Detect(gocv.Mat) ([]Detection, error) { return f.dets, f.err }
func (f *fakeDetector) Close() error                         { f.closed = true; return nil }

type fakeMesh struct {
	got    *Detection
	closed bool
}

func (f *fakeMesh) Landmarks(_ gocv.Mat, face Detection) (landmark.Frame, error) {
	f.got = &face
	return make(landmark.Frame, landmark.MinLandmarks), nil
}
func (f *fakeMesh) Close() error { f.closed = true; return nil }

func TestPipeline_Process(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	faces := &fakeDetector{}
	mesh := &fakeMesh{}
	p := NewPipeline(faces, mesh)

	frame, err := p.Process(img)
	require.NoError(t, err)
	assert.Nil(t, frame, "no face box means no face")
	assert.Nil(t, mesh.got)

	faces.dets = []Detection{
		{X: 0.1, Y: 0.1, W: 0.1, H: 0.1, Confidence: 0.6},
		{X: 0.4, Y: 0.4, W: 0.3, H: 0.3, Confidence: 0.9},
	}
	frame, err = p.Process(img)
	require.NoError(t, err)
	assert.True(t, frame.HasFace())
	require.NotNil(t, mesh.got)
	assert.Equal(t, 0.9, mesh.got.Confidence, "only the best face is meshed")

	faces.err = errors.New("inference failed")
	_, err = p.Process(img)
	assert.Error(t, err)

	require.NoError(t, p.Close())
	assert.True(t, faces.closed)
	assert.True(t, mesh.closed)
}

func TestCameraSource_Errors(t *testing.T) {
	p := NewPipeline(&fakeDetector{}, &fakeMesh{})

	bad := camera.DefaultConfig()
	bad.Width = 1
	err := NewCameraSource(bad, p).Run(context.Background(), func(landmark.Frame) {})
	assert.ErrorIs(t, err, camera.ErrInvalidConfig)

	missing := camera.DefaultConfig()
	missing.Device = "/nonexistent/capture.mp4"
	err = NewCameraSource(missing, p).Run(context.Background(), func(landmark.Frame) {})
	assert.ErrorIs(t, err, ErrCameraUnavailable)
}
