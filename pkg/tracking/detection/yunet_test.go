package detection

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// newTestYuNet loads the model from a models/ directory above the test, or skips.
func newTestYuNet(t *testing.T) *YuNetDetector {
	t.Helper()
	modelPath := findModel("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}
	cfg := DefaultConfig()
	cfg.ModelPath = modelPath

	detector, err := NewYuNet(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { detector.Close() })
	return detector
}

func TestNewYuNet_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"
	_, err := NewYuNet(cfg)
	assert.Error(t, err)
}

func TestYuNetDetect_RejectsBadInput(t *testing.T) {
	detector := newTestYuNet(t)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err := detector.Detect(empty)
	assert.Error(t, err)
}

func TestYuNetDetect_NoFaceInSolidImage(t *testing.T) {
	detector := newTestYuNet(t)

	img := solidMat(320, 240, gocv.NewScalar(255, 0, 0, 0))
	defer img.Close()

	detections, err := detector.Detect(img)
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestYuNetDetect_Concurrent(t *testing.T) {
	detector := newTestYuNet(t)
	img := solidMat(320, 240, gocv.NewScalar(100, 100, 100, 0))
	defer img.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := detector.Detect(img)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

// findModel walks up from the working directory looking for models/name.
func findModel(name string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		path := filepath.Join(dir, "models", name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		if parent := filepath.Dir(dir); parent == dir {
			return ""
		}
	}
}

// solidMat returns a BGR image filled with c.
func solidMat(width, height int, c gocv.Scalar) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(c, height, width, gocv.MatTypeCV8UC3)
}
