package web

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/protocol"
	"github.com/teslashibe/go-tryon/pkg/tracking"
	"github.com/teslashibe/go-tryon/pkg/viewport"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg, err := catalog.LoadEmbedded()
	require.NoError(t, err)
	tr, err := tracking.New(tracking.DefaultConfig(), reg.Default())
	require.NoError(t, err)
	return NewServer("0", tr, reg, camera.NewManager(camera.DefaultConfig()))
}

func doRequest(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.False(t, resp.Running)
	assert.Equal(t, "Cove/Pandan", resp.Asset.ID())
	assert.False(t, resp.Transform.Visible)
	assert.Equal(t, 0, resp.Renderers)
}

func TestConfig(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, code)

	var resp ConfigResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 16.0, resp.RenderIntervalMs)
	assert.Equal(t, 4.0, resp.Pose.RollMultiplier)
	assert.Equal(t, 100.0, resp.Smoothing.RotationTimeConstantMs)
	assert.Equal(t, viewport.Perspective, resp.Camera.Mode)
}

func TestListAssets(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/api/assets", "")
	require.Equal(t, http.StatusOK, code)

	var resp AssetsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Cove/Pandan", resp.Selected)
	assert.Equal(t, "Cove/Pandan", resp.Default)
	assert.Len(t, resp.Models, 8)

	code, body = doRequest(t, s, http.MethodGet, "/api/assets?model=Leto", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Models, 1)
	assert.Len(t, resp.Models[0].Variants, 3)

	code, _ = doRequest(t, s, http.MethodGet, "/api/assets?model=Nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSelectAsset(t *testing.T) {
	s := newTestServer(t)

	code, body := doRequest(t, s, http.MethodPost, "/api/assets/select", `{"model":"Lindy","variant":"Plum"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	var asset catalog.Asset
	require.NoError(t, json.Unmarshal(body, &asset))
	assert.Equal(t, "/rescaled-models/Lindy/plum.glb", asset.Path)
	assert.Equal(t, "Lindy/Plum", s.tracker.State().Asset().ID())

	code, body = doRequest(t, s, http.MethodPost, "/api/assets/select", `{"model":"Leto"}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &asset))
	assert.Equal(t, "Quartz", asset.Variant, "empty variant selects the first")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown model", `{"model":"Nope"}`, http.StatusNotFound},
		{"unknown variant", `{"model":"Cove","variant":"Nope"}`, http.StatusNotFound},
		{"malformed", `{"model":`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		code, _ := doRequest(t, s, http.MethodPost, "/api/assets/select", tc.body)
		assert.Equal(t, tc.want, code, tc.name)
	}
	assert.Equal(t, "Leto/Quartz", s.tracker.State().Asset().ID(), "failed selections keep the current asset")
}

func TestViewport(t *testing.T) {
	s := newTestServer(t)

	code, body := doRequest(t, s, http.MethodPost, "/api/viewport", `{"width":640,"height":480}`)
	require.Equal(t, http.StatusOK, code)
	var resp ViewportResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, 640.0, resp.Viewport.Width)
	assert.Equal(t, 1.0, resp.Viewport.DevicePixelRatio)

	_, body = doRequest(t, s, http.MethodPost, "/api/viewport", `{"width":640,"height":480,"dpr":1}`)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Changed, "identical report is a no-op")

	_, body = doRequest(t, s, http.MethodPost, "/api/viewport", `{"width":640,"height":480,"dpr":2}`)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, [2]int{1280, 960}, resp.DrawingBuffer)

	code, body = doRequest(t, s, http.MethodGet, "/api/viewport", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Changed)
	assert.Equal(t, 2.0, resp.Viewport.DevicePixelRatio)
	assert.Equal(t, [2]int{1280, 960}, resp.DrawingBuffer)

	code, body = doRequest(t, s, http.MethodPost, "/api/viewport/camera", `{"mode":"orthographic"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, viewport.Orthographic, resp.Viewport.Camera.Mode)
	assert.Equal(t, 640.0, resp.Viewport.Width)

	code, _ = doRequest(t, s, http.MethodPost, "/api/viewport/camera", `{"mode":"fisheye"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestTuning(t *testing.T) {
	s := newTestServer(t)

	code, body := doRequest(t, s, http.MethodGet, "/api/tuning", "")
	require.Equal(t, http.StatusOK, code)
	var params tracking.TuningParams
	require.NoError(t, json.Unmarshal(body, &params))
	assert.Equal(t, 100.0, params.RotationTimeConstantMs)

	code, body = doRequest(t, s, http.MethodPost, "/api/tuning",
		`{"rotation_time_constant_ms":200,"position_time_constant_ms":30,"scale_time_constant_ms":30}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &params))
	assert.Equal(t, 200.0, params.RotationTimeConstantMs)

	code, _ = doRequest(t, s, http.MethodPost, "/api/tuning", `{"rotation_time_constant_ms":-5}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCamera(t *testing.T) {
	s := newTestServer(t)

	code, body := doRequest(t, s, http.MethodGet, "/api/camera", "")
	require.Equal(t, http.StatusOK, code)
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &cfg))
	assert.Equal(t, 640.0, cfg["width"])

	code, body = doRequest(t, s, http.MethodPost, "/api/camera", `{"width":1280,"height":720}`)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, 1280, s.cameras.Config().Width)

	code, _ = doRequest(t, s, http.MethodPost, "/api/camera", `{"width":10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = doRequest(t, s, http.MethodPost, "/api/camera", `{"preset":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, s, http.MethodPost, "/api/camera", `{"width":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 1280, s.cameras.Config().Width, "malformed body changes nothing")

	code, body = doRequest(t, s, http.MethodGet, "/api/camera/presets", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "lowpower")

	code, body = doRequest(t, s, http.MethodGet, "/api/camera/capabilities", "")
	require.Equal(t, http.StatusOK, code)
	var caps camera.Capabilities
	require.NoError(t, json.Unmarshal(body, &caps))
	assert.Equal(t, 3840, caps.MaxWidth)
	assert.Contains(t, caps.Presets, camera.PresetRear)
}

func TestCameraRoutesNeedManager(t *testing.T) {
	reg, err := catalog.LoadEmbedded()
	require.NoError(t, err)
	tr, err := tracking.New(tracking.DefaultConfig(), reg.Default())
	require.NoError(t, err)
	s := NewServer("0", tr, reg, nil)

	code, _ := doRequest(t, s, http.MethodGet, "/api/camera", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWebSocketRoutesRequireUpgrade(t *testing.T) {
	s := newTestServer(t)
	code, _ := doRequest(t, s, http.MethodGet, "/ws/transforms", "")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}

func TestDispatch(t *testing.T) {
	s := newTestServer(t)

	mustBytes := func(m *protocol.Message, err error) []byte {
		require.NoError(t, err)
		b, err := m.Bytes()
		require.NoError(t, err)
		return b
	}

	t.Run("ping", func(t *testing.T) {
		reply := s.dispatch(mustBytes(protocol.NewPingMessage("p1")))
		require.NotNil(t, reply)
		assert.Equal(t, protocol.TypePong, reply.Type)
		pong, err := reply.GetPongData()
		require.NoError(t, err)
		assert.Equal(t, "p1", pong.ID)
		assert.GreaterOrEqual(t, pong.LatencyMs, int64(0))
	})

	t.Run("viewport", func(t *testing.T) {
		assert.Nil(t, s.dispatch(mustBytes(protocol.NewViewportMessage(800, 600, 2))))
		vp := s.tracker.State().Viewport()
		assert.Equal(t, 800.0, vp.Width)
		assert.Equal(t, 2.0, vp.DevicePixelRatio)
	})

	t.Run("select", func(t *testing.T) {
		assert.Nil(t, s.dispatch(mustBytes(protocol.NewSelectMessage("Jax", "Pickle"))))
		assert.Equal(t, "Jax/Pickle", s.tracker.State().Asset().ID())

		reply := s.dispatch(mustBytes(protocol.NewSelectMessage("Nope", "")))
		require.NotNil(t, reply)
		assert.Equal(t, protocol.TypeError, reply.Type)
	})

	t.Run("landmarks while stopped", func(t *testing.T) {
		assert.Nil(t, s.dispatch(mustBytes(protocol.NewLandmarksMessage(nil, 1))))
		assert.Equal(t, uint64(0), s.tracker.State().Stats().Frames)
	})

	t.Run("rejects", func(t *testing.T) {
		for _, raw := range []string{`not json`, `{"data":{}}`, `{"type":"transform","data":{}}`} {
			reply := s.dispatch([]byte(raw))
			require.NotNil(t, reply, raw)
			assert.Equal(t, protocol.TypeError, reply.Type, raw)
		}
	})
}

func TestRenderWithoutClients(t *testing.T) {
	s := newTestServer(t)
	assert.NotPanics(t, func() {
		s.Render(s.tracker.State().Transform())
	})
}
