package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/anchor"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/debug"
	"github.com/teslashibe/go-tryon/pkg/hub"
	"github.com/teslashibe/go-tryon/pkg/pose"
	"github.com/teslashibe/go-tryon/pkg/protocol"
	"github.com/teslashibe/go-tryon/pkg/tracking"
	"github.com/teslashibe/go-tryon/pkg/viewport"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	tracking.Status
	Renderers int `json:"renderers"` // clients on /ws/transforms
	Detectors int `json:"detectors"` // clients on /ws/landmarks
}

// ConfigResponse is the body of GET /api/config.
type ConfigResponse struct {
	RenderIntervalMs float64                   `json:"render_interval_ms"`
	Pose             pose.Config               `json:"pose"`
	Smoothing        tracking.TuningParams     `json:"smoothing"`
	Projection       viewport.ProjectionConfig `json:"projection"`
	Camera           viewport.Intrinsics       `json:"camera"`
}

// ModelAssets groups the variants of one model.
type ModelAssets struct {
	Name     string          `json:"name"`
	Variants []catalog.Asset `json:"variants"`
}

// AssetsResponse is the body of GET /api/assets.
type AssetsResponse struct {
	Selected string        `json:"selected"`
	Default  string        `json:"default"`
	Models   []ModelAssets `json:"models"`
}

// ViewportResponse is the body of the viewport endpoints. DrawingBuffer is the
// surface size in device pixels.
type ViewportResponse struct {
	Changed       bool           `json:"changed"`
	Viewport      viewport.State `json:"viewport"`
	DrawingBuffer [2]int         `json:"drawing_buffer"`
}

func (s *Server) viewportResponse(changed bool) ViewportResponse {
	v := s.tracker.State().Viewport()
	w, h := v.DrawingBufferSize()
	return ViewportResponse{Changed: changed, Viewport: v, DrawingBuffer: [2]int{w, h}}
}

// handleStatus returns the tracker state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Status:    s.tracker.Status(),
		Renderers: s.transformHub.ClientCount(),
		Detectors: s.ingestHub.ClientCount(),
	})
}

// handleConfig returns the estimator constants and loop settings
func (s *Server) handleConfig(c *fiber.Ctx) error {
	cfg := s.tracker.Config()
	return c.JSON(ConfigResponse{
		RenderIntervalMs: float64(cfg.RenderInterval.Microseconds()) / 1000,
		Pose:             cfg.Pose,
		Smoothing:        s.tracker.Tuning(),
		Projection:       cfg.Projection,
		Camera:           s.tracker.State().Viewport().Camera,
	})
}

// handleTransform returns the last emitted transform
func (s *Server) handleTransform(c *fiber.Ctx) error {
	return c.JSON(protocol.TransformData{
		Transform: s.tracker.State().Transform(),
		Asset:     s.tracker.State().Asset().ID(),
	})
}

// handleListAssets returns the catalog grouped by model. ?model= narrows it to one model.
func (s *Server) handleListAssets(c *fiber.Ctx) error {
	names := s.catalog.Models()
	if model := c.Query("model"); model != "" {
		names = []string{model}
	}

	resp := AssetsResponse{
		Selected: s.tracker.State().Asset().ID(),
		Default:  s.catalog.Default().ID(),
		Models:   make([]ModelAssets, 0, len(names)),
	}
	for _, name := range names {
		variants, err := s.catalog.Variants(name)
		if err != nil {
			return errorResponse(c, err, fiber.StatusInternalServerError)
		}
		resp.Models = append(resp.Models, ModelAssets{Name: name, Variants: variants})
	}
	return c.JSON(resp)
}

// handleSelectAsset switches the rendered asset
func (s *Server) handleSelectAsset(c *fiber.Ctx) error {
	var req protocol.SelectData
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	asset, err := s.SelectAsset(req.Selection())
	if err != nil {
		return errorResponse(c, err, fiber.StatusInternalServerError)
	}
	return c.JSON(asset)
}

func (s *Server) handleGetViewport(c *fiber.Ctx) error {
	return c.JSON(s.viewportResponse(false))
}

// handleSetViewport reports a rendering surface resize
func (s *Server) handleSetViewport(c *fiber.Ctx) error {
	var req protocol.ViewportData
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if req.DPR == 0 {
		req.DPR = 1
	}
	changed := s.tracker.Observe(req.Width, req.Height, req.DPR)
	return c.JSON(s.viewportResponse(changed))
}

// handleSetIntrinsics switches the renderer camera description
func (s *Server) handleSetIntrinsics(c *fiber.Ctx) error {
	in := s.tracker.State().Viewport().Camera
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}
	if err := s.tracker.SetIntrinsics(in); err != nil {
		return errorResponse(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(s.viewportResponse(true))
}

// handleGetTuning returns the smoothing time constants
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Tuning())
}

// handleSetTuning replaces the smoothing time constants
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var req tracking.TuningParams
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := s.tracker.ApplyTuning(req); err != nil {
		return errorResponse(c, err, fiber.StatusBadRequest)
	}
	log.Info("tuning updated",
		"rotation_ms", req.RotationTimeConstantMs,
		"position_ms", req.PositionTimeConstantMs,
		"scale_ms", req.ScaleTimeConstantMs)
	return c.JSON(s.tracker.Tuning())
}

// handleGetCamera returns the capture configuration
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.cameras.Map())
}

// handleUpdateCamera applies a partial capture configuration or a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if err := s.cameras.Update(c.Body()); err != nil {
		return errorResponse(c, err, fiber.StatusBadRequest)
	}
	log.Info("camera config updated", "config", s.cameras.Config())
	return c.JSON(s.cameras.Map())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

// handleCameraCapabilities reports the accepted capture ranges
func (s *Server) handleCameraCapabilities(c *fiber.Ctx) error {
	return c.JSON(camera.Supported())
}

// handleClientMessage handles a message from either websocket
func (s *Server) handleClientMessage(c *hub.Client, data []byte) {
	debug.Log("websocket message", "client", c.ID(), "bytes", len(data))
	if reply := s.dispatch(data); reply != nil {
		sendMessage(c, reply)
	}
}

// dispatch applies one websocket message and returns the reply, if any.
func (s *Server) dispatch(data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return errorMessage(err)
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		d, err := msg.GetLandmarksData()
		if err != nil {
			return errorMessage(err)
		}
		if !s.tracker.Publish(d.Frame()) {
			log.Debug("landmark frame dropped, tracker not running", "frame", d.FrameID)
		}
		return nil

	case protocol.TypeViewport:
		d, err := msg.GetViewportData()
		if err != nil {
			return errorMessage(err)
		}
		s.tracker.Observe(d.Width, d.Height, d.DPR)
		return nil

	case protocol.TypeSelect:
		d, err := msg.GetSelectData()
		if err != nil {
			return errorMessage(err)
		}
		if _, err := s.SelectAsset(d.Selection()); err != nil {
			return errorMessage(err)
		}
		return nil

	case protocol.TypePing:
		d, err := msg.GetPingData()
		if err != nil {
			return errorMessage(err)
		}
		reply, err := protocol.NewPongMessage(d.ID, d.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return errorMessage(err)
		}
		return reply

	default:
		return errorMessage(fmt.Errorf("unsupported message type %q", msg.Type))
	}
}

func errorMessage(err error) *protocol.Message {
	msg, encErr := protocol.NewErrorMessage(err)
	if encErr != nil {
		return nil
	}
	return msg
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request body: " + err.Error(),
	})
}

// errorResponse maps domain errors to HTTP status codes.
func errorResponse(c *fiber.Ctx, err error, fallback int) error {
	status := fallback
	switch {
	case errors.Is(err, catalog.ErrUnknownModel), errors.Is(err, catalog.ErrUnknownVariant):
		status = fiber.StatusNotFound
	case errors.Is(err, anchor.ErrInvalidCalibration),
		errors.Is(err, viewport.ErrInvalidIntrinsics),
		errors.Is(err, camera.ErrInvalidConfig):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
