// Package web serves the try-on HTTP API and the landmark/transform websockets.
package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/anchor"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/hub"
	"github.com/teslashibe/go-tryon/pkg/protocol"
	"github.com/teslashibe/go-tryon/pkg/tracking"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the try-on web server. It implements tracking.Renderer by broadcasting
// every transform to /ws/transforms.
type Server struct {
	app  *fiber.App
	port string

	tracker *tracking.Tracker
	catalog *catalog.Registry
	cameras *camera.Manager // nil when landmarks only arrive over websocket

	// Hubs for websocket broadcast
	transformHub *hub.Hub
	ingestHub    *hub.Hub
}

// NewServer creates the server. cameras may be nil.
func NewServer(port string, tracker *tracking.Tracker, reg *catalog.Registry, cameras *camera.Manager) *Server {
	s := &Server{
		port:         port,
		tracker:      tracker,
		catalog:      reg,
		cameras:      cameras,
		transformHub: hub.New("transforms"),
		ingestHub:    hub.New("landmarks"),
	}
	// New renderers get the current asset before the first transform.
	s.transformHub.OnConnect = func(c *hub.Client) {
		if msg, err := protocol.NewAssetMessage(s.tracker.State().Asset()); err == nil {
			sendMessage(c, msg)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-tryon",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	// CORS for the browser detector and renderer
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Get("/transform", s.handleTransform)
	api.Get("/assets", s.handleListAssets)
	api.Post("/assets/select", s.handleSelectAsset)
	api.Get("/viewport", s.handleGetViewport)
	api.Post("/viewport", s.handleSetViewport)
	api.Post("/viewport/camera", s.handleSetIntrinsics)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	if cameras != nil {
		api.Get("/camera", s.handleGetCamera)
		api.Post("/camera", s.handleUpdateCamera)
		api.Get("/camera/presets", s.handleCameraPresets)
		api.Get("/camera/capabilities", s.handleCameraCapabilities)
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/landmarks", websocket.New(func(c *websocket.Conn) {
		hub.NewClient(s.ingestHub, c, s.handleClientMessage).Run()
	}))
	app.Get("/ws/transforms", websocket.New(func(c *websocket.Conn) {
		hub.NewClient(s.transformHub, c, s.handleClientMessage).Run()
	}))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	log.Info("web server listening", "url", "http://localhost:"+s.port)

	go s.transformHub.Run(ctx)
	go s.ingestHub.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			log.Warn("web server shutdown", "error", err)
		}
	}()

	return s.app.Listen(":" + s.port)
}

// Render broadcasts t to every connected renderer.
func (s *Server) Render(t anchor.Transform) {
	if s.transformHub.ClientCount() == 0 {
		return
	}
	msg, err := protocol.NewTransformMessage(t, s.tracker.State().Asset())
	if err != nil {
		log.Error("encode transform", "error", err)
		return
	}
	s.broadcast(msg)
}

// SelectAsset resolves sel against the catalog, switches the tracker to it and tells
// every renderer to load the new model.
func (s *Server) SelectAsset(sel catalog.Selection) (catalog.Asset, error) {
	asset, err := s.catalog.Resolve(sel)
	if err != nil {
		return catalog.Asset{}, err
	}
	if err := s.tracker.SelectAsset(asset); err != nil {
		return catalog.Asset{}, err
	}
	if msg, err := protocol.NewAssetMessage(asset); err == nil {
		s.broadcast(msg)
	}
	return asset, nil
}

func (s *Server) broadcast(msg *protocol.Message) {
	frame, err := hub.Encode(msg)
	if err != nil {
		log.Error("encode message", "type", msg.Type, "error", err)
		return
	}
	s.transformHub.Broadcast(frame)
}

func sendMessage(c *hub.Client, msg *protocol.Message) {
	frame, err := hub.Encode(msg)
	if err != nil {
		log.Error("encode message", "type", msg.Type, "error", err)
		return
	}
	if !c.Send(frame) {
		log.Debug("reply dropped", "client", c.ID(), "type", msg.Type)
	}
}
