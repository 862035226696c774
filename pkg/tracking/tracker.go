// Package tracking runs the render loop that turns landmark frames into eyewear
// transforms: estimate, smooth, project, bind, emit.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/anchor"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/debug"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/pose"
	"github.com/teslashibe/go-tryon/pkg/smoothing"
	"github.com/teslashibe/go-tryon/pkg/viewport"
)

var (
	// ErrAcquisition is the sentinel matched by every landmark acquisition failure.
	ErrAcquisition = errors.New("tracking: landmark acquisition failed")

	// ErrAlreadyRunning is returned when Run is called on a running tracker.
	ErrAlreadyRunning = errors.New("tracking: already running")
)

// AcquisitionError reports that the landmark source stopped with an error
// (camera permission denied, device unavailable, model failed to load).
// Calling Run again retries acquisition.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("tracking: landmark acquisition failed: %v", e.Err)
}

// Unwrap exposes both ErrAcquisition and the cause to errors.Is/As.
func (e *AcquisitionError) Unwrap() []error {
	return []error{ErrAcquisition, e.Err}
}

// Source produces landmark frames. Run blocks until ctx is done or acquisition fails
// and calls publish for every detector result (nil frame = no face).
type Source interface {
	Run(ctx context.Context, publish func(landmark.Frame)) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, publish func(landmark.Frame)) error

// Run calls f.
func (f SourceFunc) Run(ctx context.Context, publish func(landmark.Frame)) error {
	return f(ctx, publish)
}

// Renderer receives one transform per render tick.
// Render is called on the loop goroutine and must not block.
type Renderer interface {
	Render(t anchor.Transform)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(t anchor.Transform)

// Render calls f.
func (f RendererFunc) Render(t anchor.Transform) {
	f(t)
}

// Tracker owns the whole pipeline for one try-on session
type Tracker struct {
	config    Config
	sessionID string

	// Core components
	estimator *pose.Estimator
	smoother  *smoothing.Smoother
	projector *viewport.Projector
	resize    *viewport.ResizeHandler
	binding   *anchor.Binding
	slot      *landmark.Slot
	state     *AppState

	mu        sync.RWMutex
	renderers []Renderer

	// runMu orders Publish against teardown so no frame lands after the final drain.
	runMu          sync.RWMutex
	alive          atomic.Bool
	calibrationGen atomic.Uint64
	tuning         atomic.Pointer[smoothing.Config] // pending
	appliedTuning  atomic.Pointer[smoothing.Config]

	// Loop-owned
	lastCameraGen      uint64
	lastCalibrationGen uint64
	lastFrameAt        time.Time
	lastPresent        bool
}

// New creates a tracker showing asset.
func New(config Config, asset catalog.Asset) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	binding, err := anchor.NewBinding(asset.Calibration)
	if err != nil {
		return nil, err
	}

	projector := viewport.NewProjector(config.Projection)
	t := &Tracker{
		config:    config,
		sessionID: uuid.NewString(),
		estimator: pose.NewEstimator(config.Pose),
		smoother:  smoothing.New(config.Smoothing),
		projector: projector,
		resize:    viewport.NewResizeHandler(projector, config.Camera),
		binding:   binding,
		slot:      landmark.NewSlot(),
		state:     &AppState{},
	}
	t.state.setAsset(asset)
	t.state.setViewport(t.resize.State())
	t.resize.OnResize = t.state.setViewport
	return t, nil
}

// SessionID identifies this tracker in logs and status responses.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Config returns the configuration the tracker was created with.
func (t *Tracker) Config() Config {
	return t.config
}

// State returns the shared application state.
func (t *Tracker) State() *AppState {
	return t.state
}

// Status returns a copy of the current state.
func (t *Tracker) Status() Status {
	s := Status{
		SessionID: t.sessionID,
		Running:   t.alive.Load(),
		Asset:     t.state.Asset(),
		Transform: t.state.Transform(),
		Viewport:  t.state.Viewport(),
		Stats:     t.state.Stats(),
	}
	s.Stats.LastPublished = t.slot.LastPublished()
	if p, ok := t.state.Pose(); ok {
		s.Pose = &p
	}
	return s
}

// Running reports whether the render loop is active.
func (t *Tracker) Running() bool {
	return t.alive.Load()
}

// AddRenderer registers a transform consumer.
func (t *Tracker) AddRenderer(r Renderer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderers = append(t.renderers, r)
}

// Publish hands a detector result to the loop. Frames published while the loop is not
// running are discarded; it reports whether the frame was accepted.
func (t *Tracker) Publish(f landmark.Frame) bool {
	t.runMu.RLock()
	defer t.runMu.RUnlock()
	if !t.alive.Load() {
		return false
	}
	t.slot.Publish(f)
	return true
}

// Observe reports the rendering surface size; see viewport.ResizeHandler.Observe.
func (t *Tracker) Observe(width, height, dpr float64) bool {
	return t.resize.Observe(width, height, dpr)
}

// SetIntrinsics switches the camera description.
func (t *Tracker) SetIntrinsics(in viewport.Intrinsics) error {
	return t.resize.SetIntrinsics(in)
}

// SelectAsset switches the rendered asset. The new calibration applies from the next
// tick, even if no new landmark frame arrives.
func (t *Tracker) SelectAsset(a catalog.Asset) error {
	if err := t.binding.SetCalibration(a.Calibration); err != nil {
		return err
	}
	t.state.setAsset(a)
	t.calibrationGen.Add(1)
	log.Info("asset selected", "session", t.sessionID, "asset", a.ID())
	return nil
}

// Run drives the render loop until ctx is done. When src is non-nil it is started on
// its own goroutine and its frames feed the loop; if it fails, Run stops and returns an
// *AcquisitionError. After Run returns no frame is accepted and no transform is emitted.
func (t *Tracker) Run(ctx context.Context, src Source) error {
	if !t.alive.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	var srcErr chan error
	defer func() {
		cancel()
		// The source owns the device and the models; Run returns only once it let go.
		if srcErr != nil {
			<-srcErr
		}
		t.runMu.Lock()
		t.alive.Store(false)
		// A frame left in the slot would be stale for the next run.
		t.slot.Take()
		t.runMu.Unlock()
	}()

	if src != nil {
		srcErr = make(chan error, 1)
		go func() {
			srcErr <- src.Run(ctx, func(f landmark.Frame) { t.Publish(f) })
		}()
	}

	ticker := time.NewTicker(t.config.RenderInterval)
	defer ticker.Stop()

	var stats <-chan time.Time
	if t.config.StatsInterval > 0 {
		statsTicker := time.NewTicker(t.config.StatsInterval)
		defer statsTicker.Stop()
		stats = statsTicker.C
	}

	log.Info("tracker started",
		"session", t.sessionID,
		"interval", t.config.RenderInterval,
		"asset", t.state.Asset().ID())

	for {
		select {
		case <-ctx.Done():
			log.Info("tracker stopped", "session", t.sessionID)
			return nil

		case err := <-srcErr:
			srcErr = nil
			if err != nil && ctx.Err() == nil {
				log.Error("landmark source failed", "session", t.sessionID, "error", err)
				return &AcquisitionError{Err: err}
			}
			// Source finished cleanly; keep rendering frames published by other means.

		case now := <-ticker.C:
			t.tick(now)

		case <-stats:
			s := t.state.Stats()
			log.Debug("tracker stats",
				"session", t.sessionID,
				"frames", s.Frames,
				"faces", s.Faces,
				"absent", s.Absent,
				"dropped", s.Dropped,
				"renders", s.Renders)
		}
	}
}

// SetTuning schedules new smoothing time constants; the loop applies them on its next tick.
func (t *Tracker) SetTuning(cfg smoothing.Config) error {
	if cfg.RotationTimeConstant < 0 || cfg.PositionTimeConstant < 0 || cfg.ScaleTimeConstant < 0 {
		return fmt.Errorf("tracking: smoothing time constants must not be negative")
	}
	t.tuning.Store(&cfg)
	return nil
}

// tick runs one render step. Camera and calibration are read once so every value used
// in this frame comes from the same snapshot.
func (t *Tracker) tick(now time.Time) anchor.Transform {
	if cfg := t.tuning.Swap(nil); cfg != nil {
		t.smoother.SetConfig(*cfg)
		t.appliedTuning.Store(cfg)
	}

	cam := t.projector.Camera()
	camGen := cam.Generation()
	calGen := t.calibrationGen.Load()
	frame, fresh := t.slot.Take()

	if !fresh && camGen == t.lastCameraGen && calGen == t.lastCalibrationGen {
		tr := t.state.Transform()
		t.emit(tr)
		return tr
	}
	t.lastCameraGen, t.lastCalibrationGen = camGen, calGen

	var (
		p       pose.Pose
		present bool
	)
	if fresh {
		dt := t.config.RenderInterval
		if !t.lastFrameAt.IsZero() {
			dt = now.Sub(t.lastFrameAt)
		}
		t.lastFrameAt = now

		raw, ok := t.estimator.Estimate(frame)
		t.state.recordFrame(now, ok, t.slot.Dropped())
		p, present = t.smoother.Update(raw, ok, dt)

		if present != t.lastPresent {
			log.Debug("face presence changed", "session", t.sessionID, "present", present)
			t.lastPresent = present
		}
	} else {
		p, present = t.smoother.Current()
	}

	tr := t.bind(cam, p, present)
	t.state.commit(p, present, tr)
	t.emit(tr)
	return tr
}

func (t *Tracker) bind(cam *viewport.Camera, p pose.Pose, present bool) anchor.Transform {
	if !present {
		return anchor.Hidden()
	}
	cal := t.binding.Calibration()
	world, ok := cam.Project(p.Position, cal.Offset(), t.projector.Config())
	if !ok {
		return anchor.Hidden()
	}
	tr := anchor.Bind(p, true, world, cal)
	debug.TrackLog("transform applied",
		"position", tr.Position,
		"rotation", tr.Euler.String(),
		"scale", tr.Scale)
	return tr
}

func (t *Tracker) emit(tr anchor.Transform) {
	t.mu.RLock()
	renderers := t.renderers
	t.mu.RUnlock()

	for _, r := range renderers {
		r.Render(tr)
	}
	t.state.rendered()
}
