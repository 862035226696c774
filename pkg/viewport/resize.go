package viewport

import (
	"sync"

	"github.com/teslashibe/go-tryon/pkg/debug"
)

// ResizeHandler observes rendering-surface size reports and keeps the projector's
// camera consistent with them. It is the only writer of viewport state.
type ResizeHandler struct {
	mu         sync.Mutex
	projector  *Projector
	intrinsics Intrinsics
	state      State
	generation uint64

	// OnResize is called after a new camera is published.
	OnResize func(State)
}

// NewResizeHandler creates a handler that publishes cameras to projector.
func NewResizeHandler(projector *Projector, intrinsics Intrinsics) *ResizeHandler {
	return &ResizeHandler{
		projector:  projector,
		intrinsics: intrinsics,
		state:      State{Camera: intrinsics, DevicePixelRatio: 1},
	}
}

// Observe reports the surface's content-box size in CSS pixels and its device pixel
// ratio. Size and aspect are published together as one new camera. Identical reports
// are no-ops; it returns whether a new camera was published.
func (h *ResizeHandler) Observe(width, height, dpr float64) bool {
	width, height, dpr = sanitize(width, height, dpr)

	h.mu.Lock()
	if h.generation > 0 && h.state.Width == width && h.state.Height == height && h.state.DevicePixelRatio == dpr {
		h.mu.Unlock()
		return false
	}
	state := State{Width: width, Height: height, DevicePixelRatio: dpr, Camera: h.intrinsics}
	h.publishLocked(state)
	callback := h.OnResize
	h.mu.Unlock()

	debug.TrackLog("viewport resized", "width", width, "height", height, "dpr", dpr, "mode", state.Camera.Mode)
	if callback != nil {
		callback(state)
	}
	return true
}

// SetIntrinsics switches the camera description (e.g. perspective to orthographic)
// and republishes for the current size.
func (h *ResizeHandler) SetIntrinsics(in Intrinsics) error {
	if err := in.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	h.intrinsics = in
	state := h.state
	state.Camera = in
	h.publishLocked(state)
	callback := h.OnResize
	h.mu.Unlock()

	if callback != nil {
		callback(state)
	}
	return nil
}

// State returns the last observed surface state.
func (h *ResizeHandler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *ResizeHandler) publishLocked(state State) {
	h.generation++
	h.state = state
	h.projector.SetCamera(NewCamera(state, h.generation))
}
