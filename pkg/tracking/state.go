package tracking

import (
	"sync"
	"time"

	"github.com/teslashibe/go-tryon/pkg/anchor"
	"github.com/teslashibe/go-tryon/pkg/catalog"
	"github.com/teslashibe/go-tryon/pkg/pose"
	"github.com/teslashibe/go-tryon/pkg/viewport"
)

// Stats are the loop counters.
type Stats struct {
	Frames    uint64    `json:"frames"`     // landmark frames consumed
	Faces     uint64    `json:"faces"`      // frames that produced a pose
	Absent    uint64    `json:"absent"`     // frames with no usable face
	Dropped   uint64    `json:"dropped"`    // frames overwritten before the loop took them
	Renders   uint64    `json:"renders"`    // transforms emitted
	LastFrame time.Time `json:"last_frame"` // when the loop last consumed a frame

	// LastPublished is when the detector last delivered a frame, consumed or not.
	// A stale value with a running loop means the detector has stalled.
	LastPublished time.Time `json:"last_published"`
}

// Status is a point-in-time copy of the application state.
type Status struct {
	SessionID string           `json:"session_id"`
	Running   bool             `json:"running"`
	Asset     catalog.Asset    `json:"asset"`
	Transform anchor.Transform `json:"transform"`
	Pose      *pose.Pose       `json:"pose,omitempty"`
	Viewport  viewport.State   `json:"viewport"`
	Stats     Stats            `json:"stats"`
}

// AppState is the state shared between the render loop and readers such as the web
// server. The tracker is its only writer; every getter returns a copy.
type AppState struct {
	mu        sync.RWMutex
	asset     catalog.Asset
	transform anchor.Transform
	pose      pose.Pose
	present   bool
	viewport  viewport.State
	stats     Stats
}

// Asset returns the selected asset.
func (s *AppState) Asset() catalog.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.asset
}

// Transform returns the last committed transform.
func (s *AppState) Transform() anchor.Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transform
}

// Pose returns the last smoothed pose, if a face is present.
func (s *AppState) Pose() (pose.Pose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose, s.present
}

// Viewport returns the last observed surface state.
func (s *AppState) Viewport() viewport.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// Stats returns the loop counters.
func (s *AppState) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *AppState) setAsset(a catalog.Asset) {
	s.mu.Lock()
	s.asset = a
	s.mu.Unlock()
}

func (s *AppState) setViewport(v viewport.State) {
	s.mu.Lock()
	s.viewport = v
	s.mu.Unlock()
}

func (s *AppState) recordFrame(at time.Time, face bool, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Frames++
	if face {
		s.stats.Faces++
	} else {
		s.stats.Absent++
	}
	s.stats.Dropped = dropped
	s.stats.LastFrame = at
}

func (s *AppState) commit(p pose.Pose, present bool, t anchor.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose, s.present = p, present
	s.transform = t
}

func (s *AppState) rendered() {
	s.mu.Lock()
	s.stats.Renders++
	s.mu.Unlock()
}
