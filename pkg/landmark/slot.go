package landmark

import (
	"sync"
	"time"
)

// Slot is a latest-value-wins handoff between the detector (sole writer) and the
// render loop (sole reader). Publishing overwrites any frame that was not yet taken;
// stale frames are never queued.
type Slot struct {
	mu        sync.Mutex
	frame     Frame
	fresh     bool
	published time.Time
	dropped   uint64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores f as the latest frame. A nil frame is a valid "no face" result.
func (s *Slot) Publish(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh {
		s.dropped++
	}
	s.frame = f
	s.fresh = true
	s.published = time.Now()
}

// Take returns the latest frame if one arrived since the previous Take.
// Each published frame is returned at most once.
func (s *Slot) Take() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return nil, false
	}
	f := s.frame
	s.frame = nil
	s.fresh = false
	return f, true
}

// Dropped returns how many frames were overwritten before being taken.
func (s *Slot) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// LastPublished returns when a frame was last published (zero if never).
func (s *Slot) LastPublished() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}
