package scroll

import (
	"sync"
	"time"
)

// Surface is the viewport a Hub samples. It is the only thing allowed to
// know the real scroll position; everything else sees Signals.
type Surface interface {
	// Available reports whether a real viewport exists. A surface that is
	// not available (no client connected yet, server-side rendering) makes
	// starting the sampler a no-op.
	Available() bool

	// ListenScroll attaches a passive scroll listener and returns a
	// function that removes it.
	ListenScroll(fn func()) (remove func())

	// ListenResize attaches a resize listener and returns a function that
	// removes it.
	ListenResize(fn func()) (remove func())

	// ScrollOffset returns the current scroll offsets.
	ScrollOffset() (x, y int)

	// ViewportSize returns the current viewport dimensions.
	ViewportSize() (width, height int)

	// RequestFrame schedules fn to run once before the next paint with
	// the frame timestamp.
	RequestFrame(fn func(ts time.Time))
}

// sampler owns the single pair of listeners on a Surface and coalesces
// scroll events into at most one pending frame.
type sampler struct {
	surface Surface

	mu           sync.Mutex
	attached     bool
	stopped      bool
	scheduled    bool
	removeScroll func()
	removeResize func()
}

func newSampler(surface Surface) *sampler {
	return &sampler{surface: surface}
}

// start attaches the listeners if none are attached. It returns true only
// for the call that attached them, and false on a detached surface.
func (s *sampler) start(onScroll, onResize func()) bool {
	s.mu.Lock()
	if s.attached || s.stopped || s.surface == nil || !s.surface.Available() {
		s.mu.Unlock()
		return false
	}
	// Claim before calling out so a concurrent start cannot attach twice.
	s.attached = true
	s.mu.Unlock()

	removeScroll := s.surface.ListenScroll(onScroll)
	removeResize := s.surface.ListenResize(onResize)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		removeScroll()
		removeResize()
		return false
	}
	s.removeScroll = removeScroll
	s.removeResize = removeResize
	s.mu.Unlock()
	return true
}

// schedule requests a frame unless one is already pending. It returns
// false when the event was coalesced into the pending frame.
func (s *sampler) schedule(frame func(time.Time)) bool {
	s.mu.Lock()
	if s.scheduled || s.stopped {
		s.mu.Unlock()
		return false
	}
	s.scheduled = true
	s.mu.Unlock()

	s.surface.RequestFrame(frame)
	return true
}

// read returns the current offsets and clears the pending flag, so the
// next scroll event can schedule again.
func (s *sampler) read() (x, y int) {
	x, y = s.surface.ScrollOffset()

	s.mu.Lock()
	s.scheduled = false
	s.mu.Unlock()
	return x, y
}

func (s *sampler) isAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached && !s.stopped
}

// stop detaches the listeners. It is idempotent.
func (s *sampler) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	removeScroll, removeResize := s.removeScroll, s.removeResize
	s.removeScroll, s.removeResize = nil, nil
	s.mu.Unlock()

	if removeScroll != nil {
		removeScroll()
	}
	if removeResize != nil {
		removeResize()
	}
}
