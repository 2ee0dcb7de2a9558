// Package scrolltest provides a manual clock and an in-memory surface for
// testing code built on package scroll.
//
//	clock := scrolltest.NewClock(time.Unix(0, 0))
//	surface := scrolltest.NewSurface(clock, 1280, 800)
//	hub := scroll.NewHub(surface, scroll.WithClock(clock))
//
//	hub.Register("fx", fx.update, 0)
//	surface.Step(0, 120)                  // scroll event + frame
//	clock.Advance(150 * time.Millisecond) // fires the scroll-end timer
package scrolltest

import (
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// Clock is a manually advanced scroll.Clock. Timers fire synchronously
// from Advance, in deadline order, with Now set to their deadline.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers []*timer
}

// NewClock returns a Clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run when the clock passes now+d.
func (c *Clock) AfterFunc(d time.Duration, f func()) scroll.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	t := &timer{clock: c, id: c.nextID, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.AdvanceTo(target)
}

// AdvanceTo moves the clock to target, firing due timers. Moving
// backwards is ignored.
func (c *Clock) AdvanceTo(target time.Time) {
	for {
		c.mu.Lock()
		if target.Before(c.now) {
			c.mu.Unlock()
			return
		}
		t := c.nextDueLocked(target)
		if t == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = t.at
		t.fired = true
		c.removeLocked(t)
		f := t.f
		c.mu.Unlock()

		f()
	}
}

// Pending returns the number of timers that have not fired or stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) nextDueLocked(target time.Time) *timer {
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].id < c.timers[j].id
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})
	if len(c.timers) == 0 || c.timers[0].at.After(target) {
		return nil
	}
	return c.timers[0]
}

func (c *Clock) removeLocked(t *timer) {
	for i, cur := range c.timers {
		if cur == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

type timer struct {
	clock *Clock
	id    uint64
	at    time.Time
	f     func()
	fired bool
}

// Stop cancels the timer.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired {
		return false
	}
	for _, cur := range t.clock.timers {
		if cur == t {
			t.clock.removeLocked(t)
			return true
		}
	}
	return false
}

// Surface is an in-memory scroll.Surface. Frames requested by the hub are
// queued until RunFrames is called.
type Surface struct {
	clock *Clock

	mu          sync.Mutex
	unavailable bool
	x, y        int
	width       int
	height      int
	nextID      int
	scroll      map[int]func()
	resize      map[int]func()
	frames      []func(time.Time)

	scrollAttaches int
	resizeAttaches int
	frameRequests  int
}

// NewSurface returns an available surface with the given viewport.
func NewSurface(clock *Clock, width, height int) *Surface {
	return &Surface{
		clock:  clock,
		width:  width,
		height: height,
		scroll: make(map[int]func()),
		resize: make(map[int]func()),
	}
}

// SetAvailable toggles the capability check.
func (s *Surface) SetAvailable(available bool) {
	s.mu.Lock()
	s.unavailable = !available
	s.mu.Unlock()
}

// Available implements scroll.Surface.
func (s *Surface) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable
}

// ListenScroll implements scroll.Surface.
func (s *Surface) ListenScroll(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollAttaches++
	return s.add(s.scroll, fn)
}

// ListenResize implements scroll.Surface.
func (s *Surface) ListenResize(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizeAttaches++
	return s.add(s.resize, fn)
}

func (s *Surface) add(set map[int]func(), fn func()) func() {
	s.nextID++
	id := s.nextID
	set[id] = fn
	return func() {
		s.mu.Lock()
		delete(set, id)
		s.mu.Unlock()
	}
}

// ScrollOffset implements scroll.Surface.
func (s *Surface) ScrollOffset() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// ViewportSize implements scroll.Surface.
func (s *Surface) ViewportSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// RequestFrame implements scroll.Surface.
func (s *Surface) RequestFrame(fn func(time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameRequests++
	s.frames = append(s.frames, fn)
}

// ScrollTo moves the viewport and fires the scroll listeners.
func (s *Surface) ScrollTo(x, y int) {
	s.mu.Lock()
	s.x, s.y = x, y
	listeners := collect(s.scroll)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Resize changes the viewport and fires the resize listeners.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	listeners := collect(s.resize)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// RunFrames runs the queued frame callbacks at the clock's current time
// and returns how many ran.
func (s *Surface) RunFrames() int {
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.mu.Unlock()

	now := s.clock.Now()
	for _, fn := range frames {
		fn(now)
	}
	return len(frames)
}

// RunFramesAt runs the queued frame callbacks with ts as the frame
// timestamp, which may differ from the clock's time.
func (s *Surface) RunFramesAt(ts time.Time) int {
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.mu.Unlock()

	for _, fn := range frames {
		fn(ts)
	}
	return len(frames)
}

// Step scrolls to (x, y) and runs the resulting frame.
func (s *Surface) Step(x, y int) {
	s.ScrollTo(x, y)
	s.RunFrames()
}

// ScrollListeners returns the number of attached scroll listeners.
func (s *Surface) ScrollListeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scroll)
}

// ResizeListeners returns the number of attached resize listeners.
func (s *Surface) ResizeListeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resize)
}

// Attaches returns how many times each listener kind was attached.
func (s *Surface) Attaches() (scroll, resize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollAttaches, s.resizeAttaches
}

// FrameRequests returns how many frames were requested in total.
func (s *Surface) FrameRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameRequests
}

func collect(set map[int]func()) []func() {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(), len(ids))
	for i, id := range ids {
		out[i] = set[id]
	}
	return out
}

// Recorder collects the signals delivered to a subscriber.
type Recorder struct {
	mu      sync.Mutex
	signals []scroll.Signal
}

// Record is a scroll callback that appends sig.
func (r *Recorder) Record(sig scroll.Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
}

// Count returns the number of recorded signals.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

// Signals returns a copy of the recorded signals.
func (r *Recorder) Signals() []scroll.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scroll.Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

// Last returns the most recent signal and whether one exists.
func (r *Recorder) Last() (scroll.Signal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.signals) == 0 {
		return scroll.Signal{}, false
	}
	return r.signals[len(r.signals)-1], true
}
