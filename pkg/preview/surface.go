package preview

import (
	"sort"
	"sync"
	"time"
)

// Surface is a scroll.Surface driven by the Bubble Tea update loop.
// Offsets and dimensions are in terminal cells. Requested frames and
// posted functions run when the model's tick calls Flush, so every hub
// callback runs on the update goroutine.
type Surface struct {
	mu     sync.Mutex
	x, y   int
	width  int
	height int
	nextID int
	scroll map[int]func()
	resize map[int]func()
	frames []func(time.Time)
	posted []func()
}

// NewSurface creates a surface with the given viewport.
func NewSurface(width, height int) *Surface {
	return &Surface{
		width:  width,
		height: height,
		scroll: make(map[int]func()),
		resize: make(map[int]func()),
	}
}

// Available always reports true; a terminal is attached for the life of
// the program.
func (s *Surface) Available() bool { return true }

func (s *Surface) ListenScroll(fn func()) func() { return s.add(s.scroll, fn) }

func (s *Surface) ListenResize(fn func()) func() { return s.add(s.resize, fn) }

func (s *Surface) add(set map[int]func(), fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	set[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(set, id)
		s.mu.Unlock()
	}
}

func (s *Surface) ScrollOffset() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

func (s *Surface) ViewportSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// RequestFrame queues fn for the next Flush.
func (s *Surface) RequestFrame(fn func(time.Time)) {
	s.mu.Lock()
	s.frames = append(s.frames, fn)
	s.mu.Unlock()
}

// Post queues fn for the next Flush. It is safe to call from any
// goroutine and serves as the hub's dispatch target.
func (s *Surface) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
}

// ScrollTo moves the viewport and notifies the scroll listeners.
func (s *Surface) ScrollTo(x, y int) {
	s.mu.Lock()
	s.x, s.y = x, y
	listeners := collect(s.scroll)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Resize changes the viewport and notifies the resize listeners.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	listeners := collect(s.resize)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Flush runs the posted functions, then the requested frames with ts.
// Work queued while flushing waits for the next call. It returns the
// number of functions run.
func (s *Surface) Flush(ts time.Time) int {
	s.mu.Lock()
	posted, frames := s.posted, s.frames
	s.posted, s.frames = nil, nil
	s.mu.Unlock()

	for _, fn := range posted {
		fn()
	}
	for _, fn := range frames {
		fn(ts)
	}
	return len(posted) + len(frames)
}

// Pending returns the number of queued functions.
func (s *Surface) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posted) + len(s.frames)
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
