package server

import (
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
)

// sessionSurface is the scroll.Surface of a connected browser. Offsets
// and viewport come from client events; attaching a listener asks the
// client to start reporting that event.
type sessionSurface struct {
	session       *Session
	frameInterval time.Duration

	mu       sync.Mutex
	detached bool
	x, y     int
	width    int
	height   int
	nextID   int
	scroll   map[int]func()
	resize   map[int]func()
}

func newSessionSurface(s *Session, frameInterval time.Duration) *sessionSurface {
	return &sessionSurface{
		session:       s,
		frameInterval: frameInterval,
		scroll:        make(map[int]func()),
		resize:        make(map[int]func()),
	}
}

// Available reports whether the client is still connected.
func (ss *sessionSurface) Available() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return !ss.detached
}

func (ss *sessionSurface) ListenScroll(fn func()) func() {
	return ss.listen(ss.scroll, "scroll", fn)
}

func (ss *sessionSurface) ListenResize(fn func()) func() {
	return ss.listen(ss.resize, "resize", fn)
}

// listen stores fn and tells the client to report event. The client only
// needs to hear about the first listener of each kind.
func (ss *sessionSurface) listen(set map[int]func(), event string, fn func()) func() {
	ss.mu.Lock()
	ss.nextID++
	id := ss.nextID
	first := len(set) == 0
	set[id] = fn
	ss.mu.Unlock()

	if first {
		ss.session.Apply(protocol.NewListenPatch("", event, true))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ss.mu.Lock()
			delete(set, id)
			last := len(set) == 0
			ss.mu.Unlock()
			if last {
				ss.session.Apply(protocol.NewUnlistenPatch("", event))
			}
		})
	}
}

func (ss *sessionSurface) ScrollOffset() (int, int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.x, ss.y
}

func (ss *sessionSurface) ViewportSize() (int, int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.width, ss.height
}

// RequestFrame runs fn on the session loop after one frame interval.
func (ss *sessionSurface) RequestFrame(fn func(time.Time)) {
	time.AfterFunc(ss.frameInterval, func() {
		ss.session.post(func() {
			fn(time.Now())
		})
	})
}

// setScroll records new offsets and notifies the scroll listeners.
func (ss *sessionSurface) setScroll(x, y int) {
	ss.mu.Lock()
	ss.x, ss.y = x, y
	listeners := collect(ss.scroll)
	ss.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// setViewport records new dimensions and notifies the resize listeners.
func (ss *sessionSurface) setViewport(width, height int) {
	ss.mu.Lock()
	ss.width, ss.height = width, height
	listeners := collect(ss.resize)
	ss.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// detach marks the surface unavailable.
func (ss *sessionSurface) detach() {
	ss.mu.Lock()
	ss.detached = true
	ss.mu.Unlock()
}

// collect returns the listeners in attach order.
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
