package scroll

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultQuietWindow is how long the stream must stay quiet before the
// scroll-end notification fires.
const DefaultQuietWindow = 150 * time.Millisecond

// Option configures a Hub.
type Option func(*Hub)

// WithClock sets the clock used for timestamps and the debounce timer.
// Default: SystemClock.
func WithClock(c Clock) Option {
	return func(h *Hub) {
		if c != nil {
			h.clock = c
		}
	}
}

// WithQuietWindow sets the scroll-end debounce window.
// Default: DefaultQuietWindow.
func WithQuietWindow(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.quietWindow = d
		}
	}
}

// WithLogger sets the logger.
// Default: slog.Default() with component=scroll.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithErrorReporter sets the function that receives recovered callback
// panics as *CallbackError. Default: log at error level.
func WithErrorReporter(fn func(error)) Option {
	return func(h *Hub) {
		h.report = fn
	}
}

// WithObserver sets the observer notified of dispatch statistics.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		if o != nil {
			h.observer = o
		}
	}
}

// Hub multiplexes one Surface's scroll stream to many subscribers.
// Construct one per viewport and pass it to every consumer.
type Hub struct {
	clock       Clock
	quietWindow time.Duration
	logger      *slog.Logger
	report      func(error)
	observer    Observer

	registry   *registry
	sampler    *sampler
	dispatcher *dispatcher

	// tickMu serializes frame and scroll-end ticks.
	tickMu sync.Mutex

	// mu guards the fields below.
	mu             sync.Mutex
	computer       computer
	last           Signal
	timer          Timer
	timerGen       uint64
	closed         bool
	detachedLogged bool
}

// NewHub creates a Hub sampling surface. A nil surface behaves as a
// permanently detached environment.
func NewHub(surface Surface, opts ...Option) *Hub {
	h := &Hub{
		clock:       SystemClock{},
		quietWindow: DefaultQuietWindow,
		logger:      slog.Default().With("component", "scroll"),
		observer:    nopObserver{},
		registry:    newRegistry(),
		sampler:     newSampler(surface),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.report == nil {
		h.report = h.logCallbackError
	}
	h.dispatcher = &dispatcher{
		report:   h.report,
		observer: h.observer,
		now:      h.clock.Now,
	}
	return h
}

// Register adds a subscriber and returns a function that removes exactly
// that subscriber. An empty id is replaced by a generated one. Registering
// an id that already exists replaces the previous entry.
//
// The first Register starts the sampler. On a detached surface the
// subscriber is still recorded and the returned function is still valid.
func (h *Hub) Register(id string, callback func(Signal), throttle time.Duration) (unregister func()) {
	if callback == nil {
		return func() {}
	}
	if id == "" {
		id = uuid.NewString()
	}

	// Close cannot clear the registry between the check and the add.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	e, replaced := h.registry.add(id, callback, throttle)
	h.mu.Unlock()

	if replaced != nil {
		h.logger.Debug("subscriber replaced", "id", id, "throttle", e.throttle)
	}
	h.observer.ObserveSubscribers(h.registry.len())

	h.start()

	var once sync.Once
	return func() {
		once.Do(func() {
			if h.registry.remove(e) {
				h.observer.ObserveSubscribers(h.registry.len())
			}
		})
	}
}

// Unregister removes the subscriber registered under id. Unknown ids are
// ignored.
func (h *Hub) Unregister(id string) {
	if h.registry.removeID(id) {
		h.observer.ObserveSubscribers(h.registry.len())
	}
}

// Start attaches the sampler to the surface if it is available and not
// attached yet. Hosts call it when the viewport appears; Register calls
// it implicitly.
func (h *Hub) Start() error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHubClosed
	}
	h.start()
	return nil
}

func (h *Hub) start() {
	if h.sampler.isAttached() {
		return
	}
	if !h.sampler.start(h.handleScroll, h.handleResize) {
		if h.sampler.isAttached() {
			return
		}
		h.mu.Lock()
		logged := h.detachedLogged
		h.detachedLogged = true
		h.mu.Unlock()
		if !logged {
			h.logger.Debug("surface not available, sampler start deferred")
		}
		return
	}

	// Seed the viewport so the first signal carries real dimensions.
	h.handleResize()
	h.logger.Debug("sampler attached")
}

// Attached reports whether the sampler is listening to the surface.
func (h *Hub) Attached() bool {
	return h.sampler.isAttached()
}

// Signal returns the most recently computed signal.
func (h *Hub) Signal() Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	return h.registry.len()
}

// Subscribers returns the registered ids in dispatch order.
func (h *Hub) Subscribers() []string {
	return h.registry.ids()
}

// Close detaches from the surface, stops the debounce timer and drops all
// subscribers. It is idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.timerGen++
	h.mu.Unlock()

	h.sampler.stop()
	h.mu.Lock()
	h.registry.clear()
	h.mu.Unlock()
	h.observer.ObserveSubscribers(0)
}

// handleScroll is the surface's scroll listener.
func (h *Hub) handleScroll() {
	if !h.sampler.schedule(h.frame) {
		h.observer.ObserveCoalesced()
	}
}

// handleResize is the surface's resize listener. Dimensions are stored
// immediately and show up in the next signal.
func (h *Hub) handleResize() {
	w, ht := h.sampler.surface.ViewportSize()

	h.mu.Lock()
	h.computer.setViewport(w, ht)
	h.last.ViewportWidth = h.computer.viewportW
	h.last.ViewportHeight = h.computer.viewportH
	h.mu.Unlock()
}

// frame runs once per scheduled animation frame. ts drives the signal;
// throttles are stamped from the hub clock, the same source settle uses.
func (h *Hub) frame(ts time.Time) {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	x, y := h.sampler.read()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	sig := h.computer.sample(x, y, ts)
	h.last = sig
	h.resetTimerLocked()
	h.mu.Unlock()

	h.dispatcher.dispatch(h.registry.snapshot(), sig, h.clock.Now(), false)
}

// resetTimerLocked replaces the debounce timer. The generation check in
// settle drops a callback that was already queued when Stop lost the race.
func (h *Hub) resetTimerLocked() {
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timerGen++
	gen := h.timerGen
	h.timer = h.clock.AfterFunc(h.quietWindow, func() {
		h.settle(gen)
	})
}

// settle delivers the scroll-end notification.
func (h *Hub) settle(gen uint64) {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	h.mu.Lock()
	if h.closed || gen != h.timerGen {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	now := h.clock.Now()
	sig := h.computer.settle(now)
	h.last = sig
	h.mu.Unlock()

	h.dispatcher.dispatch(h.registry.snapshot(), sig, now, true)
}

func (h *Hub) logCallbackError(err error) {
	var cbErr *CallbackError
	if errors.As(err, &cbErr) {
		h.logger.Error("subscriber panic",
			"id", cbErr.SubscriberID,
			"panic", cbErr.Panic,
			"stack", string(cbErr.Stack))
		return
	}
	h.logger.Error("subscriber error", "error", err)
}
