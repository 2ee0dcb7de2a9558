package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/scrollkit/pkg/effects"
	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/middleware"
	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// Session is one connected browser tab.
type Session struct {
	ID        string
	Path      string
	CreatedAt time.Time

	// Connection
	conn   *websocket.Conn
	mu     sync.Mutex // Protects conn writes
	closed atomic.Bool

	sendSeq    atomic.Uint64
	lastActive atomic.Int64 // Unix nanoseconds

	// Scroll state, owned by the event loop
	surface *sessionSurface
	hub     *scroll.Hub
	layout  *effects.Layout
	effects *effects.Set

	// Patches produced by the current loop step
	pendingMu sync.Mutex
	pending   []protocol.Patch

	// Channels
	dispatchCh chan func()
	done       chan struct{}
	closeOnce  sync.Once

	config  *ServerConfig
	metrics *middleware.Metrics
	logger  *slog.Logger

	// Stats
	eventCount atomic.Uint64
	patchCount atomic.Uint64
	bytesSent  atomic.Uint64
	bytesRecv  atomic.Uint64
}

// newSession creates a session for hello. page may be nil, in which case
// no effects run.
func newSession(conn *websocket.Conn, hello *protocol.ClientHello, page *manifest.Page, config *ServerConfig, metrics *middleware.Metrics, logger *slog.Logger) *Session {
	now := time.Now()
	id := uuid.NewString()

	s := &Session{
		ID:         id,
		Path:       hello.Path,
		CreatedAt:  now,
		conn:       conn,
		layout:     effects.NewLayout(),
		dispatchCh: make(chan func(), config.MaxDispatchQueue),
		done:       make(chan struct{}),
		config:     config,
		metrics:    metrics,
		logger:     logger.With("session_id", id, "path", hello.Path),
	}
	s.lastActive.Store(now.UnixNano())

	s.surface = newSessionSurface(s, config.FrameInterval)
	s.surface.x, s.surface.y = max(hello.ScrollX, 0), max(hello.ScrollY, 0)
	s.surface.width, s.surface.height = int(hello.ViewportW), int(hello.ViewportH)

	s.hub = scroll.NewHub(s.surface,
		scroll.WithClock(scroll.DispatchClock{Dispatch: s.post}),
		scroll.WithQuietWindow(config.QuietWindow),
		scroll.WithLogger(s.logger.With("component", "scroll")),
		scroll.WithObserver(metrics.Observer()),
	)
	s.effects = effects.Build(page, s.layout, s)
	return s
}

// Hub returns the session's scroll hub.
func (s *Session) Hub() *scroll.Hub {
	return s.hub
}

// Effects returns the effects mounted for the session's page.
func (s *Session) Effects() *effects.Set {
	return s.effects
}

// Apply queues patches for the next flush. It implements effects.Sink.
func (s *Session) Apply(patches ...protocol.Patch) {
	if len(patches) == 0 {
		return
	}
	s.pendingMu.Lock()
	s.pending = append(s.pending, patches...)
	s.pendingMu.Unlock()
}

// Serve runs the session until the connection ends. The effects are
// mounted on the loop, followed by one frame for the initial position.
func (s *Session) Serve() {
	go s.EventLoop()
	go s.WriteLoop()

	s.Dispatch(func() {
		s.effects.Mount(s.hub)
		x, y := s.surface.ScrollOffset()
		s.surface.setScroll(x, y)
	})

	s.ReadLoop()
}

// Dispatch queues a function to run on the session's event loop. It is
// safe to call from any goroutine. Functions queued after Close are
// dropped.
func (s *Session) Dispatch(fn func()) {
	if s.closed.Load() {
		return
	}
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	default:
		s.logger.Warn("dispatch queue full, discarding callback")
		s.metrics.RecordWebSocketError(ErrDispatchQueueFull)
	}
}

// post queues a hub callback on the event loop, waiting for room when
// the queue is full. Frame and scroll-end callbacks must run: the sampler
// keeps its pending flag until its frame does. post runs on timer
// goroutines, never on the loop itself.
func (s *Session) post(fn func()) {
	if s.closed.Load() {
		return
	}
	select {
	case s.dispatchCh <- fn:
		return
	case <-s.done:
		return
	default:
	}

	s.metrics.RecordWebSocketError(ErrDispatchQueueFull)
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// handleEvent applies a client event. It runs on the event loop.
func (s *Session) handleEvent(ev *protocol.Event) {
	s.eventCount.Add(1)

	switch ev.Type {
	case protocol.EventScroll:
		s.surface.setScroll(max(ev.Scroll.X, 0), max(ev.Scroll.Y, 0))

	case protocol.EventResize:
		s.surface.setViewport(ev.Resize.Width, ev.Resize.Height)

	case protocol.EventLayout:
		s.layout.Set(ev.Layout.Sections)
		s.effects.Relayout(s.hub.Signal())
	}
}

// flush sends the queued patches. Large batches are split so every
// frame stays within the protocol limits.
func (s *Session) flush() {
	s.pendingMu.Lock()
	patches := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	if len(patches) == 0 {
		return
	}

	var frames [][]byte
	for start := 0; start < len(patches); start += protocol.MaxPatchesPerFrame {
		end := min(start+protocol.MaxPatchesPerFrame, len(patches))
		frames = s.encodePatches(frames, patches[start:end])
	}

	for i, payload := range frames {
		frame := protocol.NewFrame(protocol.FramePatches, payload)
		if i == len(frames)-1 {
			frame.Flags |= protocol.FlagFinal
		}
		if err := s.writeFrame(frame); err != nil {
			return
		}
	}
	s.patchCount.Add(uint64(len(patches)))
	s.metrics.RecordPatches(len(patches))
}

// encodePatches appends the payloads for patches, halving the batch
// until each payload fits in a frame.
func (s *Session) encodePatches(out [][]byte, patches []protocol.Patch) [][]byte {
	payload := protocol.EncodePatches(&protocol.PatchesFrame{
		Seq:     s.sendSeq.Load() + 1,
		Patches: patches,
	})
	if len(payload) <= protocol.MaxPayloadSize {
		s.sendSeq.Add(1)
		return append(out, payload)
	}
	if len(patches) == 1 {
		s.logger.Warn("dropping oversized patch", "patch", patches[0].String())
		return out
	}
	mid := len(patches) / 2
	out = s.encodePatches(out, patches[:mid])
	return s.encodePatches(out, patches[mid:])
}

// writeFrame writes one frame to the connection.
func (s *Session) writeFrame(frame *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	data := frame.Encode()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("write error", "frame", frame.Type, "error", err)
		s.metrics.RecordWebSocketError(err)
		return &SessionError{SessionID: s.ID, Op: "write " + frame.Type.String(), Err: err}
	}
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

// sendErrorMessage sends a non-fatal error frame to the client.
func (s *Session) sendErrorMessage(code protocol.ErrorCode, message string) {
	payload := protocol.EncodeErrorMessage(protocol.NewError(code, message))
	s.writeFrame(protocol.NewFrame(protocol.FrameError, payload))
}

// sendPing sends a heartbeat ping to the client.
func (s *Session) sendPing() error {
	payload := protocol.EncodeControl(protocol.NewPing(uint64(time.Now().UnixMilli())))
	return s.writeFrame(protocol.NewFrame(protocol.FrameControl, payload))
}

// sendPong answers a client ping.
func (s *Session) sendPong(timestamp uint64) {
	payload := protocol.EncodeControl(protocol.NewPong(timestamp))
	s.writeFrame(protocol.NewFrame(protocol.FrameControl, payload))
}

// Close closes the session normally.
func (s *Session) Close() {
	s.CloseWithReason(protocol.CloseNormal, "")
}

// CloseWithReason sends a Close control frame with reason and closes the
// session. It is idempotent.
func (s *Session) CloseWithReason(reason protocol.CloseReason, message string) {
	s.closeOnce.Do(func() {
		if s.conn != nil && reason != protocol.CloseNormal {
			payload := protocol.EncodeControl(protocol.NewClose(reason, message))
			s.writeFrame(protocol.NewFrame(protocol.FrameControl, payload))
		}

		s.closed.Store(true)
		close(s.done)

		s.surface.detach()
		s.hub.Close()

		if s.conn != nil {
			s.mu.Lock()
			s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			s.conn.Close()
			s.mu.Unlock()
		}

		s.logger.Info("session closed",
			"events", s.eventCount.Load(),
			"patches", s.patchCount.Load(),
			"bytes_sent", s.bytesSent.Load(),
			"bytes_recv", s.bytesRecv.Load())
	})
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastActive returns when the client last sent a frame.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch(n int) {
	s.lastActive.Store(time.Now().UnixNano())
	s.bytesRecv.Add(uint64(n))
}

// SessionStats is a snapshot of a session's counters.
type SessionStats struct {
	ID          string
	Path        string
	CreatedAt   time.Time
	LastActive  time.Time
	Events      uint64
	Patches     uint64
	BytesSent   uint64
	BytesRecv   uint64
	Subscribers int
}

// Stats returns the session's counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:          s.ID,
		Path:        s.Path,
		CreatedAt:   s.CreatedAt,
		LastActive:  s.LastActive(),
		Events:      s.eventCount.Load(),
		Patches:     s.patchCount.Load(),
		BytesSent:   s.bytesSent.Load(),
		BytesRecv:   s.bytesRecv.Load(),
		Subscribers: s.hub.Len(),
	}
}
