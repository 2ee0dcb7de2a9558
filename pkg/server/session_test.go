package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

func bareSession() *Session {
	return &Session{
		logger: quietLogger(),
		config: DefaultServerConfig(),
		done:   make(chan struct{}),
	}
}

func TestSurfaceListenPatches(t *testing.T) {
	s := bareSession()
	ss := newSessionSurface(s, time.Millisecond)

	removeA := ss.ListenScroll(func() {})
	removeB := ss.ListenScroll(func() {})
	assert.Equal(t, []protocol.Patch{protocol.NewListenPatch("", "scroll", true)}, s.pending)

	removeA()
	removeA()
	assert.Len(t, s.pending, 1)

	removeB()
	assert.Equal(t, protocol.NewUnlistenPatch("", "scroll"), s.pending[1])
}

func TestSurfaceNotifiesInOrder(t *testing.T) {
	ss := newSessionSurface(bareSession(), time.Millisecond)

	var order []int
	ss.ListenScroll(func() { order = append(order, 1) })
	ss.ListenScroll(func() { order = append(order, 2) })
	ss.setScroll(10, 20)

	assert.Equal(t, []int{1, 2}, order)
	x, y := ss.ScrollOffset()
	assert.Equal(t, 10, x)
	assert.Equal(t, 20, y)

	resized := 0
	ss.ListenResize(func() { resized++ })
	ss.setViewport(640, 480)
	w, h := ss.ViewportSize()
	assert.Equal(t, 1, resized)
	assert.Equal(t, [2]int{640, 480}, [2]int{w, h})

	assert.True(t, ss.Available())
	ss.detach()
	assert.False(t, ss.Available())
}

func TestEncodePatchesSplitsLargeBatches(t *testing.T) {
	s := bareSession()

	big := strings.Repeat("x", 40000)
	frames := s.encodePatches(nil, []protocol.Patch{
		protocol.NewSetStylePatch("a", "content", big),
		protocol.NewSetStylePatch("b", "content", big),
	})
	require.Len(t, frames, 2)

	first, err := protocol.DecodePatches(frames[0])
	require.NoError(t, err)
	second, err := protocol.DecodePatches(frames[1])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, "b", second.Patches[0].Target)
}

func TestEncodePatchesDropsOversizedPatch(t *testing.T) {
	s := bareSession()
	frames := s.encodePatches(nil, []protocol.Patch{
		protocol.NewSetStylePatch("a", "content", strings.Repeat("x", 70000)),
	})
	assert.Empty(t, frames)
	assert.Equal(t, uint64(0), s.sendSeq.Load())
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	s := bareSession()
	s.dispatchCh = make(chan func(), 1)
	s.closed.Store(true)

	s.Dispatch(func() {})
	assert.Len(t, s.dispatchCh, 0)
}

func TestExecuteDispatchRecoversAndFlushes(t *testing.T) {
	s := bareSession()
	s.Apply(protocol.NewAddClassPatch("x", "y"))

	assert.NotPanics(t, func() {
		s.executeDispatch(func() { panic("boom") })
	})
	// flush ran: the patch was taken even though the write had no connection.
	assert.Empty(t, s.pending)
}

func TestSameOriginCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
	assert.True(t, SameOriginCheck(req))

	req.Header.Set("Origin", "http://example.com")
	assert.True(t, SameOriginCheck(req))

	req.Header.Set("Origin", "http://evil.com")
	assert.False(t, SameOriginCheck(req))

	assert.True(t, AllowOrigins("http://evil.com/")(req))
	assert.False(t, AllowOrigins("http://other.com")(req))
	assert.True(t, AllowOrigins("*")(req))
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&ServerConfig{Address: ":9000", MaxSessions: 5}).withDefaults()
	assert.Equal(t, ":9000", cfg.Address)
	assert.Equal(t, 5, cfg.MaxSessions)
	assert.Equal(t, 16*time.Millisecond, cfg.FrameInterval)
	assert.NotNil(t, cfg.CheckOrigin)

	var nilCfg *ServerConfig
	assert.Equal(t, "localhost:8080", nilCfg.withDefaults().Address)
}

func TestPostWaitsForRoom(t *testing.T) {
	s := bareSession()
	s.dispatchCh = make(chan func(), 1)
	s.dispatchCh <- func() {}

	posted := make(chan struct{})
	go func() {
		s.post(func() {})
		close(posted)
	}()

	select {
	case <-posted:
		t.Fatal("post returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	<-s.dispatchCh
	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("post did not return after the queue drained")
	}
	assert.Len(t, s.dispatchCh, 1)

	// A closed session releases a waiting post.
	go func() {
		s.post(func() {})
	}()
	close(s.done)
	s.closed.Store(true)
	s.post(func() {})
}

func TestSaturatedQueueKeepsScrollStream(t *testing.T) {
	config := DefaultServerConfig()
	config.MaxDispatchQueue = 4
	config.FrameInterval = time.Millisecond
	config.QuietWindow = 20 * time.Millisecond
	s := newSession(nil, protocol.NewClientHello("/", 800, 600), nil, config.withDefaults(), nil, quietLogger())
	defer s.Close()

	var calls atomic.Int32
	s.hub.Register("count", func(scroll.Signal) { calls.Add(1) }, 0)

	for range config.MaxDispatchQueue {
		s.Dispatch(func() {})
	}
	var droppedRan atomic.Bool
	s.Dispatch(func() { droppedRan.Store(true) })

	// The frame timer fires while the queue is still full.
	s.surface.setScroll(0, 100)
	time.Sleep(10 * time.Millisecond)

	go s.EventLoop()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	assert.False(t, droppedRan.Load(), "an event dispatched into a full queue should be dropped")

	before := calls.Load()
	for i := 1; i <= 20; i++ {
		s.Dispatch(func() { s.surface.setScroll(0, 100+i*10) })
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		sig := s.hub.Signal()
		return sig.ScrollY == 300 && !sig.IsScrolling
	}, time.Second, time.Millisecond)
	assert.Greater(t, calls.Load(), before)
}
