package scroll_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/scrollkit/pkg/scroll"
	"github.com/vango-dev/scrollkit/pkg/scroll/scrolltest"
)

var epoch = time.Unix(1700000000, 0)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T, opts ...scroll.Option) (*scroll.Hub, *scrolltest.Surface, *scrolltest.Clock) {
	t.Helper()
	clock := scrolltest.NewClock(epoch)
	surface := scrolltest.NewSurface(clock, 1280, 800)
	opts = append([]scroll.Option{scroll.WithClock(clock), scroll.WithLogger(quietLogger())}, opts...)
	hub := scroll.NewHub(surface, opts...)
	t.Cleanup(hub.Close)
	return hub, surface, clock
}

func TestSingleNativeListener(t *testing.T) {
	for _, n := range []int{0, 1, 1000} {
		hub, surface, _ := newTestHub(t)
		for i := 0; i < n; i++ {
			hub.Register("", func(scroll.Signal) {}, 0)
		}

		want := 0
		if n > 0 {
			want = 1
		}
		if got := surface.ScrollListeners(); got != want {
			t.Errorf("n=%d: scroll listeners = %d, want %d", n, got, want)
		}
		if got := surface.ResizeListeners(); got != want {
			t.Errorf("n=%d: resize listeners = %d, want %d", n, got, want)
		}
		if scrolls, resizes := surface.Attaches(); scrolls != want || resizes != want {
			t.Errorf("n=%d: attaches = (%d, %d), want (%d, %d)", n, scrolls, resizes, want, want)
		}
		if hub.Len() != n {
			t.Errorf("n=%d: Len() = %d", n, hub.Len())
		}
	}
}

func TestEmptyIDsAreDistinct(t *testing.T) {
	hub, _, _ := newTestHub(t)
	hub.Register("", func(scroll.Signal) {}, 0)
	hub.Register("", func(scroll.Signal) {}, 0)

	ids := hub.Subscribers()
	if len(ids) != 2 || ids[0] == ids[1] || ids[0] == "" {
		t.Errorf("Subscribers() = %v, want two distinct generated ids", ids)
	}
}

func TestCoalescesBurstIntoOneFrame(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("rec", rec.Record, 0)

	surface.ScrollTo(0, 10)
	surface.ScrollTo(0, 20)
	surface.ScrollTo(0, 30)

	if got := surface.FrameRequests(); got != 1 {
		t.Fatalf("frame requests = %d, want 1", got)
	}
	surface.RunFrames()

	if rec.Count() != 1 {
		t.Fatalf("callbacks = %d, want 1", rec.Count())
	}
	if last, _ := rec.Last(); last.ScrollY != 30 {
		t.Errorf("ScrollY = %d, want the latest offset 30", last.ScrollY)
	}

	// The next event schedules again.
	surface.ScrollTo(0, 40)
	if got := surface.FrameRequests(); got != 2 {
		t.Errorf("frame requests = %d, want 2", got)
	}
}

func TestThrottleBound(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("throttled", rec.Record, 16*time.Millisecond)

	for i := 0; i < 13; i++ {
		if i > 0 {
			clock.Advance(8 * time.Millisecond)
		}
		surface.Step(0, i*10)
	}

	if got := rec.Count(); got < 6 || got > 7 {
		t.Errorf("callbacks = %d, want 6 or 7", got)
	}

	sigs := rec.Signals()
	for i := 1; i < len(sigs); i++ {
		if gap := sigs[i].Timestamp.Sub(sigs[i-1].Timestamp); gap < 16*time.Millisecond {
			t.Errorf("gap between callbacks %d and %d = %v, want >= 16ms", i-1, i, gap)
		}
	}
}

func TestNoStarvation(t *testing.T) {
	hub, surface, clock := newTestHub(t)

	for i := 0; i < 9; i++ {
		hub.Register("", func(scroll.Signal) {}, 10*time.Millisecond)
	}
	var slow scrolltest.Recorder
	hub.Register("slow", slow.Record, 200*time.Millisecond)

	for elapsed := time.Duration(0); elapsed <= time.Second; elapsed += 10 * time.Millisecond {
		if elapsed > 0 {
			clock.Advance(10 * time.Millisecond)
		}
		surface.Step(0, int(elapsed/time.Millisecond))
	}

	if got := slow.Count(); got < 4 {
		t.Errorf("slow subscriber invoked %d times, want at least 4", got)
	}
}

func TestVelocityThroughHub(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("v", rec.Record, 0)

	surface.Step(0, 0)
	clock.Advance(100 * time.Millisecond)
	surface.Step(0, 100)

	last, ok := rec.Last()
	if !ok {
		t.Fatal("no signal delivered")
	}
	if last.Velocity != 1.0 {
		t.Errorf("Velocity = %v, want 1.0", last.Velocity)
	}
	if last.Direction != scroll.DirectionDown {
		t.Errorf("Direction = %v, want down", last.Direction)
	}
	if last.ViewportWidth != 1280 || last.ViewportHeight != 800 {
		t.Errorf("viewport = %dx%d, want 1280x800", last.ViewportWidth, last.ViewportHeight)
	}
}

func TestScrollEndFiresOnce(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("end", rec.Record, time.Hour)

	for i := 0; i < 5; i++ {
		clock.Advance(16 * time.Millisecond)
		surface.Step(0, i*50)
	}
	if !hub.Signal().IsScrolling {
		t.Fatal("IsScrolling = false during burst")
	}

	clock.Advance(149 * time.Millisecond)
	if !hub.Signal().IsScrolling {
		t.Fatal("scroll end fired before the quiet window elapsed")
	}

	clock.Advance(time.Millisecond)
	clock.Advance(time.Second)

	var ends []scroll.Signal
	for _, sig := range rec.Signals() {
		if !sig.IsScrolling {
			ends = append(ends, sig)
		}
	}
	if len(ends) != 1 {
		t.Fatalf("scroll-end notifications = %d, want 1", len(ends))
	}

	end := ends[0]
	if end.Velocity != 0 {
		t.Errorf("end Velocity = %v, want 0", end.Velocity)
	}
	if end.ScrollY != 200 {
		t.Errorf("end ScrollY = %d, want 200", end.ScrollY)
	}
	if end.Direction != scroll.DirectionDown {
		t.Errorf("end Direction = %v, want down", end.Direction)
	}
	if hub.Signal().IsScrolling {
		t.Error("hub still reports scrolling after settle")
	}
	if clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clock.Pending())
	}
}

func TestScrollEndRestartsPerBurst(t *testing.T) {
	hub, surface, clock := newTestHub(t, scroll.WithQuietWindow(50*time.Millisecond))
	var rec scrolltest.Recorder
	hub.Register("end", rec.Record, 0)

	surface.Step(0, 10)
	clock.Advance(40 * time.Millisecond)
	surface.Step(0, 20)
	clock.Advance(40 * time.Millisecond)

	if got := countEnds(rec.Signals()); got != 0 {
		t.Fatalf("scroll end fired mid-burst (%d)", got)
	}

	clock.Advance(10 * time.Millisecond)
	surface.Step(0, 30)
	clock.Advance(50 * time.Millisecond)

	if got := countEnds(rec.Signals()); got != 2 {
		t.Errorf("scroll-end notifications = %d, want 2", got)
	}
}

func countEnds(sigs []scroll.Signal) int {
	n := 0
	for _, sig := range sigs {
		if !sig.IsScrolling {
			n++
		}
	}
	return n
}

func TestUnregisterIdempotent(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	var rec scrolltest.Recorder
	unregister := hub.Register("a", rec.Record, 0)
	hub.Register("b", func(scroll.Signal) {}, 0)

	unregister()
	unregister()
	hub.Unregister("a")
	hub.Unregister("missing")

	if hub.Len() != 1 {
		t.Errorf("Len() = %d, want 1", hub.Len())
	}
	surface.Step(0, 5)
	if rec.Count() != 0 {
		t.Errorf("unregistered subscriber invoked %d times", rec.Count())
	}
}

func TestStaleUnregisterKeepsReplacement(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	var first, second scrolltest.Recorder

	unregisterFirst := hub.Register("fx", first.Record, 0)
	hub.Register("fx", second.Record, 0)
	unregisterFirst()

	if hub.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", hub.Len())
	}
	surface.Step(0, 1)
	if first.Count() != 0 || second.Count() != 1 {
		t.Errorf("calls first=%d second=%d, want 0 and 1", first.Count(), second.Count())
	}
}

func TestRegisterDuringDispatch(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	var added scrolltest.Recorder
	var once sync.Once

	hub.Register("adder", func(scroll.Signal) {
		once.Do(func() { hub.Register("added", added.Record, 0) })
	}, 0)

	surface.Step(0, 1)
	if added.Count() != 0 {
		t.Fatal("subscriber added mid-dispatch ran in the same tick")
	}

	clock.Advance(time.Millisecond)
	surface.Step(0, 2)
	if added.Count() != 1 {
		t.Errorf("added subscriber calls = %d, want 1", added.Count())
	}
}

func TestUnregisterDuringDispatch(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	var victim scrolltest.Recorder
	var unregisterVictim func()

	hub.Register("killer", func(scroll.Signal) { unregisterVictim() }, 0)
	unregisterVictim = hub.Register("victim", victim.Record, 0)

	surface.Step(0, 1)
	if victim.Count() != 0 {
		t.Errorf("victim invoked %d times after being unregistered", victim.Count())
	}
}

func TestSelfUnregister(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	calls := 0
	var unregister func()
	unregister = hub.Register("once", func(scroll.Signal) {
		calls++
		unregister()
	}, 0)

	surface.Step(0, 1)
	clock.Advance(time.Millisecond)
	surface.Step(0, 2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPanicIsolationThroughHub(t *testing.T) {
	var reported []error
	hub, surface, _ := newTestHub(t, scroll.WithErrorReporter(func(err error) {
		reported = append(reported, err)
	}))

	var after scrolltest.Recorder
	hub.Register("boom", func(scroll.Signal) { panic("bad subscriber") }, 0)
	hub.Register("after", after.Record, 0)

	surface.Step(0, 1)

	if after.Count() != 1 {
		t.Errorf("subscriber after a panic invoked %d times, want 1", after.Count())
	}
	if len(reported) != 1 {
		t.Fatalf("reported = %d, want 1", len(reported))
	}
	var cbErr *scroll.CallbackError
	if !errors.As(reported[0], &cbErr) || cbErr.SubscriberID != "boom" {
		t.Errorf("reported %v, want CallbackError for boom", reported[0])
	}
}

func TestReentrantCallback(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	var seen scroll.Signal

	hub.Register("reader", func(scroll.Signal) {
		seen = hub.Signal()
		_ = hub.Subscribers()
		_ = hub.Len()
	}, 0)

	surface.Step(0, 42)
	if seen.ScrollY != 42 {
		t.Errorf("Signal() inside callback ScrollY = %d, want 42", seen.ScrollY)
	}
}

func TestDetachedSurface(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	surface.SetAvailable(false)

	var rec scrolltest.Recorder
	unregister := hub.Register("a", rec.Record, 0)
	if hub.Attached() {
		t.Fatal("Attached() = true on unavailable surface")
	}
	if surface.ScrollListeners() != 0 {
		t.Fatal("listener attached on unavailable surface")
	}
	if hub.Len() != 1 {
		t.Errorf("Len() = %d, want 1", hub.Len())
	}

	surface.SetAvailable(true)
	if err := hub.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !hub.Attached() || surface.ScrollListeners() != 1 {
		t.Fatal("Start() did not attach once available")
	}

	surface.Step(0, 7)
	if rec.Count() != 1 {
		t.Errorf("calls = %d, want 1", rec.Count())
	}
	unregister()
}

func TestNilSurface(t *testing.T) {
	hub := scroll.NewHub(nil, scroll.WithLogger(quietLogger()))
	defer hub.Close()

	unregister := hub.Register("a", func(scroll.Signal) {}, 0)
	if hub.Attached() {
		t.Error("Attached() = true with nil surface")
	}
	unregister()
	if err := hub.Start(); err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestResizeWithoutDispatch(t *testing.T) {
	hub, surface, _ := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("a", rec.Record, 0)

	surface.Resize(1024, 700)
	if rec.Count() != 0 {
		t.Errorf("resize dispatched %d signals", rec.Count())
	}
	sig := hub.Signal()
	if sig.ViewportWidth != 1024 || sig.ViewportHeight != 700 {
		t.Errorf("viewport = %dx%d, want 1024x700", sig.ViewportWidth, sig.ViewportHeight)
	}

	surface.Step(0, 3)
	last, _ := rec.Last()
	if last.ViewportWidth != 1024 {
		t.Errorf("next signal ViewportWidth = %d, want 1024", last.ViewportWidth)
	}
}

func TestClose(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("a", rec.Record, 0)
	surface.Step(0, 1)

	hub.Close()
	hub.Close()

	if surface.ScrollListeners() != 0 || surface.ResizeListeners() != 0 {
		t.Error("listeners still attached after Close")
	}
	if hub.Len() != 0 {
		t.Errorf("Len() = %d after Close", hub.Len())
	}

	clock.Advance(time.Second)
	if countEnds(rec.Signals()) != 0 {
		t.Error("scroll end fired after Close")
	}

	hub.Register("b", func(scroll.Signal) {}, 0)()
	if hub.Len() != 0 {
		t.Error("Register after Close added a subscriber")
	}
	if err := hub.Start(); !errors.Is(err, scroll.ErrHubClosed) {
		t.Errorf("Start() error = %v, want ErrHubClosed", err)
	}
}

func TestRegisterRacingClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		hub, _, _ := newTestHub(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Register("late", func(scroll.Signal) {}, 0)
		}()
		go func() {
			defer wg.Done()
			hub.Close()
		}()
		wg.Wait()

		if hub.Len() != 0 {
			t.Fatalf("iteration %d: Len() = %d after Close", i, hub.Len())
		}
	}
}

func TestFrameTimestampBehindClock(t *testing.T) {
	hub, surface, clock := newTestHub(t)
	var rec scrolltest.Recorder
	hub.Register("a", rec.Record, 100*time.Millisecond)

	surface.Step(0, 10)
	clock.Advance(scroll.DefaultQuietWindow)
	if got := rec.Count(); got != 2 {
		t.Fatalf("calls after settle = %d, want 2", got)
	}

	// The frame source runs slightly behind the hub clock.
	clock.Advance(100 * time.Millisecond)
	surface.ScrollTo(0, 20)
	surface.RunFramesAt(clock.Now().Add(-20 * time.Millisecond))

	if got := rec.Count(); got != 3 {
		t.Errorf("calls after lagging frame = %d, want 3", got)
	}
}

type recordingObserver struct {
	mu          sync.Mutex
	ticks       int
	coalesced   int
	subscribers int
}

func (o *recordingObserver) ObserveTick(scroll.TickStats) {
	o.mu.Lock()
	o.ticks++
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveCallbackPanic(string) {}

func (o *recordingObserver) ObserveCoalesced() {
	o.mu.Lock()
	o.coalesced++
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveSubscribers(n int) {
	o.mu.Lock()
	o.subscribers = n
	o.mu.Unlock()
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	hub, surface, _ := newTestHub(t, scroll.WithObserver(obs))

	hub.Register("a", func(scroll.Signal) {}, 0)
	hub.Register("b", func(scroll.Signal) {}, 0)
	surface.ScrollTo(0, 1)
	surface.ScrollTo(0, 2)
	surface.RunFrames()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.subscribers != 2 {
		t.Errorf("subscribers = %d, want 2", obs.subscribers)
	}
	if obs.coalesced != 1 {
		t.Errorf("coalesced = %d, want 1", obs.coalesced)
	}
	if obs.ticks != 1 {
		t.Errorf("ticks = %d, want 1", obs.ticks)
	}
}
