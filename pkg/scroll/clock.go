package scroll

import "time"

// Clock supplies the current time and one-shot timers to a Hub.
//
// Hosts that run subscribers on a dedicated goroutine must make AfterFunc
// post f onto that goroutine, so the scroll-end notification is serialized
// with frame dispatch.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot timer returned by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// SystemClock is a Clock backed by package time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DispatchClock is a SystemClock whose timer callbacks are handed to
// Dispatch instead of running on the timer goroutine.
type DispatchClock struct {
	Dispatch func(fn func())
}

// Now returns time.Now().
func (c DispatchClock) Now() time.Time { return time.Now() }

// AfterFunc schedules f to be dispatched after d.
func (c DispatchClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		c.Dispatch(f)
	})
}
