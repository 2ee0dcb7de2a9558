package scroll

import "time"

// TickStats describes one dispatch tick.
type TickStats struct {
	// Invoked is the number of callbacks that ran (including panics).
	Invoked int
	// Throttled is the number of subscribers skipped because their
	// interval had not elapsed.
	Throttled int
	// Removed is the number of snapshot entries skipped because they were
	// unregistered during the tick.
	Removed int
	// Panicked is the number of callbacks that panicked.
	Panicked int
	// Forced is true for the scroll-end notification.
	Forced bool
	// Duration is the wall time spent dispatching.
	Duration time.Duration
}

// Observer receives dispatch statistics, typically for metrics.
// Methods are called synchronously and must be cheap.
type Observer interface {
	ObserveTick(stats TickStats)
	ObserveCallbackPanic(subscriberID string)
	ObserveCoalesced()
	ObserveSubscribers(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveTick(TickStats)       {}
func (nopObserver) ObserveCallbackPanic(string) {}
func (nopObserver) ObserveCoalesced()           {}
func (nopObserver) ObserveSubscribers(int)      {}
