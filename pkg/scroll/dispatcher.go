package scroll

import (
	"runtime/debug"
	"time"
)

// dispatcher delivers one Signal to every due subscriber of a snapshot.
type dispatcher struct {
	report   func(error)
	observer Observer
	now      func() time.Time
}

// dispatch walks entries in order. When force is set every live entry is
// invoked regardless of its throttle.
func (d *dispatcher) dispatch(entries []*entry, sig Signal, at time.Time, force bool) TickStats {
	start := d.now()
	stats := TickStats{Forced: force}

	for _, e := range entries {
		// Unregistered earlier in this tick, possibly by another callback.
		if e.removed.Load() {
			stats.Removed++
			continue
		}
		if !force && !e.due(at) {
			stats.Throttled++
			continue
		}

		stats.Invoked++
		if err := d.invoke(e, sig); err != nil {
			stats.Panicked++
			d.observer.ObserveCallbackPanic(e.id)
			d.report(err)
		}

		// Stamped even after a panic so a failing subscriber waits out its
		// interval like everyone else.
		e.lastInvokedAt = at
		e.invoked = true
	}

	stats.Duration = d.now().Sub(start)
	d.observer.ObserveTick(stats)
	return stats
}

// invoke runs one callback with panic recovery.
func (d *dispatcher) invoke(e *entry, sig Signal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewCallbackError(e.id, r, debug.Stack())
		}
	}()

	e.callback(sig)
	return nil
}
