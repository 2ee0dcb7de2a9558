// Package scroll provides the scroll-signal multiplexer for scrollkit.
//
// A Hub samples a viewport's scroll position at most once per rendering
// frame and fans the derived Signal out to any number of subscribers,
// each with its own throttle interval. The viewport itself is reached only
// through a Surface, so exactly one scroll listener and one resize listener
// exist per Hub no matter how many subscribers are registered.
//
// # Registering
//
//	hub := scroll.NewHub(surface)
//	stop := hub.Register("hero-parallax", func(sig scroll.Signal) {
//	    offset := float64(sig.ScrollY) * 0.4
//	    // update local state
//	}, 0)
//	defer stop()
//
// The first Register starts the sampler. Calling the returned function more
// than once is safe.
//
// # Dispatch Order
//
// Subscribers are serviced in ascending throttle order, ties broken by
// registration order. A subscriber is invoked on a tick only when its
// throttle has elapsed since its own previous invocation:
//
//	hub.Register("parallax", updateParallax, 0)            // every frame
//	hub.Register("nav", updateNav, 100*time.Millisecond)   // at most 10/s
//
// # Scroll End
//
// Every sample resets a single debounce timer. When the quiet window
// (150ms by default) passes without a new sample, IsScrolling becomes
// false and every subscriber is notified once more with zero velocity,
// regardless of its throttle.
//
// # Threading
//
// Callbacks run synchronously on whatever goroutine delivers frames and
// timer callbacks; for a session that is its event loop. Callbacks may
// call Register, Unregister or an unregister function re-entrantly.
// Additions take effect on the next tick; removals take effect at once.
package scroll
