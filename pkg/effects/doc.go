// Package effects implements the scroll-driven visual effects that
// subscribe to a scroll.Hub: parallax offsets, scroll fades, navigation
// highlighting and background theme switching.
//
// Effects never touch the page directly. Each one turns Signals into
// protocol.Patch values and hands them to a Sink; the server batches them
// into Patches frames and the preview renders them in the terminal.
//
// Every effect registers exactly once on Mount and unregisters on
// Unmount:
//
//	layout := effects.NewLayout()
//	set := effects.Build(page, layout, sink)
//	set.Mount(hub)
//	defer set.Unmount()
package effects

import (
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// Registrar is the part of scroll.Hub effects depend on.
type Registrar interface {
	Register(id string, callback func(scroll.Signal), throttle time.Duration) (unregister func())
}

// Sink receives the patches an effect produces.
type Sink interface {
	Apply(patches ...protocol.Patch)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(patches ...protocol.Patch)

// Apply calls f.
func (f SinkFunc) Apply(patches ...protocol.Patch) { f(patches...) }

// Effect is a mountable scroll subscriber.
type Effect interface {
	// ID is the subscriber id the effect registers under.
	ID() string
	Mount(r Registrar)
	Unmount()
}

// CSS classes toggled by effects.
const (
	ClassHidden = "is-hidden"
	ClassActive = "is-active"
)

// mount holds the unregister function shared by every effect.
type mount struct {
	unregister func()
}

func (m *mount) register(r Registrar, id string, cb func(scroll.Signal), throttle time.Duration) {
	if m.unregister != nil {
		return
	}
	m.unregister = r.Register(id, cb, throttle)
}

func (m *mount) Unmount() {
	if m.unregister != nil {
		m.unregister()
		m.unregister = nil
	}
}
