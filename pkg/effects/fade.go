package effects

import (
	"math"
	"strconv"
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// VisibleThreshold is the opacity above which a faded element counts as
// visible.
const VisibleThreshold = 0.1

// FadeOpacity returns clamp(1 - scrollY / (viewportHeight * ratio), 0, 1).
// A zero fade window yields 1 at the top of the page and 0 elsewhere.
func FadeOpacity(scrollY, viewportHeight int, ratio float64) float64 {
	window := float64(viewportHeight) * ratio
	if window <= 0 || math.IsNaN(window) {
		if scrollY <= 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, 1-float64(scrollY)/window))
}

// Fade fades an element out as the page scrolls past the first
// StartRatio of the viewport.
type Fade struct {
	mount

	Target     string
	StartRatio float64
	Throttle   time.Duration

	sink    Sink
	opacity string
	visible bool
	emitted bool
}

// NewFade creates a fade for the element with id target.
func NewFade(target string, startRatio float64, throttle time.Duration, sink Sink) *Fade {
	return &Fade{
		Target:     target,
		StartRatio: startRatio,
		Throttle:   throttle,
		sink:       sink,
	}
}

// ID implements Effect.
func (f *Fade) ID() string { return "fade:" + f.Target }

// Mount implements Effect.
func (f *Fade) Mount(r Registrar) {
	f.register(r, f.ID(), f.Update, f.Throttle)
}

// Visible reports the last computed visibility.
func (f *Fade) Visible() bool { return f.visible }

// Update applies sig.
func (f *Fade) Update(sig scroll.Signal) {
	opacity := FadeOpacity(sig.ScrollY, sig.ViewportHeight, f.StartRatio)
	visible := opacity > VisibleThreshold
	value := strconv.FormatFloat(math.Round(opacity*1000)/1000, 'f', -1, 64)

	var patches []protocol.Patch
	if !f.emitted || value != f.opacity {
		patches = append(patches, protocol.NewSetStylePatch(f.Target, "opacity", value))
	}
	if !f.emitted || visible != f.visible {
		if visible {
			patches = append(patches, protocol.NewRemoveClassPatch(f.Target, ClassHidden))
		} else {
			patches = append(patches, protocol.NewAddClassPatch(f.Target, ClassHidden))
		}
	}

	f.opacity = value
	f.visible = visible
	f.emitted = true
	if len(patches) > 0 {
		f.sink.Apply(patches...)
	}
}
