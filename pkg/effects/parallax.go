package effects

import (
	"math"
	"strconv"
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// parallaxEpsilon is the smallest offset change worth a style write.
const parallaxEpsilon = 0.5

// Parallax translates an element vertically by scrollY * Multiplier.
type Parallax struct {
	mount

	Target     string
	Multiplier float64
	Throttle   time.Duration

	sink    Sink
	last    float64
	emitted bool
}

// NewParallax creates a parallax layer for the element with id target.
func NewParallax(target string, multiplier float64, throttle time.Duration, sink Sink) *Parallax {
	return &Parallax{
		Target:     target,
		Multiplier: multiplier,
		Throttle:   throttle,
		sink:       sink,
	}
}

// ID implements Effect.
func (p *Parallax) ID() string { return "parallax:" + p.Target }

// Mount implements Effect.
func (p *Parallax) Mount(r Registrar) {
	p.register(r, p.ID(), p.Update, p.Throttle)
}

// Offset returns the translation for sig in pixels.
func (p *Parallax) Offset(sig scroll.Signal) float64 {
	return float64(sig.ScrollY) * p.Multiplier
}

// Last returns the last emitted offset.
func (p *Parallax) Last() float64 { return p.last }

// Update applies sig. Sub-pixel changes are dropped.
func (p *Parallax) Update(sig scroll.Signal) {
	offset := p.Offset(sig)
	if p.emitted && math.Abs(offset-p.last) <= parallaxEpsilon {
		return
	}
	p.last = offset
	p.emitted = true
	p.sink.Apply(protocol.NewSetStylePatch(p.Target, "transform", translateY(offset)))
}

func translateY(px float64) string {
	return "translate3d(0, " + strconv.FormatFloat(math.Round(px*10)/10, 'f', -1, 64) + "px, 0)"
}
