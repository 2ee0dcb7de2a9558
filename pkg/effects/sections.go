package effects

import (
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// VisibleRatio returns the fraction of the viewport covered by r when the
// viewport spans [scrollY, scrollY+viewportHeight).
func VisibleRatio(r Rect, scrollY, viewportHeight int) float64 {
	if viewportHeight <= 0 {
		return 0
	}
	top := max(r.Top, scrollY)
	bottom := min(r.Top+r.Height, scrollY+viewportHeight)
	if bottom <= top {
		return 0
	}
	return float64(bottom-top) / float64(viewportHeight)
}

// SectionDetector reports which of a fixed, ordered list of sections
// covers most of the viewport, and moves the active class between the
// matching navigation links.
type SectionDetector struct {
	mount

	// Sections are candidate ids in page order. Ties go to the earliest.
	Sections []string

	// NavLinks maps a section id to its navigation link element id.
	NavLinks map[string]string

	Throttle time.Duration

	layout   *Layout
	sink     Sink
	active   string
	onChange []func(prev, next string)
}

// NewSectionDetector creates a detector over sections.
func NewSectionDetector(sections []string, navLinks map[string]string, layout *Layout, throttle time.Duration, sink Sink) *SectionDetector {
	return &SectionDetector{
		Sections: sections,
		NavLinks: navLinks,
		Throttle: throttle,
		layout:   layout,
		sink:     sink,
	}
}

// ID implements Effect.
func (d *SectionDetector) ID() string { return "nav" }

// Mount implements Effect.
func (d *SectionDetector) Mount(r Registrar) {
	d.register(r, d.ID(), d.Update, d.Throttle)
}

// OnChange adds fn to be called after the active section changes.
func (d *SectionDetector) OnChange(fn func(prev, next string)) {
	d.onChange = append(d.onChange, fn)
}

// Active returns the current active section, "" for none.
func (d *SectionDetector) Active() string { return d.active }

// Detect returns the section with the largest visible ratio for sig, or
// "" when no section is visible. It has no side effects.
func (d *SectionDetector) Detect(sig scroll.Signal) string {
	best := ""
	bestRatio := 0.0
	for _, id := range d.Sections {
		r, ok := d.layout.Rect(id)
		if !ok {
			continue
		}
		if ratio := VisibleRatio(r, sig.ScrollY, sig.ViewportHeight); ratio > bestRatio {
			best, bestRatio = id, ratio
		}
	}
	return best
}

// Update applies sig.
func (d *SectionDetector) Update(sig scroll.Signal) {
	next := d.Detect(sig)
	if next == d.active {
		return
	}
	prev := d.active
	d.active = next

	var patches []protocol.Patch
	if link := d.NavLinks[prev]; prev != "" && link != "" {
		patches = append(patches, protocol.NewRemoveClassPatch(link, ClassActive))
	}
	if link := d.NavLinks[next]; next != "" && link != "" {
		patches = append(patches, protocol.NewAddClassPatch(link, ClassActive))
	}
	patches = append(patches, protocol.NewSetDataPatch("", "section", next))
	d.sink.Apply(patches...)

	for _, fn := range d.onChange {
		fn(prev, next)
	}
}
