package effects

import (
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// ThemeSwitcher swaps a theme class on the background element according
// to the section in view.
type ThemeSwitcher struct {
	mount

	// Target is the background root element id.
	Target string

	// Themes maps section ids to CSS classes.
	Themes map[string]string

	// Default is used when the section in view has no theme.
	Default string

	Throttle time.Duration

	detector *SectionDetector
	sink     Sink
	current  string
	applied  bool
}

// NewThemeSwitcher creates a switcher that follows detector's active
// section. The theme changes as soon as the detector moves, whatever the
// two throttles are; the switcher's own subscription only applies the
// theme for the section already active.
func NewThemeSwitcher(target string, themes map[string]string, def string, detector *SectionDetector, throttle time.Duration, sink Sink) *ThemeSwitcher {
	t := &ThemeSwitcher{
		Target:   target,
		Themes:   themes,
		Default:  def,
		Throttle: throttle,
		detector: detector,
		sink:     sink,
	}
	detector.OnChange(func(_, next string) {
		t.apply(next)
	})
	return t
}

// ID implements Effect.
func (t *ThemeSwitcher) ID() string { return "theme:" + t.Target }

// Mount implements Effect.
func (t *ThemeSwitcher) Mount(r Registrar) {
	t.register(r, t.ID(), t.Update, t.Throttle)
}

// Current returns the applied theme class.
func (t *ThemeSwitcher) Current() string { return t.current }

// ThemeFor returns the class for section.
func (t *ThemeSwitcher) ThemeFor(section string) string {
	if class, ok := t.Themes[section]; ok {
		return class
	}
	return t.Default
}

// Update applies the theme of the detector's active section. The signal
// itself is not inspected.
func (t *ThemeSwitcher) Update(scroll.Signal) {
	t.apply(t.detector.Active())
}

func (t *ThemeSwitcher) apply(section string) {
	class := t.ThemeFor(section)
	if t.applied && class == t.current {
		return
	}

	var patches []protocol.Patch
	if t.current != "" {
		patches = append(patches, protocol.NewRemoveClassPatch(t.Target, t.current))
	}
	if class != "" {
		patches = append(patches, protocol.NewAddClassPatch(t.Target, class))
	}
	t.current = class
	t.applied = true
	if len(patches) > 0 {
		t.sink.Apply(patches...)
	}
}
