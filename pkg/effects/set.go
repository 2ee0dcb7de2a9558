package effects

import (
	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// Set is the group of effects configured for one page.
type Set struct {
	Detector *SectionDetector
	Theme    *ThemeSwitcher
	Parallax []*Parallax
	Fades    []*Fade

	all []Effect
}

// Build creates the effects page asks for. Navigation highlighting is
// built when the page has sections, theme switching when it also has a
// background element.
func Build(page *manifest.Page, layout *Layout, sink Sink) *Set {
	s := &Set{}
	if page == nil {
		return s
	}

	if len(page.Sections) > 0 {
		s.Detector = NewSectionDetector(page.SectionIDs(), page.NavLinks(), layout, page.Navigation.Throttle, sink)
		s.all = append(s.all, s.Detector)

		if page.Background != "" {
			s.Theme = NewThemeSwitcher(page.Background, page.Themes, page.DefaultTheme, s.Detector, page.Navigation.Throttle, sink)
			s.all = append(s.all, s.Theme)
		}
	}

	for _, l := range page.Parallax {
		p := NewParallax(l.Target, l.Multiplier, l.Throttle, sink)
		s.Parallax = append(s.Parallax, p)
		s.all = append(s.all, p)
	}
	for _, f := range page.Fade {
		fade := NewFade(f.Target, f.StartRatio, f.Throttle, sink)
		s.Fades = append(s.Fades, fade)
		s.all = append(s.all, fade)
	}
	return s
}

// Effects returns every effect in mount order.
func (s *Set) Effects() []Effect {
	return s.all
}

// Len returns the number of effects.
func (s *Set) Len() int {
	return len(s.all)
}

// Mount registers every effect with r.
func (s *Set) Mount(r Registrar) {
	for _, e := range s.all {
		e.Mount(r)
	}
}

// Unmount unregisters every effect.
func (s *Set) Unmount() {
	for _, e := range s.all {
		e.Unmount()
	}
}

// Relayout re-runs the layout-dependent effects against sig. Hosts call
// it after new section geometry arrives, since a layout change alone does
// not produce a scroll signal.
func (s *Set) Relayout(sig scroll.Signal) {
	if s.Detector != nil {
		s.Detector.Update(sig)
	}
	if s.Theme != nil {
		s.Theme.Update(sig)
	}
}
