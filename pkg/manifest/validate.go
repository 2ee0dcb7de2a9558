package manifest

import (
	"fmt"
	"math"
	"strings"

	"github.com/vango-dev/scrollkit/internal/errors"
)

// ValidationError collects every problem found in a manifest.
type ValidationError struct {
	Problems []*errors.ScrollkitError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	msgs := make([]string, len(v.Problems))
	for i, p := range v.Problems {
		msgs[i] = p.FormatCompact() + ": " + p.Detail
	}
	return "manifest: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual problems to errors.As.
func (v *ValidationError) Unwrap() []error {
	errs := make([]error, len(v.Problems))
	for i, p := range v.Problems {
		errs[i] = p
	}
	return errs
}

type validator struct {
	name     string
	problems []*errors.ScrollkitError
}

func (v *validator) add(code string, line, column int, format string, args ...any) {
	e := errors.New(code).WithDetail(fmt.Sprintf(format, args...))
	if v.name != "" && line > 0 {
		e.Location = &errors.Location{File: v.name, Line: line, Column: column}
	}
	v.problems = append(v.problems, e)
}

// Validate checks the manifest for duplicate ids, dangling theme
// references and out-of-range effect values.
func (m *Manifest) Validate() error {
	v := &validator{name: m.Name}

	if m.Version > CurrentVersion {
		v.add("M201", 0, 0, "version %d is newer than supported version %d", m.Version, CurrentVersion)
	}

	paths := make(map[string]bool, len(m.Pages))
	for i := range m.Pages {
		p := &m.Pages[i]
		if p.Path == "" {
			v.add("M203", p.line, 0, "page %d has no path", i)
		} else if paths[p.Path] {
			v.add("M203", p.line, 0, "page path %q is defined twice", p.Path)
		}
		paths[p.Path] = true
		v.page(p)
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

func (v *validator) page(p *Page) {
	ids := make(map[string]bool, len(p.Sections))
	for _, s := range p.Sections {
		switch {
		case s.ID == "":
			v.add("M203", s.line, s.column, "section on page %q has no id", p.Path)
		case ids[s.ID]:
			v.add("M202", s.line, s.column, "section %q appears twice on page %q", s.ID, p.Path)
		}
		ids[s.ID] = true
	}

	for section := range p.Themes {
		if !ids[section] {
			v.add("M203", p.line, 0, "theme for unknown section %q on page %q", section, p.Path)
		}
	}
	if len(p.Themes) > 0 && p.Background == "" {
		v.add("M203", p.line, 0, "page %q has themes but no background element", p.Path)
	}
	if p.Navigation.Throttle < 0 {
		v.add("M203", p.line, 0, "navigation throttle on page %q is negative", p.Path)
	}

	// Effects are keyed by target, so a second layer on a target would
	// replace the first.
	parallax := make(map[string]bool, len(p.Parallax))
	for _, l := range p.Parallax {
		switch {
		case l.Target == "":
			v.add("M203", l.line, 0, "parallax layer on page %q has no target", p.Path)
		case parallax[l.Target]:
			v.add("M202", l.line, 0, "parallax target %q appears twice on page %q", l.Target, p.Path)
		}
		parallax[l.Target] = true
		if math.IsNaN(l.Multiplier) || math.IsInf(l.Multiplier, 0) {
			v.add("M203", l.line, 0, "parallax multiplier for %q must be finite", l.Target)
		}
		if l.Throttle < 0 {
			v.add("M203", l.line, 0, "parallax throttle for %q is negative", l.Target)
		}
	}

	fades := make(map[string]bool, len(p.Fade))
	for _, f := range p.Fade {
		switch {
		case f.Target == "":
			v.add("M203", f.line, 0, "fade on page %q has no target", p.Path)
		case fades[f.Target]:
			v.add("M202", f.line, 0, "fade target %q appears twice on page %q", f.Target, p.Path)
		}
		fades[f.Target] = true
		if !(f.StartRatio > 0) || math.IsInf(f.StartRatio, 0) {
			v.add("M203", f.line, 0, "fade start_ratio for %q must be positive", f.Target)
		}
		if f.Throttle < 0 {
			v.add("M203", f.line, 0, "fade throttle for %q is negative", f.Target)
		}
	}
}
