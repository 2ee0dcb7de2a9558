// Package manifest loads the site manifest that tells scrollkit which
// effects each page runs: its sections, navigation links, background
// themes, parallax layers and fades.
//
// A manifest is YAML:
//
//	version: 1
//	pages:
//	  - path: /
//	    background: page-bg
//	    default_theme: theme-light
//	    navigation:
//	      throttle: 100ms
//	    sections:
//	      - id: intro
//	        nav: nav-intro
//	      - id: pricing
//	        nav: nav-pricing
//	    themes:
//	      pricing: theme-dark
//	    parallax:
//	      - target: hero-bg
//	        multiplier: 0.5
//	    fade:
//	      - target: hero-title
//	        start_ratio: 0.5
//	        throttle: 16ms
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/scrollkit/internal/errors"
)

// CurrentVersion is the manifest schema version.
const CurrentVersion = 1

// Manifest is a parsed site manifest.
type Manifest struct {
	Version int    `yaml:"version"`
	Pages   []Page `yaml:"pages"`

	// Name identifies where the manifest came from, for error messages.
	Name string `yaml:"-"`
}

// Page configures the effects of one page path.
type Page struct {
	// Path is matched exactly against the client's path. "*" matches any
	// path without an exact entry.
	Path string `yaml:"path"`

	// Background is the element id the theme class is applied to.
	Background string `yaml:"background"`

	// DefaultTheme applies when the section in view has no theme.
	DefaultTheme string `yaml:"default_theme"`

	Navigation Navigation        `yaml:"navigation"`
	Sections   []Section         `yaml:"sections"`
	Themes     map[string]string `yaml:"themes"`
	Parallax   []ParallaxLayer   `yaml:"parallax"`
	Fade       []FadeTarget      `yaml:"fade"`

	line int
}

// Navigation configures section detection.
type Navigation struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Section is a page section in document order.
type Section struct {
	ID    string `yaml:"id"`
	Nav   string `yaml:"nav"`
	Title string `yaml:"title"`

	line, column int
}

// ParallaxLayer translates Target by scrollY * Multiplier.
type ParallaxLayer struct {
	Target     string        `yaml:"target"`
	Multiplier float64       `yaml:"multiplier"`
	Throttle   time.Duration `yaml:"throttle"`

	line int
}

// FadeTarget fades Target out over the first StartRatio of the viewport.
type FadeTarget struct {
	Target     string        `yaml:"target"`
	StartRatio float64       `yaml:"start_ratio"`
	Throttle   time.Duration `yaml:"throttle"`

	line int
}

// UnmarshalYAML records the section's position.
func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	type plain Section
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line, s.column = node.Line, node.Column
	return nil
}

// UnmarshalYAML records the page's position.
func (p *Page) UnmarshalYAML(node *yaml.Node) error {
	type plain Page
	if err := node.Decode((*plain)(p)); err != nil {
		return err
	}
	p.line = node.Line
	return nil
}

// UnmarshalYAML records the layer's position.
func (l *ParallaxLayer) UnmarshalYAML(node *yaml.Node) error {
	type plain ParallaxLayer
	if err := node.Decode((*plain)(l)); err != nil {
		return err
	}
	l.line = node.Line
	return nil
}

// UnmarshalYAML records the target's position.
func (f *FadeTarget) UnmarshalYAML(node *yaml.Node) error {
	type plain FadeTarget
	if err := node.Decode((*plain)(f)); err != nil {
		return err
	}
	f.line = node.Line
	return nil
}

// SectionIDs returns the section ids in document order.
func (p *Page) SectionIDs() []string {
	ids := make([]string, len(p.Sections))
	for i, s := range p.Sections {
		ids[i] = s.ID
	}
	return ids
}

// NavLinks maps section ids to navigation link element ids.
func (p *Page) NavLinks() map[string]string {
	links := make(map[string]string, len(p.Sections))
	for _, s := range p.Sections {
		if s.Nav != "" {
			links[s.ID] = s.Nav
		}
	}
	return links
}

// Page returns the page for path: an exact match, else the "*" page.
func (m *Manifest) Page(path string) (*Page, bool) {
	var wildcard *Page
	for i := range m.Pages {
		switch m.Pages[i].Path {
		case path:
			return &m.Pages[i], true
		case "*":
			wildcard = &m.Pages[i]
		}
	}
	return wildcard, wildcard != nil
}

// Parse decodes and validates a manifest. name is used in error
// locations.
func Parse(data []byte, name string) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	m := &Manifest{}
	if err := dec.Decode(m); err != nil && err != io.EOF {
		se := errors.New("M201").Wrap(err)
		if line := yamlErrorLine(err); line > 0 {
			se.Location = &errors.Location{File: name, Line: line}
		} else if name != "" {
			se.Location = &errors.Location{File: name}
		}
		return nil, se
	}
	m.Name = name
	if m.Version == 0 {
		m.Version = CurrentVersion
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// yamlErrorLine extracts the first "line N" from a yaml.v3 error.
func yamlErrorLine(err error) int {
	msg := err.Error()
	i := strings.Index(msg, "line ")
	if i < 0 {
		return 0
	}
	var line int
	if _, scanErr := fmt.Sscanf(msg[i:], "line %d", &line); scanErr != nil {
		return 0
	}
	return line
}
