package effects

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
	"github.com/vango-dev/scrollkit/pkg/scroll/scrolltest"
)

type collector struct {
	patches []protocol.Patch
}

func (c *collector) Apply(patches ...protocol.Patch) {
	c.patches = append(c.patches, patches...)
}

// take returns and clears the collected patches.
func (c *collector) take() []protocol.Patch {
	out := c.patches
	c.patches = nil
	return out
}

func at(y int) scroll.Signal {
	return scroll.Signal{ScrollY: y, ViewportWidth: 1280, ViewportHeight: 800}
}

func threeSections() *Layout {
	layout := NewLayout()
	layout.Set([]protocol.Section{
		{ID: "intro", Top: 0, Height: 800},
		{ID: "pricing", Top: 800, Height: 800},
		{ID: "faq", Top: 1600, Height: 800},
	})
	return layout
}

func TestFadeOpacity(t *testing.T) {
	tests := []struct {
		name    string
		scrollY int
		vh      int
		ratio   float64
		want    float64
	}{
		{"top", 0, 800, 0.5, 1},
		{"halfway", 200, 800, 0.5, 0.5},
		{"past window", 450, 800, 0.5, 0},
		{"zero window at top", 0, 0, 0.5, 1},
		{"zero window scrolled", 10, 0, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FadeOpacity(tt.scrollY, tt.vh, tt.ratio), 1e-9)
		})
	}
}

func TestFadeUpdate(t *testing.T) {
	sink := &collector{}
	f := NewFade("hero-title", 0.5, 0, sink)

	f.Update(at(0))
	assert.Equal(t, []protocol.Patch{
		protocol.NewSetStylePatch("hero-title", "opacity", "1"),
		protocol.NewRemoveClassPatch("hero-title", ClassHidden),
	}, sink.take())
	assert.True(t, f.Visible())

	f.Update(at(200))
	assert.Equal(t, []protocol.Patch{
		protocol.NewSetStylePatch("hero-title", "opacity", "0.5"),
	}, sink.take())
	assert.True(t, f.Visible())

	f.Update(at(450))
	assert.Equal(t, []protocol.Patch{
		protocol.NewSetStylePatch("hero-title", "opacity", "0"),
		protocol.NewAddClassPatch("hero-title", ClassHidden),
	}, sink.take())
	assert.False(t, f.Visible())

	f.Update(at(500))
	assert.Empty(t, sink.take())
}

func TestParallaxUpdate(t *testing.T) {
	sink := &collector{}
	p := NewParallax("hero-bg", 0.5, 0, sink)

	p.Update(at(100))
	assert.Equal(t, []protocol.Patch{
		protocol.NewSetStylePatch("hero-bg", "transform", "translate3d(0, 50px, 0)"),
	}, sink.take())

	// 50.5 is within half a pixel of the last write.
	p.Update(at(101))
	assert.Empty(t, sink.take())
	assert.Equal(t, 50.0, p.Last())

	p.Update(at(102))
	assert.Equal(t, []protocol.Patch{
		protocol.NewSetStylePatch("hero-bg", "transform", "translate3d(0, 51px, 0)"),
	}, sink.take())
}

func TestParallaxNegativeMultiplier(t *testing.T) {
	sink := &collector{}
	p := NewParallax("stars", -0.25, 0, sink)
	p.Update(at(10))
	assert.Equal(t, "translate3d(0, -2.5px, 0)", sink.take()[0].Value)
}

func TestVisibleRatio(t *testing.T) {
	r := Rect{Top: 800, Height: 800}
	assert.InDelta(t, 0.0, VisibleRatio(r, 0, 800), 1e-9)
	assert.InDelta(t, 0.5, VisibleRatio(r, 400, 800), 1e-9)
	assert.InDelta(t, 1.0, VisibleRatio(r, 800, 800), 1e-9)
	assert.InDelta(t, 0.0, VisibleRatio(r, 800, 0), 1e-9)
}

func TestSectionDetector(t *testing.T) {
	sink := &collector{}
	links := map[string]string{"intro": "nav-intro", "pricing": "nav-pricing"}
	d := NewSectionDetector([]string{"intro", "pricing", "faq"}, links, threeSections(), 0, sink)

	var changes [][2]string
	d.OnChange(func(prev, next string) { changes = append(changes, [2]string{prev, next}) })

	d.Update(at(0))
	assert.Equal(t, "intro", d.Active())
	assert.Equal(t, []protocol.Patch{
		protocol.NewAddClassPatch("nav-intro", ClassActive),
		protocol.NewSetDataPatch("", "section", "intro"),
	}, sink.take())

	d.Update(at(500))
	assert.Equal(t, "pricing", d.Active())
	assert.Equal(t, []protocol.Patch{
		protocol.NewRemoveClassPatch("nav-intro", ClassActive),
		protocol.NewAddClassPatch("nav-pricing", ClassActive),
		protocol.NewSetDataPatch("", "section", "pricing"),
	}, sink.take())

	// Same section, nothing to write.
	d.Update(at(600))
	assert.Empty(t, sink.take())

	// faq has no nav link.
	d.Update(at(1600))
	assert.Equal(t, []protocol.Patch{
		protocol.NewRemoveClassPatch("nav-pricing", ClassActive),
		protocol.NewSetDataPatch("", "section", "faq"),
	}, sink.take())

	assert.Equal(t, [][2]string{{"", "intro"}, {"intro", "pricing"}, {"pricing", "faq"}}, changes)
}

func TestSectionDetectorTieGoesToEarliest(t *testing.T) {
	d := NewSectionDetector([]string{"intro", "pricing", "faq"}, nil, threeSections(), 0, &collector{})
	assert.Equal(t, "intro", d.Detect(at(400)))
}

func TestSectionDetectorNothingVisible(t *testing.T) {
	sink := &collector{}
	d := NewSectionDetector([]string{"intro"}, map[string]string{"intro": "nav-intro"}, threeSections(), 0, sink)

	d.Update(at(0))
	sink.take()

	d.Update(at(5000))
	assert.Equal(t, "", d.Active())
	assert.Equal(t, []protocol.Patch{
		protocol.NewRemoveClassPatch("nav-intro", ClassActive),
		protocol.NewSetDataPatch("", "section", ""),
	}, sink.take())
}

func TestSectionDetectorUnknownLayout(t *testing.T) {
	d := NewSectionDetector([]string{"intro"}, nil, NewLayout(), 0, &collector{})
	assert.Equal(t, "", d.Detect(at(0)))
}

func TestThemeSwitcher(t *testing.T) {
	sink := &collector{}
	d := NewSectionDetector([]string{"intro", "pricing", "faq"}, nil, threeSections(), 0, sink)
	ts := NewThemeSwitcher("page-bg", map[string]string{"pricing": "theme-dark"}, "theme-light", d, 0, sink)

	// Nothing detected yet: the default applies.
	ts.Update(at(0))
	assert.Equal(t, []protocol.Patch{protocol.NewAddClassPatch("page-bg", "theme-light")}, sink.take())

	d.Update(at(900))
	assert.Equal(t, []protocol.Patch{
		protocol.NewSetDataPatch("", "section", "pricing"),
		protocol.NewRemoveClassPatch("page-bg", "theme-light"),
		protocol.NewAddClassPatch("page-bg", "theme-dark"),
	}, sink.take())
	assert.Equal(t, "theme-dark", ts.Current())

	ts.Update(at(0))
	assert.Empty(t, sink.take(), "theme follows the detector, not the signal")
}

func TestThemeFollowsSlowerDetector(t *testing.T) {
	clock := scrolltest.NewClock(time.Unix(1700000000, 0))
	surface := scrolltest.NewSurface(clock, 1280, 800)
	hub := scroll.NewHub(surface,
		scroll.WithClock(clock),
		scroll.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer hub.Close()

	sink := &collector{}
	d := NewSectionDetector([]string{"intro", "pricing", "faq"}, nil, threeSections(), 100*time.Millisecond, sink)
	ts := NewThemeSwitcher("page-bg", map[string]string{"pricing": "theme-dark"}, "theme-light", d, 0, sink)
	d.Mount(hub)
	ts.Mount(hub)

	for _, y := range []int{0, 900, 1000, 1700, 300} {
		clock.Advance(16 * time.Millisecond)
		surface.Step(0, y)
		assert.Equal(t, ts.ThemeFor(d.Active()), ts.Current(), "y=%d", y)
	}
}

type countingRegistrar struct {
	registered   []string
	unregistered int
}

func (c *countingRegistrar) Register(id string, _ func(scroll.Signal), _ time.Duration) func() {
	c.registered = append(c.registered, id)
	return func() { c.unregistered++ }
}

func TestMountOnce(t *testing.T) {
	r := &countingRegistrar{}
	f := NewFade("x", 1, 0, &collector{})

	f.Mount(r)
	f.Mount(r)
	assert.Equal(t, []string{"fade:x"}, r.registered)

	f.Unmount()
	f.Unmount()
	assert.Equal(t, 1, r.unregistered)
}

const pageYAML = `pages:
  - path: /
    background: page-bg
    default_theme: theme-light
    sections:
      - id: intro
        nav: nav-intro
      - id: pricing
        nav: nav-pricing
    themes:
      pricing: theme-dark
    parallax:
      - target: hero-bg
        multiplier: 0.5
    fade:
      - target: hero-title
        start_ratio: 0.5
`

func TestBuildAndMount(t *testing.T) {
	m, err := manifest.Parse([]byte(pageYAML), "site.yaml")
	require.NoError(t, err)
	p, ok := m.Page("/")
	require.True(t, ok)

	clock := scrolltest.NewClock(time.Unix(1700000000, 0))
	surface := scrolltest.NewSurface(clock, 1280, 800)
	hub := scroll.NewHub(surface,
		scroll.WithClock(clock),
		scroll.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer hub.Close()

	sink := &collector{}
	set := Build(p, threeSections(), sink)
	require.Equal(t, 4, set.Len())
	set.Mount(hub)

	assert.Equal(t, []string{"nav", "theme:page-bg", "parallax:hero-bg", "fade:hero-title"}, hub.Subscribers())
	assert.Equal(t, 1, surface.ScrollListeners())

	surface.Step(0, 900)
	assert.Equal(t, "pricing", set.Detector.Active())
	assert.Equal(t, "theme-dark", set.Theme.Current())
	assert.Equal(t, 450.0, set.Parallax[0].Last())
	assert.False(t, set.Fades[0].Visible())
	assert.NotEmpty(t, sink.take())

	set.Unmount()
	assert.Equal(t, 0, hub.Len())
}

func TestBuildWithoutSections(t *testing.T) {
	set := Build(&manifest.Page{Path: "/", Background: "bg"}, NewLayout(), &collector{})
	assert.Nil(t, set.Detector)
	assert.Nil(t, set.Theme)
	assert.Equal(t, 0, set.Len())

	assert.Equal(t, 0, Build(nil, NewLayout(), &collector{}).Len())
}

func TestRelayout(t *testing.T) {
	sink := &collector{}
	layout := NewLayout()
	set := Build(&manifest.Page{
		Path:       "/",
		Background: "bg",
		Sections:   []manifest.Section{{ID: "a"}, {ID: "b"}},
		Themes:     map[string]string{"b": "dark"},
	}, layout, sink)

	set.Relayout(at(0))
	assert.Equal(t, "", set.Detector.Active())

	layout.Put("a", Rect{Top: 0, Height: 100})
	layout.Put("b", Rect{Top: 100, Height: 2000})
	set.Relayout(at(0))
	assert.Equal(t, "b", set.Detector.Active())
	assert.Equal(t, "dark", set.Theme.Current())
}
