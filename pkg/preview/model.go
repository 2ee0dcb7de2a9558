package preview

import (
	"context"
	"log/slog"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/vango-dev/scrollkit/pkg/effects"
	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

const (
	// FrameInterval is how often queued frames are flushed.
	FrameInterval = 16 * time.Millisecond

	wheelStep   = 3
	chromeRows  = 2 // header and status line
	fillerPages = 3 // document height, in screens, for pages without sections
)

type frameMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "b")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "space", "f")),
		Top:      key.NewBinding(key.WithKeys("home", "g")),
		Bottom:   key.NewBinding(key.WithKeys("end", "G")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
	}
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger passed to the hub.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithQuietWindow sets the hub's scroll-end window.
func WithQuietWindow(d time.Duration) Option {
	return func(m *Model) {
		m.quietWindow = d
	}
}

// WithSize sets the initial terminal size. The first WindowSizeMsg
// replaces it.
func WithSize(width, height int) Option {
	return func(m *Model) {
		m.width, m.height = width, height
	}
}

// Model is the Bubble Tea model of a page preview.
type Model struct {
	page    *manifest.Page
	surface *Surface
	hub     *scroll.Hub
	layout  *effects.Layout
	effects *effects.Set
	state   *State
	keys    keyMap

	width       int
	height      int
	quietWindow time.Duration
	logger      *slog.Logger
}

// New builds the effects for page and mounts them on a terminal surface.
// page may be nil, which previews an empty document.
func New(page *manifest.Page, opts ...Option) *Model {
	m := &Model{
		page:        page,
		layout:      effects.NewLayout(),
		state:       NewState(),
		keys:        defaultKeyMap(),
		width:       80,
		height:      24,
		quietWindow: scroll.DefaultQuietWindow,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.surface = NewSurface(m.width, m.viewportRows())
	m.hub = scroll.NewHub(m.surface,
		scroll.WithClock(scroll.DispatchClock{Dispatch: m.surface.Post}),
		scroll.WithQuietWindow(m.quietWindow),
		scroll.WithLogger(m.logger.With("component", "preview")),
	)
	m.effects = effects.Build(page, m.layout, m.state)
	m.measure()
	m.effects.Mount(m.hub)
	m.surface.ScrollTo(0, 0)
	return m
}

// Init starts the frame ticker.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update handles terminal input and frame ticks.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.surface.Flush(time.Time(msg))
		return m, tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.surface.Resize(m.width, m.viewportRows())
		m.measure()
		m.effects.Relayout(m.hub.Signal())
		m.scrollTo(m.scrollY())

	case tea.MouseWheelMsg:
		switch msg.Button {
		case tea.MouseWheelUp:
			m.scrollTo(m.scrollY() - wheelStep)
		case tea.MouseWheelDown:
			m.scrollTo(m.scrollY() + wheelStep)
		}

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.scrollTo(m.scrollY() - 1)
		case key.Matches(msg, m.keys.Down):
			m.scrollTo(m.scrollY() + 1)
		case key.Matches(msg, m.keys.PageUp):
			m.scrollTo(m.scrollY() - m.viewportRows())
		case key.Matches(msg, m.keys.PageDown):
			m.scrollTo(m.scrollY() + m.viewportRows())
		case key.Matches(msg, m.keys.Top):
			m.scrollTo(0)
		case key.Matches(msg, m.keys.Bottom):
			m.scrollTo(m.maxScroll())
		}
	}
	return m, nil
}

// View renders the page.
func (m *Model) View() tea.View {
	view := tea.NewView(m.render())
	view.AltScreen = true
	view.MouseMode = tea.MouseModeCellMotion
	view.WindowTitle = "scrollkit preview"
	return view
}

// Close unmounts the effects and closes the hub.
func (m *Model) Close() {
	m.effects.Unmount()
	m.hub.Close()
}

// Hub returns the preview's hub.
func (m *Model) Hub() *scroll.Hub { return m.hub }

// State returns the document state the effects write to.
func (m *Model) State() *State { return m.state }

func (m *Model) viewportRows() int {
	return max(m.height-chromeRows, 1)
}

func (m *Model) scrollY() int {
	_, y := m.surface.ScrollOffset()
	return y
}

func (m *Model) documentRows() int {
	screens := fillerPages
	if m.page != nil && len(m.page.Sections) > 0 {
		screens = len(m.page.Sections)
	}
	return screens * m.viewportRows()
}

func (m *Model) maxScroll() int {
	return max(m.documentRows()-m.viewportRows(), 0)
}

// scrollTo clamps y to the document and moves the surface. Moving to the
// current offset still notifies, so a resize produces a fresh frame.
func (m *Model) scrollTo(y int) {
	y = min(max(y, 0), m.maxScroll())
	m.surface.ScrollTo(0, y)
}

// measure lays the sections out one screen each.
func (m *Model) measure() {
	if m.page == nil {
		return
	}
	rows := m.viewportRows()
	sections := make([]protocol.Section, len(m.page.Sections))
	for i, s := range m.page.Sections {
		sections[i] = protocol.Section{ID: s.ID, Top: i * rows, Height: rows}
	}
	m.layout.Set(sections)
}

// Run runs the preview until the user quits or ctx is done.
func Run(ctx context.Context, page *manifest.Page, opts ...Option) error {
	m := New(page, opts...)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
