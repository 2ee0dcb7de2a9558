package preview

import (
	"fmt"
	"hash/fnv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/vango-dev/scrollkit/pkg/effects"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	navStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F848E")).Padding(0, 1)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#1D63ED")).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	fillStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#3E4451"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ABB2BF")).Background(lipgloss.Color("#282C34"))
	hiddenStyle = lipgloss.NewStyle().Faint(true)

	themePalette = []string{"#E06C75", "#98C379", "#E5C07B", "#61AFEF", "#C678DD", "#56B6C2"}
)

func (m *Model) render() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderNav(),
		m.renderBody(),
		m.renderStatus(),
	)
}

// renderNav draws one tab per section, highlighting the one whose nav
// element carries the active class.
func (m *Model) renderNav() string {
	if m.page == nil || len(m.page.Sections) == 0 {
		return headerStyle.Render("(no sections)")
	}
	current := m.state.Data("", "section")
	tabs := make([]string, 0, len(m.page.Sections))
	for _, s := range m.page.Sections {
		label := s.Title
		if label == "" {
			label = s.ID
		}
		active := s.ID == current
		if s.Nav != "" {
			active = m.state.HasClass(s.Nav, effects.ClassActive)
		}
		if active {
			tabs = append(tabs, activeStyle.Render(label))
		} else {
			tabs = append(tabs, navStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderBody draws the visible slice of the document. Each section
// starts with its title; the theme class on the background element
// tints the page.
func (m *Model) renderBody() string {
	rows := m.viewportRows()
	y := m.scrollY()
	fill := fillStyle
	if theme := m.theme(); theme != "" {
		fill = fill.Foreground(lipgloss.Color(themeColor(theme)))
	}

	lines := make([]string, rows)
	for r := range lines {
		doc := y + r
		if m.page != nil && len(m.page.Sections) > 0 && doc%rows == 0 {
			s := m.page.Sections[min(doc/rows, len(m.page.Sections)-1)]
			title := s.Title
			if title == "" {
				title = s.ID
			}
			lines[r] = titleStyle.Render(fmt.Sprintf("── %s ", title))
			continue
		}
		lines[r] = fill.Render(strings.Repeat("·", max(m.width/2, 1)))
	}
	return strings.Join(lines, "\n")
}

// renderStatus summarizes the effect outputs on one line.
func (m *Model) renderStatus() string {
	sig := m.hub.Signal()
	parts := []string{fmt.Sprintf("y=%d %s", sig.ScrollY, sig.Direction)}
	if theme := m.theme(); theme != "" {
		parts = append(parts, "theme="+theme)
	}
	if m.page != nil {
		for _, p := range m.page.Parallax {
			parts = append(parts, p.Target+"="+m.state.Style(p.Target, "transform"))
		}
		for _, f := range m.page.Fade {
			part := fmt.Sprintf("%s opacity=%s", f.Target, m.state.Style(f.Target, "opacity"))
			if m.state.HasClass(f.Target, effects.ClassHidden) {
				part = hiddenStyle.Render(part + " hidden")
			}
			parts = append(parts, part)
		}
	}
	if sig.IsScrolling {
		parts = append(parts, "scrolling")
	}
	return statusStyle.Width(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

// theme returns the theme class on the page background, or "".
func (m *Model) theme() string {
	if m.page == nil || m.page.Background == "" {
		return ""
	}
	if classes := m.state.Classes(m.page.Background); len(classes) > 0 {
		return classes[0]
	}
	return ""
}

func themeColor(class string) string {
	h := fnv.New32a()
	h.Write([]byte(class))
	return themePalette[h.Sum32()%uint32(len(themePalette))]
}
