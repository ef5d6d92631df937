package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brigade/internal/ui/theme"
)

// MenuItem is one selectable row. Detail is rendered dim after the label
// and Badge, when set, after the detail in BadgeStyle.
type MenuItem struct {
	Label      string
	Detail     string
	Badge      string
	BadgeStyle lipgloss.Style
	Action     func() tea.Cmd
	Disabled   bool
}

// Menu is a vertical list navigated with the arrow keys or j/k.
type Menu struct {
	Items    []MenuItem
	Selected int
}

// NewMenu selects the first enabled item.
func NewMenu(items []MenuItem) Menu {
	m := Menu{Items: items, Selected: -1}
	m.step(1)
	if m.Selected < 0 {
		m.Selected = 0
	}
	return m
}

func (m Menu) Init() tea.Cmd {
	return nil
}

// step moves the selection to the next enabled item in direction dir,
// staying put at either end.
func (m *Menu) step(dir int) {
	for i := m.Selected + dir; i >= 0 && i < len(m.Items); i += dir {
		if !m.Items[i].Disabled {
			m.Selected = i
			return
		}
	}
}

func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch kmsg.String() {
	case "up", "k":
		m.step(-1)
	case "down", "j":
		m.step(1)
	case "enter":
		if m.Selected < 0 || m.Selected >= len(m.Items) {
			return m, nil
		}
		if it := m.Items[m.Selected]; it.Action != nil && !it.Disabled {
			return m, it.Action()
		}
	}
	return m, nil
}

func (m Menu) View() string {
	var b strings.Builder
	for i, it := range m.Items {
		style, marker := theme.Unselected, "    "
		if it.Disabled {
			style = lipgloss.NewStyle().Foreground(theme.Border)
		} else if i == m.Selected {
			style, marker = theme.Selected, "  ▸ "
		}

		b.WriteString(style.Render(marker + it.Label))
		if it.Detail != "" {
			b.WriteString("  " + theme.Hint.Render(it.Detail))
		}
		if it.Badge != "" {
			b.WriteString("  " + it.BadgeStyle.Render(it.Badge))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
