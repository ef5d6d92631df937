package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brigade/internal/ui/theme"
)

// Choice is one selectable option.
type Choice struct {
	ID   string
	Text string
}

// MultiChoice is a multiple-choice selector. It never knows the key:
// Reveal marks the options after the server has graded the answer.
type MultiChoice struct {
	Choices  []Choice
	Selected int

	revealed  bool
	correctID string
	chosenID  string
}

// NewMultiChoice creates a selector with the first option highlighted.
func NewMultiChoice(choices []Choice) MultiChoice {
	return MultiChoice{Choices: choices}
}

// Update handles arrow keys and number shortcuts. The returned bool is
// true when the trainee picked an option with a number key.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, bool) {
	if m.revealed {
		return m, false
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, false
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Choices)-1 {
			m.Selected++
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(m.Choices) {
				m.Selected = i
				return m, true
			}
		}
	}
	return m, false
}

// Value is the id of the highlighted option.
func (m MultiChoice) Value() string {
	if m.Selected < 0 || m.Selected >= len(m.Choices) {
		return ""
	}
	return m.Choices[m.Selected].ID
}

// Reveal marks the keyed option and the trainee's choice.
func (m *MultiChoice) Reveal(chosenID, correctID string) {
	m.revealed = true
	m.chosenID = chosenID
	m.correctID = correctID
}

// View renders the options.
func (m MultiChoice) View() string {
	var b strings.Builder
	for i, c := range m.Choices {
		prefix := "  "
		if i == m.Selected && !m.revealed {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d) %s", prefix, i+1, c.Text)

		style := theme.Unselected
		switch {
		case m.revealed && c.ID == m.correctID:
			style = theme.Correct
		case m.revealed && c.ID == m.chosenID:
			style = theme.Incorrect
		case m.revealed:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == m.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
