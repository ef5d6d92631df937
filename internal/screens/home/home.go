package home

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/router"
	"github.com/abhisek/brigade/internal/screen"
	"github.com/abhisek/brigade/internal/ui/components"
	"github.com/abhisek/brigade/internal/ui/layout"
	"github.com/abhisek/brigade/internal/ui/theme"
)

// Launchers build the screens the home menu opens. Outcomes, when set,
// reports the trainee's latest attempt per unit id; it runs off the UI
// loop on start and whenever the home screen is uncovered.
type Launchers struct {
	Assess   func(unit *questionbank.Unit) screen.Screen
	Practice func(unit *questionbank.Unit) screen.Screen
	Outcomes func() (map[string]Outcome, error)
}

// Outcome summarises the newest attempt at a unit.
type Outcome struct {
	Attempt int
	Open    bool // not finalized yet
	Score   int
	Level   string
	Passed  bool
}

type outcomesMsg struct {
	byUnit map[string]Outcome
}

// HomeScreen lists the units a trainee can practice or be assessed on.
type HomeScreen struct {
	menu      components.Menu
	traineeID string
	units     []*questionbank.Unit
	outcomes  func() (map[string]Outcome, error)
}

var (
	_ screen.Screen  = (*HomeScreen)(nil)
	_ screen.Resumer = (*HomeScreen)(nil)
)

// New creates the home screen. Each unit gets a practice and an assess
// entry; a nil launcher disables its entries.
func New(traineeID string, units []*questionbank.Unit, l Launchers) *HomeScreen {
	var items []components.MenuItem
	for _, u := range units {
		items = append(items,
			components.MenuItem{
				Label:    "Practice  " + u.Title,
				Detail:   topics(u),
				Action:   push(u, l.Practice),
				Disabled: l.Practice == nil,
			},
			components.MenuItem{
				Label:    "Assess    " + u.Title,
				Detail:   fmt.Sprintf("%s, pass mark %d", u.AssessmentType, u.PassingThreshold),
				Action:   push(u, l.Assess),
				Disabled: l.Assess == nil,
			})
	}
	items = append(items, components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }})

	return &HomeScreen{
		menu:      components.NewMenu(items),
		traineeID: traineeID,
		units:     units,
		outcomes:  l.Outcomes,
	}
}

func push(u *questionbank.Unit, open func(*questionbank.Unit) screen.Screen) func() tea.Cmd {
	return func() tea.Cmd {
		if open == nil {
			return nil
		}
		return func() tea.Msg { return router.PushScreenMsg{Screen: open(u)} }
	}
}

func topics(u *questionbank.Unit) string {
	if len(u.Topics) == 0 {
		return ""
	}
	return strings.Join(u.Topics, ", ")
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.loadOutcomes()
}

// Resume reloads outcomes after an assessment or practice screen closes.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.loadOutcomes()
}

// loadOutcomes ignores lookup errors: the menu works without badges.
func (h *HomeScreen) loadOutcomes() tea.Cmd {
	if h.outcomes == nil {
		return nil
	}
	load := h.outcomes
	return func() tea.Msg {
		byUnit, err := load()
		if err != nil {
			return nil
		}
		return outcomesMsg{byUnit: byUnit}
	}
}

// applyOutcomes badges each unit's assess entry, which sits right after
// its practice entry.
func (h *HomeScreen) applyOutcomes(byUnit map[string]Outcome) {
	for i, u := range h.units {
		item := &h.menu.Items[2*i+1]
		o, ok := byUnit[u.ID]
		if !ok {
			item.Badge = ""
			continue
		}
		item.Badge, item.BadgeStyle = badge(o)
	}
}

func badge(o Outcome) (string, lipgloss.Style) {
	switch {
	case o.Open:
		return fmt.Sprintf("attempt %d in progress", o.Attempt), theme.Hint
	case o.Passed:
		return fmt.Sprintf("passed %d, %s", o.Score, o.Level), theme.Level(o.Level)
	default:
		return fmt.Sprintf("last %d, not passed", o.Score), theme.Incorrect
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if m, ok := msg.(outcomesMsg); ok {
		h.applyOutcomes(m.byUnit)
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	compact := layout.IsCompactWidth(width) || height < 20

	var sections []string
	sections = append(sections, renderBanner(width, compact))
	sections = append(sections, theme.Subtitle.Width(width).Render("Signed in as "+h.traineeID))

	if len(h.units) == 0 {
		sections = append(sections, theme.Hint.Width(width).Align(lipgloss.Center).
			Render("No training units yet. Import one with: brigade units import <file>"))
	}
	menu := theme.Card.Render(h.menu.View())
	sections = append(sections, lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))

	return lipgloss.PlaceVertical(height, lipgloss.Center, strings.Join(sections, "\n\n"))
}

func (h *HomeScreen) Title() string {
	return "Units"
}
