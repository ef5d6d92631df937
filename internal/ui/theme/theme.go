// Package theme holds the terminal palette and shared lipgloss styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette: warm kitchen accents on slate.
var (
	Primary   = lipgloss.Color("#E11D48") // tomato
	Secondary = lipgloss.Color("#0EA5E9") // sky
	Accent    = lipgloss.Color("#F59E0B") // saffron
	Success   = lipgloss.Color("#22C55E") // basil
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")

	// Gold marks the expert band.
	Gold = lipgloss.Color("#FACC15")
)

var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(Primary).Align(lipgloss.Center)
	Subtitle = lipgloss.NewStyle().Foreground(TextDim).Align(lipgloss.Center)
	Body     = lipgloss.NewStyle().Foreground(Text)
	Hint     = lipgloss.NewStyle().Foreground(TextDim).Italic(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Selected   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Unselected = lipgloss.NewStyle().Foreground(Text)

	Correct   = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Incorrect = lipgloss.NewStyle().Foreground(Error).Bold(true)

	// Speaker labels in the practice transcript.
	Trainee = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	Coach   = lipgloss.NewStyle().Foreground(Accent).Bold(true)
)

var levels = map[string]lipgloss.Style{
	"novice":     lipgloss.NewStyle().Foreground(Error),
	"competent":  lipgloss.NewStyle().Foreground(Accent),
	"proficient": lipgloss.NewStyle().Foreground(Success),
	"expert":     lipgloss.NewStyle().Foreground(Gold).Bold(true),
}

// Level returns the style for a competency band name. Unknown names get
// the dim hint colour.
func Level(name string) lipgloss.Style {
	if s, ok := levels[name]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(TextDim)
}
