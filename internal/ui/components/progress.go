package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/brigade/internal/ui/theme"
)

// ScoreBar shows a 0-100 score against a mark. The cell at the mark is
// drawn as a tick so the gap to passing is visible.
type ScoreBar struct {
	Label string
	Score int
	Mark  int
	Width int
}

func NewScoreBar(label string, score, mark, width int) ScoreBar {
	return ScoreBar{Label: label, Score: score, Mark: mark, Width: width}
}

// cell maps a 0-100 value onto a bar of n cells.
func cell(v, n int) int {
	v = min(max(v, 0), 100)
	return v * n / 100
}

func (p ScoreBar) View() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label))
		b.WriteString("  ")
	}

	n := max(p.Width-lipgloss.Width(b.String())-6, 4)
	filled := cell(p.Score, n)
	mark := -1
	if p.Mark > 0 {
		mark = min(cell(p.Mark, n), n-1)
	}

	fill := theme.Accent
	if p.Score >= p.Mark {
		fill = theme.Success
	}
	on := lipgloss.NewStyle().Background(fill)
	off := lipgloss.NewStyle().Background(theme.Border)
	tick := lipgloss.NewStyle().Foreground(theme.Text)

	for i := range n {
		style := off
		if i < filled {
			style = on
		}
		if i == mark {
			b.WriteString(tick.Inherit(style).Render("│"))
			continue
		}
		b.WriteString(style.Render(" "))
	}

	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  %3d", min(max(p.Score, 0), 100))))
	return b.String()
}
