package tutor

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/brigade/internal/ui/components"
	"github.com/abhisek/brigade/internal/ui/layout"
	"github.com/abhisek/brigade/internal/ui/theme"
)

func (s *TutorScreen) View(width, height int) string {
	if s.fatal {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render(fmt.Sprintf("\n\n\n  Error: %s\n\n  Press Esc to go back.", s.errMsg))
	}
	if s.session == nil {
		return theme.Hint.Width(width).Align(lipgloss.Center).Render("\n\n\n  Opening your practice session...")
	}

	status := s.renderReadiness(width)
	prompt := "You: " + s.input.View()
	if s.waiting {
		prompt = theme.Hint.Render("Coach is thinking...")
	}
	if s.errMsg != "" {
		prompt = theme.Incorrect.Render(s.errMsg) + "\n" + prompt
	}

	transcriptHeight := height - lipgloss.Height(status) - lipgloss.Height(prompt) - 2
	transcript := s.renderTranscript(min(width-4, 90), transcriptHeight)

	return status + "\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, transcript) + "\n\n" + "  " + prompt
}

func (s *TutorScreen) renderReadiness(width int) string {
	barWidth := min(width-8, 60)
	if layout.IsCompactWidth(width) {
		barWidth = min(width-8, 40)
	}
	bar := components.NewScoreBar("Readiness", s.session.Readiness, s.session.Threshold, barWidth)

	line := "  " + bar.View()
	if s.session.SuggestedReady {
		msg := "Ready for the assessment"
		if s.assess != nil {
			msg += " (Tab)"
		}
		line += "  " + theme.Correct.Render(msg)
	}
	return line + "\n" + lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0)))
}

// renderTranscript shows the most recent exchanges that fit in height.
func (s *TutorScreen) renderTranscript(width, height int) string {
	if len(s.session.Turns) == 0 {
		return theme.Hint.Width(width).Render(
			"Talk through " + s.unit.Title + " with your coach. Explain how you would handle a situation, " +
				"or ask about anything in the material.")
	}

	body := lipgloss.NewStyle().Width(width).Foreground(theme.Text)
	var blocks []string
	for _, t := range s.session.Turns {
		blocks = append(blocks,
			theme.Trainee.Render("You")+"\n"+body.Render(t.Message),
			theme.Coach.Render("Coach")+"\n"+body.Render(t.Reply))
	}

	// Drop the oldest blocks until the rest fit.
	out := strings.Join(blocks, "\n\n")
	for len(blocks) > 2 && lipgloss.Height(out) > height {
		blocks = blocks[2:]
		out = strings.Join(blocks, "\n\n")
	}
	return out
}
