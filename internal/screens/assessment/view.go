package assessment

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	engine "github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/scoring"
	"github.com/abhisek/brigade/internal/ui/components"
	"github.com/abhisek/brigade/internal/ui/theme"
)

func (s *AssessmentScreen) View(width, height int) string {
	st := s.state
	switch {
	case st.Phase == engine.PhaseError:
		return renderError(width, st.Err, st.Retryable)
	case st.Phase == engine.PhaseEvaluation:
		return centered(width, theme.Hint, "\n\n\n  Scoring your answers...")
	case st.Phase == engine.PhaseResults && st.Results != nil:
		return renderResults(width, st.Results)
	case st.Phase == engine.PhaseOnboarding && !st.Pending:
		return renderConsent(width)
	case s.showingResult:
		return s.renderResult(width)
	case st.Phase == engine.PhaseWrapUp:
		return s.renderWrapUp(width)
	case st.Phase == engine.PhaseConversation && !st.Pending:
		return s.renderQuestion(width)
	case st.Phase == engine.PhaseConversation:
		return centered(width, theme.Hint, "\n\n\n  Grading...")
	}
	return centered(width, theme.Hint, "\n\n\n  Preparing your questions...")
}

func centered(width int, style lipgloss.Style, text string) string {
	return style.Width(width).Align(lipgloss.Center).Render(text)
}

// block centers a left-aligned block of at most 70 columns.
func block(width int, text string) string {
	w := min(width-8, 70)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, lipgloss.NewStyle().Width(w).Render(text))
}

func (s *AssessmentScreen) progressLine(width int) string {
	sess := s.state.Session
	if sess == nil {
		return ""
	}
	left := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("  Attempt %d", sess.Attempt))

	var right string
	if sess.Mode == questionbank.AssessmentConversation {
		right = fmt.Sprintf("Topics %d/%d", sess.TopicsCovered, sess.TopicsTotal)
	} else {
		right = fmt.Sprintf("Answered %d/%d", len(sess.Turns), len(sess.Questions))
	}
	right = lipgloss.NewStyle().Foreground(theme.TextDim).Render(right)

	line := left
	if pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 4; pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}
	return line + "\n" + lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0)))
}

func (s *AssessmentScreen) renderQuestion(width int) string {
	q := s.current()
	if q == nil {
		return centered(width, theme.Hint, "\n\n\n  Waiting for the next question...")
	}

	var b strings.Builder
	b.WriteString(s.progressLine(width))
	b.WriteString("\n\n")
	if q.Topic != "" {
		b.WriteString(centered(width, theme.Hint, q.Topic))
		b.WriteString("\n")
	}
	b.WriteString(block(width, theme.Body.Bold(true).Render(q.Prompt)))
	b.WriteString("\n\n")

	if q.Kind == questionbank.KindMultipleChoice {
		b.WriteString(block(width, s.mc.View()))
		b.WriteString("\n")
		b.WriteString(centered(width, theme.Hint, "Pick with 1-9, or arrows and Enter"))
	} else {
		b.WriteString(block(width, "Answer: "+s.input.View()))
	}

	if err := s.state.Err; err != nil {
		b.WriteString("\n\n")
		b.WriteString(centered(width, theme.Incorrect, rejection(err)))
	}
	return b.String()
}

// rejection phrases an input error for the trainee.
func rejection(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownQuestion):
		return "That question is not part of this attempt."
	case errors.Is(err, engine.ErrVoiceDisabled):
		return "Voice answers are off for this attempt."
	}
	return "That answer was not accepted: " + err.Error()
}

func (s *AssessmentScreen) renderResult(width int) string {
	res := s.state.Last
	var q *questionbank.ClientQuestion
	if sess := s.state.Session; sess != nil {
		q = sess.Question(res.QuestionID)
	}

	var b strings.Builder
	b.WriteString("\n")
	if errors.Is(s.state.Err, engine.ErrAlreadyGraded) {
		b.WriteString(centered(width, theme.Hint, "You already answered this one. Here is how it was graded."))
		b.WriteString("\n\n")
	}
	if q != nil {
		b.WriteString(block(width, theme.Body.Bold(true).Render(q.Prompt)))
		b.WriteString("\n\n")
	}

	switch {
	case res.MultipleChoice != nil:
		b.WriteString(block(width, s.mc.View()))
		b.WriteString("\n")
		if res.MultipleChoice.IsCorrect {
			b.WriteString(centered(width, theme.Correct, "Correct!"))
		} else {
			b.WriteString(centered(width, theme.Incorrect, "Not quite. The answer is "+res.MultipleChoice.CorrectOptionText+"."))
		}
		if exp := res.MultipleChoice.Explanation; exp != "" {
			b.WriteString("\n\n")
			b.WriteString(block(width, theme.Body.Render(exp)))
		}
	case res.OpenResponse != nil:
		verdict, style := "Good answer", theme.Correct
		if !res.OpenResponse.Passed {
			verdict, style = "Needs work", theme.Incorrect
		}
		b.WriteString(centered(width, style, fmt.Sprintf("%s (%d/100)", verdict, res.OpenResponse.Score)))
		if notes := res.OpenResponse.RubricNotes; notes != "" {
			b.WriteString("\n\n")
			b.WriteString(block(width, theme.Body.Render(notes)))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Hint, "Press any key to continue..."))
	return b.String()
}

func (s *AssessmentScreen) renderWrapUp(width int) string {
	var b strings.Builder
	b.WriteString(s.progressLine(width))
	b.WriteString("\n\n\n")
	b.WriteString(centered(width, theme.Title, "That covers it."))
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Body, "Press Enter to get your results."))
	return b.String()
}

func renderConsent(width int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Title, "Before we start"))
	b.WriteString("\n\n")
	b.WriteString(block(width, theme.Body.Render(
		"Spoken answers can be recorded and kept so a trainer can review them. "+
			"If you say no, you can still answer everything by typing.")))
	b.WriteString("\n\n")
	b.WriteString(centered(width, theme.Correct, "[Y] Allow recordings"))
	b.WriteString("\n")
	b.WriteString(centered(width, theme.Selected, "[N] Text answers only"))
	return b.String()
}

func renderResults(width int, res *scoring.Results) string {
	var b strings.Builder
	b.WriteString("\n")

	heading, style := "Passed", theme.Correct
	if !res.Passed {
		heading, style = "Not passed yet", theme.Incorrect
	}
	b.WriteString(centered(width, style, heading))
	b.WriteString("\n\n")

	bar := components.NewScoreBar("Score", res.Score, res.PassingThreshold, min(width-8, 50))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	b.WriteString("\n")
	level := theme.Level(string(res.CompetencyLevel)).Render(string(res.CompetencyLevel))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		theme.Subtitle.Render(fmt.Sprintf("%d/100, pass mark %d. Level: ", res.Score, res.PassingThreshold))+level))
	b.WriteString("\n\n")

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		var sb strings.Builder
		sb.WriteString(theme.Hint.Render(title))
		for _, it := range items {
			sb.WriteString("\n  • " + it)
		}
		b.WriteString(block(width, theme.Body.Render(sb.String())))
		b.WriteString("\n\n")
	}
	section("Strengths", res.Feedback.Strengths)
	section("To work on", res.Feedback.AreasForImprovement)
	if res.Feedback.Encouragement != "" {
		b.WriteString(block(width, theme.Body.Italic(true).Render(res.Feedback.Encouragement)))
		b.WriteString("\n\n")
	}
	if res.FeedbackDegraded {
		b.WriteString(centered(width, theme.Hint, "Detailed feedback is unavailable for this attempt."))
	}
	return b.String()
}

func renderError(width int, err error, retryable bool) string {
	msg := "Something went wrong."
	if err != nil {
		msg = err.Error()
	}
	hint := "Press Esc to go back."
	if retryable {
		hint = "Press R to try again, or Esc to go back."
	}
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\n  Error: %s\n\n  %s", msg, hint))
}
