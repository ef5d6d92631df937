// Package assessment is the terminal front end of a graded attempt. It
// holds an assessment.State and runs the effects Step asks for.
package assessment

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"

	engine "github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/router"
	"github.com/abhisek/brigade/internal/screen"
	"github.com/abhisek/brigade/internal/ui/components"
	"github.com/abhisek/brigade/internal/ui/layout"
)

// Driver performs machine effects. *engine.Engine implements it.
type Driver interface {
	Perform(ctx context.Context, eff engine.Effect) engine.Event
}

// eventMsg carries the event that answers an effect.
type eventMsg struct {
	Event engine.Event
}

// AssessmentScreen implements screen.Screen for one unit's attempt.
type AssessmentScreen struct {
	driver    Driver
	unitTitle string
	state     engine.State

	// question is the id currently on screen.
	question string
	mc       components.MultiChoice
	input    components.TextInput

	// showingResult is set while the last graded answer is on screen.
	showingResult bool
	submitted     string
}

var _ screen.Screen = (*AssessmentScreen)(nil)
var _ screen.KeyHintProvider = (*AssessmentScreen)(nil)
var _ screen.BackInterceptor = (*AssessmentScreen)(nil)

// New creates the screen for a trainee's attempt at a unit.
func New(driver Driver, traineeID string, unit *questionbank.Unit) *AssessmentScreen {
	return &AssessmentScreen{
		driver:    driver,
		unitTitle: unit.Title,
		state:     engine.NewState(traineeID, unit.ID),
		input:     components.NewTextInput("Type your answer...", 2000),
	}
}

func (s *AssessmentScreen) Init() tea.Cmd {
	return tea.Batch(s.dispatch(engine.Mounted{}), s.input.Init())
}

// InterceptsBack keeps Esc from leaving while a request is outstanding.
func (s *AssessmentScreen) InterceptsBack() bool { return true }

func (s *AssessmentScreen) Title() string {
	return s.unitTitle
}

// State returns the machine state.
func (s *AssessmentScreen) State() engine.State {
	return s.state
}

func (s *AssessmentScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.state.Pending:
		return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	case s.state.Phase == engine.PhaseOnboarding:
		return []layout.KeyHint{
			{Key: "Y", Description: "Allow recordings"},
			{Key: "N", Description: "Text only"},
		}
	case s.showingResult:
		return []layout.KeyHint{{Key: "any key", Description: "Continue"}}
	case s.state.Phase == engine.PhaseConversation:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "Leave (progress is kept)"},
		}
	case s.state.Phase == engine.PhaseWrapUp:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Get results"},
			{Key: "Esc", Description: "Back"},
		}
	case s.state.Phase == engine.PhaseResults:
		return []layout.KeyHint{
			{Key: "N", Description: "New attempt"},
			{Key: "Esc", Description: "Back"},
		}
	case s.state.Phase == engine.PhaseError && s.state.Retryable:
		return []layout.KeyHint{
			{Key: "R", Description: "Try again"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *AssessmentScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return s, s.apply(msg.Event)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.acceptsText() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

// apply steps the machine with ev and syncs the question widgets.
func (s *AssessmentScreen) apply(ev engine.Event) tea.Cmd {
	cmd := s.dispatch(ev)
	switch ev.(type) {
	case engine.AnswerGraded:
		s.showingResult = s.state.Last != nil
	case engine.AnswerRejected:
		s.showingResult = errors.Is(s.state.Err, engine.ErrAlreadyGraded) && s.state.Last != nil
	}
	if s.showingResult {
		if mc := s.state.Last.MultipleChoice; mc != nil {
			s.mc.Reveal(s.state.Last.SubmittedValue, mc.CorrectOptionID)
		}
	} else {
		s.syncQuestion()
	}
	return cmd
}

// dispatch steps the machine and returns commands for its effects.
func (s *AssessmentScreen) dispatch(ev engine.Event) tea.Cmd {
	next, effects := engine.Step(s.state, ev)
	s.state = next

	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		cmds = append(cmds, s.perform(eff))
	}
	return tea.Batch(cmds...)
}

func (s *AssessmentScreen) perform(eff engine.Effect) tea.Cmd {
	driver := s.driver
	return func() tea.Msg {
		return eventMsg{Event: driver.Perform(context.Background(), eff)}
	}
}

// current is the question the conversation is on, if any.
func (s *AssessmentScreen) current() *questionbank.ClientQuestion {
	sess := s.state.Session
	if sess == nil || s.state.Phase != engine.PhaseConversation || sess.NextQuestionID == "" {
		return nil
	}
	return sess.Question(sess.NextQuestionID)
}

// syncQuestion resets the answer widgets when the question changes.
func (s *AssessmentScreen) syncQuestion() {
	q := s.current()
	if q == nil {
		s.question = ""
		return
	}
	if q.ID == s.question {
		return
	}
	s.question = q.ID
	s.input.Reset()
	choices := make([]components.Choice, len(q.Options))
	for i, o := range q.Options {
		choices[i] = components.Choice{ID: o.ID, Text: o.Text}
	}
	s.mc = components.NewMultiChoice(choices)
}

func (s *AssessmentScreen) acceptsText() bool {
	q := s.current()
	return q != nil && q.Kind != questionbank.KindMultipleChoice && !s.state.Pending && !s.showingResult
}

func (s *AssessmentScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	back := func() tea.Msg { return router.PopScreenMsg{} }

	if s.showingResult {
		s.showingResult = false
		s.syncQuestion()
		return s, nil
	}
	if s.state.Pending {
		return s, nil
	}

	switch s.state.Phase {
	case engine.PhaseOnboarding:
		switch key {
		case "y", "Y":
			return s, s.apply(engine.ConsentResolved{Granted: true})
		case "n", "N":
			return s, s.apply(engine.ConsentResolved{Granted: false})
		case "esc":
			return s, back
		}

	case engine.PhaseConversation:
		return s.handleAnswerKey(msg)

	case engine.PhaseWrapUp:
		switch key {
		case "enter":
			return s, s.apply(engine.FinishRequested{})
		case "esc":
			return s, back
		}

	case engine.PhaseResults:
		switch key {
		case "n", "N":
			return s, s.apply(engine.NewAttemptRequested{})
		case "esc", "enter":
			return s, back
		}

	case engine.PhaseError:
		switch key {
		case "r", "R":
			return s, s.apply(engine.RetryRequested{})
		case "esc", "enter":
			return s, back
		}
	}
	return s, nil
}

func (s *AssessmentScreen) handleAnswerKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	q := s.current()
	if q == nil {
		return s, nil
	}
	key := msg.String()
	if key == "esc" {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	if q.Kind == questionbank.KindMultipleChoice {
		var picked bool
		s.mc, picked = s.mc.Update(msg)
		if picked || key == "enter" {
			return s, s.submit(q.ID, s.mc.Value())
		}
		return s, nil
	}

	if key == "enter" {
		if s.input.Value() == "" {
			return s, nil
		}
		return s, s.submit(q.ID, s.input.Value())
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *AssessmentScreen) submit(questionID, value string) tea.Cmd {
	s.submitted = value
	return s.apply(engine.AnswerSubmitted{
		QuestionID: questionID,
		Value:      value,
		Modality:   grading.ModalityText,
	})
}
