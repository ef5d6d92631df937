// Package tutor is the terminal practice chat. Each exchange is scored
// and the readiness bar tells the trainee when to take the assessment.
package tutor

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/router"
	"github.com/abhisek/brigade/internal/screen"
	practice "github.com/abhisek/brigade/internal/tutor"
	"github.com/abhisek/brigade/internal/ui/components"
	"github.com/abhisek/brigade/internal/ui/layout"
)

// Service is the practice backend. *practice.Service implements it.
type Service interface {
	Start(ctx context.Context, traineeID, unitID string) (*practice.Session, error)
	UpdateTutorReadiness(ctx context.Context, sessionID, message string) (*practice.Readiness, error)
	End(ctx context.Context, sessionID string) (*practice.Session, error)
}

type startedMsg struct {
	Session *practice.Session
	Err     error
}

type replyMsg struct {
	Message   string
	Readiness *practice.Readiness
	Err       error
}

// endedMsg reports the session closed. next, when set, replaces this
// screen instead of returning to the menu.
type endedMsg struct {
	next screen.Screen
	err  error
}

// TutorScreen implements screen.Screen for a practice session.
type TutorScreen struct {
	svc       Service
	traineeID string
	unit      *questionbank.Unit

	// assess opens the unit's assessment once readiness is suggested.
	assess func(*questionbank.Unit) screen.Screen

	session *practice.Session
	input   components.TextInput
	waiting bool
	errMsg  string
	fatal   bool

	// endFailed lets a second Esc leave without closing the session.
	endFailed bool
}

var _ screen.Screen = (*TutorScreen)(nil)
var _ screen.KeyHintProvider = (*TutorScreen)(nil)
var _ screen.BackInterceptor = (*TutorScreen)(nil)

// New creates the practice screen for a unit.
func New(svc Service, traineeID string, unit *questionbank.Unit) *TutorScreen {
	return &TutorScreen{
		svc:       svc,
		traineeID: traineeID,
		unit:      unit,
		input:     components.NewTextInput("Ask a question or explain what you would do...", 1000),
	}
}

// OnReady lets the trainee go straight to the assessment with Tab once
// the coach suggests they are ready.
func (s *TutorScreen) OnReady(assess func(*questionbank.Unit) screen.Screen) *TutorScreen {
	s.assess = assess
	return s
}

func (s *TutorScreen) canAssess() bool {
	return s.assess != nil && s.session != nil && s.session.SuggestedReady && !s.waiting
}

func (s *TutorScreen) Init() tea.Cmd {
	return tea.Batch(s.start(), s.input.Init())
}

func (s *TutorScreen) Title() string {
	return "Practice: " + s.unit.Title
}

func (s *TutorScreen) InterceptsBack() bool { return true }

func (s *TutorScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Send"}}
	if s.canAssess() {
		hints = append(hints, layout.KeyHint{Key: "Tab", Description: "Take the assessment"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "End practice"})
}

func (s *TutorScreen) start() tea.Cmd {
	svc, trainee, unit := s.svc, s.traineeID, s.unit.ID
	return func() tea.Msg {
		sess, err := svc.Start(context.Background(), trainee, unit)
		return startedMsg{Session: sess, Err: err}
	}
}

func (s *TutorScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		if msg.Err != nil {
			s.errMsg, s.fatal = msg.Err.Error(), true
			return s, nil
		}
		s.session = msg.Session
		return s, nil

	case replyMsg:
		s.waiting = false
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.record(msg.Message, msg.Readiness)
		return s, nil

	case endedMsg:
		if msg.err != nil {
			s.endFailed = true
			s.errMsg = "Could not end practice: " + msg.err.Error() + ". Press Esc again to leave anyway."
			return s, nil
		}
		if msg.next != nil {
			next := msg.next
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		}
		return s, func() tea.Msg { return router.PopScreenMsg{} }

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *TutorScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if s.endFailed || s.fatal {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, s.end(nil)
	case "tab":
		if !s.canAssess() {
			return s, nil
		}
		return s, s.end(s.assess(s.unit))
	case "enter":
		text := strings.TrimSpace(s.input.Value())
		if text == "" || s.waiting || s.session == nil {
			return s, nil
		}
		s.waiting = true
		s.input.Reset()
		return s, s.send(text)
	}
	if s.fatal {
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *TutorScreen) send(text string) tea.Cmd {
	svc, id := s.svc, s.session.ID
	return func() tea.Msg {
		r, err := svc.UpdateTutorReadiness(context.Background(), id, text)
		return replyMsg{Message: text, Readiness: r, Err: err}
	}
}

// end closes the session before leaving. A failed close is reported and
// the trainee stays on the screen.
func (s *TutorScreen) end(next screen.Screen) tea.Cmd {
	if s.session == nil {
		return func() tea.Msg { return endedMsg{next: next} }
	}
	svc, id := s.svc, s.session.ID
	return func() tea.Msg {
		_, err := svc.End(context.Background(), id)
		return endedMsg{next: next, err: err}
	}
}

// record appends the exchange locally so the view does not refetch.
func (s *TutorScreen) record(message string, r *practice.Readiness) {
	s.session.Turns = append(s.session.Turns, practice.Turn{
		Seq:     len(s.session.Turns) + 1,
		Message: message,
		Reply:   r.Reply,
		Topic:   r.Topic,
	})
	s.session.Readiness = r.ReadinessScore
	s.session.SuggestedReady = r.SuggestedReady
}
