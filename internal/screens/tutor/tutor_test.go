package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/router"
	"github.com/abhisek/brigade/internal/screen"
	practice "github.com/abhisek/brigade/internal/tutor"
)

type fakeService struct {
	messages []string
	ended    []string
	err      error
	endErr   error
}

func (f *fakeService) Start(_ context.Context, traineeID, unitID string) (*practice.Session, error) {
	return &practice.Session{ID: "t1", TraineeID: traineeID, UnitID: unitID, Phase: practice.PhaseConversation}, nil
}

func (f *fakeService) UpdateTutorReadiness(_ context.Context, _ string, message string) (*practice.Readiness, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.messages = append(f.messages, message)
	score := 30 * len(f.messages)
	return &practice.Readiness{
		ReadinessScore: score,
		SuggestedReady: score >= practice.DefaultThreshold,
		Reply:          "Good. What about the ticket?",
		Topic:          "guest handling",
	}, nil
}

func (f *fakeService) End(_ context.Context, id string) (*practice.Session, error) {
	if f.endErr != nil {
		return nil, f.endErr
	}
	f.ended = append(f.ended, id)
	return &practice.Session{ID: id, Phase: practice.PhaseResults}, nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func newTestScreen(svc Service) *TutorScreen {
	s := New(svc, "trainee-1", &questionbank.Unit{ID: "allergens-101", Title: "Allergen Awareness"})
	s.Update(s.start()())
	return s
}

func say(s *TutorScreen, text string) {
	for _, r := range text {
		s.Update(keyPress(r))
	}
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	if cmd != nil {
		s.Update(cmd())
	}
}

func TestExchangeUpdatesReadiness(t *testing.T) {
	svc := &fakeService{}
	s := newTestScreen(svc)

	say(s, "I tell the manager")
	if len(svc.messages) != 1 || svc.messages[0] != "I tell the manager" {
		t.Fatalf("unexpected messages %q", svc.messages)
	}
	if s.session.Readiness != 30 || s.session.SuggestedReady {
		t.Errorf("expected readiness 30 not ready, got %d %v", s.session.Readiness, s.session.SuggestedReady)
	}

	say(s, "and flag it")
	say(s, "then check the recipe")
	if !s.session.SuggestedReady {
		t.Error("expected suggested ready at 90")
	}
	view := s.View(100, 40)
	if !strings.Contains(view, "Ready for the assessment") {
		t.Error("expected ready badge")
	}
	if !strings.Contains(view, "What about the ticket?") {
		t.Error("expected coach reply in transcript")
	}
}

func TestEmptyMessageNotSent(t *testing.T) {
	svc := &fakeService{}
	s := newTestScreen(svc)

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	if cmd != nil || len(svc.messages) != 0 {
		t.Error("expected nothing sent for an empty message")
	}
}

func TestCoachFailureKeepsSession(t *testing.T) {
	svc := &fakeService{err: errors.New("coach unavailable")}
	s := newTestScreen(svc)

	say(s, "hello")
	if s.waiting {
		t.Error("expected waiting cleared")
	}
	if len(s.session.Turns) != 0 {
		t.Error("expected no turn recorded")
	}
	if !strings.Contains(s.View(100, 40), "coach unavailable") {
		t.Error("expected error shown")
	}
}

func TestEscEndsSession(t *testing.T) {
	svc := &fakeService{}
	s := newTestScreen(svc)

	_, cmd := s.Update(specialKey(tea.KeyEscape))
	_, cmd = s.Update(cmd())
	if len(svc.ended) != 1 || svc.ended[0] != "t1" {
		t.Errorf("expected session t1 ended, got %v", svc.ended)
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected pop after ending")
	}
}

func TestEndFailureIsShownAndSecondEscLeaves(t *testing.T) {
	svc := &fakeService{endErr: errors.New("another message for this practice session is in progress")}
	s := newTestScreen(svc)

	_, cmd := s.Update(specialKey(tea.KeyEscape))
	if _, cmd = s.Update(cmd()); cmd != nil {
		t.Fatal("a failed end must keep the screen open")
	}
	if !strings.Contains(s.View(100, 30), "Could not end practice") {
		t.Errorf("missing failure in status line:\n%s", s.View(100, 30))
	}

	_, cmd = s.Update(specialKey(tea.KeyEscape))
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("second Esc should leave")
	}
}

type assessStub struct{ unitID string }

func (a *assessStub) Init() tea.Cmd                           { return nil }
func (a *assessStub) Update(tea.Msg) (screen.Screen, tea.Cmd) { return a, nil }
func (a *assessStub) View(int, int) string                    { return "assessment" }
func (a *assessStub) Title() string                           { return "Assessment" }

func TestTabOpensAssessmentWhenReady(t *testing.T) {
	svc := &fakeService{}
	var opened *assessStub
	s := newTestScreen(svc).OnReady(func(u *questionbank.Unit) screen.Screen {
		opened = &assessStub{unitID: u.ID}
		return opened
	})

	say(s, "I tell the manager")
	if _, cmd := s.Update(specialKey(tea.KeyTab)); cmd != nil {
		t.Fatal("tab before readiness should do nothing")
	}

	say(s, "then the kitchen")
	say(s, "and flag the ticket")
	if !s.session.SuggestedReady {
		t.Fatalf("expected ready at %d", s.session.Readiness)
	}

	_, cmd := s.Update(specialKey(tea.KeyTab))
	_, cmd = s.Update(cmd())
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected replace, got %T", cmd())
	}
	if msg.Screen != opened || opened.unitID != "allergens-101" {
		t.Errorf("replaced with %v", msg.Screen)
	}
	if len(svc.ended) != 1 {
		t.Errorf("practice session should end before the assessment, ended %v", svc.ended)
	}
}
