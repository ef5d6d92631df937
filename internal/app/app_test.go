package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/brigade/internal/router"
	"github.com/abhisek/brigade/internal/screen"
)

type stubScreen struct {
	title string
	keys  int
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		s.keys++
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string { return s.title }
func (s *stubScreen) Title() string        { return s.title }

type interceptingScreen struct{ stubScreen }

func (s *interceptingScreen) InterceptsBack() bool { return true }

func esc() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyEscape} }

func TestEscPopsPlainScreens(t *testing.T) {
	m := New("trainee-1", &stubScreen{title: "units"})
	m.router.Push(&stubScreen{title: "detail"})

	_, cmd := m.Update(esc())
	if cmd == nil {
		t.Fatal("expected pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}

func TestEscGoesToInterceptors(t *testing.T) {
	m := New("trainee-1", &stubScreen{title: "units"})
	top := &interceptingScreen{stubScreen{title: "practice"}}
	m.router.Push(top)

	m.Update(esc())
	if top.keys != 1 {
		t.Errorf("expected the screen to receive Esc, got %d keys", top.keys)
	}
	if m.router.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", m.router.Depth())
	}
}
