package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

func TestMultiChoiceKeys(t *testing.T) {
	mc := NewMultiChoice([]Choice{{ID: "a", Text: "Basil"}, {ID: "b", Text: "Pine nuts"}, {ID: "c", Text: "Parmesan"}})

	mc, picked := mc.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if picked {
		t.Fatal("arrow keys should only move the highlight")
	}
	if got := mc.Value(); got != "b" {
		t.Errorf("Value() = %q, want b", got)
	}

	mc, picked = mc.Update(tea.KeyPressMsg{Code: '3', Text: "3"})
	if !picked || mc.Value() != "c" {
		t.Errorf("number key: picked=%v value=%q, want true c", picked, mc.Value())
	}

	if _, picked = mc.Update(tea.KeyPressMsg{Code: '7', Text: "7"}); picked {
		t.Error("number past the last option must not pick")
	}

	mc.Reveal("c", "b")
	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if mc.Value() != "c" {
		t.Error("revealed selector must ignore keys")
	}
}

func TestScoreBarCell(t *testing.T) {
	tests := []struct {
		v, n, want int
	}{
		{0, 40, 0},
		{70, 40, 28},
		{100, 40, 40},
		{130, 40, 40},
		{-5, 40, 0},
	}
	for _, tt := range tests {
		if got := cell(tt.v, tt.n); got != tt.want {
			t.Errorf("cell(%d, %d) = %d, want %d", tt.v, tt.n, got, tt.want)
		}
	}

	if NewScoreBar("Score", 55, 70, 40).View() == "" {
		t.Error("empty view")
	}
}

func TestMenuSkipsDisabled(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "Practice", Disabled: true},
		{Label: "Assess", Badge: "passed"},
		{Label: "Retake", Disabled: true},
		{Label: "Quit"},
	})
	if m.Selected != 1 {
		t.Fatalf("initial selection %d, want the first enabled item", m.Selected)
	}

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Selected != 3 {
		t.Errorf("down landed on %d, want 3", m.Selected)
	}
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Selected != 3 {
		t.Errorf("down past the end moved to %d", m.Selected)
	}
	m, _ = m.Update(tea.KeyPressMsg{Code: 'k', Text: "k"})
	if m.Selected != 1 {
		t.Errorf("k landed on %d, want 1", m.Selected)
	}

	if !strings.Contains(m.View(), "passed") {
		t.Error("badge not rendered")
	}
}
