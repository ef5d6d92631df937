package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.5-flash-lite", "gemini-2.5-flash-lite"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGeminiSchema_RubricVerdict(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"passed":       map[string]any{"type": "boolean"},
			"score":        map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"rubric_notes": map[string]any{"type": "string"},
			"kind":         map[string]any{"type": "string", "enum": []string{"multiple_choice", "open_response"}},
			"topics": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"passed", "score", "rubric_notes"},
		"additionalProperties": false,
	}

	s := geminiSchema(def)

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %s, want OBJECT", s.Type)
	}
	if len(s.Properties) != 5 {
		t.Fatalf("properties = %d, want 5", len(s.Properties))
	}
	if s.Properties["passed"].Type != genai.TypeBoolean {
		t.Errorf("passed type = %s", s.Properties["passed"].Type)
	}
	score := s.Properties["score"]
	if score.Type != genai.TypeInteger || score.Minimum == nil || *score.Minimum != 0 || score.Maximum == nil || *score.Maximum != 100 {
		t.Errorf("score bounds not carried over: %+v", score)
	}
	if got := s.Properties["kind"].Enum; len(got) != 2 {
		t.Errorf("kind enum = %v", got)
	}
	if s.Properties["topics"].Items == nil || s.Properties["topics"].Items.Type != genai.TypeString {
		t.Errorf("topics items not converted")
	}
	if len(s.Required) != 3 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestGeminiSchema_UnknownTypeFallsBackToString(t *testing.T) {
	s := geminiSchema(map[string]any{"type": "null"})
	if s.Type != genai.TypeString {
		t.Fatalf("type = %s, want STRING", s.Type)
	}
}

func TestGeminiContents_Roles(t *testing.T) {
	got := geminiContents([]Message{
		{Role: RoleUser, Content: "What temperature should chicken reach?"},
		{Role: RoleAssistant, Content: "Tell me more."},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Role != genai.RoleUser || got[1].Role != genai.RoleModel {
		t.Fatalf("roles = %q, %q", got[0].Role, got[1].Role)
	}
}
