package scoring

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/abhisek/brigade/internal/llm"
)

// Narrator writes feedback about a finished attempt. It never changes the
// score.
type Narrator interface {
	Narrate(ctx context.Context, in NarrateInput) (Feedback, error)
}

// NarrateInput is the transcript and outcome the narrator comments on.
type NarrateInput struct {
	UnitTitle       string
	Score           int
	Passed          bool
	CompetencyLevel CompetencyLevel
	Answers         []AnswerSummary
}

// AnswerSummary is one question and how the trainee did on it.
type AnswerSummary struct {
	Topic    string
	Prompt   string
	Answer   string
	Score    int
	Passed   bool
	Feedback string // rubric notes or the multiple-choice explanation
}

// NarratorConfig holds configuration for the LLM narrator.
type NarratorConfig struct {
	MaxTokens   int
	Temperature float64
	MaxItems    int // cap on strengths and on areas for improvement
}

// DefaultNarratorConfig returns sensible defaults.
func DefaultNarratorConfig() NarratorConfig {
	return NarratorConfig{MaxTokens: 700, Temperature: 0.4, MaxItems: 4}
}

// LLMNarrator narrates feedback with the LLM provider.
type LLMNarrator struct {
	provider llm.Provider
	cfg      NarratorConfig
}

// NewLLMNarrator creates an LLM-backed narrator.
func NewLLMNarrator(provider llm.Provider, cfg NarratorConfig) *LLMNarrator {
	return &LLMNarrator{provider: provider, cfg: cfg}
}

// FeedbackSchema is the structured output requested from the narrator.
var FeedbackSchema = &llm.Schema{
	Name:        "assessment-feedback",
	Description: "Feedback for a trainee after a graded assessment",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strengths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "What the trainee clearly knows, one short sentence each",
			},
			"areas_for_improvement": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "What to review before the next shift, one short sentence each",
			},
			"encouragement": map[string]any{
				"type":        "string",
				"description": "One or two warm sentences addressed to the trainee",
			},
		},
		"required":             []any{"strengths", "areas_for_improvement", "encouragement"},
		"additionalProperties": false,
	},
}

type feedbackOutput struct {
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	Encouragement       string   `json:"encouragement"`
}

// Narrate produces feedback for the attempt.
func (n *LLMNarrator) Narrate(ctx context.Context, in NarrateInput) (Feedback, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeFeedback)

	userMsg, err := buildNarrateMessage(in)
	if err != nil {
		return Feedback{}, fmt.Errorf("build feedback prompt: %w", err)
	}
	resp, err := n.provider.Generate(ctx, llm.Request{
		System:      narratorSystemPrompt,
		Messages:    llm.Ask(userMsg),
		Schema:      FeedbackSchema,
		MaxTokens:   n.cfg.MaxTokens,
		Temperature: n.cfg.Temperature,
	})
	if err != nil {
		return Feedback{}, fmt.Errorf("LLM feedback failed: %w", err)
	}

	var raw feedbackOutput
	if err := resp.Decode(&raw); err != nil {
		return Feedback{}, fmt.Errorf("failed to parse feedback response: %w", err)
	}
	fb := EmptyFeedback()
	fb.Strengths = append(fb.Strengths, capList(raw.Strengths, n.cfg.MaxItems)...)
	fb.AreasForImprovement = append(fb.AreasForImprovement, capList(raw.AreasForImprovement, n.cfg.MaxItems)...)
	fb.Encouragement = raw.Encouragement
	return fb, nil
}

func capList(s []string, n int) []string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

const narratorSystemPrompt = `You are a supportive restaurant trainer writing feedback after a graded assessment.

Instructions:
- The grading is final. Do not re-grade, and do not mention numbers other than the score given.
- Strengths: topics the trainee answered well. Areas for improvement: specific things to review, drawn from missed answers and the notes on them.
- If every answer was strong, areas for improvement may be empty. If every answer was weak, strengths may be empty.
- Encouragement: warm, specific and short. Mention the next step (review, practice with the tutor, or retake) when the trainee did not pass.
- Plain language a new server or line cook would use.`

var narrateUserTemplate = template.Must(template.New("narrate").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`Unit: {{.UnitTitle}}
Score: {{.Score}} ({{.CompetencyLevel}}, {{if .Passed}}passed{{else}}not passed{{end}})

Answers:
{{range $i, $a := .Answers}}{{$i | inc}}. [{{$a.Topic}}] {{$a.Prompt}}
   Answer: {{$a.Answer}}
   Result: {{$a.Score}}/100{{if $a.Passed}} (ok){{else}} (missed){{end}}{{with $a.Feedback}}: {{.}}{{end}}
{{end}}`))

func buildNarrateMessage(in NarrateInput) (string, error) {
	var buf bytes.Buffer
	if err := narrateUserTemplate.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}
