package grading

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/questionbank"
)

// Judge scores open responses against a rubric.
type Judge interface {
	Judge(ctx context.Context, in JudgeInput) (*OpenResponseOutcome, error)
}

// JudgeInput is what the judge sees for one answer.
type JudgeInput struct {
	UnitTitle string
	Question  *questionbank.Question
	Answer    string
	Modality  Modality
}

// JudgeConfig holds configuration for the LLM judge.
type JudgeConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultJudgeConfig returns sensible defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		MaxTokens:   400,
		Temperature: 0,
	}
}

// LLMJudge grades open responses with the LLM provider.
type LLMJudge struct {
	provider llm.Provider
	cfg      JudgeConfig
}

// NewLLMJudge creates an LLM-backed judge.
func NewLLMJudge(provider llm.Provider, cfg JudgeConfig) *LLMJudge {
	return &LLMJudge{provider: provider, cfg: cfg}
}

type verdictOutput struct {
	Passed      bool   `json:"passed"`
	Score       int    `json:"score"`
	RubricNotes string `json:"rubric_notes"`
}

// Judge returns the verdict with the score clamped to [0,100]. Passed is
// taken from the judge as given.
func (j *LLMJudge) Judge(ctx context.Context, in JudgeInput) (*OpenResponseOutcome, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeGrading)

	userMsg, err := buildJudgeMessage(in)
	if err != nil {
		return nil, fmt.Errorf("build grading prompt: %w", err)
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:      judgeSystemPrompt,
		Messages:    llm.Ask(userMsg),
		Schema:      VerdictSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var raw verdictOutput
	if err := resp.Decode(&raw); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("parse verdict: %w", err)}
	}
	return &OpenResponseOutcome{
		Passed:      raw.Passed,
		Score:       clamp(raw.Score, 0, 100),
		RubricNotes: raw.RubricNotes,
	}, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

const judgeSystemPrompt = `You assess restaurant staff answers during training. Grade one answer against the rubric.

Instructions:
- Score 0-100 for how completely and correctly the answer covers the rubric points.
- Set passed to true if a shift manager would accept the answer on the floor. A borderline score may still pass when the essentials (safety, allergens, guest care) are right; a high score must not pass if it gets a safety-critical point wrong.
- Ignore spelling, grammar and filler words. Spoken answers are transcripts and may ramble.
- Judge only what was said. Do not reward answers for what they might have meant.
- Keep rubric_notes to two sentences, addressed to the trainee.`

var judgeUserTemplate = template.Must(template.New("judge").Parse(`Unit: {{.UnitTitle}}
{{with .Question}}Topic: {{.Topic}}
Question: {{.Prompt}}
Rubric: {{.Rubric}}
{{end}}Answer ({{.Modality}}):
{{.Answer}}`))

func buildJudgeMessage(in JudgeInput) (string, error) {
	var buf bytes.Buffer
	if err := judgeUserTemplate.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}
