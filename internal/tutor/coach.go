package tutor

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"text/template"

	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/questionbank"
)

// Coach replies to a practice message and scores the trainee's grasp of
// the material it shows.
type Coach interface {
	Coach(ctx context.Context, in CoachInput) (*CoachReply, error)
}

// CoachInput is the practice context for one message.
type CoachInput struct {
	Unit    *questionbank.Unit
	History []Turn
	Message string
}

// CoachReply is the coach's answer. Topic is empty when the message does
// not touch any unit topic.
type CoachReply struct {
	Reply string
	Score int
	Topic string
}

// CoachConfig holds configuration for the LLM coach.
type CoachConfig struct {
	MaxTokens   int
	Temperature float64

	// HistoryTurns bounds how many earlier exchanges are sent.
	HistoryTurns int
}

func DefaultCoachConfig() CoachConfig {
	return CoachConfig{MaxTokens: 600, Temperature: 0.5, HistoryTurns: 6}
}

// LLMCoach implements Coach with the LLM provider.
type LLMCoach struct {
	provider llm.Provider
	cfg      CoachConfig
}

func NewLLMCoach(provider llm.Provider, cfg CoachConfig) *LLMCoach {
	return &LLMCoach{provider: provider, cfg: cfg}
}

// CoachSchema is the structured output requested from the coach.
var CoachSchema = &llm.Schema{
	Name:        "tutor-exchange",
	Description: "Coach reply to a trainee's practice message with a readiness score for the exchange",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reply": map[string]any{
				"type":        "string",
				"description": "What the coach says next, at most four sentences",
			},
			"score": map[string]any{
				"type":        "integer",
				"description": "0-100, how well this message shows command of the unit material",
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "The unit topic the message dealt with, or an empty string",
			},
		},
		"required":             []any{"reply", "score", "topic"},
		"additionalProperties": false,
	},
}

type coachOutput struct {
	Reply string `json:"reply"`
	Score int    `json:"score"`
	Topic string `json:"topic"`
}

// Coach sends the message with recent history. Provider failures are
// returned as *grading.TransportError.
func (c *LLMCoach) Coach(ctx context.Context, in CoachInput) (*CoachReply, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeTutor)

	history := in.History
	if n := c.cfg.HistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	material, err := buildContextMessage(in.Unit)
	if err != nil {
		return nil, fmt.Errorf("build tutor prompt: %w", err)
	}
	msgs := llm.Exchange(nil, material, "Understood. Ready to practice.")
	for _, t := range history {
		msgs = llm.Exchange(msgs, t.Message, t.Reply)
	}
	msgs = append(msgs, llm.Ask(in.Message)...)

	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      coachSystemPrompt,
		Messages:    msgs,
		Schema:      CoachSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, &grading.TransportError{Err: err}
	}

	var raw coachOutput
	if err := resp.Decode(&raw); err != nil {
		return nil, &grading.TransportError{Err: fmt.Errorf("parse coach reply: %w", err)}
	}
	out := &CoachReply{
		Reply: raw.Reply,
		Score: min(max(raw.Score, 0), 100),
	}
	if in.Unit != nil && slices.Contains(in.Unit.Topics, raw.Topic) {
		out.Topic = raw.Topic
	}
	return out, nil
}

const coachSystemPrompt = `You are a friendly practice coach for restaurant staff. The trainee is rehearsing before a graded check.

Instructions:
- Reply conversationally. Correct mistakes plainly, then ask one follow-up question that probes a topic the trainee has not shown yet.
- Score only this message: 0 for off-topic or wrong, 100 for a complete, floor-ready answer.
- Name the unit topic the message dealt with, copied exactly from the topic list, or leave it empty.
- Never tell the trainee their score.`

var contextTemplate = template.Must(template.New("coach").Parse(`Unit: {{.Title}}
Topics: {{range $i, $t := .Topics}}{{if $i}}; {{end}}{{$t}}{{end}}

Material:
{{.Content}}`))

func buildContextMessage(u *questionbank.Unit) (string, error) {
	if u == nil {
		return "", fmt.Errorf("unit is required")
	}
	var buf bytes.Buffer
	if err := contextTemplate.Execute(&buf, u); err != nil {
		return "", err
	}
	return buf.String(), nil
}
