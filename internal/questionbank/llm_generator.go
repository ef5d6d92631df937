package questionbank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/brigade/internal/llm"
)

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// NewGenerator creates an LLMGenerator with the given provider and config.
func NewGenerator(provider llm.Provider, cfg Config) *LLMGenerator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &LLMGenerator{provider: provider, config: cfg}
}

// batchOutput is the raw LLM response before validation.
type batchOutput struct {
	Questions []struct {
		Kind    string `json:"kind"`
		Topic   string `json:"topic"`
		Prompt  string `json:"prompt"`
		Options []struct {
			Text    string `json:"text"`
			Correct bool   `json:"correct"`
		} `json:"options"`
		Explanation string `json:"explanation"`
		Rubric      string `json:"rubric"`
	} `json:"questions"`
}

// Generate asks the provider for a batch and runs the validator chain. A
// rejected batch is discarded whole and regenerated with the violation as
// feedback, up to MaxAttempts times. The last violation is returned.
func (g *LLMGenerator) Generate(ctx context.Context, input GenerateInput) ([]*Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestionGen)

	var lastViolation *SchemaViolation
	for range g.config.MaxAttempts {
		batch, err := g.generateOnce(ctx, input)
		if err != nil {
			return nil, err
		}
		sv := g.validate(batch, input.Unit)
		if sv == nil {
			return batch, nil
		}
		lastViolation = sv
		input.PreviousViolation = sv.Error()
	}
	return nil, lastViolation
}

func (g *LLMGenerator) generateOnce(ctx context.Context, input GenerateInput) ([]*Question, error) {
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.Ask(buildUserMessage(input)),
		Schema:      BatchSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		// A provider that keeps returning off-schema JSON is a generation
		// failure, not an outage.
		var inv *llm.ErrInvalidResponse
		if errors.As(err, &inv) {
			return nil, &SchemaViolation{Validator: "schema", Index: -1, Message: inv.Error()}
		}
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw batchOutput
	if err := resp.Decode(&raw); err != nil {
		return nil, &SchemaViolation{Validator: "schema", Index: -1, Message: fmt.Sprintf("unparseable batch: %v", err)}
	}

	batch := make([]*Question, 0, len(raw.Questions))
	for _, rq := range raw.Questions {
		q := &Question{
			UnitID:      input.Unit.ID,
			Kind:        Kind(rq.Kind),
			Topic:       strings.TrimSpace(rq.Topic),
			Prompt:      strings.TrimSpace(rq.Prompt),
			Explanation: strings.TrimSpace(rq.Explanation),
			Rubric:      strings.TrimSpace(rq.Rubric),
		}
		for _, o := range rq.Options {
			q.Options = append(q.Options, Option{Text: strings.TrimSpace(o.Text), Correct: o.Correct})
		}
		batch = append(batch, q)
	}
	return batch, nil
}

func (g *LLMGenerator) validate(batch []*Question, unit *Unit) *SchemaViolation {
	for _, v := range g.config.Validators {
		if sv := v.Validate(batch, unit); sv != nil {
			return sv
		}
	}
	return nil
}
