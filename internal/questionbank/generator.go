package questionbank

import "context"

// Generator produces a batch of questions for a unit.
type Generator interface {
	// Generate returns a validated batch. Questions carry kind, topic,
	// prompt, options, explanation and rubric; ids and ordering are
	// assigned when the batch is persisted.
	Generate(ctx context.Context, input GenerateInput) ([]*Question, error)
}

// GenerateInput holds the context needed to generate a batch.
type GenerateInput struct {
	Unit *Unit

	// PreviousViolation explains why the last batch was rejected. Empty on
	// the first attempt.
	PreviousViolation string
}
