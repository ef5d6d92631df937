package llm

import "context"

type contextKey string

const purposeKey contextKey = "llm_purpose"

// Purpose labels used across the engine.
const (
	PurposeQuestionGen = "question-gen"
	PurposeGrading     = "grading"
	PurposeFeedback    = "feedback"
	PurposeTutor       = "tutor"
)

// WithPurpose attaches a purpose label to the context for the audit log
// and metrics.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
