package questionbank

import (
	"fmt"
	"strings"
)

const (
	maxPromptLen      = 600
	maxOptionLen      = 200
	maxExplanationLen = 1000
	maxOptions        = 6
)

// StructuralValidator checks kinds, option sets and required text.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(batch []*Question, unit *Unit) *SchemaViolation {
	if len(batch) == 0 {
		return v.fail(-1, "batch is empty")
	}
	for i, q := range batch {
		if strings.TrimSpace(q.Prompt) == "" {
			return v.fail(i, "prompt is empty")
		}
		if len(q.Prompt) > maxPromptLen {
			return v.fail(i, fmt.Sprintf("prompt exceeds %d characters", maxPromptLen))
		}
		if len(unit.Topics) > 0 && !unit.HasTopic(q.Topic) {
			return v.fail(i, fmt.Sprintf("topic %q is not one of the unit topics", q.Topic))
		}

		switch q.Kind {
		case KindMultipleChoice:
			if sv := v.checkOptions(i, q); sv != nil {
				return sv
			}
		case KindOpenResponse:
			if len(q.Options) > 0 {
				return v.fail(i, "open_response must not have options")
			}
			if strings.TrimSpace(q.Rubric) == "" {
				return v.fail(i, "open_response needs a rubric")
			}
		default:
			return v.fail(i, fmt.Sprintf("kind must be %q or %q", KindMultipleChoice, KindOpenResponse))
		}
	}
	return nil
}

func (v *StructuralValidator) checkOptions(i int, q *Question) *SchemaViolation {
	if len(q.Options) < 2 {
		return v.fail(i, "multiple_choice needs at least 2 options")
	}
	if len(q.Options) > maxOptions {
		return v.fail(i, fmt.Sprintf("multiple_choice allows at most %d options", maxOptions))
	}
	correct := 0
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			return v.fail(i, "option text is empty")
		}
		if len(text) > maxOptionLen {
			return v.fail(i, fmt.Sprintf("option exceeds %d characters", maxOptionLen))
		}
		key := strings.ToLower(text)
		if seen[key] {
			return v.fail(i, fmt.Sprintf("option %q appears twice", text))
		}
		seen[key] = true
		if o.Correct {
			correct++
		}
	}
	if correct != 1 {
		return v.fail(i, fmt.Sprintf("exactly one option must be correct, got %d", correct))
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return v.fail(i, "multiple_choice needs an explanation")
	}
	if len(q.Explanation) > maxExplanationLen {
		return v.fail(i, fmt.Sprintf("explanation exceeds %d characters", maxExplanationLen))
	}
	return nil
}

func (v *StructuralValidator) fail(i int, msg string) *SchemaViolation {
	return &SchemaViolation{Validator: v.Name(), Index: i, Message: msg}
}
