package questionbank

import (
	"strconv"
	"strings"
	"unicode"
)

// DuplicateValidator rejects batches that ask the same thing twice.
type DuplicateValidator struct{}

func (v *DuplicateValidator) Name() string { return "duplicate" }

func (v *DuplicateValidator) Validate(batch []*Question, _ *Unit) *SchemaViolation {
	seen := make(map[string]int, len(batch))
	for i, q := range batch {
		key := normalizePrompt(q.Prompt)
		if first, ok := seen[key]; ok {
			return &SchemaViolation{
				Validator: v.Name(),
				Index:     i,
				Message:   "repeats question " + strconv.Itoa(first+1),
			}
		}
		seen[key] = i
	}
	return nil
}

// normalizePrompt folds case, punctuation and whitespace so that trivially
// reworded prompts compare equal.
func normalizePrompt(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
		default:
			space = true
		}
	}
	return b.String()
}
