package questionbank

import "fmt"

// Validator checks a generated batch before it is persisted.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in errors and logs,
	// e.g. "structural", "duplicate".
	Name() string

	// Validate returns nil if the whole batch passes. Any violation
	// rejects the batch.
	Validate(batch []*Question, unit *Unit) *SchemaViolation
}

// SchemaViolation describes why a generated batch was rejected.
type SchemaViolation struct {
	Validator string // Name of the validator that failed
	Index     int    // Zero-based position of the offending question, -1 for the batch
	Message   string
}

func (e *SchemaViolation) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
	}
	return fmt.Sprintf("validator %q: question %d: %s", e.Validator, e.Index+1, e.Message)
}
