package grading

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOption is returned for a multiple-choice answer whose
	// option id does not belong to the question.
	ErrInvalidOption = errors.New("invalid option")

	// ErrEmptyAnswer is returned for a blank open response.
	ErrEmptyAnswer = errors.New("empty answer")
)

// TransportError wraps a failure to reach the judge. The answer was not
// graded and may be resubmitted.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("grading unavailable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
