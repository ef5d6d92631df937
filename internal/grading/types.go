package grading

import (
	"time"

	"github.com/abhisek/brigade/internal/questionbank"
)

// Modality is how an answer was given.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

// MultipleChoiceOutcome is the deterministic result of a multiple-choice
// answer. CorrectOptionID is always the keyed option, never the submitted
// one unless they match.
type MultipleChoiceOutcome struct {
	IsCorrect         bool   `json:"isCorrect"`
	CorrectOptionID   string `json:"correctOptionId"`
	CorrectOptionText string `json:"correctOptionText"`
	Explanation       string `json:"explanation"`
}

// OpenResponseOutcome is the judge's verdict on an open or voice answer.
type OpenResponseOutcome struct {
	Passed      bool   `json:"passed"`
	Score       int    `json:"score"`
	RubricNotes string `json:"rubricNotes"`
}

// AnswerResult is the immutable grading outcome for one submitted answer.
// Exactly one of MultipleChoice and OpenResponse is set, matching Kind.
type AnswerResult struct {
	QuestionID     string                 `json:"questionId"`
	Kind           questionbank.Kind      `json:"kind"`
	SubmittedValue string                 `json:"submittedValue"`
	MultipleChoice *MultipleChoiceOutcome `json:"multipleChoice,omitempty"`
	OpenResponse   *OpenResponseOutcome   `json:"openResponse,omitempty"`
	GradedAt       time.Time              `json:"gradedAt"`
}

// Score is the 0-100 contribution of this answer to the overall score:
// 100 or 0 for multiple choice, the judge's score for open responses.
func (r *AnswerResult) Score() int {
	switch {
	case r.MultipleChoice != nil:
		if r.MultipleChoice.IsCorrect {
			return 100
		}
		return 0
	case r.OpenResponse != nil:
		return r.OpenResponse.Score
	}
	return 0
}

// Passed reports whether the answer counts as correct.
func (r *AnswerResult) Passed() bool {
	switch {
	case r.MultipleChoice != nil:
		return r.MultipleChoice.IsCorrect
	case r.OpenResponse != nil:
		return r.OpenResponse.Passed
	}
	return false
}
