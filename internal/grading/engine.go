package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/brigade/internal/metrics"
	"github.com/abhisek/brigade/internal/questionbank"
)

// Engine grades single answers. Multiple choice is checked locally; open
// responses go to the judge.
type Engine struct {
	judge Judge
	now   func() time.Time
}

// NewEngine creates an Engine. judge may be nil, in which case open
// responses fail with a TransportError.
func NewEngine(judge Judge) *Engine {
	return &Engine{judge: judge, now: func() time.Time { return time.Now().UTC() }}
}

// Submission is one answer to grade.
type Submission struct {
	UnitTitle string
	Question  *questionbank.Question
	Value     string
	Modality  Modality
}

// Grade produces the AnswerResult for a submission. It has no side
// effects; persisting the result is the caller's job.
func (e *Engine) Grade(ctx context.Context, s Submission) (*AnswerResult, error) {
	q := s.Question
	res := &AnswerResult{
		QuestionID:     q.ID,
		Kind:           q.Kind,
		SubmittedValue: s.Value,
	}

	switch q.Kind {
	case questionbank.KindMultipleChoice:
		mc, err := gradeMultipleChoice(q, s.Value)
		if err != nil {
			metrics.SubmissionsRejected.WithLabelValues("invalid_option").Inc()
			return nil, err
		}
		res.MultipleChoice = mc
	case questionbank.KindOpenResponse:
		answer := strings.TrimSpace(s.Value)
		if answer == "" {
			metrics.SubmissionsRejected.WithLabelValues("empty_answer").Inc()
			return nil, ErrEmptyAnswer
		}
		if e.judge == nil {
			return nil, &TransportError{Err: errors.New("no judge configured")}
		}
		out, err := e.judge.Judge(ctx, JudgeInput{
			UnitTitle: s.UnitTitle,
			Question:  q,
			Answer:    answer,
			Modality:  s.Modality,
		})
		if err != nil {
			metrics.AnswersGraded.WithLabelValues(string(q.Kind), "error").Inc()
			return nil, err
		}
		res.OpenResponse = out
	default:
		return nil, fmt.Errorf("question %s has unknown kind %q", q.ID, q.Kind)
	}

	res.GradedAt = e.now()
	metrics.AnswersGraded.WithLabelValues(string(q.Kind), outcome(res)).Inc()
	return res, nil
}

func gradeMultipleChoice(q *questionbank.Question, optionID string) (*MultipleChoiceOutcome, error) {
	if _, ok := q.Option(optionID); !ok {
		return nil, fmt.Errorf("%w: %q for question %s", ErrInvalidOption, optionID, q.ID)
	}
	correct, ok := q.CorrectOption()
	if !ok {
		return nil, fmt.Errorf("question %s has no correct option", q.ID)
	}
	return &MultipleChoiceOutcome{
		IsCorrect:         correct.ID == optionID,
		CorrectOptionID:   correct.ID,
		CorrectOptionText: correct.Text,
		Explanation:       q.Explanation,
	}, nil
}

func outcome(r *AnswerResult) string {
	if r.Passed() {
		return "passed"
	}
	return "failed"
}
