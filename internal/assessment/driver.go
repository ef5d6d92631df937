package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/questionbank"
)

// Perform runs an effect against the engine and returns the event that
// answers it.
func (e *Engine) Perform(ctx context.Context, eff Effect) Event {
	switch f := eff.(type) {
	case ResumeCheck:
		sess, err := e.StartOrResumeSession(ctx, f.TraineeID, f.UnitID)
		if err != nil {
			return failed(err)
		}
		return SessionLoaded{Session: sess}

	case RecordConsent:
		sess, err := e.RecordConsent(ctx, f.SessionID, f.Granted)
		if err != nil {
			return failed(err)
		}
		return SessionLoaded{Session: sess}

	case Grade:
		res, err := e.SubmitAnswer(ctx, f.SessionID, f.QuestionID, f.Value, f.Modality)
		if err != nil && !terminalInput(err) {
			return failed(err)
		}
		sess, lerr := e.GetSession(ctx, f.SessionID)
		if lerr != nil {
			return failed(lerr)
		}
		if err != nil {
			return AnswerRejected{Err: err, Result: res, Session: sess}
		}
		return AnswerGraded{Result: res, Session: sess}

	case Finalize:
		res, err := e.FinalizeSession(ctx, f.SessionID)
		if err != nil {
			return failed(err)
		}
		return Finalized{Results: res}

	case StartNewAttempt:
		sess, err := e.Retry(ctx, f.SessionID)
		if err != nil {
			return failed(err)
		}
		return SessionLoaded{Session: sess}
	}
	return Failed{Err: fmt.Errorf("unknown effect %T", eff)}
}

// terminalInput reports errors that reject one answer but leave the
// conversation going.
func terminalInput(err error) bool {
	return errors.Is(err, ErrAlreadyGraded) ||
		errors.Is(err, grading.ErrInvalidOption) ||
		errors.Is(err, grading.ErrEmptyAnswer) ||
		errors.Is(err, ErrUnknownQuestion) ||
		errors.Is(err, ErrVoiceDisabled)
}

func failed(err error) Failed {
	return Failed{Err: err, Retryable: Retryable(err)}
}

// Retryable reports whether repeating the failed call may succeed.
func Retryable(err error) bool {
	var transport *grading.TransportError
	switch {
	case errors.As(err, &transport):
		return true
	case errors.Is(err, ErrRequestPending),
		errors.Is(err, questionbank.ErrGenerationInProgress),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var violation *questionbank.SchemaViolation
	return errors.As(err, &violation)
}
