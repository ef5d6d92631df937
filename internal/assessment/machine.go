package assessment

import (
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/scoring"
)

// State is the client-side view of an assessment conversation. It is a
// plain value; Step never mutates its input.
type State struct {
	TraineeID string
	UnitID    string
	SessionID string
	Phase     Phase

	// ResumePhase is the phase to re-enter when leaving PhaseError.
	ResumePhase Phase

	// Pending is set while an effect that calls the server is outstanding.
	Pending bool

	// Err is the last failure. In PhaseError it is the reason for the
	// error; in PhaseConversation it is a rejected answer to re-prompt on.
	Err       error
	Retryable bool

	Session *Session
	Last    *grading.AnswerResult
	Results *scoring.Results
}

// NewState returns the idle state for a trainee and unit.
func NewState(traineeID, unitID string) State {
	return State{TraineeID: traineeID, UnitID: unitID, Phase: PhaseIdle}
}

// Event is an input to the machine.
type Event interface{ event() }

type (
	// Mounted starts the conversation.
	Mounted struct{}

	// SessionLoaded carries the server's copy of the session after a
	// resume check, consent or new attempt.
	SessionLoaded struct{ Session *Session }

	// ConsentResolved is the trainee's voice consent answer.
	ConsentResolved struct{ Granted bool }

	AnswerSubmitted struct {
		QuestionID string
		Value      string
		Modality   grading.Modality
	}

	// AnswerGraded carries the committed result and the refreshed session.
	AnswerGraded struct {
		Result  *grading.AnswerResult
		Session *Session
	}

	// AnswerRejected reports a terminal input error, such as an unknown
	// option or an already graded question. The conversation continues.
	AnswerRejected struct {
		Err     error
		Result  *grading.AnswerResult
		Session *Session
	}

	FinishRequested struct{}

	Finalized struct{ Results *scoring.Results }

	// Failed reports an error from the server. Retryable failures can be
	// left with RetryRequested.
	Failed struct {
		Err       error
		Retryable bool
	}

	RetryRequested      struct{}
	NewAttemptRequested struct{}
)

func (Mounted) event()             {}
func (SessionLoaded) event()       {}
func (ConsentResolved) event()     {}
func (AnswerSubmitted) event()     {}
func (AnswerGraded) event()        {}
func (AnswerRejected) event()      {}
func (FinishRequested) event()     {}
func (Finalized) event()           {}
func (Failed) event()              {}
func (RetryRequested) event()      {}
func (NewAttemptRequested) event() {}

// Effect is work the machine asks its driver to perform. Each effect is
// answered by exactly one event.
type Effect interface{ effect() }

type (
	// ResumeCheck loads or creates the session; answered by SessionLoaded.
	ResumeCheck struct{ TraineeID, UnitID string }

	// RecordConsent is answered by SessionLoaded.
	RecordConsent struct {
		SessionID string
		Granted   bool
	}

	// Grade is answered by AnswerGraded, AnswerRejected or Failed.
	Grade struct {
		SessionID  string
		QuestionID string
		Value      string
		Modality   grading.Modality
	}

	// Finalize is answered by Finalized or Failed.
	Finalize struct{ SessionID string }

	// StartNewAttempt is answered by SessionLoaded.
	StartNewAttempt struct{ SessionID string }
)

func (ResumeCheck) effect()     {}
func (RecordConsent) effect()   {}
func (Grade) effect()           {}
func (Finalize) effect()        {}
func (StartNewAttempt) effect() {}

// Step applies ev to s. Events that do not apply to the current phase are
// ignored and produce no effects.
func Step(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Mounted:
		if s.Phase != PhaseIdle {
			return s, nil
		}
		s.Phase = PhaseResumeCheck
		s.Pending = true
		return s, []Effect{ResumeCheck{TraineeID: s.TraineeID, UnitID: s.UnitID}}

	case SessionLoaded:
		if !s.Pending || e.Session == nil {
			return s, nil
		}
		return load(s, e.Session)

	case ConsentResolved:
		if s.Phase != PhaseOnboarding || s.Pending {
			return s, nil
		}
		s.Pending = true
		return s, []Effect{RecordConsent{SessionID: s.SessionID, Granted: e.Granted}}

	case AnswerSubmitted:
		if s.Phase != PhaseConversation || s.Pending {
			return s, nil
		}
		s.Pending = true
		s.Err = nil
		return s, []Effect{Grade{
			SessionID:  s.SessionID,
			QuestionID: e.QuestionID,
			Value:      e.Value,
			Modality:   e.Modality,
		}}

	case AnswerGraded:
		if s.Phase != PhaseConversation || !s.Pending {
			return s, nil
		}
		s.Pending = false
		s.Last = e.Result
		if e.Session != nil {
			s.Session = e.Session
			if e.Session.Phase == PhaseWrapUp {
				s.Phase = PhaseWrapUp
			}
		}
		return s, nil

	case AnswerRejected:
		if s.Phase != PhaseConversation || !s.Pending {
			return s, nil
		}
		s.Pending = false
		s.Err = e.Err
		if e.Result != nil {
			s.Last = e.Result
		}
		if e.Session != nil {
			s.Session = e.Session
			if e.Session.Phase == PhaseWrapUp {
				s.Phase = PhaseWrapUp
			}
		}
		return s, nil

	case FinishRequested:
		if s.Phase != PhaseWrapUp || s.Pending {
			return s, nil
		}
		s.Phase = PhaseEvaluation
		s.Pending = true
		return s, []Effect{Finalize{SessionID: s.SessionID}}

	case Finalized:
		if (s.Phase != PhaseEvaluation && s.Phase != PhaseResults) || e.Results == nil {
			return s, nil
		}
		s.Phase = PhaseResults
		s.Pending = false
		s.Results = e.Results
		return s, nil

	case Failed:
		if s.Phase == PhaseError || (!s.Pending && s.Phase == PhaseResults) {
			return s, nil
		}
		s.ResumePhase = s.Phase
		s.Phase = PhaseError
		s.Pending = false
		s.Err = e.Err
		s.Retryable = e.Retryable
		return s, nil

	case RetryRequested:
		if s.Phase != PhaseError || !s.Retryable {
			return s, nil
		}
		s.Err = nil
		s.Pending = true
		// The results may already be stored; finalizing again returns them.
		if s.ResumePhase == PhaseEvaluation && s.SessionID != "" {
			s.Phase = PhaseEvaluation
			return s, []Effect{Finalize{SessionID: s.SessionID}}
		}
		s.Phase = PhaseResumeCheck
		return s, []Effect{ResumeCheck{TraineeID: s.TraineeID, UnitID: s.UnitID}}

	case NewAttemptRequested:
		if s.Phase != PhaseResults || s.Pending {
			return s, nil
		}
		s.Phase = PhaseOnboarding
		s.Pending = true
		return s, []Effect{StartNewAttempt{SessionID: s.SessionID}}
	}
	return s, nil
}

// load adopts a session returned by the server. A session interrupted
// during evaluation finalizes again; a closed session fetches its stored
// results.
func load(s State, sess *Session) (State, []Effect) {
	s.Pending = false
	s.Session = sess
	s.SessionID = sess.ID
	s.Err = nil
	s.Retryable = false
	s.Phase = sess.Phase
	if sess.Phase != PhaseResults {
		s.Results = nil
	}

	switch sess.Phase {
	case PhaseEvaluation, PhaseResults:
		s.Pending = true
		return s, []Effect{Finalize{SessionID: sess.ID}}
	case PhaseIdle, PhaseResumeCheck, PhaseError:
		s.Phase = PhaseOnboarding
	}
	return s, nil
}
