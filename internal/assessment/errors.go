package assessment

import "errors"

var (
	// ErrAlreadyGraded is returned with the existing result when a question
	// already has a committed answer in the session. Callers treat it as a
	// no-op success.
	ErrAlreadyGraded = errors.New("question already graded")

	// ErrIncompleteSession is returned by FinalizeSession while required
	// questions are unanswered.
	ErrIncompleteSession = errors.New("session has unanswered required questions")

	// ErrRequestPending is returned while another grading or finalization
	// request for the same session is in flight.
	ErrRequestPending = errors.New("another request for this session is in progress")

	// ErrSessionClosed is returned for mutations of an evaluated session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrInvalidPhase is returned when an operation does not apply to the
	// session's current phase.
	ErrInvalidPhase = errors.New("operation not allowed in the current phase")

	ErrNotFound        = errors.New("session not found")
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrVoiceDisabled   = errors.New("voice answers are disabled for this session")
)
