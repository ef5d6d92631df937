package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/tutor"
	"github.com/abhisek/brigade/internal/voice"
)

// errBadRequest marks malformed input.
type errBadRequest struct{ msg string }

func (e *errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return &errBadRequest{msg: msg} }

var errForbidden = errors.New("not allowed for this caller")

type problem struct {
	Error problemBody `json:"error"`
}

type problemBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// statusOf maps an error to its HTTP status, code and retryability.
func statusOf(err error) (int, string, bool) {
	var (
		bad       *errBadRequest
		transport *grading.TransportError
		violation *questionbank.SchemaViolation
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request", false
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden", false
	case errors.As(err, &transport):
		return http.StatusServiceUnavailable, "ai_unavailable", true
	case errors.As(err, &violation):
		return http.StatusBadGateway, "generation_failed", true
	case errors.Is(err, questionbank.ErrGenerationInProgress):
		return http.StatusServiceUnavailable, "generation_in_progress", true
	case errors.Is(err, grading.ErrInvalidOption):
		return http.StatusUnprocessableEntity, "invalid_option", false
	case errors.Is(err, grading.ErrEmptyAnswer), errors.Is(err, tutor.ErrEmptyMessage), errors.Is(err, voice.ErrEmptyAudio):
		return http.StatusUnprocessableEntity, "empty_answer", false
	case errors.Is(err, assessment.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity, "unknown_question", false
	case errors.Is(err, voice.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge, "audio_too_large", false
	case errors.Is(err, assessment.ErrVoiceDisabled):
		return http.StatusForbidden, "voice_disabled", false
	case errors.Is(err, assessment.ErrIncompleteSession):
		return http.StatusConflict, "incomplete_session", false
	case errors.Is(err, assessment.ErrRequestPending), errors.Is(err, tutor.ErrRequestPending):
		return http.StatusConflict, "request_pending", true
	case errors.Is(err, assessment.ErrSessionClosed), errors.Is(err, tutor.ErrSessionClosed):
		return http.StatusConflict, "session_closed", false
	case errors.Is(err, assessment.ErrInvalidPhase):
		return http.StatusConflict, "invalid_phase", false
	case errors.Is(err, assessment.ErrNotFound), errors.Is(err, tutor.ErrNotFound),
		errors.Is(err, questionbank.ErrUnitNotFound):
		return http.StatusNotFound, "not_found", false
	}
	return http.StatusInternalServerError, "internal", false
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, retryable := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	} else if status >= 500 {
		s.logger.Warn("upstream failure", "path", r.URL.Path, "code", code, "error", err)
	}
	writeProblem(w, status, code, msg, retryable)
}

func writeProblem(w http.ResponseWriter, status int, code, msg string, retryable bool) {
	writeJSON(w, status, problem{Error: problemBody{Code: code, Message: msg, Retryable: retryable}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
