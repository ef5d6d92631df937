package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/voice"
)

type answerResponse struct {
	Result         *grading.AnswerResult `json:"result"`
	AlreadyGraded  bool                  `json:"alreadyGraded"`
	Phase          assessment.Phase      `json:"phase"`
	NextQuestionID string                `json:"nextQuestionId,omitempty"`
	Transcript     string                `json:"transcript,omitempty"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.engine.ListSessions(r.Context(), claimsFrom(r.Context()).Subject, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID string `json:"unitId"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.UnitID == "" {
		s.writeError(w, r, badRequest("unitId is required"))
		return
	}
	sess, err := s.engine.StartOrResumeSession(r.Context(), claimsFrom(r.Context()).Subject, req.UnitID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// session loads the path's session and checks the caller owns it. Foreign
// sessions look missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*assessment.Session, bool) {
	sess, err := s.engine.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !owns(r, sess.TraineeID) {
		err = assessment.ErrNotFound
	}
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess)
	}
}

func (s *Server) recordConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Granted bool `json:"granted"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess, err := s.engine.RecordConsent(r.Context(), sess.ID, req.Granted)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"questionId"`
		Value      string `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.QuestionID == "" {
		s.writeError(w, r, badRequest("questionId is required"))
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.answer(w, r, sess.ID, req.QuestionID, req.Value, grading.ModalityText, "")
}

func (s *Server) submitVoiceAnswer(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		s.writeError(w, r, assessment.ErrVoiceDisabled)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, voice.DefaultMaxBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		s.writeError(w, r, badRequest("invalid multipart form"))
		return
	}
	questionID := r.FormValue("questionId")
	if questionID == "" {
		s.writeError(w, r, badRequest("questionId is required"))
		return
	}
	file, hdr, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, r, badRequest("audio file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, badRequest("unreadable audio"))
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.VoiceConsent {
		s.writeError(w, r, assessment.ErrVoiceDisabled)
		return
	}
	text, err := s.voice.Transcribe(r.Context(), voice.Clip{
		SessionID:   sess.ID,
		QuestionID:  questionID,
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
		Archive:     sess.VoiceConsent,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.answer(w, r, sess.ID, questionID, text, grading.ModalityVoice, text)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, sessionID, questionID, value string, modality grading.Modality, transcript string) {
	res, err := s.engine.SubmitAnswer(r.Context(), sessionID, questionID, value, modality)
	already := errors.Is(err, assessment.ErrAlreadyGraded)
	if err != nil && !already {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.engine.GetSession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{
		Result:         res,
		AlreadyGraded:  already,
		Phase:          sess.Phase,
		NextQuestionID: sess.NextQuestionID,
		Transcript:     transcript,
	})
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := s.engine.FinalizeSession(r.Context(), sess.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResults(w, r, sess.ID)
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		s.writeResults(w, r, sess.ID)
	}
}

// writeResults sends the stored document unchanged.
func (s *Server) writeResults(w http.ResponseWriter, r *http.Request, sessionID string) {
	body, err := s.engine.ResultsDocument(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	next, err := s.engine.Retry(r.Context(), sess.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}
