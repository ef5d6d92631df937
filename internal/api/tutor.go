package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/brigade/internal/tutor"
)

func (s *Server) startTutor(w http.ResponseWriter, r *http.Request) {
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
	sess, err := s.tutor.Start(r.Context(), claimsFrom(r.Context()).Subject, req.UnitID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) tutorSession(w http.ResponseWriter, r *http.Request) (*tutor.Session, bool) {
	sess, err := s.tutor.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !owns(r, sess.TraineeID) {
		err = tutor.ErrNotFound
	}
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) getTutor(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.tutorSession(w, r); ok {
		writeJSON(w, http.StatusOK, sess)
	}
}

func (s *Server) tutorTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, ok := s.tutorSession(w, r)
	if !ok {
		return
	}
	res, err := s.tutor.UpdateTutorReadiness(r.Context(), sess.ID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) endTutor(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.tutorSession(w, r)
	if !ok {
		return
	}
	ended, err := s.tutor.End(r.Context(), sess.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ended)
}
