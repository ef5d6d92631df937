package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/brigade/internal/questionbank"
)

type unitSummary struct {
	ID               string                      `json:"id"`
	Title            string                      `json:"title"`
	Topics           []string                    `json:"topics"`
	AssessmentType   questionbank.AssessmentType `json:"assessmentType"`
	PassingThreshold int                         `json:"passingThreshold"`
}

func (s *Server) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.bank.Units(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]unitSummary, len(units))
	for i, u := range units {
		out[i] = unitSummary{u.ID, u.Title, u.Topics, u.AssessmentType, u.PassingThreshold}
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": out})
}

func (s *Server) questions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.engine.GetOrGenerateQuestions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (s *Server) putUnit(w http.ResponseWriter, r *http.Request) {
	var u questionbank.Unit
	if err := decode(r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if u.ID != "" && u.ID != id {
		s.writeError(w, r, badRequest("unit id does not match the path"))
		return
	}
	u.ID = id
	u.Normalize()
	if err := u.Validate(); err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	if err := s.bank.PutUnit(r.Context(), &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &u)
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	qs, err := s.bank.Regenerate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}
