// Package api serves the assessment engine and practice tutor over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/brigade/internal/assessment"
	"github.com/abhisek/brigade/internal/metrics"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/tutor"
	"github.com/abhisek/brigade/internal/voice"
)

// maxJSONBody bounds JSON request bodies; unit content is the largest.
const maxJSONBody = 1 << 20

// Deps are the services behind the API. Voice is optional; without it
// voice answers are rejected.
type Deps struct {
	Assessment  *assessment.Engine
	Tutor       *tutor.Service
	Bank        *questionbank.Bank
	Voice       *voice.Service
	Auth        *Auth
	Logger      *slog.Logger
	CORSOrigins []string

	// Ready reports whether dependencies (the database) are reachable.
	Ready func(ctx context.Context) error
}

// Server holds the HTTP handlers.
type Server struct {
	engine *assessment.Engine
	tutor  *tutor.Service
	bank   *questionbank.Bank
	voice  *voice.Service
	auth   *Auth
	logger *slog.Logger
	ready  func(ctx context.Context) error
	cors   []string
}

func NewServer(d Deps) *Server {
	s := &Server{
		engine: d.Assessment,
		tutor:  d.Tutor,
		bank:   d.Bank,
		voice:  d.Voice,
		auth:   d.Auth,
		logger: d.Logger,
		ready:  d.Ready,
		cors:   d.CORSOrigins,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if len(s.cors) == 0 {
		s.cors = []string{"*"}
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cors,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/sessions", s.listSessions)
		r.Post("/sessions", s.startSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/consent", s.recordConsent)
			r.Post("/answers", s.submitAnswer)
			r.Post("/voice-answers", s.submitVoiceAnswer)
			r.Post("/finalize", s.finalize)
			r.Get("/results", s.results)
			r.Post("/retry", s.retry)
		})

		r.Get("/units", s.listUnits)
		r.Get("/units/{id}/questions", s.questions)
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Put("/units/{id}", s.putUnit)
			r.Post("/units/{id}/questions/regenerate", s.regenerate)
		})

		r.Post("/tutor/sessions", s.startTutor)
		r.Get("/tutor/sessions/{id}", s.getTutor)
		r.Post("/tutor/sessions/{id}/turns", s.tutorTurn)
		r.Post("/tutor/sessions/{id}/end", s.endTutor)
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "unhealthy", err.Error(), true)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// owns reports whether the caller may act on a trainee's data.
func owns(r *http.Request, traineeID string) bool {
	c := claimsFrom(r.Context())
	return c != nil && (c.Role == RoleAdmin || c.Subject == traineeID)
}
