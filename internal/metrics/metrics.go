// Package metrics holds the Prometheus collectors shared by the engine and
// the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LLMRequests counts provider calls by purpose and outcome.
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_llm_requests_total",
			Help: "Total number of LLM provider calls",
		},
		[]string{"purpose", "status"}, // status: success/failure
	)

	// LLMDuration observes provider latency by purpose.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brigade_llm_request_duration_seconds",
			Help:    "Time spent waiting for LLM providers",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"purpose"},
	)

	// LLMTokens counts tokens by direction.
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_llm_tokens_total",
			Help: "Total tokens consumed by LLM calls",
		},
		[]string{"purpose", "direction"}, // direction: input/output
	)

	// AnswersGraded counts committed answer results.
	AnswersGraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_answers_graded_total",
			Help: "Total number of graded answers",
		},
		[]string{"kind", "outcome"}, // outcome: correct/incorrect/passed/failed
	)

	// SubmissionsRejected counts answers refused before grading.
	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_submissions_rejected_total",
			Help: "Total number of rejected answer submissions",
		},
		[]string{"reason"},
	)

	// SessionsFinalized counts first finalizations by competency level.
	SessionsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_sessions_finalized_total",
			Help: "Total number of finalized assessment sessions",
		},
		[]string{"competency", "passed"},
	)

	// QuestionGenerations counts question bank generations by outcome.
	QuestionGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_question_generations_total",
			Help: "Total number of question bank generations",
		},
		[]string{"status"}, // status: success/schema_violation/error
	)

	// TutorReadiness observes readiness scores after each practice turn.
	TutorReadiness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brigade_tutor_readiness_score",
			Help:    "Readiness score after each practice turn",
			Buckets: []float64{10, 25, 50, 60, 75, 90, 100},
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brigade_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brigade_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Outcome maps a boolean to the success/failure label pair.
func Outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
