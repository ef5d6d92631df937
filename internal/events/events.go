// Package events publishes assessment outcomes to the program-level
// progress tracker.
package events

import (
	"context"
	"time"
)

// Routing keys.
const (
	KeyResultsFinalized = "assessment.results.finalized"
	KeyTutorReady       = "tutor.readiness.reached"
)

// ResultsFinalized is published once per attempt, when its results are
// first stored.
type ResultsFinalized struct {
	SessionID        string    `json:"sessionId"`
	TraineeID        string    `json:"traineeId"`
	UnitID           string    `json:"unitId"`
	Attempt          int       `json:"attempt"`
	Score            int       `json:"score"`
	Passed           bool      `json:"passed"`
	PassingThreshold int       `json:"passingThreshold"`
	CompetencyLevel  string    `json:"competencyLevel"`
	CompletedAt      time.Time `json:"completedAt"`
}

// TutorReady is published when a practice session first crosses the
// readiness threshold.
type TutorReady struct {
	TutorSessionID string    `json:"tutorSessionId"`
	TraineeID      string    `json:"traineeId"`
	UnitID         string    `json:"unitId"`
	ReadinessScore int       `json:"readinessScore"`
	ReachedAt      time.Time `json:"reachedAt"`
}

// Publisher delivers an event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
