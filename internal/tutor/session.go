package tutor

import (
	"errors"
	"time"

	"github.com/abhisek/brigade/internal/store"
)

// Phase of a practice session.
type Phase string

const (
	PhaseConversation Phase = "conversation"
	PhaseResults      Phase = "results"
)

var (
	ErrNotFound       = errors.New("practice session not found")
	ErrSessionClosed  = errors.New("practice session has ended")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrRequestPending = errors.New("another message for this practice session is in progress")
)

// Turn is one practice exchange.
type Turn struct {
	Seq       int       `json:"seq"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	Score     int       `json:"score"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an ungraded practice conversation.
type Session struct {
	ID             string     `json:"id"`
	TraineeID      string     `json:"traineeId"`
	UnitID         string     `json:"unitId"`
	Phase          Phase      `json:"phase"`
	Turns          []Turn     `json:"turns"`
	Readiness      int        `json:"readinessScore"`
	SuggestedReady bool       `json:"suggestedReady"`
	Threshold      int        `json:"threshold"`
	StartedAt      time.Time  `json:"startedAt"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
}

// Readiness is the outcome of one practice exchange.
type Readiness struct {
	ReadinessScore int    `json:"readinessScore"`
	SuggestedReady bool   `json:"suggestedReady"`
	Reply          string `json:"reply"`
	Topic          string `json:"topic,omitempty"`
}

func sessionFromRecord(r *store.TutorSessionRecord, turns []*store.TutorTurnRecord) *Session {
	s := &Session{
		ID:             r.ID,
		TraineeID:      r.TraineeID,
		UnitID:         r.UnitID,
		Phase:          Phase(r.Phase),
		Turns:          make([]Turn, 0, len(turns)),
		Readiness:      r.Readiness,
		SuggestedReady: r.SuggestedReady,
		Threshold:      r.Threshold,
		StartedAt:      r.StartedAt,
		LastActivityAt: r.LastActivityAt,
		EndedAt:        r.EndedAt,
	}
	for _, t := range turns {
		s.Turns = append(s.Turns, Turn{
			Seq:       t.Seq,
			Message:   t.Message,
			Reply:     t.Reply,
			Score:     t.Score,
			Topic:     t.Topic,
			CreatedAt: t.CreatedAt,
		})
	}
	return s
}

func exchanges(turns []*store.TutorTurnRecord) []Exchange {
	out := make([]Exchange, len(turns))
	for i, t := range turns {
		out[i] = Exchange{Score: t.Score, Topic: t.Topic}
	}
	return out
}
