// Package tutor runs ungraded practice conversations and tracks how ready
// a trainee is for the graded assessment.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/brigade/internal/events"
	"github.com/abhisek/brigade/internal/guard"
	"github.com/abhisek/brigade/internal/metrics"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/store"
)

// Service runs practice sessions. It never creates assessment sessions;
// taking the graded test is a separate choice of the trainee.
type Service struct {
	store     *store.Store
	bank      *questionbank.Bank
	coach     Coach
	guard     guard.Guard
	publisher events.Publisher
	logger    *slog.Logger
	threshold int
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

func WithGuard(g guard.Guard) Option          { return func(s *Service) { s.guard = g } }
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }
func WithLogger(l *slog.Logger) Option        { return func(s *Service) { s.logger = l } }

// NewService creates a practice tutor.
func NewService(st *store.Store, bank *questionbank.Bank, coach Coach, opts ...Option) *Service {
	s := &Service{
		store:     st,
		bank:      bank,
		coach:     coach,
		guard:     guard.NewMemory(),
		publisher: events.Nop{},
		logger:    slog.Default(),
		threshold: DefaultThreshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start returns the trainee's open practice session for the unit, or
// creates one.
func (s *Service) Start(ctx context.Context, traineeID, unitID string) (*Session, error) {
	if traineeID == "" {
		return nil, fmt.Errorf("trainee id is required")
	}
	if _, err := s.bank.Unit(ctx, unitID); err != nil {
		return nil, err
	}

	rec, err := s.store.Tutor().LatestOpenSession(ctx, traineeID, unitID, string(PhaseConversation))
	if err == nil {
		return s.load(ctx, rec)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	rec = &store.TutorSessionRecord{
		ID:             uuid.NewString(),
		TraineeID:      traineeID,
		UnitID:         unitID,
		Phase:          string(PhaseConversation),
		Threshold:      s.threshold,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := s.store.Tutor().CreateSession(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("practice session started", "session", rec.ID, "trainee", traineeID, "unit", unitID)
	return sessionFromRecord(rec, nil), nil
}

// UpdateTutorReadiness sends one practice message, records the exchange
// and recomputes readiness from the whole conversation.
func (s *Service) UpdateTutorReadiness(ctx context.Context, sessionID, message string) (*Readiness, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if Phase(rec.Phase) != PhaseConversation {
		return nil, ErrSessionClosed
	}
	unit, err := s.bank.Unit(ctx, rec.UnitID)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.Tutor().Turns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := sessionFromRecord(rec, turns).Turns

	reply, err := s.coach.Coach(ctx, CoachInput{Unit: unit, History: history, Message: message})
	if err != nil {
		return nil, err
	}

	turn := &store.TutorTurnRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Seq:       len(turns) + 1,
		Message:   message,
		Reply:     reply.Reply,
		Score:     reply.Score,
		Topic:     reply.Topic,
		CreatedAt: s.now(),
	}
	readiness := ComputeReadiness(exchanges(append(turns, turn)), unit.Topics)
	wasReady := rec.SuggestedReady

	rec.Readiness = readiness
	rec.SuggestedReady = readiness >= rec.Threshold
	rec.LastActivityAt = turn.CreatedAt
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.Tutor().AppendTurn(ctx, turn); err != nil {
			return err
		}
		ok, err := tx.Tutor().UpdateSession(ctx, rec, string(PhaseConversation))
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionClosed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TutorReadiness.Observe(float64(readiness))

	if rec.SuggestedReady && !wasReady {
		s.logger.Info("practice readiness reached", "session", sessionID, "readiness", readiness)
		ev := events.TutorReady{
			TutorSessionID: sessionID,
			TraineeID:      rec.TraineeID,
			UnitID:         rec.UnitID,
			ReadinessScore: readiness,
			ReachedAt:      turn.CreatedAt,
		}
		if err := s.publisher.Publish(context.WithoutCancel(ctx), events.KeyTutorReady, ev); err != nil {
			s.logger.Warn("failed to publish readiness", "session", sessionID, "error", err)
		}
	}

	return &Readiness{
		ReadinessScore: readiness,
		SuggestedReady: rec.SuggestedReady,
		Reply:          reply.Reply,
		Topic:          reply.Topic,
	}, nil
}

// End closes a practice session. Ending twice is a no-op. End fails with
// ErrRequestPending while an exchange is in flight.
func (s *Service) End(ctx context.Context, sessionID string) (*Session, error) {
	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if Phase(rec.Phase) == PhaseConversation {
		now := s.now()
		rec.Phase = string(PhaseResults)
		rec.EndedAt = &now
		rec.LastActivityAt = now
		ok, err := s.store.Tutor().UpdateSession(ctx, rec, string(PhaseConversation))
		if err != nil {
			return nil, err
		}
		if !ok {
			// Ended elsewhere in the meantime.
			if rec, err = s.getRecord(ctx, sessionID); err != nil {
				return nil, err
			}
		}
	}
	return s.load(ctx, rec)
}

// acquire takes the per-session guard shared by exchanges and End.
func (s *Service) acquire(ctx context.Context, sessionID string) (func(), error) {
	release, err := s.guard.Acquire(ctx, "tutor:"+sessionID, 2*time.Minute)
	if errors.Is(err, guard.ErrHeld) {
		return nil, ErrRequestPending
	}
	if err != nil {
		return nil, fmt.Errorf("acquire tutor guard: %w", err)
	}
	return release, nil
}

// Get replays a practice session.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	rec, err := s.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, rec)
}

func (s *Service) getRecord(ctx context.Context, id string) (*store.TutorSessionRecord, error) {
	rec, err := s.store.Tutor().GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

func (s *Service) load(ctx context.Context, rec *store.TutorSessionRecord) (*Session, error) {
	turns, err := s.store.Tutor().Turns(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return sessionFromRecord(rec, turns), nil
}
