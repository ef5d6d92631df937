package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// SessionRecord is the persisted form of an assessment session.
type SessionRecord struct {
	ID              string
	TraineeID       string
	UnitID          string
	Attempt         int
	Phase           string
	Mode            string
	QuestionIDs     []string
	TopicsCovered   int
	TopicsTotal     int
	VoiceConsent    bool
	ConsentResolved bool
	StartedAt       time.Time
	LastActivityAt  time.Time
	CompletedAt     *time.Time
}

// SessionRepo reads and writes assessment sessions.
type SessionRepo struct {
	q querier
	b *entsql.DialectBuilder
}

var sessionSelectColumns = []string{
	"id", "trainee_id", "unit_id", "attempt", "phase", "mode", "question_ids",
	"topics_covered", "topics_total", "voice_consent", "consent_resolved",
	"started_at", "last_activity_at", "completed_at",
}

// Create inserts a new session. It returns false without error when a
// session with the same (trainee, unit, attempt) already exists.
func (r *SessionRepo) Create(ctx context.Context, s *SessionRecord) (bool, error) {
	qids, err := json.Marshal(s.QuestionIDs)
	if err != nil {
		return false, fmt.Errorf("marshal question ids: %w", err)
	}
	ins := r.b.Insert(SessionsTable.Name).
		Columns(sessionSelectColumns...).
		Values(s.ID, s.TraineeID, s.UnitID, s.Attempt, s.Phase, s.Mode, string(qids),
			s.TopicsCovered, s.TopicsTotal, s.VoiceConsent, s.ConsentResolved,
			s.StartedAt.UTC(), s.LastActivityAt.UTC(), nullable(s.CompletedAt)).
		OnConflict(
			entsql.ConflictColumns("trainee_id", "unit_id", "attempt"),
			entsql.DoNothing(),
		)
	n, err := exec(ctx, r.q, ins)
	if err != nil {
		return false, fmt.Errorf("create session: %w", err)
	}
	return n == 1, nil
}

// Get returns a session by id or ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	sel := r.b.Select(sessionSelectColumns...).
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id))
	s, err := r.one(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// LatestOpen returns the newest session for the pair whose phase is not in
// closedPhases, or ErrNotFound.
func (r *SessionRepo) LatestOpen(ctx context.Context, traineeID, unitID string, closedPhases ...string) (*SessionRecord, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("trainee_id", traineeID),
		entsql.EQ("unit_id", unitID),
	}
	if len(closedPhases) > 0 {
		args := make([]any, len(closedPhases))
		for i, p := range closedPhases {
			args[i] = p
		}
		preds = append(preds, entsql.NotIn("phase", args...))
	}
	sel := r.b.Select(sessionSelectColumns...).
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("attempt")).
		Limit(1)
	return r.one(ctx, sel)
}

// MaxAttempt returns the highest attempt number for the pair, or 0.
func (r *SessionRepo) MaxAttempt(ctx context.Context, traineeID, unitID string) (int, error) {
	sel := r.b.Select("attempt").
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.And(entsql.EQ("trainee_id", traineeID), entsql.EQ("unit_id", unitID))).
		OrderBy(entsql.Desc("attempt")).
		Limit(1)
	var n int
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error { return rows.Scan(&n) })
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("max attempt: %w", err)
	}
	return n, nil
}

// ListByTrainee returns a trainee's sessions, newest first.
func (r *SessionRepo) ListByTrainee(ctx context.Context, traineeID string, limit int) ([]*SessionRecord, error) {
	sel := r.b.Select(sessionSelectColumns...).
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.EQ("trainee_id", traineeID)).
		OrderBy(entsql.Desc("started_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	var out []*SessionRecord
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		s, err := scanSession(rows)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// Update writes the mutable columns of s, guarded by the phase the caller
// last observed. It returns false when the stored phase no longer matches.
func (r *SessionRepo) Update(ctx context.Context, s *SessionRecord, expectPhase string) (bool, error) {
	qids, err := json.Marshal(s.QuestionIDs)
	if err != nil {
		return false, fmt.Errorf("marshal question ids: %w", err)
	}
	upd := r.b.Update(SessionsTable.Name).
		Set("phase", s.Phase).
		Set("question_ids", string(qids)).
		Set("topics_covered", s.TopicsCovered).
		Set("topics_total", s.TopicsTotal).
		Set("voice_consent", s.VoiceConsent).
		Set("consent_resolved", s.ConsentResolved).
		Set("last_activity_at", s.LastActivityAt.UTC()).
		Set("completed_at", nullable(s.CompletedAt)).
		Where(entsql.And(entsql.EQ("id", s.ID), entsql.EQ("phase", expectPhase)))
	n, err := exec(ctx, r.q, upd)
	if err != nil {
		return false, fmt.Errorf("update session %s: %w", s.ID, err)
	}
	return n == 1, nil
}

func (r *SessionRepo) one(ctx context.Context, sel *entsql.Selector) (*SessionRecord, error) {
	var s *SessionRecord
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error {
		var err error
		s, err = scanSession(rows)
		return err
	})
	return s, err
}

func scanSession(rows *sql.Rows) (*SessionRecord, error) {
	var (
		s         SessionRecord
		qids      string
		completed sql.NullTime
	)
	if err := rows.Scan(&s.ID, &s.TraineeID, &s.UnitID, &s.Attempt, &s.Phase, &s.Mode, &qids,
		&s.TopicsCovered, &s.TopicsTotal, &s.VoiceConsent, &s.ConsentResolved,
		&s.StartedAt, &s.LastActivityAt, &completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(qids), &s.QuestionIDs); err != nil {
		return nil, fmt.Errorf("decode question ids: %w", err)
	}
	s.StartedAt = s.StartedAt.UTC()
	s.LastActivityAt = s.LastActivityAt.UTC()
	s.CompletedAt = timePtr(completed)
	return &s, nil
}
