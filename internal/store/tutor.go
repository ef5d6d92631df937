package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// TutorSessionRecord is the persisted form of a practice session.
type TutorSessionRecord struct {
	ID             string
	TraineeID      string
	UnitID         string
	Phase          string
	Readiness      int
	SuggestedReady bool
	Threshold      int
	StartedAt      time.Time
	LastActivityAt time.Time
	EndedAt        *time.Time
}

// TutorTurnRecord is one practice exchange.
type TutorTurnRecord struct {
	ID        string
	SessionID string
	Seq       int
	Message   string
	Reply     string
	Score     int
	Topic     string
	CreatedAt time.Time
}

// TutorRepo reads and writes practice sessions and their turns.
type TutorRepo struct {
	q querier
	b *entsql.DialectBuilder
}

var (
	tutorSessionSelectColumns = []string{
		"id", "trainee_id", "unit_id", "phase", "readiness", "suggested_ready",
		"threshold", "started_at", "last_activity_at", "ended_at",
	}
	tutorTurnSelectColumns = []string{
		"id", "session_id", "seq", "message", "reply", "score", "topic", "created_at",
	}
)

// CreateSession inserts a new practice session.
func (r *TutorRepo) CreateSession(ctx context.Context, s *TutorSessionRecord) error {
	ins := r.b.Insert(TutorSessionsTable.Name).
		Columns(tutorSessionSelectColumns...).
		Values(s.ID, s.TraineeID, s.UnitID, s.Phase, s.Readiness, s.SuggestedReady,
			s.Threshold, s.StartedAt.UTC(), s.LastActivityAt.UTC(), nullable(s.EndedAt))
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("create tutor session: %w", err)
	}
	return nil
}

// GetSession returns a practice session or ErrNotFound.
func (r *TutorRepo) GetSession(ctx context.Context, id string) (*TutorSessionRecord, error) {
	sel := r.b.Select(tutorSessionSelectColumns...).
		From(entsql.Table(TutorSessionsTable.Name)).
		Where(entsql.EQ("id", id))
	s, err := r.oneSession(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get tutor session %s: %w", id, err)
	}
	return s, nil
}

// LatestOpenSession returns the newest practice session for the pair that is
// in phase, or ErrNotFound.
func (r *TutorRepo) LatestOpenSession(ctx context.Context, traineeID, unitID, phase string) (*TutorSessionRecord, error) {
	sel := r.b.Select(tutorSessionSelectColumns...).
		From(entsql.Table(TutorSessionsTable.Name)).
		Where(entsql.And(
			entsql.EQ("trainee_id", traineeID),
			entsql.EQ("unit_id", unitID),
			entsql.EQ("phase", phase),
		)).
		OrderBy(entsql.Desc("started_at")).
		Limit(1)
	return r.oneSession(ctx, sel)
}

// UpdateSession writes the mutable columns of a practice session if it is
// still in expectPhase. It reports whether the row was updated.
func (r *TutorRepo) UpdateSession(ctx context.Context, s *TutorSessionRecord, expectPhase string) (bool, error) {
	upd := r.b.Update(TutorSessionsTable.Name).
		Set("phase", s.Phase).
		Set("readiness", s.Readiness).
		Set("suggested_ready", s.SuggestedReady).
		Set("last_activity_at", s.LastActivityAt.UTC()).
		Set("ended_at", nullable(s.EndedAt)).
		Where(entsql.And(entsql.EQ("id", s.ID), entsql.EQ("phase", expectPhase)))
	n, err := exec(ctx, r.q, upd)
	if err != nil {
		return false, fmt.Errorf("update tutor session %s: %w", s.ID, err)
	}
	return n == 1, nil
}

// AppendTurn inserts a practice turn. The (session, seq) pair is unique.
func (r *TutorRepo) AppendTurn(ctx context.Context, t *TutorTurnRecord) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	ins := r.b.Insert(TutorTurnsTable.Name).
		Columns(tutorTurnSelectColumns...).
		Values(t.ID, t.SessionID, t.Seq, t.Message, t.Reply, t.Score, t.Topic, t.CreatedAt.UTC())
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("append tutor turn: %w", err)
	}
	return nil
}

// Turns returns a practice session's turns in order.
func (r *TutorRepo) Turns(ctx context.Context, sessionID string) ([]*TutorTurnRecord, error) {
	sel := r.b.Select(tutorTurnSelectColumns...).
		From(entsql.Table(TutorTurnsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("seq")
	var out []*TutorTurnRecord
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		var t TutorTurnRecord
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &t.Message, &t.Reply,
			&t.Score, &t.Topic, &t.CreatedAt); err != nil {
			return err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, &t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tutor turns of %s: %w", sessionID, err)
	}
	return out, nil
}

func (r *TutorRepo) oneSession(ctx context.Context, sel *entsql.Selector) (*TutorSessionRecord, error) {
	var s *TutorSessionRecord
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error {
		var (
			rec   TutorSessionRecord
			ended sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.TraineeID, &rec.UnitID, &rec.Phase, &rec.Readiness,
			&rec.SuggestedReady, &rec.Threshold, &rec.StartedAt, &rec.LastActivityAt, &ended); err != nil {
			return err
		}
		rec.StartedAt = rec.StartedAt.UTC()
		rec.LastActivityAt = rec.LastActivityAt.UTC()
		rec.EndedAt = timePtr(ended)
		s = &rec
		return nil
	})
	return s, err
}
