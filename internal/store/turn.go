package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// TurnRecord is one committed question/answer/result triple. Result holds
// the JSON-encoded grading outcome.
type TurnRecord struct {
	ID         string
	SessionID  string
	Seq        int
	QuestionID string
	Prompt     string
	Submitted  string
	Modality   string
	Result     []byte
	CreatedAt  time.Time
}

// TurnRepo appends and replays session turns.
type TurnRepo struct {
	q querier
	b *entsql.DialectBuilder
}

var turnSelectColumns = []string{
	"id", "session_id", "seq", "question_id", "prompt", "submitted",
	"modality", "result", "created_at",
}

// Append inserts t unless the session already has a turn for the same
// question. It returns false when the insert was skipped.
func (r *TurnRepo) Append(ctx context.Context, t *TurnRecord) (bool, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	ins := r.b.Insert(TurnsTable.Name).
		Columns(turnSelectColumns...).
		Values(t.ID, t.SessionID, t.Seq, t.QuestionID, t.Prompt, t.Submitted,
			t.Modality, string(t.Result), t.CreatedAt.UTC()).
		OnConflict(
			entsql.ConflictColumns("session_id", "question_id"),
			entsql.DoNothing(),
		)
	n, err := exec(ctx, r.q, ins)
	if err != nil {
		return false, fmt.Errorf("append turn: %w", err)
	}
	return n == 1, nil
}

// List returns a session's turns in sequence order.
func (r *TurnRepo) List(ctx context.Context, sessionID string) ([]*TurnRecord, error) {
	sel := r.b.Select(turnSelectColumns...).
		From(entsql.Table(TurnsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("seq")
	var out []*TurnRecord
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		t, err := scanTurn(rows)
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list turns of %s: %w", sessionID, err)
	}
	return out, nil
}

// ForQuestion returns the turn for a question in a session or ErrNotFound.
func (r *TurnRepo) ForQuestion(ctx context.Context, sessionID, questionID string) (*TurnRecord, error) {
	sel := r.b.Select(turnSelectColumns...).
		From(entsql.Table(TurnsTable.Name)).
		Where(entsql.And(entsql.EQ("session_id", sessionID), entsql.EQ("question_id", questionID)))
	var t *TurnRecord
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error {
		var err error
		t, err = scanTurn(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTurn(rows *sql.Rows) (*TurnRecord, error) {
	var (
		t      TurnRecord
		result string
	)
	if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &t.QuestionID, &t.Prompt, &t.Submitted,
		&t.Modality, &result, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Result = []byte(result)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}
