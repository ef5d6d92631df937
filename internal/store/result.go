package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// ResultRepo stores the terminal results document of each session.
type ResultRepo struct {
	q querier
	b *entsql.DialectBuilder
}

// Put stores body for the session unless a document already exists.
// It returns false when an earlier document was kept.
func (r *ResultRepo) Put(ctx context.Context, sessionID string, body []byte) (bool, error) {
	ins := r.b.Insert(ResultsTable.Name).
		Columns("session_id", "body", "created_at").
		Values(sessionID, string(body), time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("session_id"), entsql.DoNothing())
	n, err := exec(ctx, r.q, ins)
	if err != nil {
		return false, fmt.Errorf("put results for %s: %w", sessionID, err)
	}
	return n == 1, nil
}

// Get returns the stored document bytes or ErrNotFound.
func (r *ResultRepo) Get(ctx context.Context, sessionID string) ([]byte, error) {
	sel := r.b.Select("body").
		From(entsql.Table(ResultsTable.Name)).
		Where(entsql.EQ("session_id", sessionID))
	var body string
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error { return rows.Scan(&body) })
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}
