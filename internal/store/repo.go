package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// exec runs a built statement and returns the number of affected rows.
func exec(ctx context.Context, q querier, stmt entsql.Querier) (int64, error) {
	query, args := stmt.Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// queryRows runs a built query and calls scan for every row.
func queryRows(ctx context.Context, q querier, stmt entsql.Querier, scan func(*sql.Rows) error) error {
	query, args := stmt.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryOne is queryRows for lookups expected to match at most one row.
// It returns ErrNotFound when nothing matches.
func queryOne(ctx context.Context, q querier, stmt entsql.Querier, scan func(*sql.Rows) error) error {
	found := false
	err := queryRows(ctx, q, stmt, func(rows *sql.Rows) error {
		if found {
			return nil
		}
		found = true
		return scan(rows)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullable(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
