package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// UnitRecord is the persisted form of an assessable unit.
type UnitRecord struct {
	ID               string
	Title            string
	Content          string
	Topics           []string
	AssessmentType   string
	PassingThreshold int
	QuestionWeights  map[string]float64
	QuestionCount    int
	UpdatedAt        time.Time
}

// UnitRepo reads and writes units.
type UnitRepo struct {
	q querier
	b *entsql.DialectBuilder
}

var unitSelectColumns = []string{
	"id", "title", "content", "topics", "assessment_type",
	"passing_threshold", "question_weights", "question_count", "updated_at",
}

// Upsert inserts the unit or replaces every column of an existing one.
func (r *UnitRepo) Upsert(ctx context.Context, u *UnitRecord) error {
	topics, err := json.Marshal(u.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	weights, err := json.Marshal(u.QuestionWeights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}

	stmt := r.b.Insert(UnitsTable.Name).
		Columns(unitSelectColumns...).
		Values(u.ID, u.Title, u.Content, string(topics), u.AssessmentType,
			u.PassingThreshold, string(weights), u.QuestionCount, u.UpdatedAt.UTC()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		)
	if _, err := exec(ctx, r.q, stmt); err != nil {
		return fmt.Errorf("upsert unit %s: %w", u.ID, err)
	}
	return nil
}

// Get returns the unit with the given id or ErrNotFound.
func (r *UnitRepo) Get(ctx context.Context, id string) (*UnitRecord, error) {
	sel := r.b.Select(unitSelectColumns...).
		From(entsql.Table(UnitsTable.Name)).
		Where(entsql.EQ("id", id))

	var u *UnitRecord
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error {
		var err error
		u, err = scanUnit(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get unit %s: %w", id, err)
	}
	return u, nil
}

// List returns all units ordered by id.
func (r *UnitRepo) List(ctx context.Context) ([]*UnitRecord, error) {
	sel := r.b.Select(unitSelectColumns...).
		From(entsql.Table(UnitsTable.Name)).
		OrderBy("id")

	var out []*UnitRecord
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		u, err := scanUnit(rows)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return out, nil
}

func scanUnit(rows *sql.Rows) (*UnitRecord, error) {
	var (
		u               UnitRecord
		topics, weights string
	)
	if err := rows.Scan(&u.ID, &u.Title, &u.Content, &topics, &u.AssessmentType,
		&u.PassingThreshold, &weights, &u.QuestionCount, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topics), &u.Topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if err := json.Unmarshal([]byte(weights), &u.QuestionWeights); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
