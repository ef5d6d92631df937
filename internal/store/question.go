package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// OptionRecord is one persisted multiple-choice option.
type OptionRecord struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuestionRecord is the persisted form of a quiz question.
type QuestionRecord struct {
	ID          string
	UnitID      string
	BatchID     string
	Position    int
	Kind        string
	Topic       string
	Prompt      string
	Options     []OptionRecord
	Explanation string
	Rubric      string
	Active      bool
	CreatedAt   time.Time
}

// QuestionRepo reads and writes the question bank and its generation claims.
type QuestionRepo struct {
	q querier
	b *entsql.DialectBuilder
}

var questionSelectColumns = []string{
	"id", "unit_id", "batch_id", "position", "kind", "topic", "prompt",
	"options", "explanation", "rubric", "active", "created_at",
}

// InsertBatch writes a batch of questions in one statement.
func (r *QuestionRepo) InsertBatch(ctx context.Context, qs []*QuestionRecord) error {
	if len(qs) == 0 {
		return nil
	}
	ins := r.b.Insert(QuestionsTable.Name).Columns(questionSelectColumns...)
	for _, q := range qs {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		ins.Values(q.ID, q.UnitID, q.BatchID, q.Position, q.Kind, q.Topic, q.Prompt,
			string(opts), q.Explanation, q.Rubric, q.Active, q.CreatedAt.UTC())
	}
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

// Active returns the active questions of a unit in their stored order.
func (r *QuestionRepo) Active(ctx context.Context, unitID string) ([]*QuestionRecord, error) {
	sel := r.b.Select(questionSelectColumns...).
		From(entsql.Table(QuestionsTable.Name)).
		Where(entsql.And(entsql.EQ("unit_id", unitID), entsql.EQ("active", true))).
		OrderBy("position")
	out, err := r.list(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("active questions for %s: %w", unitID, err)
	}
	return out, nil
}

// CountActive returns the number of active questions of a unit.
func (r *QuestionRepo) CountActive(ctx context.Context, unitID string) (int, error) {
	sel := r.b.Select().
		From(entsql.Table(QuestionsTable.Name)).
		Where(entsql.And(entsql.EQ("unit_id", unitID), entsql.EQ("active", true))).
		Count()
	var n int
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error { return rows.Scan(&n) })
	if err != nil {
		return 0, fmt.Errorf("count questions for %s: %w", unitID, err)
	}
	return n, nil
}

// GetMany returns the questions with the given ids, active or not, keyed by id.
func (r *QuestionRepo) GetMany(ctx context.Context, ids []string) (map[string]*QuestionRecord, error) {
	out := make(map[string]*QuestionRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	sel := r.b.Select(questionSelectColumns...).
		From(entsql.Table(QuestionsTable.Name)).
		Where(entsql.In("id", args...))
	list, err := r.list(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	for _, q := range list {
		out[q.ID] = q
	}
	return out, nil
}

// Get returns one question or ErrNotFound.
func (r *QuestionRepo) Get(ctx context.Context, id string) (*QuestionRecord, error) {
	m, err := r.GetMany(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	q, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("get question %s: %w", id, ErrNotFound)
	}
	return q, nil
}

// DeactivateUnit soft-deletes every active question of a unit.
func (r *QuestionRepo) DeactivateUnit(ctx context.Context, unitID string) (int64, error) {
	upd := r.b.Update(QuestionsTable.Name).
		Set("active", false).
		Where(entsql.And(entsql.EQ("unit_id", unitID), entsql.EQ("active", true)))
	n, err := exec(ctx, r.q, upd)
	if err != nil {
		return 0, fmt.Errorf("deactivate questions for %s: %w", unitID, err)
	}
	return n, nil
}

// Claim records that owner is generating questions for unitID. It returns
// false when another owner holds a claim newer than staleBefore. A stale
// claim is taken over.
func (r *QuestionRepo) Claim(ctx context.Context, unitID, owner string, now, staleBefore time.Time) (bool, error) {
	ins := r.b.Insert(GenerationsTable.Name).
		Columns("unit_id", "owner", "claimed_at").
		Values(unitID, owner, now.UTC()).
		OnConflict(entsql.ConflictColumns("unit_id"), entsql.DoNothing())
	n, err := exec(ctx, r.q, ins)
	if err != nil {
		return false, fmt.Errorf("claim generation for %s: %w", unitID, err)
	}
	if n == 1 {
		return true, nil
	}

	upd := r.b.Update(GenerationsTable.Name).
		Set("owner", owner).
		Set("claimed_at", now.UTC()).
		Where(entsql.And(entsql.EQ("unit_id", unitID), entsql.LT("claimed_at", staleBefore.UTC())))
	n, err = exec(ctx, r.q, upd)
	if err != nil {
		return false, fmt.Errorf("take over generation claim for %s: %w", unitID, err)
	}
	return n == 1, nil
}

// Release drops the claim if owner still holds it.
func (r *QuestionRepo) Release(ctx context.Context, unitID, owner string) error {
	del := r.b.Delete(GenerationsTable.Name).
		Where(entsql.And(entsql.EQ("unit_id", unitID), entsql.EQ("owner", owner)))
	if _, err := exec(ctx, r.q, del); err != nil {
		return fmt.Errorf("release generation claim for %s: %w", unitID, err)
	}
	return nil
}

func (r *QuestionRepo) list(ctx context.Context, sel *entsql.Selector) ([]*QuestionRecord, error) {
	var out []*QuestionRecord
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		var (
			q    QuestionRecord
			opts string
		)
		if err := rows.Scan(&q.ID, &q.UnitID, &q.BatchID, &q.Position, &q.Kind, &q.Topic,
			&q.Prompt, &opts, &q.Explanation, &q.Rubric, &q.Active, &q.CreatedAt); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return fmt.Errorf("decode options of %s: %w", q.ID, err)
		}
		q.CreatedAt = q.CreatedAt.UTC()
		out = append(out, &q)
		return nil
	})
	return out, err
}
