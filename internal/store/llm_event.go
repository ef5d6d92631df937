package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// LLMRequest is one recorded provider call.
type LLMRequest struct {
	ID           int64
	Timestamp    time.Time
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// QueryOpts filters LLM request queries.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact purpose match, empty for all
	Before  int64  // id < Before when > 0
}

// PurposeUsage aggregates calls per purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates calls per model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// LLMEventRepo is the audit log of provider calls.
type LLMEventRepo struct {
	q querier
	b *entsql.DialectBuilder
}

var llmRequestSelectColumns = []string{
	"id", "created_at", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

// AppendLLMRequest records a provider call.
func (r *LLMEventRepo) AppendLLMRequest(ctx context.Context, e LLMRequest) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	ins := r.b.Insert(LLMRequestsTable.Name).
		Columns(llmRequestSelectColumns[1:]...).
		Values(e.Timestamp.UTC(), e.Provider, e.Model, e.Purpose, e.InputTokens, e.OutputTokens,
			e.LatencyMs, e.Success, e.ErrorMessage, e.RequestBody, e.ResponseBody)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// List returns recorded calls, newest first.
func (r *LLMEventRepo) List(ctx context.Context, opts QueryOpts) ([]*LLMRequest, error) {
	var preds []*entsql.Predicate
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("id", opts.Before))
	}
	sel := r.b.Select(llmRequestSelectColumns...).
		From(entsql.Table(LLMRequestsTable.Name)).
		OrderBy(entsql.Desc("id"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	var out []*LLMRequest
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		e, err := scanLLMRequest(rows)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return out, nil
}

// Get returns one recorded call or ErrNotFound.
func (r *LLMEventRepo) Get(ctx context.Context, id int64) (*LLMRequest, error) {
	sel := r.b.Select(llmRequestSelectColumns...).
		From(entsql.Table(LLMRequestsTable.Name)).
		Where(entsql.EQ("id", id))
	var e *LLMRequest
	err := queryOne(ctx, r.q, sel, func(rows *sql.Rows) error {
		var err error
		e, err = scanLLMRequest(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get LLM event %d: %w", id, err)
	}
	return e, nil
}

// UsageByPurpose aggregates token usage per purpose.
func (r *LLMEventRepo) UsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	sel := r.b.Select(
		"purpose",
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(entsql.Table(LLMRequestsTable.Name)).
		GroupBy("purpose").
		OrderBy("purpose")

	var out []PurposeUsage
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		var (
			u   PurposeUsage
			avg float64
		)
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return err
		}
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("usage by purpose: %w", err)
	}
	return out, nil
}

// UsageByModel aggregates token usage per model.
func (r *LLMEventRepo) UsageByModel(ctx context.Context) ([]ModelUsage, error) {
	sel := r.b.Select(
		"model",
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
	).
		From(entsql.Table(LLMRequestsTable.Name)).
		GroupBy("model").
		OrderBy("model")

	var out []ModelUsage
	err := queryRows(ctx, r.q, sel, func(rows *sql.Rows) error {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens); err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	return out, nil
}

func scanLLMRequest(rows *sql.Rows) (*LLMRequest, error) {
	var e LLMRequest
	if err := rows.Scan(&e.ID, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens,
		&e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody); err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}
