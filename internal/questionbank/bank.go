package questionbank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/brigade/internal/metrics"
	"github.com/abhisek/brigade/internal/store"
)

// ErrGenerationInProgress is returned when another process is generating
// the unit's questions and did not finish within GenerationWait.
var ErrGenerationInProgress = errors.New("question generation in progress")

// Bank serves a unit's active question set, generating it at most once.
type Bank struct {
	store  *store.Store
	gen    Generator
	config Config
	logger *slog.Logger
	owner  string
	group  singleflight.Group
	now    func() time.Time
}

// NewBank creates a Bank backed by st. gen may be nil when the caller only
// reads existing questions.
func NewBank(st *store.Store, gen Generator, cfg Config, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Shuffle == nil {
		cfg.Shuffle = def.Shuffle
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = def.ClaimTTL
	}
	if cfg.GenerationWait <= 0 {
		cfg.GenerationWait = def.GenerationWait
	}
	return &Bank{
		store:  st,
		gen:    gen,
		config: cfg,
		logger: logger,
		owner:  uuid.NewString(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Unit loads a unit.
func (b *Bank) Unit(ctx context.Context, id string) (*Unit, error) {
	rec, err := b.store.Units().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return unitFromRecord(rec), nil
}

// Units lists every unit.
func (b *Bank) Units(ctx context.Context) ([]*Unit, error) {
	recs, err := b.store.Units().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Unit, len(recs))
	for i, r := range recs {
		out[i] = unitFromRecord(r)
	}
	return out, nil
}

// PutUnit validates and stores a unit. Existing questions stay active;
// call Regenerate when the content changed.
func (b *Bank) PutUnit(ctx context.Context, u *Unit) error {
	u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	u.UpdatedAt = b.now()
	return b.store.Units().Upsert(ctx, u.record())
}

// GetOrGenerate returns the unit's active questions, client-safe and in a
// fresh random order. When the unit has none they are generated,
// validated and persisted first.
func (b *Bank) GetOrGenerate(ctx context.Context, unitID string) ([]ClientQuestion, error) {
	qs, err := b.Active(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		qs, err = b.generateShared(ctx, unitID)
		if err != nil {
			return nil, err
		}
	}
	return Project(b.shuffled(qs)), nil
}

// Active returns the unit's active questions, answer keys included, in
// stored order.
func (b *Bank) Active(ctx context.Context, unitID string) ([]*Question, error) {
	recs, err := b.store.Questions().Active(ctx, unitID)
	if err != nil {
		return nil, err
	}
	out := make([]*Question, len(recs))
	for i, r := range recs {
		out[i] = questionFromRecord(r)
	}
	return out, nil
}

// Questions loads questions by id regardless of their active flag, so that
// sessions pinned to a replaced set can still be graded.
func (b *Bank) Questions(ctx context.Context, ids []string) (map[string]*Question, error) {
	recs, err := b.store.Questions().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Question, len(recs))
	for id, r := range recs {
		out[id] = questionFromRecord(r)
	}
	return out, nil
}

// Regenerate replaces the unit's active set with a freshly generated
// batch. The old questions are deactivated in the same transaction the
// new ones are inserted in; on failure the old set stays active.
func (b *Bank) Regenerate(ctx context.Context, unitID string) ([]ClientQuestion, error) {
	unit, err := b.Unit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	batch, err := b.generate(ctx, unit)
	if err != nil {
		return nil, err
	}
	err = b.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Questions().DeactivateUnit(ctx, unitID); err != nil {
			return err
		}
		return tx.Questions().InsertBatch(ctx, records(batch))
	})
	if err != nil {
		return nil, fmt.Errorf("replace questions for %s: %w", unitID, err)
	}
	b.logger.Info("regenerated question bank", "unit", unitID, "questions", len(batch))
	return Project(b.shuffled(batch)), nil
}

// generateShared collapses concurrent callers in this process onto one
// generation and coordinates with other processes through a claim row.
// The generation is detached from any one caller and bounded by ClaimTTL;
// each caller stops waiting when its own context ends.
func (b *Bank) generateShared(ctx context.Context, unitID string) ([]*Question, error) {
	ch := b.group.DoChan(unitID, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.ClaimTTL)
		defer cancel()
		return b.generateClaimed(genCtx, unitID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*Question), nil
	}
}

func (b *Bank) generateClaimed(ctx context.Context, unitID string) ([]*Question, error) {
	unit, err := b.Unit(ctx, unitID)
	if err != nil {
		return nil, err
	}

	claimed, err := b.claim(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		metrics.QuestionGenerations.WithLabelValues("waited").Inc()
		qs, err := b.waitForActive(ctx, unitID)
		if err != nil || qs != nil {
			return qs, err
		}
		// The other owner gave up its claim and it is ours now.
	}
	defer func() {
		if err := b.store.Questions().Release(context.WithoutCancel(ctx), unitID, b.owner); err != nil {
			b.logger.Warn("failed to release generation claim", "unit", unitID, "err", err)
		}
	}()

	// Another process may have finished between our read and our claim.
	if qs, err := b.Active(ctx, unitID); err != nil || len(qs) > 0 {
		return qs, err
	}

	batch, err := b.generate(ctx, unit)
	if err != nil {
		return nil, err
	}
	if err := b.store.Questions().InsertBatch(ctx, records(batch)); err != nil {
		return nil, err
	}
	b.logger.Info("generated question bank", "unit", unitID, "questions", len(batch))
	return batch, nil
}

func (b *Bank) claim(ctx context.Context, unitID string) (bool, error) {
	now := b.now()
	return b.store.Questions().Claim(ctx, unitID, b.owner, now, now.Add(-b.config.ClaimTTL))
}

// generate runs the generator and prepares the batch for storage: ids,
// positions and a one-time option shuffle with ids a, b, c...
func (b *Bank) generate(ctx context.Context, unit *Unit) ([]*Question, error) {
	if b.gen == nil {
		return nil, errors.New("question generation is not configured")
	}
	batch, err := b.gen.Generate(ctx, GenerateInput{Unit: unit})
	if err != nil {
		var sv *SchemaViolation
		if errors.As(err, &sv) {
			metrics.QuestionGenerations.WithLabelValues("schema_violation").Inc()
		} else {
			metrics.QuestionGenerations.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("generate questions for %s: %w", unit.ID, err)
	}
	metrics.QuestionGenerations.WithLabelValues("ok").Inc()

	batchID := uuid.NewString()
	created := b.now()
	for i, q := range batch {
		q.ID = uuid.NewString()
		q.UnitID = unit.ID
		q.BatchID = batchID
		q.Position = i
		q.Active = true
		q.CreatedAt = created
		b.config.Shuffle(len(q.Options), func(i, j int) {
			q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
		})
		for k := range q.Options {
			q.Options[k].ID = string(rune('a' + k))
		}
	}
	return batch, nil
}

// waitForActive polls until another process's generation lands. If that
// process releases its claim without questions, or its claim goes stale,
// the claim is taken and waitForActive returns nil questions and no error.
func (b *Bank) waitForActive(ctx context.Context, unitID string) ([]*Question, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.GenerationWait)
	defer cancel()

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrGenerationInProgress
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
		qs, err := b.Active(ctx, unitID)
		if err != nil {
			return nil, err
		}
		if len(qs) > 0 {
			return qs, nil
		}
		claimed, err := b.claim(ctx, unitID)
		if err != nil {
			return nil, err
		}
		if claimed {
			b.logger.Info("took over question generation", "unit", unitID)
			return nil, nil
		}
	}
}

// shuffled returns a permuted copy; the input keeps its order.
func (b *Bank) shuffled(qs []*Question) []*Question {
	out := slices.Clone(qs)
	b.config.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func records(qs []*Question) []*store.QuestionRecord {
	out := make([]*store.QuestionRecord, len(qs))
	for i, q := range qs {
		out[i] = q.record()
	}
	return out
}
