package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		require.NoError(t, db.QueryRow("PRAGMA "+tt.pragma).Scan(&got))
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
}

func TestUnitUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := &UnitRecord{
		ID:               "knife-skills",
		Title:            "Knife Skills",
		Content:          "Claw grip, julienne, brunoise.",
		Topics:           []string{"grip", "cuts"},
		AssessmentType:   "quiz",
		PassingThreshold: 75,
		QuestionWeights:  map[string]float64{"q1": 2},
		QuestionCount:    6,
	}
	require.NoError(t, s.Units().Upsert(ctx, u))

	got, err := s.Units().Get(ctx, "knife-skills")
	require.NoError(t, err)
	assert.Equal(t, u.Topics, got.Topics)
	assert.Equal(t, 75, got.PassingThreshold)
	assert.Equal(t, 2.0, got.QuestionWeights["q1"])

	u.Title = "Knife Skills II"
	require.NoError(t, s.Units().Upsert(ctx, u))
	got, err = s.Units().Get(ctx, "knife-skills")
	require.NoError(t, err)
	assert.Equal(t, "Knife Skills II", got.Title)

	_, err = s.Units().Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestQuestionsActiveAndDeactivate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []*QuestionRecord{
		{ID: "q1", UnitID: "u1", BatchID: "b1", Position: 0, Kind: "multiple_choice", Topic: "t",
			Prompt: "Pick one", Options: []OptionRecord{{ID: "a", Text: "x", Correct: true}, {ID: "b", Text: "y"}}, Active: true},
		{ID: "q2", UnitID: "u1", BatchID: "b1", Position: 1, Kind: "open_response", Topic: "t",
			Prompt: "Explain", Active: true},
	}
	require.NoError(t, s.Questions().InsertBatch(ctx, batch))

	active, err := s.Questions().Active(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "q1", active[0].ID)
	assert.True(t, active[0].Options[0].Correct)

	n, err := s.Questions().CountActive(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deactivated, err := s.Questions().DeactivateUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deactivated)

	active, err = s.Questions().Active(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Deactivated questions remain addressable by id.
	q, err := s.Questions().Get(ctx, "q2")
	require.NoError(t, err)
	assert.False(t, q.Active)
}

func TestGenerationClaim(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ok, err := s.Questions().Claim(ctx, "u1", "a", now, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Questions().Claim(ctx, "u1", "b", now, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "fresh claim must not be taken over")

	later := now.Add(10 * time.Minute)
	ok, err = s.Questions().Claim(ctx, "u1", "b", later, later.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "stale claim is taken over")

	require.NoError(t, s.Questions().Release(ctx, "u1", "a"))
	ok, err = s.Questions().Claim(ctx, "u1", "c", later, later.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "release by a previous owner keeps the current claim")

	require.NoError(t, s.Questions().Release(ctx, "u1", "b"))
	ok, err = s.Questions().Claim(ctx, "u1", "c", later, later.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionCreateConflictAndLatestOpen(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &SessionRecord{ID: "s1", TraineeID: "t1", UnitID: "u1", Attempt: 1, Phase: "onboarding",
		Mode: "quiz", StartedAt: now, LastActivityAt: now}
	created, err := s.Sessions().Create(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *rec
	dup.ID = "s2"
	created, err = s.Sessions().Create(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created, "same attempt number must not create a second session")

	open, err := s.Sessions().LatestOpen(ctx, "t1", "u1", "results")
	require.NoError(t, err)
	assert.Equal(t, "s1", open.ID)

	rec.Phase = "results"
	done := now.Add(time.Minute)
	rec.CompletedAt = &done
	ok, err := s.Sessions().Update(ctx, rec, "onboarding")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Sessions().Update(ctx, rec, "onboarding")
	require.NoError(t, err)
	assert.False(t, ok, "stale phase guard")

	_, err = s.Sessions().LatestOpen(ctx, "t1", "u1", "results")
	assert.True(t, errors.Is(err, ErrNotFound))

	attempt, err := s.Sessions().MaxAttempt(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, attempt)

	got, err := s.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
}

func TestTurnAppendIsUniquePerQuestion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.Turns().Append(ctx, &TurnRecord{ID: "t1", SessionID: "s1", Seq: 1, QuestionID: "q1",
		Submitted: "a", Modality: "text", Result: []byte(`{"score":100}`)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Turns().Append(ctx, &TurnRecord{ID: "t2", SessionID: "s1", Seq: 2, QuestionID: "q1",
		Submitted: "b", Modality: "text", Result: []byte(`{"score":0}`)})
	require.NoError(t, err)
	assert.False(t, ok)

	turns, err := s.Turns().List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "a", turns[0].Submitted)
	assert.JSONEq(t, `{"score":100}`, string(turns[0].Result))
}

func TestResultPutKeepsFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.Results().Put(ctx, "s1", []byte(`{"score":80}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Results().Put(ctx, "s1", []byte(`{"score":10}`))
	require.NoError(t, err)
	assert.False(t, ok)

	body, err := s.Results().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, `{"score":80}`, string(body))
}

func TestInTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.Results().Put(ctx, "s1", []byte(`{}`)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Results().Get(ctx, "s1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTutorSessionAndTurns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Tutor().CreateSession(ctx, &TutorSessionRecord{
		ID: "ts1", TraineeID: "t1", UnitID: "u1", Phase: "conversation", Threshold: 75,
		StartedAt: now, LastActivityAt: now,
	}))
	require.NoError(t, s.Tutor().AppendTurn(ctx, &TutorTurnRecord{ID: "a", SessionID: "ts1", Seq: 1, Message: "hi", Reply: "hello", Score: 60, Topic: "grip"}))
	require.NoError(t, s.Tutor().AppendTurn(ctx, &TutorTurnRecord{ID: "b", SessionID: "ts1", Seq: 2, Message: "more", Reply: "ok", Score: 80, Topic: "cuts"}))
	require.Error(t, s.Tutor().AppendTurn(ctx, &TutorTurnRecord{ID: "c", SessionID: "ts1", Seq: 2, Message: "dup"}))

	turns, err := s.Tutor().Turns(ctx, "ts1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 80, turns[1].Score)

	open, err := s.Tutor().LatestOpenSession(ctx, "t1", "u1", "conversation")
	require.NoError(t, err)
	assert.Equal(t, "ts1", open.ID)
}

func TestLLMRequestsListAndUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.LLMRequests()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequest{Provider: "mock", Model: "m1", Purpose: "grading", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequest{Provider: "mock", Model: "m1", Purpose: "grading", InputTokens: 20, OutputTokens: 5, LatencyMs: 300, Success: true}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequest{Provider: "mock", Model: "m2", Purpose: "question-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 900, ErrorMessage: "x"}))

	events, err := repo.List(ctx, QueryOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "question-gen", events[0].Purpose, "newest first")

	grading, err := repo.List(ctx, QueryOpts{Purpose: "grading"})
	require.NoError(t, err)
	assert.Len(t, grading, 2)

	byPurpose, err := repo.UsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "grading", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, 30, byPurpose[0].InputTokens)
	assert.Equal(t, int64(200), byPurpose[0].AvgLatencyMs)

	byModel, err := repo.UsageByModel(ctx)
	require.NoError(t, err)
	assert.Len(t, byModel, 2)

	e, err := repo.Get(ctx, events[0].ID)
	require.NoError(t, err)
	assert.False(t, e.Success)
}
