package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/brigade/internal/events"
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/guard"
	"github.com/abhisek/brigade/internal/metrics"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/scoring"
	"github.com/abhisek/brigade/internal/store"
)

// Config tunes the engine.
type Config struct {
	// GradingTimeout bounds one grading call. Default: 30s.
	GradingTimeout time.Duration

	// GuardTTL is how long a per-session request guard lives if its holder
	// never releases it. Default: 2m.
	GuardTTL time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{GradingTimeout: 30 * time.Second, GuardTTL: 2 * time.Minute}
}

// Deps are the engine's collaborators. Guard, Publisher and Logger are
// optional.
type Deps struct {
	Store     *store.Store
	Bank      *questionbank.Bank
	Grader    *grading.Engine
	Scorer    *scoring.Scorer
	Guard     guard.Guard
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Engine owns the persisted state of assessment sessions. Every mutation
// of a session runs under that session's request guard.
type Engine struct {
	store     *store.Store
	bank      *questionbank.Bank
	grader    *grading.Engine
	scorer    *scoring.Scorer
	guard     guard.Guard
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.GradingTimeout <= 0 {
		cfg.GradingTimeout = def.GradingTimeout
	}
	if cfg.GuardTTL <= 0 {
		cfg.GuardTTL = def.GuardTTL
	}
	e := &Engine{
		store:     deps.Store,
		bank:      deps.Bank,
		grader:    deps.Grader,
		scorer:    deps.Scorer,
		guard:     deps.Guard,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if e.guard == nil {
		e.guard = guard.NewMemory()
	}
	if e.publisher == nil {
		e.publisher = events.Nop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// StartOrResumeSession returns the newest open session of the trainee for
// the unit, or creates the next attempt in onboarding.
func (e *Engine) StartOrResumeSession(ctx context.Context, traineeID, unitID string) (*Session, error) {
	if traineeID == "" {
		return nil, fmt.Errorf("trainee id is required")
	}
	unit, err := e.bank.Unit(ctx, unitID)
	if err != nil {
		return nil, err
	}

	sessions := e.store.Sessions()
	for range 3 {
		rec, err := sessions.LatestOpen(ctx, traineeID, unitID, string(PhaseResults))
		if err == nil {
			return e.load(ctx, rec)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("find open session: %w", err)
		}

		last, err := sessions.MaxAttempt(ctx, traineeID, unitID)
		if err != nil {
			return nil, err
		}
		now := e.now()
		rec = &store.SessionRecord{
			ID:             uuid.NewString(),
			TraineeID:      traineeID,
			UnitID:         unitID,
			Attempt:        last + 1,
			Phase:          string(PhaseOnboarding),
			Mode:           string(unit.AssessmentType),
			QuestionIDs:    []string{},
			StartedAt:      now,
			LastActivityAt: now,
		}
		created, err := sessions.Create(ctx, rec)
		if err != nil {
			return nil, err
		}
		if created {
			e.logger.Info("assessment session started",
				"session", rec.ID, "trainee", traineeID, "unit", unitID, "attempt", rec.Attempt)
			return e.load(ctx, rec)
		}
		// Lost a race for this attempt number; the winner's row is open.
	}
	return nil, fmt.Errorf("start session for %s/%s: too much contention", traineeID, unitID)
}

// RecordConsent resolves voice consent, pins the question set and starts
// the conversation. Declining consent only disables voice answers.
// Calling it again after consent was resolved returns the session as is.
func (e *Engine) RecordConsent(ctx context.Context, sessionID string, granted bool) (*Session, error) {
	release, err := e.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := e.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.ConsentResolved {
		return e.load(ctx, rec)
	}
	switch Phase(rec.Phase) {
	case PhaseResults, PhaseEvaluation:
		return nil, ErrSessionClosed
	case PhaseOnboarding:
	default:
		return nil, fmt.Errorf("%w: consent in %s", ErrInvalidPhase, rec.Phase)
	}

	qs, err := e.bank.GetOrGenerate(ctx, rec.UnitID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(qs))
	topics := map[string]bool{}
	for i, q := range qs {
		ids[i] = q.ID
		if q.Topic != "" {
			topics[q.Topic] = true
		}
	}

	rec.QuestionIDs = ids
	rec.TopicsTotal = len(topics)
	rec.TopicsCovered = 0
	rec.VoiceConsent = granted
	rec.ConsentResolved = true
	rec.Phase = string(PhaseConversation)
	rec.LastActivityAt = e.now()
	ok, err := e.store.Sessions().Update(ctx, rec, string(PhaseOnboarding))
	if err != nil {
		return nil, err
	}
	if !ok {
		rec, err = e.getRecord(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}
	return e.load(ctx, rec)
}

// GetOrGenerateQuestions returns the unit's question set, client-safe and
// freshly shuffled.
func (e *Engine) GetOrGenerateQuestions(ctx context.Context, unitID string) ([]questionbank.ClientQuestion, error) {
	return e.bank.GetOrGenerate(ctx, unitID)
}

// SubmitAnswer grades an answer and commits it as the question's turn.
// A question that already has a turn yields its existing result together
// with ErrAlreadyGraded; nothing is regraded.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, questionID, value string, modality grading.Modality) (*grading.AnswerResult, error) {
	if modality == "" {
		modality = grading.ModalityText
	}
	release, err := e.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := e.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	phase := Phase(rec.Phase)
	switch phase {
	case PhaseConversation, PhaseWrapUp:
	case PhaseEvaluation, PhaseResults:
		metrics.SubmissionsRejected.WithLabelValues("closed").Inc()
		return nil, ErrSessionClosed
	default:
		return nil, fmt.Errorf("%w: answer in %s", ErrInvalidPhase, rec.Phase)
	}

	sess := sessionFromRecord(rec)
	if !sess.Pinned(questionID) {
		metrics.SubmissionsRejected.WithLabelValues("unknown_question").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if prior, err := e.existingResult(ctx, e.store.Turns(), sessionID, questionID); err != nil || prior != nil {
		if err != nil {
			return nil, err
		}
		metrics.SubmissionsRejected.WithLabelValues("already_graded").Inc()
		return prior, ErrAlreadyGraded
	}
	if modality == grading.ModalityVoice && !rec.VoiceConsent {
		metrics.SubmissionsRejected.WithLabelValues("voice_disabled").Inc()
		return nil, ErrVoiceDisabled
	}

	unit, err := e.bank.Unit(ctx, rec.UnitID)
	if err != nil {
		return nil, err
	}
	pinned, err := e.bank.Questions(ctx, rec.QuestionIDs)
	if err != nil {
		return nil, err
	}
	q, ok := pinned[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.GradingTimeout)
	result, err := e.grader.Grade(gctx, grading.Submission{
		UnitTitle: unit.Title,
		Question:  q,
		Value:     value,
		Modality:  modality,
	})
	cancel()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	var prior *grading.AnswerResult
	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		turns, err := tx.Turns().List(ctx, sessionID)
		if err != nil {
			return err
		}
		appended, err := tx.Turns().Append(ctx, &store.TurnRecord{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			Seq:        len(turns) + 1,
			QuestionID: questionID,
			Prompt:     q.Prompt,
			Submitted:  value,
			Modality:   string(modality),
			Result:     body,
			CreatedAt:  result.GradedAt,
		})
		if err != nil {
			return err
		}
		if !appended {
			prior, err = e.existingResult(ctx, tx.Turns(), sessionID, questionID)
			return err
		}

		answered := map[string]bool{questionID: true}
		for _, t := range turns {
			answered[t.QuestionID] = true
		}
		rec.TopicsCovered = coveredTopics(pinned, answered)
		if phase == PhaseConversation && readyToWrapUp(questionbank.AssessmentType(rec.Mode), rec.QuestionIDs, pinned, answered) {
			rec.Phase = string(PhaseWrapUp)
		}
		rec.LastActivityAt = e.now()
		ok, err := tx.Sessions().Update(ctx, rec, string(phase))
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return prior, ErrAlreadyGraded
	}

	e.logger.Info("answer graded",
		"session", sessionID, "question", questionID, "kind", result.Kind,
		"score", result.Score(), "phase", rec.Phase)
	return result, nil
}

// FinalizeSession evaluates a completed session and stores its results.
// Once stored, every call returns the same document.
func (e *Engine) FinalizeSession(ctx context.Context, sessionID string) (*scoring.Results, error) {
	if res, err := e.Results(ctx, sessionID); !errors.Is(err, ErrNotFound) {
		return res, err
	}

	release, err := e.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := e.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if res, err := e.Results(ctx, sessionID); !errors.Is(err, ErrNotFound) {
		return res, err
	}

	turnRecs, err := e.store.Turns().List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch Phase(rec.Phase) {
	case PhaseConversation:
		pinned, err := e.bank.Questions(ctx, rec.QuestionIDs)
		if err != nil {
			return nil, err
		}
		if !readyToWrapUp(questionbank.AssessmentType(rec.Mode), rec.QuestionIDs, pinned, answeredSet(turnRecs)) {
			return nil, ErrIncompleteSession
		}
		fallthrough
	case PhaseWrapUp:
		from := rec.Phase
		rec.Phase = string(PhaseEvaluation)
		rec.LastActivityAt = e.now()
		ok, err := e.store.Sessions().Update(ctx, rec, from)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRequestPending
		}
	case PhaseEvaluation:
		// Resuming an interrupted finalization.
	case PhaseResults:
		// Phase written without a document; evaluate again.
	default:
		return nil, ErrIncompleteSession
	}

	unit, err := e.bank.Unit(ctx, rec.UnitID)
	if err != nil {
		return nil, err
	}
	in, err := e.evaluateInput(ctx, rec, unit, turnRecs)
	if err != nil {
		return nil, err
	}
	res := e.scorer.Evaluate(ctx, in)
	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	var first bool
	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		first, err = tx.Results().Put(ctx, sessionID, body)
		if err != nil {
			return err
		}
		from := rec.Phase
		rec.Phase = string(PhaseResults)
		completed := res.CompletedAt
		rec.CompletedAt = &completed
		rec.LastActivityAt = completed
		_, err = tx.Sessions().Update(ctx, rec, from)
		return err
	})
	if err != nil {
		return nil, err
	}

	stored, err := e.Results(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if first {
		e.logger.Info("assessment finalized",
			"session", sessionID, "score", stored.Score, "passed", stored.Passed,
			"level", stored.CompetencyLevel, "feedback_degraded", stored.FeedbackDegraded)
		e.publishFinalized(ctx, rec, stored)
	}
	return stored, nil
}

// Retry starts a new attempt after a finished one. The finished session
// stays as it is.
func (e *Engine) Retry(ctx context.Context, sessionID string) (*Session, error) {
	rec, err := e.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if Phase(rec.Phase) != PhaseResults {
		return nil, fmt.Errorf("%w: retry in %s", ErrInvalidPhase, rec.Phase)
	}
	return e.StartOrResumeSession(ctx, rec.TraineeID, rec.UnitID)
}

// GetSession replays a session with its committed turns in order.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	rec, err := e.getRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.load(ctx, rec)
}

// Results returns the stored results document, decoded from the stored
// bytes, or ErrNotFound.
func (e *Engine) Results(ctx context.Context, sessionID string) (*scoring.Results, error) {
	body, err := e.store.Results().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var res scoring.Results
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode results of %s: %w", sessionID, err)
	}
	return &res, nil
}

// ResultsDocument returns the stored results bytes as written.
func (e *Engine) ResultsDocument(ctx context.Context, sessionID string) ([]byte, error) {
	body, err := e.store.Results().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return body, err
}

// ListSessions returns a trainee's sessions, newest first, without turns
// or questions.
func (e *Engine) ListSessions(ctx context.Context, traineeID string, limit int) ([]*Session, error) {
	recs, err := e.store.Sessions().ListByTrainee(ctx, traineeID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Session, len(recs))
	for i, r := range recs {
		out[i] = sessionFromRecord(r)
	}
	return out, nil
}

func (e *Engine) acquire(ctx context.Context, sessionID string) (func(), error) {
	release, err := e.guard.Acquire(ctx, "session:"+sessionID, e.cfg.GuardTTL)
	if errors.Is(err, guard.ErrHeld) {
		metrics.SubmissionsRejected.WithLabelValues("pending").Inc()
		return nil, ErrRequestPending
	}
	if err != nil {
		return nil, fmt.Errorf("acquire session guard: %w", err)
	}
	return release, nil
}

func (e *Engine) getRecord(ctx context.Context, sessionID string) (*store.SessionRecord, error) {
	rec, err := e.store.Sessions().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return rec, err
}

// existingResult returns the committed result for the question, or nil.
func (e *Engine) existingResult(ctx context.Context, turns *store.TurnRepo, sessionID, questionID string) (*grading.AnswerResult, error) {
	rec, err := turns.ForQuestion(ctx, sessionID, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := turnFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &t.Result, nil
}

// load builds the client view of a stored session.
func (e *Engine) load(ctx context.Context, rec *store.SessionRecord) (*Session, error) {
	sess := sessionFromRecord(rec)

	turnRecs, err := e.store.Turns().List(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	for _, tr := range turnRecs {
		t, err := turnFromRecord(tr)
		if err != nil {
			return nil, err
		}
		sess.Turns = append(sess.Turns, t)
	}

	if len(rec.QuestionIDs) > 0 {
		qs, err := e.bank.Questions(ctx, rec.QuestionIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range rec.QuestionIDs {
			if q, ok := qs[id]; ok {
				sess.Questions = append(sess.Questions, q.Client())
			}
		}
	}
	if sess.Phase == PhaseConversation || sess.Phase == PhaseWrapUp {
		if next := NextQuestion(sess); next != nil {
			sess.NextQuestionID = next.ID
		}
	}
	return sess, nil
}

func (e *Engine) evaluateInput(ctx context.Context, rec *store.SessionRecord, unit *questionbank.Unit, turnRecs []*store.TurnRecord) (scoring.EvaluateInput, error) {
	pinned, err := e.bank.Questions(ctx, rec.QuestionIDs)
	if err != nil {
		return scoring.EvaluateInput{}, err
	}
	in := scoring.EvaluateInput{
		SessionID:        rec.ID,
		UnitTitle:        unit.Title,
		PassingThreshold: unit.PassingThreshold,
	}
	for _, tr := range turnRecs {
		t, err := turnFromRecord(tr)
		if err != nil {
			return scoring.EvaluateInput{}, err
		}
		in.Items = append(in.Items, scoring.Item{
			Score:  t.Result.Score(),
			Weight: unit.Weight(t.QuestionID),
		})
		sum := scoring.AnswerSummary{
			Prompt: t.Prompt,
			Answer: t.Submitted,
			Score:  t.Result.Score(),
			Passed: t.Result.Passed(),
		}
		if q, ok := pinned[t.QuestionID]; ok {
			sum.Topic = q.Topic
		}
		switch {
		case t.Result.MultipleChoice != nil:
			sum.Feedback = t.Result.MultipleChoice.Explanation
		case t.Result.OpenResponse != nil:
			sum.Feedback = t.Result.OpenResponse.RubricNotes
		}
		in.Answers = append(in.Answers, sum)
	}
	return in, nil
}

func (e *Engine) publishFinalized(ctx context.Context, rec *store.SessionRecord, res *scoring.Results) {
	ev := events.ResultsFinalized{
		SessionID:        rec.ID,
		TraineeID:        rec.TraineeID,
		UnitID:           rec.UnitID,
		Attempt:          rec.Attempt,
		Score:            res.Score,
		Passed:           res.Passed,
		PassingThreshold: res.PassingThreshold,
		CompetencyLevel:  string(res.CompetencyLevel),
		CompletedAt:      res.CompletedAt,
	}
	if err := e.publisher.Publish(context.WithoutCancel(ctx), events.KeyResultsFinalized, ev); err != nil {
		e.logger.Warn("failed to publish results", "session", rec.ID, "error", err)
	}
}

func answeredSet(turns []*store.TurnRecord) map[string]bool {
	out := make(map[string]bool, len(turns))
	for _, t := range turns {
		out[t.QuestionID] = true
	}
	return out
}
