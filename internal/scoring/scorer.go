package scoring

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/abhisek/brigade/internal/metrics"
)

// Scorer computes Results. The numeric part is a pure function of the
// items and threshold; feedback is best effort.
type Scorer struct {
	narrator Narrator
	logger   *slog.Logger
	now      func() time.Time
}

// NewScorer creates a Scorer. narrator may be nil, which always yields
// degraded feedback.
func NewScorer(narrator Narrator, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{narrator: narrator, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// EvaluateInput is everything needed to finish an attempt.
type EvaluateInput struct {
	SessionID        string
	UnitTitle        string
	PassingThreshold int
	Items            []Item
	Answers          []AnswerSummary
}

// Evaluate scores the attempt and narrates feedback. A narrator failure is
// logged and reported through FeedbackDegraded; it never fails the call.
func (s *Scorer) Evaluate(ctx context.Context, in EvaluateInput) *Results {
	score := Aggregate(in.Items)
	res := &Results{
		SessionID:        in.SessionID,
		Score:            score,
		Passed:           Passed(score, in.PassingThreshold),
		PassingThreshold: in.PassingThreshold,
		CompetencyLevel:  Band(score),
		Feedback:         EmptyFeedback(),
		FeedbackDegraded: true,
		CompletedAt:      s.now(),
	}

	if s.narrator != nil {
		fb, err := s.narrator.Narrate(ctx, NarrateInput{
			UnitTitle:       in.UnitTitle,
			Score:           res.Score,
			Passed:          res.Passed,
			CompetencyLevel: res.CompetencyLevel,
			Answers:         in.Answers,
		})
		if err != nil {
			s.logger.Warn("feedback generation failed", "session", in.SessionID, "err", err)
		} else {
			res.Feedback = fb
			res.FeedbackDegraded = false
		}
	}

	metrics.SessionsFinalized.WithLabelValues(string(res.CompetencyLevel), strconv.FormatBool(res.Passed)).Inc()
	return res
}
