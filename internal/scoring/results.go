package scoring

import "time"

// Feedback is the narrated part of the results. Slices are never nil so
// that they encode as empty arrays.
type Feedback struct {
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	Encouragement       string   `json:"encouragement"`
}

// EmptyFeedback is the degraded feedback used when narration fails.
func EmptyFeedback() Feedback {
	return Feedback{Strengths: []string{}, AreasForImprovement: []string{}}
}

// Results is the terminal aggregate of an assessment attempt. It is
// computed once and stored; later reads return the stored document.
type Results struct {
	SessionID        string          `json:"sessionId"`
	Score            int             `json:"score"`
	Passed           bool            `json:"passed"`
	PassingThreshold int             `json:"passingThreshold"`
	CompetencyLevel  CompetencyLevel `json:"competencyLevel"`
	Feedback         Feedback        `json:"feedback"`
	FeedbackDegraded bool            `json:"feedbackDegraded"`
	CompletedAt      time.Time       `json:"completedAt"`
}
