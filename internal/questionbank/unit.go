package questionbank

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/brigade/internal/store"
)

// AssessmentType selects the continuation policy of a unit's sessions.
type AssessmentType string

const (
	// AssessmentQuiz wraps up once every pinned question is answered.
	AssessmentQuiz AssessmentType = "quiz"

	// AssessmentConversation wraps up once every topic is covered.
	AssessmentConversation AssessmentType = "conversation"
)

const (
	DefaultPassingThreshold = 70
	DefaultQuestionCount    = 8
)

// Unit is a course section or module that can be assessed.
type Unit struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Topics  []string `json:"topics"`

	AssessmentType   AssessmentType `json:"assessmentType"`
	PassingThreshold int            `json:"passingThreshold"`

	// QuestionWeights weighs questions by id in the overall score.
	// Questions without an entry weigh 1.
	QuestionWeights map[string]float64 `json:"questionWeights,omitempty"`

	// QuestionCount is how many questions generation asks for.
	QuestionCount int `json:"questionCount"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrUnitNotFound is returned when a unit id is unknown.
var ErrUnitNotFound = errors.New("unit not found")

// Normalize fills defaults for unset fields.
func (u *Unit) Normalize() {
	if u.AssessmentType == "" {
		u.AssessmentType = AssessmentQuiz
	}
	if u.PassingThreshold == 0 {
		u.PassingThreshold = DefaultPassingThreshold
	}
	if u.QuestionCount == 0 {
		u.QuestionCount = DefaultQuestionCount
	}
}

// Validate checks an imported unit.
func (u *Unit) Validate() error {
	switch {
	case u.ID == "":
		return errors.New("unit id is required")
	case u.Content == "":
		return fmt.Errorf("unit %s: content is required", u.ID)
	case u.AssessmentType != AssessmentQuiz && u.AssessmentType != AssessmentConversation:
		return fmt.Errorf("unit %s: assessment type must be %q or %q", u.ID, AssessmentQuiz, AssessmentConversation)
	case u.PassingThreshold < 0 || u.PassingThreshold > 100:
		return fmt.Errorf("unit %s: passing threshold %d out of range 0-100", u.ID, u.PassingThreshold)
	case u.QuestionCount < 1 || u.QuestionCount > 30:
		return fmt.Errorf("unit %s: question count %d out of range 1-30", u.ID, u.QuestionCount)
	case u.AssessmentType == AssessmentConversation && len(u.Topics) == 0:
		return fmt.Errorf("unit %s: conversation units need at least one topic", u.ID)
	}
	for id, w := range u.QuestionWeights {
		if w < 0 {
			return fmt.Errorf("unit %s: negative weight for question %s", u.ID, id)
		}
	}
	return nil
}

// HasTopic reports whether t is one of the unit's topics.
func (u *Unit) HasTopic(t string) bool {
	return slices.Contains(u.Topics, t)
}

// Weight returns the scoring weight of a question.
func (u *Unit) Weight(questionID string) float64 {
	if w, ok := u.QuestionWeights[questionID]; ok {
		return w
	}
	return 1
}

func unitFromRecord(r *store.UnitRecord) *Unit {
	return &Unit{
		ID:               r.ID,
		Title:            r.Title,
		Content:          r.Content,
		Topics:           r.Topics,
		AssessmentType:   AssessmentType(r.AssessmentType),
		PassingThreshold: r.PassingThreshold,
		QuestionWeights:  r.QuestionWeights,
		QuestionCount:    r.QuestionCount,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (u *Unit) record() *store.UnitRecord {
	return &store.UnitRecord{
		ID:               u.ID,
		Title:            u.Title,
		Content:          u.Content,
		Topics:           u.Topics,
		AssessmentType:   string(u.AssessmentType),
		PassingThreshold: u.PassingThreshold,
		QuestionWeights:  u.QuestionWeights,
		QuestionCount:    u.QuestionCount,
		UpdatedAt:        u.UpdatedAt,
	}
}
