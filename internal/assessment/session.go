package assessment

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/store"
)

// Phase is a step of the assessment conversation.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseResumeCheck  Phase = "resume_check"
	PhaseOnboarding   Phase = "onboarding"
	PhaseConversation Phase = "conversation"
	PhaseWrapUp       Phase = "wrap_up"
	PhaseEvaluation   Phase = "evaluation"
	PhaseResults      Phase = "results"
	PhaseError        Phase = "error"
)

// rank orders the phases of one attempt. Error sits outside the order.
func (p Phase) rank() int {
	switch p {
	case PhaseIdle:
		return 0
	case PhaseResumeCheck:
		return 1
	case PhaseOnboarding:
		return 2
	case PhaseConversation:
		return 3
	case PhaseWrapUp:
		return 4
	case PhaseEvaluation:
		return 5
	case PhaseResults:
		return 6
	}
	return -1
}

// Terminal reports whether the attempt is over.
func (p Phase) Terminal() bool { return p == PhaseResults }

// Turn is one committed question, answer and grading result.
type Turn struct {
	Seq        int                  `json:"seq"`
	QuestionID string               `json:"questionId"`
	Prompt     string               `json:"prompt"`
	Submitted  string               `json:"submitted"`
	Modality   grading.Modality     `json:"modality"`
	Result     grading.AnswerResult `json:"result"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// Session is one attempt by one trainee at one unit, as replayed to
// clients. Questions are client-safe and in pinned order.
type Session struct {
	ID              string                        `json:"id"`
	TraineeID       string                        `json:"traineeId"`
	UnitID          string                        `json:"unitId"`
	Attempt         int                           `json:"attempt"`
	Phase           Phase                         `json:"phase"`
	Mode            questionbank.AssessmentType   `json:"mode"`
	QuestionIDs     []string                      `json:"questionIds"`
	Questions       []questionbank.ClientQuestion `json:"questions"`
	NextQuestionID  string                        `json:"nextQuestionId,omitempty"`
	Turns           []Turn                        `json:"turns"`
	TopicsCovered   int                           `json:"topicsCovered"`
	TopicsTotal     int                           `json:"topicsTotal"`
	VoiceConsent    bool                          `json:"voiceConsent"`
	ConsentResolved bool                          `json:"consentResolved"`
	StartedAt       time.Time                     `json:"startedAt"`
	LastActivityAt  time.Time                     `json:"lastActivityAt"`
	CompletedAt     *time.Time                    `json:"completedAt,omitempty"`
}

// Answered reports whether the question has a committed turn.
func (s *Session) Answered(questionID string) bool {
	return s.Turn(questionID) != nil
}

// Turn returns the committed turn for a question, or nil.
func (s *Session) Turn(questionID string) *Turn {
	for i := range s.Turns {
		if s.Turns[i].QuestionID == questionID {
			return &s.Turns[i]
		}
	}
	return nil
}

// Question returns the pinned client question with the given id, or nil.
func (s *Session) Question(id string) *questionbank.ClientQuestion {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// Pinned reports whether id belongs to the session's question set.
func (s *Session) Pinned(id string) bool {
	return slices.Contains(s.QuestionIDs, id)
}

func sessionFromRecord(r *store.SessionRecord) *Session {
	return &Session{
		ID:              r.ID,
		TraineeID:       r.TraineeID,
		UnitID:          r.UnitID,
		Attempt:         r.Attempt,
		Phase:           Phase(r.Phase),
		Mode:            questionbank.AssessmentType(r.Mode),
		QuestionIDs:     r.QuestionIDs,
		TopicsCovered:   r.TopicsCovered,
		TopicsTotal:     r.TopicsTotal,
		VoiceConsent:    r.VoiceConsent,
		ConsentResolved: r.ConsentResolved,
		StartedAt:       r.StartedAt,
		LastActivityAt:  r.LastActivityAt,
		CompletedAt:     r.CompletedAt,
		Turns:           []Turn{},
		Questions:       []questionbank.ClientQuestion{},
	}
}

func (s *Session) record() *store.SessionRecord {
	return &store.SessionRecord{
		ID:              s.ID,
		TraineeID:       s.TraineeID,
		UnitID:          s.UnitID,
		Attempt:         s.Attempt,
		Phase:           string(s.Phase),
		Mode:            string(s.Mode),
		QuestionIDs:     s.QuestionIDs,
		TopicsCovered:   s.TopicsCovered,
		TopicsTotal:     s.TopicsTotal,
		VoiceConsent:    s.VoiceConsent,
		ConsentResolved: s.ConsentResolved,
		StartedAt:       s.StartedAt,
		LastActivityAt:  s.LastActivityAt,
		CompletedAt:     s.CompletedAt,
	}
}

func turnFromRecord(r *store.TurnRecord) (Turn, error) {
	t := Turn{
		Seq:        r.Seq,
		QuestionID: r.QuestionID,
		Prompt:     r.Prompt,
		Submitted:  r.Submitted,
		Modality:   grading.Modality(r.Modality),
		CreatedAt:  r.CreatedAt,
	}
	if err := json.Unmarshal(r.Result, &t.Result); err != nil {
		return Turn{}, fmt.Errorf("decode result of turn %d: %w", r.Seq, err)
	}
	return t, nil
}
