package assessment

import "github.com/abhisek/brigade/internal/questionbank"

// NextQuestion picks the next question to present, or nil when every
// pinned question has been answered. Quiz sessions go in pinned order.
// Conversation sessions present questions on uncovered topics first.
func NextQuestion(s *Session) *questionbank.ClientQuestion {
	covered := map[string]bool{}
	for _, t := range s.Turns {
		if q := s.Question(t.QuestionID); q != nil && q.Topic != "" {
			covered[q.Topic] = true
		}
	}

	var first *questionbank.ClientQuestion
	for i := range s.Questions {
		q := &s.Questions[i]
		if s.Answered(q.ID) {
			continue
		}
		if s.Mode != questionbank.AssessmentConversation {
			return q
		}
		if !covered[q.Topic] {
			return q
		}
		if first == nil {
			first = q
		}
	}
	return first
}

// coveredTopics counts the distinct topics with at least one answered
// question.
func coveredTopics(pinned map[string]*questionbank.Question, answered map[string]bool) int {
	topics := map[string]bool{}
	for id := range answered {
		if q, ok := pinned[id]; ok && q.Topic != "" {
			topics[q.Topic] = true
		}
	}
	return len(topics)
}

// readyToWrapUp reports whether the continuation policy is satisfied:
// quiz sessions need every pinned question answered; conversation
// sessions need every topic of the pinned set covered.
func readyToWrapUp(mode questionbank.AssessmentType, ids []string, pinned map[string]*questionbank.Question, answered map[string]bool) bool {
	if len(ids) == 0 {
		return false
	}
	all := true
	for _, id := range ids {
		if !answered[id] {
			all = false
			break
		}
	}
	if all || mode != questionbank.AssessmentConversation {
		return all
	}

	topics := map[string]bool{}
	for _, id := range ids {
		if q, ok := pinned[id]; ok && q.Topic != "" {
			topics[q.Topic] = true
		}
	}
	if len(topics) == 0 {
		return false
	}
	return coveredTopics(pinned, answered) == len(topics)
}
