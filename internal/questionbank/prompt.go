package questionbank

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write assessment questions for restaurant staff training.

Rules:
- Every question must be answerable from the unit content alone. Do not test facts the content does not state.
- Mix "multiple_choice" questions (menu knowledge, allergens, temperatures, standards) with "open_response" questions (procedures, guest scenarios, recovering from a mistake).
- Multiple choice: 3 or 4 options, exactly one correct. Distractors should be plausible mistakes a new hire would make.
- Open response: write a rubric listing the points a complete answer must mention. Leave options empty.
- Assign each question one of the listed topics, copied verbatim. Cover every topic at least once when the count allows.
- Write plainly, as a shift lead would ask it. No trick questions, no "all of the above".
- Never repeat a question.`

// buildUserMessage renders the unit and, on a retry, the reason the
// previous batch was rejected.
func buildUserMessage(input GenerateInput) string {
	u := input.Unit
	var b strings.Builder

	fmt.Fprintf(&b, "Unit: %s\n", u.Title)
	if len(u.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(u.Topics, "; "))
	}
	fmt.Fprintf(&b, "Number of questions: %d\n", u.QuestionCount)
	if u.AssessmentType == AssessmentConversation {
		b.WriteString("Style: conversational; prefer open_response questions.\n")
	}

	b.WriteString("\nContent:\n")
	b.WriteString(strings.TrimSpace(u.Content))

	if input.PreviousViolation != "" {
		b.WriteString("\n\nYour previous batch was rejected: ")
		b.WriteString(input.PreviousViolation)
		b.WriteString("\nFix this and return a complete new batch.")
	}
	return b.String()
}
