package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/brigade/internal/llm"
)

func sampleInput(threshold int) EvaluateInput {
	return EvaluateInput{
		SessionID:        "s-1",
		UnitTitle:        "Allergen Awareness",
		PassingThreshold: threshold,
		Items:            []Item{{100, 1}, {100, 1}, {40, 1}, {60, 1}},
		Answers: []AnswerSummary{
			{Topic: "allergen menu", Prompt: "Which nut is in the pesto?", Answer: "b", Score: 100, Passed: true},
			{Topic: "allergen menu", Prompt: "Which cheese is in the pesto?", Answer: "a", Score: 100, Passed: true},
			{Topic: "guest handling", Prompt: "Nut allergy procedure?", Answer: "tell the chef", Score: 40, Feedback: "Forgot the manager."},
			{Topic: "guest handling", Prompt: "Cross-contact?", Answer: "clean board", Score: 60, Passed: true},
		},
	}
}

func TestEvaluate_WithFeedback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"strengths":["Knows the pesto ingredients."],
		"areas_for_improvement":["Always involve the manager for allergies."],
		"encouragement":"Nearly there. Run the allergy drill with the tutor and retake."}`)})
	s := NewScorer(NewLLMNarrator(mock, DefaultNarratorConfig()), nil)

	res := s.Evaluate(context.Background(), sampleInput(70))

	assert.Equal(t, 75, res.Score)
	assert.True(t, res.Passed)
	assert.Equal(t, Proficient, res.CompetencyLevel)
	assert.Equal(t, 70, res.PassingThreshold)
	assert.False(t, res.FeedbackDegraded)
	assert.Equal(t, []string{"Knows the pesto ingredients."}, res.Feedback.Strengths)
	assert.Len(t, res.Feedback.AreasForImprovement, 1)
	assert.NotEmpty(t, res.Feedback.Encouragement)

	msg := mock.LastCall().Messages[0].Content
	assert.Contains(t, msg, "Score: 75 (proficient, passed)")
	assert.Contains(t, msg, "3. [guest handling] Nut allergy procedure?")
	assert.Contains(t, msg, "40/100 (missed): Forgot the manager.")
}

func TestEvaluate_NarratorFailureDegrades(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}})
	s := NewScorer(NewLLMNarrator(mock, DefaultNarratorConfig()), nil)

	res := s.Evaluate(context.Background(), sampleInput(80))

	assert.Equal(t, 75, res.Score)
	assert.False(t, res.Passed)
	assert.Equal(t, Proficient, res.CompetencyLevel)
	assert.True(t, res.FeedbackDegraded)
	assert.Empty(t, res.Feedback.Strengths)
	assert.Empty(t, res.Feedback.Encouragement)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"strengths":[]`)
	assert.Contains(t, string(raw), `"areasForImprovement":[]`)
	assert.Contains(t, string(raw), `"feedbackDegraded":true`)
}

func TestEvaluate_NoNarrator(t *testing.T) {
	res := NewScorer(nil, nil).Evaluate(context.Background(), sampleInput(75))
	assert.True(t, res.Passed)
	assert.True(t, res.FeedbackDegraded)
}

func TestEvaluate_PassedAtThreshold(t *testing.T) {
	s := NewScorer(nil, nil)
	for _, tt := range []struct {
		threshold int
		want      bool
	}{
		{74, true},
		{75, true},
		{76, false},
	} {
		res := s.Evaluate(context.Background(), sampleInput(tt.threshold))
		assert.Equal(t, tt.want, res.Passed, "threshold %d", tt.threshold)
	}
}

func TestLLMNarrator_CapsLists(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"strengths":["a","b","c","d","e","f"],
		"areas_for_improvement":[],
		"encouragement":"Great shift."}`)})
	fb, err := NewLLMNarrator(mock, DefaultNarratorConfig()).Narrate(context.Background(), NarrateInput{UnitTitle: "Wine"})
	require.NoError(t, err)
	assert.Len(t, fb.Strengths, 4)
	assert.NotNil(t, fb.AreasForImprovement)
	assert.Empty(t, fb.AreasForImprovement)
}
