package grading

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/questionbank"
)

func pestoQuestion() *questionbank.Question {
	return &questionbank.Question{
		ID:     "q-pesto",
		Kind:   questionbank.KindMultipleChoice,
		Topic:  "allergen menu",
		Prompt: "Which nut is in the house pesto?",
		Options: []questionbank.Option{
			{ID: "a", Text: "Walnuts"},
			{ID: "b", Text: "Pine nuts", Correct: true},
			{ID: "c", Text: "Cashews"},
		},
		Explanation: "The pesto is made with pine nuts.",
	}
}

func allergyQuestion() *questionbank.Question {
	return &questionbank.Question{
		ID:     "q-allergy",
		Kind:   questionbank.KindOpenResponse,
		Topic:  "guest handling",
		Prompt: "A guest declares a nut allergy. What do you do?",
		Rubric: "Tells the manager; flags the ticket; never guesses ingredients.",
	}
}

func TestGrade_MultipleChoiceCorrect(t *testing.T) {
	e := NewEngine(nil)
	res, err := e.Grade(context.Background(), Submission{Question: pestoQuestion(), Value: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mc := res.MultipleChoice
	if mc == nil || !mc.IsCorrect {
		t.Fatalf("expected correct, got %+v", res)
	}
	if mc.CorrectOptionID != "b" || mc.CorrectOptionText != "Pine nuts" {
		t.Fatalf("correct option = %q %q", mc.CorrectOptionID, mc.CorrectOptionText)
	}
	if res.Score() != 100 || !res.Passed() {
		t.Fatalf("score = %d, passed = %v", res.Score(), res.Passed())
	}
	if res.OpenResponse != nil {
		t.Fatal("open response outcome set on a multiple-choice result")
	}
}

func TestGrade_MultipleChoiceIncorrect(t *testing.T) {
	res, err := NewEngine(nil).Grade(context.Background(), Submission{Question: pestoQuestion(), Value: "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mc := res.MultipleChoice
	if mc.IsCorrect {
		t.Fatal("expected incorrect")
	}
	if mc.CorrectOptionID != "b" {
		t.Fatalf("correctOptionId = %q, want the keyed option b", mc.CorrectOptionID)
	}
	if mc.Explanation == "" {
		t.Fatal("explanation missing")
	}
	if res.Score() != 0 || res.SubmittedValue != "c" {
		t.Fatalf("score = %d, submitted = %q", res.Score(), res.SubmittedValue)
	}
}

func TestGrade_MultipleChoiceUnknownOption(t *testing.T) {
	for _, v := range []string{"z", "", "Pine nuts", "B"} {
		_, err := NewEngine(nil).Grade(context.Background(), Submission{Question: pestoQuestion(), Value: v})
		if !errors.Is(err, ErrInvalidOption) {
			t.Errorf("value %q: expected ErrInvalidOption, got %v", v, err)
		}
	}
}

func TestGrade_MultipleChoiceNeverCallsJudge(t *testing.T) {
	mock := llm.NewMockProvider()
	e := NewEngine(NewLLMJudge(mock, DefaultJudgeConfig()))
	if _, err := e.Grade(context.Background(), Submission{Question: pestoQuestion(), Value: "a"}); err != nil {
		t.Fatal(err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("judge called %d times for multiple choice", mock.CallCount())
	}
}

func TestGrade_OpenResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"passed":true,"score":72,"rubric_notes":"Told the manager; forgot to flag the ticket."}`),
	})
	e := NewEngine(NewLLMJudge(mock, DefaultJudgeConfig()))

	res, err := e.Grade(context.Background(), Submission{
		UnitTitle: "Allergen Awareness",
		Question:  allergyQuestion(),
		Value:     "  I'd get the manager right away  ",
		Modality:  ModalityVoice,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	or := res.OpenResponse
	if or == nil || !or.Passed || or.Score != 72 {
		t.Fatalf("unexpected outcome: %+v", or)
	}
	if res.Score() != 72 {
		t.Fatalf("Score() = %d", res.Score())
	}

	req := mock.LastCall()
	if req.Schema != VerdictSchema {
		t.Fatal("judge request lacks the verdict schema")
	}
	msg := req.Messages[0].Content
	for _, want := range []string{"Unit: Allergen Awareness", "Rubric: Tells the manager", "Answer (voice):", "I'd get the manager right away"} {
		if !strings.Contains(msg, want) {
			t.Errorf("judge prompt missing %q:\n%s", want, msg)
		}
	}
}

func TestGrade_OpenResponseJudgePassOverridesScore(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"passed":true,"score":58,"rubric_notes":"Borderline but safe."}`),
	})
	res, err := NewEngine(NewLLMJudge(mock, DefaultJudgeConfig())).Grade(context.Background(), Submission{Question: allergyQuestion(), Value: "manager"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Passed() || res.Score() != 58 {
		t.Fatalf("judge verdict not kept as given: %+v", res.OpenResponse)
	}
}

func TestGrade_OpenResponseScoreClamped(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`{"passed":true,"score":140,"rubric_notes":""}`, 100},
		{`{"passed":false,"score":-5,"rubric_notes":""}`, 0},
		{`{"passed":false,"score":0,"rubric_notes":""}`, 0},
		{`{"passed":true,"score":100,"rubric_notes":""}`, 100},
	}
	for _, tt := range tests {
		mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.raw)})
		res, err := NewEngine(NewLLMJudge(mock, DefaultJudgeConfig())).Grade(context.Background(), Submission{Question: allergyQuestion(), Value: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Score() != tt.want {
			t.Errorf("%s: score = %d, want %d", tt.raw, res.Score(), tt.want)
		}
	}
}

func TestGrade_OpenResponseEmpty(t *testing.T) {
	mock := llm.NewMockProvider()
	_, err := NewEngine(NewLLMJudge(mock, DefaultJudgeConfig())).Grade(context.Background(), Submission{Question: allergyQuestion(), Value: " \n\t"})
	if !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("blank answer reached the judge")
	}
}

func TestGrade_JudgeUnavailable(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	_, err := NewEngine(NewLLMJudge(mock, DefaultJudgeConfig())).Grade(context.Background(), Submission{Question: allergyQuestion(), Value: "x"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatal("TransportError does not unwrap to the provider error")
	}
}

func TestGrade_NoJudgeConfigured(t *testing.T) {
	_, err := NewEngine(nil).Grade(context.Background(), Submission{Question: allergyQuestion(), Value: "x"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestAnswerResult_JSON(t *testing.T) {
	res, _ := NewEngine(nil).Grade(context.Background(), Submission{Question: pestoQuestion(), Value: "a"})
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	for _, want := range []string{`"questionId":"q-pesto"`, `"kind":"multiple_choice"`, `"isCorrect":false`, `"correctOptionId":"b"`} {
		if !strings.Contains(s, want) {
			t.Errorf("json missing %s: %s", want, s)
		}
	}
	if strings.Contains(s, "openResponse") {
		t.Errorf("json carries the other outcome: %s", s)
	}
}
