package assessment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/brigade/internal/events"
	"github.com/abhisek/brigade/internal/grading"
	"github.com/abhisek/brigade/internal/llm"
	"github.com/abhisek/brigade/internal/questionbank"
	"github.com/abhisek/brigade/internal/scoring"
	"github.com/abhisek/brigade/internal/store"
	"github.com/abhisek/brigade/internal/store/storetest"
)

const batchJSON = `{"questions":[
	{"kind":"multiple_choice","topic":"allergen menu","prompt":"Which nut is in the house pesto?",
	 "options":[{"text":"Pine nuts","correct":true},{"text":"Walnuts","correct":false},{"text":"Cashews","correct":false}],
	 "explanation":"The pesto is made with pine nuts.","rubric":""},
	{"kind":"multiple_choice","topic":"allergen menu","prompt":"Which cheese is in the house pesto?",
	 "options":[{"text":"Parmesan","correct":true},{"text":"Feta","correct":false}],
	 "explanation":"Parmesan is blended into the pesto.","rubric":""},
	{"kind":"open_response","topic":"guest handling","prompt":"A guest says they have a nut allergy. What do you do?",
	 "options":[],"explanation":"","rubric":"Tells the manager; flags the ticket; does not guess."}
]}`

const feedbackJSON = `{
	"strengths":["Knows the pesto ingredients."],
	"areas_for_improvement":["Learn the cheese list."],
	"encouragement":"Review the menu sheet and try again."}`

type harness struct {
	eng      *Engine
	store    *store.Store
	gen      *llm.MockProvider
	judge    *llm.MockProvider
	narrator *llm.MockProvider
	events   *events.Recorder
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	mode  questionbank.AssessmentType
	judge grading.Judge
}

func withMode(m questionbank.AssessmentType) harnessOption {
	return func(c *harnessConfig) { c.mode = m }
}

func withJudge(j grading.Judge) harnessOption {
	return func(c *harnessConfig) { c.judge = j }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	hc := harnessConfig{mode: questionbank.AssessmentQuiz}
	for _, o := range opts {
		o(&hc)
	}

	st := storetest.Open(t)
	h := &harness{
		store:    st,
		gen:      &llm.MockProvider{Respond: respondWith(batchJSON)},
		judge:    &llm.MockProvider{Respond: respondWith(`{"passed":true,"score":70,"rubric_notes":"Mentions the manager."}`)},
		narrator: &llm.MockProvider{Respond: respondWith(feedbackJSON)},
		events:   &events.Recorder{},
	}

	qcfg := questionbank.DefaultConfig()
	qcfg.Shuffle = func(int, func(i, j int)) {}
	bank := questionbank.NewBank(st, questionbank.NewGenerator(h.gen, qcfg), qcfg, nil)
	require.NoError(t, bank.PutUnit(context.Background(), &questionbank.Unit{
		ID:               "allergens-101",
		Title:            "Allergen Awareness",
		Content:          "The house pesto contains pine nuts and parmesan. Tell the manager about declared allergies.",
		Topics:           []string{"allergen menu", "guest handling"},
		AssessmentType:   hc.mode,
		PassingThreshold: 75,
		QuestionCount:    3,
	}))

	judge := hc.judge
	if judge == nil {
		judge = grading.NewLLMJudge(h.judge, grading.DefaultJudgeConfig())
	}
	h.eng = NewEngine(Deps{
		Store:     st,
		Bank:      bank,
		Grader:    grading.NewEngine(judge),
		Scorer:    scoring.NewScorer(scoring.NewLLMNarrator(h.narrator, scoring.DefaultNarratorConfig()), nil),
		Publisher: h.events,
	}, DefaultConfig())
	return h
}

func respondWith(body string) func(llm.Request) llm.MockResponse {
	return func(llm.Request) llm.MockResponse {
		return llm.MockResponse{Content: json.RawMessage(body)}
	}
}

// conversation starts a session and resolves consent.
func (h *harness) conversation(t *testing.T, voice bool) *Session {
	t.Helper()
	ctx := context.Background()
	sess, err := h.eng.StartOrResumeSession(ctx, "trainee-1", "allergens-101")
	require.NoError(t, err)
	sess, err = h.eng.RecordConsent(ctx, sess.ID, voice)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 3)
	return sess
}

// answerAll answers pesto correctly, cheese wrongly and the open question.
func (h *harness) answerAll(t *testing.T, sess *Session) {
	t.Helper()
	ctx := context.Background()
	q := sess.Questions
	_, err := h.eng.SubmitAnswer(ctx, sess.ID, q[0].ID, "a", grading.ModalityText)
	require.NoError(t, err)
	_, err = h.eng.SubmitAnswer(ctx, sess.ID, q[1].ID, "b", grading.ModalityText)
	require.NoError(t, err)
	_, err = h.eng.SubmitAnswer(ctx, sess.ID, q[2].ID, "Tell the manager and flag the ticket.", grading.ModalityText)
	require.NoError(t, err)
}
