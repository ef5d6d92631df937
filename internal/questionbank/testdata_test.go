package questionbank

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/abhisek/brigade/internal/store"
	"github.com/abhisek/brigade/internal/store/storetest"
)

func testUnit() *Unit {
	return &Unit{
		ID:    "allergens-101",
		Title: "Allergen Awareness",
		Content: `The fourteen major allergens must be declared on request. ` +
			`The house pesto contains pine nuts and parmesan. ` +
			`When a guest declares an allergy, tell the manager and flag the ticket.`,
		Topics:           []string{"allergen menu", "guest handling"},
		AssessmentType:   AssessmentQuiz,
		PassingThreshold: 75,
		QuestionCount:    3,
	}
}

func validBatchJSON() json.RawMessage {
	return json.RawMessage(`{"questions":[
		{"kind":"multiple_choice","topic":"allergen menu","prompt":"Which nut is in the house pesto?",
		 "options":[{"text":"Pine nuts","correct":true},{"text":"Walnuts","correct":false},{"text":"Cashews","correct":false}],
		 "explanation":"The pesto is made with pine nuts.","rubric":""},
		{"kind":"multiple_choice","topic":"allergen menu","prompt":"Which cheese is in the house pesto?",
		 "options":[{"text":"Parmesan","correct":true},{"text":"Feta","correct":false}],
		 "explanation":"Parmesan is blended into the pesto.","rubric":""},
		{"kind":"open_response","topic":"guest handling","prompt":"A guest says they have a nut allergy. What do you do?",
		 "options":[],"explanation":"","rubric":"Tells the manager; flags the ticket; does not guess."}
	]}`)
}

func invalidBatchJSON() json.RawMessage {
	return json.RawMessage(`{"questions":[
		{"kind":"multiple_choice","topic":"allergen menu","prompt":"Which nut is in the house pesto?",
		 "options":[{"text":"Pine nuts","correct":true},{"text":"Walnuts","correct":true}],
		 "explanation":"Pine nuts.","rubric":""}
	]}`)
}

func seedUnit(t *testing.T, st *store.Store, u *Unit) {
	t.Helper()
	b := NewBank(st, nil, DefaultConfig(), nil)
	if err := b.PutUnit(context.Background(), u); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
}

func newTestBank(t *testing.T, gen Generator, mutate func(*Config)) (*Bank, *store.Store) {
	t.Helper()
	st := storetest.Open(t)
	seedUnit(t, st, testUnit())
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewBank(st, gen, cfg, nil), st
}
