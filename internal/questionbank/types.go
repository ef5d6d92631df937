package questionbank

import (
	"time"

	"github.com/abhisek/brigade/internal/store"
)

// Kind is the answer modality of a question.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindOpenResponse   Kind = "open_response"
)

// Option is one multiple-choice option. Correct never leaves the server.
type Option struct {
	ID      string
	Text    string
	Correct bool
}

// Question is a persisted quiz question with its answer key.
type Question struct {
	ID       string
	UnitID   string
	BatchID  string
	Position int
	Kind     Kind
	Topic    string

	// Prompt is the text presented to the trainee.
	Prompt string

	// Options is populated for multiple choice only. Exactly one option
	// is correct.
	Options []Option

	// Explanation is shown after a multiple-choice answer is graded.
	Explanation string

	// Rubric guides the judge for open responses: what a complete answer
	// must mention.
	Rubric string

	Active    bool
	CreatedAt time.Time
}

// CorrectOption returns the option marked correct.
func (q *Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.Correct {
			return o, true
		}
	}
	return Option{}, false
}

// Option looks up an option by id.
func (q *Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// ClientOption is an option as the trainee sees it.
type ClientOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ClientQuestion is the client-safe projection of a Question: no
// correctness marker, explanation or rubric.
type ClientQuestion struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	Topic   string         `json:"topic,omitempty"`
	Prompt  string         `json:"prompt"`
	Options []ClientOption `json:"options,omitempty"`
}

// Client projects q for the trainee.
func (q *Question) Client() ClientQuestion {
	cq := ClientQuestion{ID: q.ID, Kind: q.Kind, Topic: q.Topic, Prompt: q.Prompt}
	for _, o := range q.Options {
		cq.Options = append(cq.Options, ClientOption{ID: o.ID, Text: o.Text})
	}
	return cq
}

// Project maps questions to their client-safe form, keeping order.
func Project(qs []*Question) []ClientQuestion {
	out := make([]ClientQuestion, len(qs))
	for i, q := range qs {
		out[i] = q.Client()
	}
	return out
}

func questionFromRecord(r *store.QuestionRecord) *Question {
	q := &Question{
		ID:          r.ID,
		UnitID:      r.UnitID,
		BatchID:     r.BatchID,
		Position:    r.Position,
		Kind:        Kind(r.Kind),
		Topic:       r.Topic,
		Prompt:      r.Prompt,
		Explanation: r.Explanation,
		Rubric:      r.Rubric,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
	}
	for _, o := range r.Options {
		q.Options = append(q.Options, Option{ID: o.ID, Text: o.Text, Correct: o.Correct})
	}
	return q
}

func (q *Question) record() *store.QuestionRecord {
	r := &store.QuestionRecord{
		ID:          q.ID,
		UnitID:      q.UnitID,
		BatchID:     q.BatchID,
		Position:    q.Position,
		Kind:        string(q.Kind),
		Topic:       q.Topic,
		Prompt:      q.Prompt,
		Explanation: q.Explanation,
		Rubric:      q.Rubric,
		Active:      q.Active,
		CreatedAt:   q.CreatedAt,
	}
	for _, o := range q.Options {
		r.Options = append(r.Options, store.OptionRecord{ID: o.ID, Text: o.Text, Correct: o.Correct})
	}
	return r
}
