package questionbank

import "github.com/abhisek/brigade/internal/llm"

// BatchSchema is the structured output requested from the generator.
var BatchSchema = &llm.Schema{
	Name:        "question-batch",
	Description: "A batch of assessment questions for one unit of restaurant training content",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind": map[string]any{
							"type":        "string",
							"enum":        []any{"multiple_choice", "open_response"},
							"description": "multiple_choice for recall and identification, open_response for procedures and guest scenarios",
						},
						"topic": map[string]any{
							"type":        "string",
							"description": "One of the unit topics, verbatim",
						},
						"prompt": map[string]any{
							"type":        "string",
							"description": "The question as asked to the trainee",
						},
						"options": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"text":    map[string]any{"type": "string"},
									"correct": map[string]any{"type": "boolean"},
								},
								"required":             []any{"text", "correct"},
								"additionalProperties": false,
							},
							"description": "2-6 options with exactly one correct for multiple_choice; empty for open_response",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the correct option is right, grounded in the unit content",
						},
						"rubric": map[string]any{
							"type":        "string",
							"description": "For open_response: the points a complete answer must cover. Empty for multiple_choice.",
						},
					},
					"required":             []any{"kind", "topic", "prompt", "options", "explanation", "rubric"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
