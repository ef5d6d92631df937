package grading

import "github.com/abhisek/brigade/internal/llm"

// VerdictSchema is the structured output requested from the judge.
var VerdictSchema = &llm.Schema{
	Name:        "rubric-verdict",
	Description: "Verdict on one trainee answer measured against a rubric",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"passed": map[string]any{
				"type":        "boolean",
				"description": "Whether the answer would be acceptable on shift",
			},
			"score": map[string]any{
				"type":        "integer",
				"description": "0-100, how completely the answer covers the rubric",
			},
			"rubric_notes": map[string]any{
				"type":        "string",
				"description": "One or two sentences naming what was covered and what was missed",
			},
		},
		"required":             []any{"passed", "score", "rubric_notes"},
		"additionalProperties": false,
	},
}
