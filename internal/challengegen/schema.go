package challengegen

import "github.com/abhisek/skillissue/internal/llm"

// ChallengeSchema is the structured output requested from the provider.
// Models disagree on the name of the answer index field, so both spellings
// are accepted and the schema is not strict.
var ChallengeSchema = &llm.Schema{
	Name:        "multiple-choice-challenge",
	Description: "A four-option multiple choice question with one correct answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question shown to the learner",
			},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"minItems":    4,
				"maxItems":    4,
				"description": "Exactly four distinct answer options",
			},
			"correctIndex": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     3,
				"description": "Zero-based index of the correct option",
			},
			"correctAnswerIndex": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 3,
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Why the correct option is right",
			},
		},
		"required": []any{"question", "options", "explanation"},
	},
}
