package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func challengeSchema() *Schema {
	return &Schema{
		Name:        "validate-test-challenge",
		Description: "A multiple choice question",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
				"options": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 4,
					"maxItems": 4,
				},
				"correctIndex": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
				"explanation":  map[string]any{"type": "string"},
				"kind":         map[string]any{"type": "string", "enum": []any{"concept", "code"}},
			},
			"required": []any{"question", "options", "correctIndex"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"question":"q","options":["a","b","c","d"],"correctIndex":2,"explanation":"e","kind":"code"}`, false},
		{"valid without optional", `{"question":"q","options":["a","b","c","d"],"correctIndex":0}`, false},
		{"missing required", `{"question":"q","options":["a","b","c","d"]}`, true},
		{"wrong type", `{"question":"q","options":["a","b","c","d"],"correctIndex":"two"}`, true},
		{"index out of range", `{"question":"q","options":["a","b","c","d"],"correctIndex":4}`, true},
		{"three options", `{"question":"q","options":["a","b","c"],"correctIndex":0}`, true},
		{"invalid enum", `{"question":"q","options":["a","b","c","d"],"correctIndex":0,"kind":"essay"}`, true},
		{"malformed json", `{not json}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(challengeSchema(), json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.raw, string(inv.Content))
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage(`{"anything":"goes"}`)))
}

func TestValidateResponse_CachesCompiledSchema(t *testing.T) {
	s := challengeSchema()
	s.Name = "validate-test-cache"

	first, err := getCompiledSchema(s)
	require.NoError(t, err)
	second, err := getCompiledSchema(s)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
