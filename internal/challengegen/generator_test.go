package challengegen

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillissue/internal/llm"
)

func testInput() Input {
	return Input{
		SkillID:          "go-channels",
		SkillName:        "Go Channels",
		SkillDescription: "Buffered and unbuffered channels, select, closing semantics",
		Difficulty:       4,
	}
}

const validReply = `{
	"question": "What happens when you send on a closed channel?",
	"options": ["It blocks forever", "It panics", "It returns an error", "The value is dropped"],
	"correctIndex": 1,
	"explanation": "Sending on a closed channel causes a run-time panic."
}`

func TestGenerateChallenge(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(validReply)})
	gen := New(mock, DefaultConfig())

	c, err := gen.GenerateChallenge(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "What happens when you send on a closed channel?", c.Question)
	assert.Len(t, c.Options, 4)
	assert.Equal(t, 1, c.CorrectIndex)
	assert.NotEmpty(t, c.Explanation)

	require.Len(t, mock.Calls, 1)
	req := mock.Calls[0]
	assert.Same(t, ChallengeSchema, req.Schema)
	assert.Equal(t, systemPrompt, req.System)
	assert.True(t, req.CacheSystem)
	assert.Contains(t, req.Messages[0].Content, "Skill: Go Channels")
	assert.Contains(t, req.Messages[0].Content, "Difficulty: 4/10 (Applying knowledge to straightforward situations)")
	assert.Contains(t, req.Messages[0].Content, "practice challenge")
}

func TestGenerateCalibrationQuestion_AlternateIndexName(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"question": "Which statement about nil channels is true?",
		"options": ["Receives block forever", "Receives return zero", "Sends panic", "They cannot be declared"],
		"correctAnswerIndex": 0,
		"explanation": "Operations on a nil channel block forever."
	}`)})
	gen := New(mock, DefaultConfig())

	in := testInput()
	in.Difficulty = 10
	c, err := gen.GenerateCalibrationQuestion(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, c.CorrectIndex)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "placement questions")
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "Master-level with subtle distinctions")
}

func TestGenerate_RegeneratesAfterInvalidReply(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"question":"Short?","options":["a","b","c","d"],"correctIndex":0,"explanation":"e"}`)},
		llm.MockResponse{Content: json.RawMessage(validReply)},
	)
	gen := New(mock, DefaultConfig())

	c, err := gen.GenerateChallenge(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, 1, c.CorrectIndex)
	assert.Equal(t, 2, mock.CallCount())
}

func TestGenerate_GivesUpAfterMaxAttempts(t *testing.T) {
	dup := `{"question":"Pick the odd one out please","options":["a","a","c","d"],"correctIndex":0,"explanation":"e"}`
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(dup)},
		llm.MockResponse{Content: json.RawMessage(dup)},
		llm.MockResponse{Content: json.RawMessage(validReply)},
	)
	gen := New(mock, DefaultConfig())

	_, err := gen.GenerateChallenge(context.Background(), testInput())
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.True(t, gerr.Retryable())
	assert.Equal(t, "go-channels", gerr.SkillID)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "structural", verr.Validator)
	assert.Equal(t, 2, mock.CallCount())
}

func TestGenerate_ProviderErrorNotRegenerated(t *testing.T) {
	boom := &llm.ErrProviderUnavailable{Err: errors.New("down")}
	mock := llm.NewMockProvider(llm.MockResponse{Err: boom}, llm.MockResponse{Content: json.RawMessage(validReply)})
	gen := New(mock, DefaultConfig())

	_, err := gen.GenerateChallenge(context.Background(), testInput())
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mock.CallCount())
}

func TestGenerate_RejectsOutOfRangeDifficulty(t *testing.T) {
	mock := llm.NewMockProvider()
	gen := New(mock, DefaultConfig())

	in := testInput()
	in.Difficulty = 0
	_, err := gen.GenerateChallenge(context.Background(), in)
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Zero(t, mock.CallCount())
}
