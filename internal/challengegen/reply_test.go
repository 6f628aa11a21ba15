package challengegen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"correctIndex", `{"question":"q","options":["a","b","c","d"],"correctIndex":2}`, 2, false},
		{"correctAnswerIndex", `{"question":"q","options":["a","b","c","d"],"correctAnswerIndex":3}`, 3, false},
		{"both agree", `{"question":"q","options":["a","b","c","d"],"correctIndex":1,"correctAnswerIndex":1}`, 1, false},
		{"both disagree", `{"question":"q","options":["a","b","c","d"],"correctIndex":1,"correctAnswerIndex":2}`, 0, true},
		{"neither", `{"question":"q","options":["a","b","c","d"]}`, 0, true},
		{"malformed", `{"question":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseReply(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.CorrectIndex)
		})
	}
}

func TestParseReply_TrimsWhitespace(t *testing.T) {
	c, err := parseReply(json.RawMessage(`{"question":"  q  ","options":[" a","b ","c","d"],"correctIndex":0,"explanation":" e\n"}`))
	require.NoError(t, err)
	assert.Equal(t, "q", c.Question)
	assert.Equal(t, []string{"a", "b", "c", "d"}, c.Options)
	assert.Equal(t, "e", c.Explanation)
}
