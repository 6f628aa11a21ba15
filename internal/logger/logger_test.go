package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]any{"api_key", "sk-123", "skill_id", "go", "OPENAI_TOKEN", "abc", "dangling"})
	assert.Equal(t, []any{"api_key", "[REDACTED]", "skill_id", "go", "OPENAI_TOKEN", "[REDACTED]", "dangling"}, got)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("tick_id", 7).Info("tick finished", "selected", 1, "password", "hunter2")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 7, fields["tick_id"])
	assert.EqualValues(t, 1, fields["selected"])
	assert.Equal(t, "[REDACTED]", fields["password"])
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", "v")
	l.Sync()
}
