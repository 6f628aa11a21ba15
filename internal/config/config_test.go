package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray .env is read.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.TickInterval)
	assert.Equal(t, 1, cfg.Scheduler.MaxUsersPerTick)
	assert.Equal(t, 0.7, cfg.Scheduler.PriorityThreshold)
	assert.Equal(t, 2, cfg.Scheduler.GenerationConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.ChallengeTTL)
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SKILLISSUE_MAX_USERS_PER_TICK", "5")
	t.Setenv("SKILLISSUE_MIN_HOURS_BETWEEN_CHALLENGES", "6")
	t.Setenv("SKILLISSUE_TICK_INTERVAL", "10m")
	t.Setenv("SKILLISSUE_CHALLENGE_TTL", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Scheduler.MaxUsersPerTick)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.MinTimeBetween)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.TickInterval)
	assert.Zero(t, cfg.Scheduler.ChallengeTTL)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SKILLISSUE_PRIORITY_THRESHOLD=0.5\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SKILLISSUE_PRIORITY_THRESHOLD") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Scheduler.PriorityThreshold)
}

func TestLoadRejectsGarbage(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SKILLISSUE_MAX_USERS_PER_TICK", "lots")

	_, err := Load()
	assert.ErrorContains(t, err, "SKILLISSUE_MAX_USERS_PER_TICK")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scheduler.TickInterval = 0 }},
		{"no users per tick", func(c *Config) { c.Scheduler.MaxUsersPerTick = 0 }},
		{"threshold above one", func(c *Config) { c.Scheduler.PriorityThreshold = 1.5 }},
		{"no workers", func(c *Config) { c.Scheduler.GenerationConcurrency = 0 }},
		{"negative ttl", func(c *Config) { c.Scheduler.ChallengeTTL = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
