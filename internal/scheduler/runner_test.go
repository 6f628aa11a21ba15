package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
)

func TestRunner_TriggerCoalesces(t *testing.T) {
	r := NewRunner(nil, time.Hour, logger.Nop())
	assert.True(t, r.Trigger())
	assert.False(t, r.Trigger(), "a waiting trigger absorbs the next one")
}

func TestRunner_RunsOnStartAndOnTrigger(t *testing.T) {
	w := newWorld(t)
	w.skill("go", true)
	w.skill("sql", true)
	w.user(&store.User{ID: "u1"})
	w.pair("u1", "go", 5, nil)
	w.pair("u1", "sql", 5, nil)

	r := NewRunner(w.engine(DefaultConfig()), time.Hour, logger.Nop())
	r.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return w.gen.callCount() == 1 }, time.Second, 5*time.Millisecond)

	// The first tick set last_challenged_at on one pair; the other is
	// still eligible.
	r.Trigger()
	require.Eventually(t, func() bool { return w.gen.callCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunner_RecoversFromPanics(t *testing.T) {
	w := newWorld(t)
	e := w.engine(DefaultConfig())
	e.Users = nil // RunTick will panic on a nil repo

	r := NewRunner(e, time.Hour, logger.Nop())
	assert.NotPanics(t, func() { r.runOnce(context.Background()) })
	assert.False(t, e.running.Load(), "the tick guard is released after a panic")
}
