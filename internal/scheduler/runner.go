package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/skillissue/internal/logger"
)

// Runner drives an Engine from a ticker and from on-demand triggers. Each
// run sweeps stale challenges before the tick.
type Runner struct {
	eng      *Engine
	interval time.Duration
	log      *logger.Logger
	trigger  chan struct{}
	now      func() time.Time
}

// NewRunner creates a runner that ticks every interval.
func NewRunner(eng *Engine, interval time.Duration, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		eng:      eng,
		interval: interval,
		log:      log,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Trigger requests a tick as soon as the runner is free. It reports false
// when a request is already waiting.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run ticks once immediately and then on every interval or trigger until
// ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("scheduler started", "interval", r.interval.String())
	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.trigger:
			r.runOnce(ctx)
		}
	}
}

// runOnce never lets a failing or panicking tick stop the loop.
func (r *Runner) runOnce(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("tick panicked", "panic", fmt.Sprint(p))
		}
	}()

	now := r.now().UTC()
	if n, err := r.eng.ExpireStaleChallenges(ctx, now); err != nil {
		r.log.Warn("stale challenge sweep failed", "error", err)
	} else if n > 0 {
		r.log.Info("expired stale challenges", "count", n)
	}

	_, err := r.eng.RunTick(ctx, now)
	switch {
	case errors.Is(err, ErrTickInProgress):
		r.log.Debug("tick skipped, previous tick still running")
	case err != nil:
		r.log.Error("tick failed", "error", err)
	}
}
