// Package app wires the store, generator and engines together and exposes
// the core operations to the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/skillissue/internal/audit"
	"github.com/abhisek/skillissue/internal/calibration"
	"github.com/abhisek/skillissue/internal/challengegen"
	"github.com/abhisek/skillissue/internal/config"
	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/mastery"
	"github.com/abhisek/skillissue/internal/scheduler"
	"github.com/abhisek/skillissue/internal/store"
	"github.com/abhisek/skillissue/internal/tracing"
)

// App is the composition root.
type App struct {
	Store *store.Store
	Log   *logger.Logger

	Scheduler   *scheduler.Engine
	Mastery     *mastery.Engine
	Calibration *calibration.Engine

	cfg         config.Config
	queue       *audit.Queue
	stopTracing func(context.Context) error
	closed      bool
}

// Option customizes New.
type Option func(*options)

type options struct {
	generator challengegen.Generator
}

// WithGenerator replaces the LLM-backed generator.
func WithGenerator(g challengegen.Generator) Option {
	return func(o *options) { o.generator = g }
}

// New opens the database and builds every engine. Close releases them.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.Nop()
	}

	dsn, err := resolveDSN(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	stopTracing := tracing.Setup(ctx, log, cfg.Tracing)
	tracer := tracing.New(nil, log)

	gen := o.generator
	if gen == nil {
		gen = newLazyGenerator(cfg.LLM, st.EventRepo(), log)
	}

	var (
		sink  audit.Sink = audit.NewDirect(st.AuditLog(), log)
		queue *audit.Queue
	)
	if cfg.AuditQueueSize > 0 {
		queue = audit.NewQueue(sink, cfg.AuditQueueSize, log)
		sink = queue
	}

	s := cfg.Scheduler
	a := &App{
		Store: st,
		Log:   log,
		Scheduler: scheduler.NewEngine(scheduler.Deps{
			Users:      st.Users(),
			Skills:     st.Skills(),
			States:     st.States(),
			Challenges: st.Challenges(),
			Ticks:      st,
			Generator:  gen,
			Audit:      sink,
			Tracer:     tracer,
			Log:        log.With("component", "scheduler"),
		}, scheduler.Config{
			MaxUsersPerTick:       s.MaxUsersPerTick,
			PriorityThreshold:     s.PriorityThreshold,
			MinTimeBetween:        s.MinTimeBetween,
			GenerationConcurrency: s.GenerationConcurrency,
			ChallengeTTL:          s.ChallengeTTL,
		}),
		Mastery: mastery.NewEngine(st.States(), st.Challenges(), tracer, log.With("component", "mastery")),
		Calibration: calibration.NewEngine(st.Skills(), st.Calibration(), gen, log.With("component", "calibration"),
			calibration.WithTracer(tracer),
			calibration.WithConcurrency(s.GenerationConcurrency),
		),
		cfg:         cfg,
		queue:       queue,
		stopTracing: stopTracing,
	}
	return a, nil
}

// resolveDSN maps an empty path to the default location and makes sure the
// parent directory of a file path exists. "file:" URIs pass through.
func resolveDSN(path string) (string, error) {
	if path == "" {
		return store.DefaultDBPath()
	}
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	return path, store.EnsureDir(path)
}

// Runner returns a periodic runner for the scheduler.
func (a *App) Runner() *scheduler.Runner {
	return scheduler.NewRunner(a.Scheduler, a.cfg.Scheduler.TickInterval, a.Log.With("component", "runner"))
}

// Close drains queued audit entries within the configured timeout, flushes
// tracing and closes the database.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.DrainTimeout)
		errs = append(errs, a.queue.Drain(ctx))
		cancel()
	}
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.DrainTimeout)
		errs = append(errs, a.stopTracing(ctx))
		cancel()
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// UpsertUser creates a learner or replaces their preferences.
func (a *App) UpsertUser(ctx context.Context, u *store.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return a.Store.Users().Upsert(ctx, u)
}

// Enroll creates the (user, skill) state. seed is the starting difficulty,
// 0 meaning the learner must calibrate first.
func (a *App) Enroll(ctx context.Context, userID, skillID string, seed int) (*store.UserSkillState, error) {
	if _, err := a.Store.Users().Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if _, err := a.Store.Skills().Get(ctx, skillID); err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	return a.Store.States().Enroll(ctx, userID, skillID, seed, time.Now().UTC())
}

// RunTick runs one scheduling tick at now.
func (a *App) RunTick(ctx context.Context, now time.Time) ([]scheduler.Selection, error) {
	return a.Scheduler.RunTick(ctx, now)
}

// ExpireStaleChallenges closes challenges past their TTL.
func (a *App) ExpireStaleChallenges(ctx context.Context, now time.Time) (int, error) {
	return a.Scheduler.ExpireStaleChallenges(ctx, now)
}

// RecordAnswer applies one answer outcome to the pair's state.
func (a *App) RecordAnswer(ctx context.Context, userID, skillID string, isCorrect bool, responseTimeMs, difficulty int) (*store.UserSkillState, error) {
	return a.Mastery.RecordAnswer(ctx, userID, skillID, isCorrect, responseTimeMs, difficulty)
}

// SubmitChallengeAnswer records an answer to a scheduled challenge.
func (a *App) SubmitChallengeAnswer(ctx context.Context, challengeID, userID string, selectedOption, responseTimeMs int) (*mastery.ChallengeResult, error) {
	return a.Mastery.SubmitChallengeAnswer(ctx, challengeID, userID, selectedOption, responseTimeMs)
}

// GenerateCalibrationQuestions makes sure the skill's ten questions exist.
func (a *App) GenerateCalibrationQuestions(ctx context.Context, skillID string) (*calibration.GenerateResult, error) {
	return a.Calibration.GenerateQuestions(ctx, skillID)
}

// StartCalibration begins or resumes a learner's calibration.
func (a *App) StartCalibration(ctx context.Context, userID, skillID string) (*calibration.StartResult, error) {
	return a.Calibration.Start(ctx, userID, skillID)
}

// SubmitCalibrationAnswer records one calibration answer.
func (a *App) SubmitCalibrationAnswer(ctx context.Context, userID, skillID string, difficulty, selectedOption int) (*calibration.AnswerResult, error) {
	return a.Calibration.SubmitAnswer(ctx, userID, skillID, difficulty, selectedOption)
}

// CompleteCalibration sets the learner's starting difficulty.
func (a *App) CompleteCalibration(ctx context.Context, userID, skillID string) (*calibration.CompleteResult, error) {
	return a.Calibration.Complete(ctx, userID, skillID)
}
