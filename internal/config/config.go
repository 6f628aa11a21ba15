// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/skillissue/internal/llm"
	"github.com/abhisek/skillissue/internal/tracing"
)

// Config holds everything the engine needs at startup.
type Config struct {
	DBPath  string // empty means store.DefaultDBPath()
	LogMode string // "dev" or "prod"

	Scheduler SchedulerConfig

	// AuditQueueSize bounds the async audit queue. 0 writes entries inline.
	AuditQueueSize int
	// DrainTimeout caps how long shutdown waits for queued audit entries.
	DrainTimeout time.Duration

	LLM     llm.Config
	Tracing tracing.Config
}

// SchedulerConfig holds the tick knobs.
type SchedulerConfig struct {
	TickInterval          time.Duration
	MaxUsersPerTick       int
	PriorityThreshold     float64
	MinTimeBetween        time.Duration
	GenerationConcurrency int
	ChallengeTTL          time.Duration // 0 disables expiry
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		LogMode: "dev",
		Scheduler: SchedulerConfig{
			TickInterval:          30 * time.Minute,
			MaxUsersPerTick:       1,
			PriorityThreshold:     0.7,
			MinTimeBetween:        4 * time.Hour,
			GenerationConcurrency: 2,
			ChallengeTTL:          24 * time.Hour,
		},
		AuditQueueSize: 256,
		DrainTimeout:   5 * time.Second,
		LLM:            llm.DefaultConfig(),
		Tracing:        tracing.ConfigFromEnv(),
	}
}

// Load reads an optional .env file from the working directory, then builds a
// Config from SKILLISSUE_* variables over the defaults. Variables already
// set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	cfg.DBPath = getEnv("SKILLISSUE_DB", "")
	cfg.LogMode = getEnv("SKILLISSUE_LOG_MODE", cfg.LogMode)
	cfg.LLM = llm.ConfigFromEnv()
	cfg.Tracing = tracing.ConfigFromEnv()

	var errs []error
	s := &cfg.Scheduler
	s.TickInterval = getDuration("SKILLISSUE_TICK_INTERVAL", s.TickInterval, &errs)
	s.MaxUsersPerTick = getInt("SKILLISSUE_MAX_USERS_PER_TICK", s.MaxUsersPerTick, &errs)
	s.PriorityThreshold = getFloat("SKILLISSUE_PRIORITY_THRESHOLD", s.PriorityThreshold, &errs)
	s.MinTimeBetween = getDuration("SKILLISSUE_MIN_HOURS_BETWEEN_CHALLENGES", s.MinTimeBetween, &errs)
	s.GenerationConcurrency = getInt("SKILLISSUE_GENERATION_CONCURRENCY", s.GenerationConcurrency, &errs)
	s.ChallengeTTL = getDuration("SKILLISSUE_CHALLENGE_TTL", s.ChallengeTTL, &errs)
	cfg.AuditQueueSize = getInt("SKILLISSUE_AUDIT_QUEUE_SIZE", cfg.AuditQueueSize, &errs)
	cfg.DrainTimeout = getDuration("SKILLISSUE_DRAIN_TIMEOUT", cfg.DrainTimeout, &errs)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges that would make the scheduler misbehave.
func (c Config) Validate() error {
	s := c.Scheduler
	switch {
	case s.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive, got %s", s.TickInterval)
	case s.MaxUsersPerTick < 1:
		return fmt.Errorf("max users per tick must be at least 1, got %d", s.MaxUsersPerTick)
	case s.PriorityThreshold < 0 || s.PriorityThreshold > 1:
		return fmt.Errorf("priority threshold must be within [0, 1], got %g", s.PriorityThreshold)
	case s.MinTimeBetween < 0:
		return fmt.Errorf("min time between challenges must not be negative, got %s", s.MinTimeBetween)
	case s.GenerationConcurrency < 1:
		return fmt.Errorf("generation concurrency must be at least 1, got %d", s.GenerationConcurrency)
	case s.ChallengeTTL < 0:
		return fmt.Errorf("challenge TTL must not be negative, got %s", s.ChallengeTTL)
	case c.AuditQueueSize < 0:
		return fmt.Errorf("audit queue size must not be negative, got %d", c.AuditQueueSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, def int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func getFloat(key string, def float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// getDuration accepts Go durations ("90m") or a bare number of hours ("4").
func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return time.Duration(h * float64(time.Hour))
}
