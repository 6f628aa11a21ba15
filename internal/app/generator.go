package app

import (
	"context"
	"sync"

	"github.com/abhisek/skillissue/internal/challengegen"
	"github.com/abhisek/skillissue/internal/llm"
	"github.com/abhisek/skillissue/internal/logger"
	"github.com/abhisek/skillissue/internal/store"
)

type providerFactory func(ctx context.Context, cfg llm.Config, events store.EventRepo, log *logger.Logger) (llm.Provider, error)

// lazyGenerator builds the LLM-backed generator on first use so commands
// that never generate anything do not need provider credentials. Only a
// successful build is kept; a failed one is attempted again on the next call.
type lazyGenerator struct {
	cfg    llm.Config
	events store.EventRepo
	log    *logger.Logger
	build  providerFactory

	mu  sync.Mutex
	gen challengegen.Generator
}

func newLazyGenerator(cfg llm.Config, events store.EventRepo, log *logger.Logger) *lazyGenerator {
	return &lazyGenerator{cfg: cfg, events: events, log: log, build: llm.NewProvider}
}

func (l *lazyGenerator) get(ctx context.Context) (challengegen.Generator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != nil {
		return l.gen, nil
	}

	provider, err := l.build(ctx, l.cfg, l.events, l.log)
	if err != nil {
		l.log.Warn("LLM provider unavailable", "provider", l.cfg.Provider, "error", err)
		return nil, err
	}
	l.log.Info("LLM provider ready", "provider", l.cfg.Provider, "model", provider.ModelID())
	l.gen = challengegen.New(provider, challengegen.DefaultConfig())
	return l.gen, nil
}

func (l *lazyGenerator) GenerateChallenge(ctx context.Context, in challengegen.Input) (*challengegen.Challenge, error) {
	gen, err := l.get(ctx)
	if err != nil {
		return nil, &challengegen.GenerationError{SkillID: in.SkillID, Difficulty: in.Difficulty, Err: err}
	}
	return gen.GenerateChallenge(ctx, in)
}

func (l *lazyGenerator) GenerateCalibrationQuestion(ctx context.Context, in challengegen.Input) (*challengegen.Challenge, error) {
	gen, err := l.get(ctx)
	if err != nil {
		return nil, &challengegen.GenerationError{SkillID: in.SkillID, Difficulty: in.Difficulty, Err: err}
	}
	return gen.GenerateCalibrationQuestion(ctx, in)
}
