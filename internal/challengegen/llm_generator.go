package challengegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/skillissue/internal/llm"
)

// LLMGenerator implements Generator using an LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

func (g *LLMGenerator) GenerateChallenge(ctx context.Context, input Input) (*Challenge, error) {
	return g.generate(llm.WithPurpose(ctx, llm.PurposeChallenge), input, kindChallenge)
}

func (g *LLMGenerator) GenerateCalibrationQuestion(ctx context.Context, input Input) (*Challenge, error) {
	return g.generate(llm.WithPurpose(ctx, llm.PurposeCalibration), input, kindCalibration)
}

func (g *LLMGenerator) generate(ctx context.Context, input Input, kind promptKind) (*Challenge, error) {
	if input.Difficulty < 1 || input.Difficulty > 10 {
		return nil, &GenerationError{
			SkillID:    input.SkillID,
			Difficulty: input.Difficulty,
			Err:        errors.New("difficulty must be 1-10"),
		}
	}

	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(input, kind)}},
		Schema:      ChallengeSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
		CacheSystem: true,
	}

	attempts := max(g.config.MaxAttempts, 1)
	var lastErr error
	for range attempts {
		c, err := g.attempt(ctx, req, input)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if !retryableReply(err) {
			break
		}
	}

	return nil, &GenerationError{SkillID: input.SkillID, Difficulty: input.Difficulty, Err: lastErr}
}

var errBadReply = errors.New("unusable reply")

// retryableReply reports whether asking again may produce a usable reply.
// Provider errors are not retried here; the provider decorators already did.
func retryableReply(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Retryable
	}
	return errors.Is(err, errBadReply)
}

func (g *LLMGenerator) attempt(ctx context.Context, req llm.Request, input Input) (*Challenge, error) {
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	c, err := parseReply(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadReply, err)
	}

	for _, v := range g.config.Validators {
		if verr := v.Validate(c, input); verr != nil {
			return nil, verr
		}
	}
	return c, nil
}
