// Package challengegen turns a skill and a difficulty level into a
// four-option multiple choice question using an LLM provider.
package challengegen

import (
	"context"
	"fmt"
)

// Generator produces multiple choice questions for a skill.
type Generator interface {
	// GenerateChallenge produces a practice challenge at the learner's
	// current difficulty target.
	GenerateChallenge(ctx context.Context, input Input) (*Challenge, error)

	// GenerateCalibrationQuestion produces the shared calibration question
	// for one difficulty level of a skill.
	GenerateCalibrationQuestion(ctx context.Context, input Input) (*Challenge, error)
}

// Input is the context a question is generated for.
type Input struct {
	SkillID          string
	SkillName        string
	SkillDescription string
	Difficulty       int // 1-10
}

// Challenge is a normalized, validated question.
type Challenge struct {
	Question     string
	Options      []string
	CorrectIndex int
	Explanation  string
}

// GenerationError reports that the generator could not produce a usable
// question. It is always safe to retry.
type GenerationError struct {
	SkillID    string
	Difficulty int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s at difficulty %d: %v", e.SkillID, e.Difficulty, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Retryable reports whether calling the generator again may succeed.
func (e *GenerationError) Retryable() bool { return true }
