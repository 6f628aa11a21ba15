package challengegen

import (
	"fmt"
	"unicode/utf8"
)

// Validator checks a normalized challenge before it is handed out.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in error messages.
	Name() string

	// Validate returns nil if the challenge passes.
	Validate(c *Challenge, input Input) *ValidationError
}

// ValidationError describes why a challenge failed validation.
type ValidationError struct {
	Validator string
	Message   string
	Retryable bool // whether regenerating is likely to fix it
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

const (
	minQuestionLen    = 10
	maxQuestionLen    = 500
	maxOptionLen      = 200
	maxExplanationLen = 2000
	optionCount       = 4
)

// StructuralValidator checks the shape of a challenge: question length,
// exactly four distinct options, an in-range answer index and a non-empty
// explanation.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(c *Challenge, _ Input) *ValidationError {
	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf(format, args...),
			Retryable: true,
		}
	}

	if n := utf8.RuneCountInString(c.Question); n < minQuestionLen || n > maxQuestionLen {
		return fail("question length %d outside %d-%d", n, minQuestionLen, maxQuestionLen)
	}
	if len(c.Options) != optionCount {
		return fail("expected %d options, got %d", optionCount, len(c.Options))
	}

	seen := make(map[string]struct{}, optionCount)
	for i, o := range c.Options {
		n := utf8.RuneCountInString(o)
		if n == 0 {
			return fail("option %d is empty", i)
		}
		if n > maxOptionLen {
			return fail("option %d is %d characters, max %d", i, n, maxOptionLen)
		}
		if _, dup := seen[o]; dup {
			return fail("option %d duplicates %q", i, o)
		}
		seen[o] = struct{}{}
	}

	if c.CorrectIndex < 0 || c.CorrectIndex >= optionCount {
		return fail("correct index %d out of range", c.CorrectIndex)
	}
	if c.Explanation == "" {
		return fail("explanation is empty")
	}
	if n := utf8.RuneCountInString(c.Explanation); n > maxExplanationLen {
		return fail("explanation is %d characters, max %d", n, maxExplanationLen)
	}
	return nil
}
