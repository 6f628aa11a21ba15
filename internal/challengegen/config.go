package challengegen

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// Validators run in order on every normalized challenge; the first
	// failure stops the pipeline.
	Validators []Validator

	// MaxAttempts bounds how many replies are requested when a reply fails
	// parsing or a retryable validation.
	MaxAttempts int

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns a Config with the structural validator and the
// recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators:  []Validator{&StructuralValidator{}},
		MaxAttempts: 2,
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}
