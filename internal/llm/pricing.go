package llm

import "strings"

// ModelCost holds per-million-token pricing for a model in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64

	// CachedInputPerMTok prices input read from the prompt cache. Zero means
	// the model has no discount and cached tokens cost InputPerMTok.
	CachedInputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts. cachedTokens
// is the part of inputTokens served from the prompt cache.
func (c ModelCost) Cost(inputTokens, cachedTokens, outputTokens int) float64 {
	cachedRate := c.CachedInputPerMTok
	if cachedRate == 0 {
		cachedRate = c.InputPerMTok
	}
	cachedTokens = min(cachedTokens, inputTokens)
	return float64(inputTokens-cachedTokens)*c.InputPerMTok/1_000_000 +
		float64(cachedTokens)*cachedRate/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
// OpenRouter ids ("vendor/model") are matched on the model part too.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	if _, name, ok := strings.Cut(modelID, "/"); ok {
		if c, ok := modelCosts[name]; ok {
			return &c
		}
	}
	return nil
}

// modelCosts covers the models the providers resolve to by default plus
// their common alternatives.
var modelCosts = map[string]ModelCost{
	// Anthropic
	"claude-haiku-4-5":           {1, 5, 0.1},
	"claude-haiku-4-5-20251001":  {1, 5, 0.1},
	"claude-sonnet-4-20250514":   {3, 15, 0.3},
	"claude-sonnet-4-5":          {3, 15, 0.3},
	"claude-sonnet-4-5-20250929": {3, 15, 0.3},

	// OpenAI
	"gpt-4o":       {2.5, 10, 1.25},
	"gpt-4o-mini":  {0.15, 0.6, 0.075},
	"gpt-4.1-mini": {0.4, 1.6, 0.1},
	"gpt-5-mini":   {0.25, 2, 0.025},

	// Google
	"gemini-2.0-flash":     {0.1, 0.4, 0.025},
	"gemini-2.0-flash-001": {0.1, 0.4, 0.025},
	"gemini-2.5-flash":     {0.3, 2.5, 0.075},
	"gemini-2.5-pro":       {1.25, 10, 0.31},
}
