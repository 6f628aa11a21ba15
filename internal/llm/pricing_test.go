package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	require.NotNil(t, c)
	assert.InDelta(t, 0.15+0.6, c.Cost(1_000_000, 0, 1_000_000), 1e-9)

	routed := LookupCost("google/gemini-2.0-flash-001")
	require.NotNil(t, routed)
	assert.Equal(t, 0.1, routed.InputPerMTok)

	assert.Nil(t, LookupCost("mock"))
}

func TestModelCost_CachedInput(t *testing.T) {
	c := ModelCost{InputPerMTok: 3, OutputPerMTok: 15, CachedInputPerMTok: 0.3}

	// Half the input from cache: 0.5*3 + 0.5*0.3.
	assert.InDelta(t, 1.65, c.Cost(1_000_000, 500_000, 0), 1e-9)

	// Cached count is capped at the input count.
	assert.InDelta(t, 0.3, c.Cost(1_000_000, 2_000_000, 0), 1e-9)

	noDiscount := ModelCost{InputPerMTok: 2}
	assert.InDelta(t, 2, noDiscount.Cost(1_000_000, 1_000_000, 0), 1e-9)
}
