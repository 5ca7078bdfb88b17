package openaibatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCostDefaults(t *testing.T) {
	cost, tokens := EstimateCost(100)
	// 100 requests * 150 prompt tokens at $2.50/1M plus
	// 100 requests * 100 completion tokens at $10/1M.
	assert.InDelta(t, 0.0375+0.1, cost, 1e-9)
	assert.Equal(t, int64(25000), tokens)
}

func TestEstimateCostZeroRequests(t *testing.T) {
	cost, tokens := EstimateCost(0)
	assert.Zero(t, cost)
	assert.Zero(t, tokens)
}

func TestEstimateCostEnvOverride(t *testing.T) {
	t.Setenv("GPT4O_BATCH_INPUT_USD", "5")
	t.Setenv("GPT4O_BATCH_OUTPUT_USD", "20")

	cost, _ := EstimateCost(1000)
	// 150k prompt tokens * $5/1M + 100k completion tokens * $20/1M.
	assert.InDelta(t, 0.75+2.0, cost, 1e-9)
}
