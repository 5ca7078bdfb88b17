package openaibatch

import (
	"strconv"

	"github.com/fudoline/fudoline/internal/pkg/env"
)

// Average token counts observed for a single description request. Used for
// the pre-submit cost estimate shown to the tenant.
const (
	avgPromptTokens     = 150
	avgCompletionTokens = 100
)

// EstimateCost returns the projected USD cost and token usage for a batch
// of the given request count, at the configured batch-tier rates per one
// million tokens.
func EstimateCost(requestCount int) (costUSD float64, totalTokens int64) {
	inputRate := envFloat("GPT4O_BATCH_INPUT_USD", 2.5)
	outputRate := envFloat("GPT4O_BATCH_OUTPUT_USD", 10)

	inputTokens := int64(requestCount) * avgPromptTokens
	outputTokens := int64(requestCount) * avgCompletionTokens

	costUSD = float64(inputTokens)/1e6*inputRate + float64(outputTokens)/1e6*outputRate
	return costUSD, inputTokens + outputTokens
}

func envFloat(key string, fallback float64) float64 {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
