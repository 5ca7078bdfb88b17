package billing

import (
	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/internal/pkg/env"
)

// PlanForPriceID maps a provider price id to a plan type. Unknown price
// ids fall back to the trial plan.
func PlanForPriceID(priceID string) string {
	if priceID == "" {
		return models.PlanTrial
	}
	switch priceID {
	case env.GetEnv("BILLING_PRICE_STANDARD", ""):
		return models.PlanStandard
	case env.GetEnv("BILLING_PRICE_PRO", ""):
		return models.PlanPro
	}
	return models.PlanTrial
}
