package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/requestcache"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

// usageService is wired at startup.
var usageService *usage.Service

// SetUsageService installs the token ledger service.
func SetUsageService(svc *usage.Service) {
	usageService = svc
}

// HandleGetUsage returns the tenant's token ledger state.
func HandleGetUsage(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	ledger, err := usageService.EnsureForTenant(tenant.ID)
	if err != nil {
		return respondError(c, err)
	}
	ledger, err = usageService.Remaining(tenant.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"tokens_used":       ledger.TokensUsed,
		"tokens_limit":      ledger.TokensLimit,
		"additional_tokens": ledger.AdditionalTokens,
		"tokens_remaining":  ledger.Remaining(),
		"reset_date":        ledger.ResetDate.UTC().Format(time.RFC3339),
	})
}
