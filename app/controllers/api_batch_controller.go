package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/generation"
	"github.com/fudoline/fudoline/internal/pkg/requestcache"
)

// generationService is wired at startup.
var generationService *generation.Service

// SetGenerationService installs the batch generation service.
func SetGenerationService(svc *generation.Service) {
	generationService = svc
}

// SubmitGenerationRequest optionally narrows a submission to specific
// listings. An empty list means every eligible listing.
type SubmitGenerationRequest struct {
	PropertyIDs []string `json:"property_ids"`
}

// HandleSubmitGeneration starts a batch description job.
func HandleSubmitGeneration(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	var payload SubmitGenerationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return respondError(c, apperr.Validation("malformed request body"))
		}
	}

	result, err := generationService.Submit(c.Context(), tenant.ID, payload.PropertyIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}

// HandleGenerationPendingStatus reports eligible listings and active jobs.
func HandleGenerationPendingStatus(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	status, err := generationService.GetPendingStatus(tenant.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// HandleListGenerations returns the tenant's job history.
func HandleListGenerations(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	offset, limit := pagination(c)
	history, err := generationService.History(tenant.ID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"generations": history, "offset": offset, "limit": limit})
}

// HandleGetGeneration returns one job, reconciled with the remote state.
func HandleGetGeneration(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	batch, err := generationService.GetStatus(c.Context(), tenant.ID, c.Params("batchId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(batch)
}

// HandleApplyGenerationResults writes completed results to the listings.
func HandleApplyGenerationResults(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	result, err := generationService.ApplyResults(c.Context(), tenant.ID, c.Params("batchId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleCancelGeneration cancels an active job.
func HandleCancelGeneration(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	batch, err := generationService.Cancel(c.Context(), tenant.ID, c.Params("batchId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(batch)
}
