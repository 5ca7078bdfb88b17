package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/env"
)

// respondError maps an application error to its HTTP representation.
// Internal causes only leak into the response in dev.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Resource not found"})
		}
		log.Errorf("[API] unhandled error: %v", err)
		payload := fiber.Map{"error": "internal_server_error", "message": "Something went wrong"}
		if env.IsDev() {
			payload["details"] = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(payload)
	}

	status := fiber.StatusInternalServerError
	code := "internal_server_error"
	switch appErr.Kind {
	case apperr.KindValidation:
		status, code = fiber.StatusBadRequest, "validation_error"
	case apperr.KindConflict:
		status, code = fiber.StatusConflict, "conflict"
	case apperr.KindNotFound:
		status, code = fiber.StatusNotFound, "not_found"
	case apperr.KindAuthorization:
		status, code = fiber.StatusUnauthorized, "unauthorized"
	case apperr.KindQuotaExceeded:
		status, code = fiber.StatusTooManyRequests, "quota_exceeded"
	case apperr.KindUpstream:
		status, code = fiber.StatusBadGateway, "upstream_error"
	}

	payload := fiber.Map{"error": code, "message": appErr.Message}
	if env.IsDev() && appErr.Cause != nil {
		payload["details"] = appErr.Cause.Error()
	}
	return c.Status(status).JSON(payload)
}

// pagination reads offset/limit query params with sane bounds.
func pagination(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit = c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}
