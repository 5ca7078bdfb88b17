package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/billing"
	"github.com/fudoline/fudoline/internal/pkg/env"
)

// billingService is wired at startup.
var billingService *billing.Service

// SetBillingService installs the billing webhook service.
func SetBillingService(svc *billing.Service) {
	billingService = svc
}

// HandleBillingWebhook receives payment-provider events. The raw body is
// verified against the endpoint secret before any decoding.
func HandleBillingWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")
	signature := c.Get("X-Billing-Signature")
	if !billing.VerifyWebhookSignature(c.Body(), signature, secret, billing.DefaultTolerance) {
		return respondError(c, apperr.Authorization("invalid webhook signature"))
	}

	var event billing.Event
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return respondError(c, apperr.Validation("malformed webhook payload"))
	}
	if event.ID == "" {
		return respondError(c, apperr.Validation("webhook event has no id"))
	}

	if err := billingService.HandleEvent(&event); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
