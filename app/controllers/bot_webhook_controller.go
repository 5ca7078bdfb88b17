package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fudoline/fudoline/internal/pkg/botreply"
)

// botResponder is wired at startup.
var botResponder *botreply.Responder

// SetBotResponder installs the messaging bot responder.
func SetBotResponder(responder *botreply.Responder) {
	botResponder = responder
}

// HandleBotWebhook receives message events from the bot platform. The
// platform retries non-2xx deliveries, so anything past signature
// verification is acknowledged.
func HandleBotWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Line-Signature")
	if err := botResponder.HandleWebhook(c.Context(), c.Body(), signature); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
