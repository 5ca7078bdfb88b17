package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fudoline/fudoline/app/controllers"
)

type WebhookRouter struct {
}

// InstallRouter registers inbound webhook endpoints. Both verify their own
// signatures against the raw body, so no auth middleware sits in front.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	webhooks := app.Group("/api/v1/webhooks")
	webhooks.Post("/bot", controllers.HandleBotWebhook)
	webhooks.Post("/billing", controllers.HandleBillingWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
