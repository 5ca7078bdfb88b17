package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/fudoline/fudoline/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Fudoline API",
		})
	})

	v1 := api.Group("/v1")

	// Listings
	v1.Get("/properties", controllers.HandleListProperties)
	v1.Post("/properties", controllers.HandleCreateProperty)
	v1.Get("/properties/template", controllers.HandleImportTemplate)
	v1.Post("/properties/import", controllers.HandleImportProperties)
	v1.Get("/properties/:id", controllers.HandleGetProperty)
	v1.Put("/properties/:id", controllers.HandleUpdateProperty)
	v1.Delete("/properties/:id", controllers.HandleDeleteProperty)

	// Batch description generation
	v1.Post("/generations", controllers.HandleSubmitGeneration)
	v1.Get("/generations", controllers.HandleListGenerations)
	v1.Get("/generations/status", controllers.HandleGenerationPendingStatus)
	v1.Get("/generations/:batchId", controllers.HandleGetGeneration)
	v1.Post("/generations/:batchId/results", controllers.HandleApplyGenerationResults)
	v1.Delete("/generations/:batchId", controllers.HandleCancelGeneration)

	// Token ledger
	v1.Get("/usage", controllers.HandleGetUsage)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
