package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fudoline/fudoline/app/controllers"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/billing"
	"github.com/fudoline/fudoline/internal/pkg/botreply"
	"github.com/fudoline/fudoline/internal/pkg/cache"
	"github.com/fudoline/fudoline/internal/pkg/csvarchive"
	"github.com/fudoline/fudoline/internal/pkg/csvimport"
	"github.com/fudoline/fudoline/internal/pkg/database"
	"github.com/fudoline/fudoline/internal/pkg/env"
	"github.com/fudoline/fudoline/internal/pkg/generation"
	"github.com/fudoline/fudoline/internal/pkg/openaibatch"
	"github.com/fudoline/fudoline/internal/pkg/router"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	factory := repository.InitGlobalFactory(database.GetDB())
	wireServices(factory)

	app := fiber.New(fiber.Config{
		BodyLimit: csvimport.MaxUploadSize + 1024*1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	if basePath := findProjectRoot(); basePath != "" {
		openAPICfg := swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}
		app.Use(swagger.New(openAPICfg))
	}

	// ROUTER
	router.InstallRouter(app)

	return app
}

// wireServices builds the service graph on top of the repositories and
// hands the instances to the controllers.
func wireServices(factory *repository.Factory) {
	usageSvc := usage.NewService(factory.GetUsageTokenRepository())
	controllers.SetUsageService(usageSvc)

	batchClient, err := openaibatch.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize batch API client: %v", err)
	}
	controllers.SetGenerationService(generation.NewService(
		factory.GetBatchGenerationRepository(),
		factory.GetPropertyRepository(),
		usageSvc,
		batchClient,
	))

	controllers.SetBotResponder(botreply.NewResponder(
		factory.GetBotChannelRepository(),
		factory.GetPropertyRepository(),
		usageSvc,
		batchClient,
		botreply.NewReplySender(),
		botreply.NewCacheHistory(),
	))

	controllers.SetBillingService(billing.NewService(factory.GetSubscriptionRepository(), usageSvc))

	archiveCfg, err := csvarchive.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid archival configuration: %v", err)
	}
	if archiveCfg.IsEnabled() {
		archiveClient, err := csvarchive.NewClient(archiveCfg)
		if err != nil {
			log.Fatalf("Failed to initialize archival client: %v", err)
		}
		controllers.SetArchiveClient(archiveClient)
	}
}

// findProjectRoot locates the repo root so the OpenAPI file resolves when
// running from cmd/fudoline or the root.
func findProjectRoot() string {
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	return ""
}
