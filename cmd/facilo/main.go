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

	"github.com/facilohq/facilo/app/repository"
	"github.com/facilohq/facilo/internal/pkg/billing"
	"github.com/facilohq/facilo/internal/pkg/cache"
	"github.com/facilohq/facilo/internal/pkg/database"
	"github.com/facilohq/facilo/internal/pkg/env"
	"github.com/facilohq/facilo/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	// Keep the plan catalog present on every boot. Prices and limits for
	// existing tiers are refreshed; provider IDs set by operators survive.
	if err := billing.NewServiceFromDB(database.GetDB()).SeedPlans(); err != nil {
		log.Fatalf("plan catalog seeding failed: %v", err)
	}

	// Find the project root so docs resolve when started from cmd/facilo.
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	basePath := "./"
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 104857600, // 100 MiB, documents upload through the body
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
