// Package main provides the Cascata API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/tmaia/cascata/pkg/engine"
	"github.com/tmaia/cascata/pkg/registry"
	"github.com/tmaia/cascata/pkg/store"
	"github.com/tmaia/cascata/pkg/web"
)

type API struct {
	logger    *slog.Logger
	registry  *registry.DefinitionRegistry
	engine    *engine.Engine
	instances store.InstanceStore
}

func NewAPI(
	logger *slog.Logger,
	definitionRegistry *registry.DefinitionRegistry,
	workflowEngine *engine.Engine,
	instances store.InstanceStore,
) *API {
	return &API{
		logger:    logger,
		registry:  definitionRegistry,
		engine:    workflowEngine,
		instances: instances,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.registry, a.engine, a.instances)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cascata API")
	})

	d := app.Group("/definitions")
	d.Get("/", handlers.GetDefinitions)
	d.Post("/", handlers.CreateDefinition)
	d.Get("/:id", handlers.GetDefinition)
	d.Post("/:id/run", handlers.RunDefinition)

	i := app.Group("/instances")
	i.Get("/:id", handlers.GetInstance)
	i.Post("/:id/resume", handlers.ResumeInstance)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
