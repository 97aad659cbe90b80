// Package web provides the HTTP handlers for managing workflow definitions
// and running instances over REST.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/tmaia/cascata/pkg/definition"
	"github.com/tmaia/cascata/pkg/engine"
	"github.com/tmaia/cascata/pkg/registry"
	"github.com/tmaia/cascata/pkg/store"
)

type APIHandlers struct {
	logger    *slog.Logger
	registry  *registry.DefinitionRegistry
	engine    *engine.Engine
	instances store.InstanceStore
	loader    *definition.Loader
}

func NewAPIHandlers(
	logger *slog.Logger,
	definitionRegistry *registry.DefinitionRegistry,
	workflowEngine *engine.Engine,
	instances store.InstanceStore,
) *APIHandlers {
	return &APIHandlers{
		logger:    logger.With("module", "api_handlers"),
		registry:  definitionRegistry,
		engine:    workflowEngine,
		instances: instances,
		loader:    definition.NewLoader(logger),
	}
}

// GetDefinitions lists all registered workflow definitions.
func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	definitions := h.registry.GetAll()

	return c.JSON(fiber.Map{
		"definitions": definitions,
		"count":       len(definitions),
	})
}

// GetDefinition returns one workflow definition by id.
func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	def, ok := h.registry.Get(c.Params("id"))
	if !ok {
		return notFound(c, "workflow definition not found")
	}

	return c.JSON(def)
}

// CreateDefinition registers a new workflow definition from the request
// body. Definitions are immutable: re-posting an existing id yields 409.
func (h *APIHandlers) CreateDefinition(c fiber.Ctx) error {
	def, err := h.loader.Load(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}

	err = h.registry.Register(def)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

type runRequest struct {
	Data map[string]any `json:"data"`
}

// RunDefinition starts a run of the definition and blocks until the instance
// reaches a terminal state.
func (h *APIHandlers) RunDefinition(c fiber.Ctx) error {
	var req runRequest

	if len(c.Body()) > 0 {
		err := c.Bind().JSON(&req)
		if err != nil {
			return badRequest(c, "invalid request body: "+err.Error())
		}
	}

	state, err := h.engine.RunWorkflow(c.Context(), c.Params("id"), req.Data)
	if err != nil && state == nil {
		return handleEngineError(c, err)
	}

	// A failed run is still a completed request: the outcome lives in the
	// instance state.
	return c.Status(fiber.StatusCreated).JSON(state)
}

// GetInstance returns the current state of a workflow instance.
func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	state, err := h.instances.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(state)
}

// ResumeInstance resumes a checkpointed instance and blocks until it reaches
// a terminal state.
func (h *APIHandlers) ResumeInstance(c fiber.Ctx) error {
	state, err := h.engine.ResumeWorkflow(c.Context(), c.Params("id"))
	if err != nil && state == nil {
		return handleEngineError(c, err)
	}

	return c.JSON(state)
}

// HealthCheck reports service liveness.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
