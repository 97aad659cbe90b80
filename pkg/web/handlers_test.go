package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaia/cascata/pkg/engine"
	"github.com/tmaia/cascata/pkg/executor"
	"github.com/tmaia/cascata/pkg/models"
	"github.com/tmaia/cascata/pkg/registry"
	"github.com/tmaia/cascata/pkg/store"
	"github.com/tmaia/cascata/pkg/web"
)

const pipelineDefinitionJSON = `{
	"id": "wf-pipeline",
	"name": "Data Pipeline",
	"start_stage_id": "extract",
	"stages": {
		"extract": {"id": "extract", "name": "Extract", "type": "input", "next_stages": ["transform"]},
		"transform": {"id": "transform", "name": "Transform", "type": "process", "next_stages": ["load"]},
		"load": {"id": "load", "name": "Load", "type": "output"}
	}
}`

func setupTestApp(t *testing.T) (*fiber.App, *registry.DefinitionRegistry) {
	t.Helper()

	logger := slog.Default()
	definitionRegistry := registry.NewDefinitionRegistry(logger)
	instances := store.NewMemoryStore(logger)
	workflowEngine := engine.NewEngine(
		logger,
		definitionRegistry,
		instances,
		executor.NewHandlerExecutor(logger),
	)

	handlers := web.NewAPIHandlers(logger, definitionRegistry, workflowEngine, instances)

	app := fiber.New()

	d := app.Group("/definitions")
	d.Get("/", handlers.GetDefinitions)
	d.Post("/", handlers.CreateDefinition)
	d.Get("/:id", handlers.GetDefinition)
	d.Post("/:id/run", handlers.RunDefinition)

	i := app.Group("/instances")
	i.Get("/:id", handlers.GetInstance)
	i.Post("/:id/resume", handlers.ResumeInstance)

	return app, definitionRegistry
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestAPIHandlers_CreateDefinition(t *testing.T) {
	t.Parallel()

	app, definitionRegistry := setupTestApp(t)

	resp := postJSON(t, app, "/definitions/", pipelineDefinitionJSON)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, ok := definitionRegistry.Get("wf-pipeline")
	assert.True(t, ok)

	// Definitions are immutable: same id again conflicts.
	resp = postJSON(t, app, "/definitions/", pipelineDefinitionJSON)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_CreateDefinitionRejectsInvalid(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/definitions/", `{"id": "wf-broken"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetDefinitions(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/definitions/", pipelineDefinitionJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/definitions/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var listing struct {
		Definitions []*models.WorkflowDefinition `json:"definitions"`
		Count       int                          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))

	assert.Equal(t, 1, listing.Count)
	require.Len(t, listing.Definitions, 1)
	assert.Equal(t, "wf-pipeline", listing.Definitions[0].ID)
}

func TestAPIHandlers_GetDefinition(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/definitions/", pipelineDefinitionJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/definitions/wf-pipeline", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/definitions/wf-missing", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_RunDefinition(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/definitions/", pipelineDefinitionJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/definitions/wf-pipeline/run", `{"data": {"source": "s3"}}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var state models.WorkflowInstanceState
	require.NoError(t, json.Unmarshal(body, &state))

	assert.Equal(t, models.InstanceStatusCompleted, state.Status)
	assert.NotEmpty(t, state.InstanceID)
	require.Len(t, state.History, 3)
	assert.Equal(t, "s3", state.Data["source"])

	// The finished instance is retrievable afterwards.
	req := httptest.NewRequest(http.MethodGet, "/instances/"+state.InstanceID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIHandlers_RunUnknownDefinition(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/definitions/wf-ghost/run", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetUnknownInstance(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/instances/inst-ghost", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ResumeWithoutCheckpointStore(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/instances/inst-1/resume", ``)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
