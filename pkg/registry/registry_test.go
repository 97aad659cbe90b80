package registry_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaia/cascata/pkg/models"
	"github.com/tmaia/cascata/pkg/registry"
)

func testDefinition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:           id,
		Name:         "Test Workflow",
		Version:      "1.0.0",
		StartStageID: "s1",
		Stages: map[string]*models.StageDef{
			"s1": {ID: "s1", Name: "Input", Type: models.StageTypeInput, NextStages: []string{"s2"}},
			"s2": {ID: "s2", Name: "Output", Type: models.StageTypeOutput},
		},
	}
}

func TestDefinitionRegistry_Register(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefinitionRegistry(slog.Default())

	require.NoError(t, reg.Register(testDefinition("wf-1")))

	definition, ok := reg.Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, "Test Workflow", definition.Name)
}

func TestDefinitionRegistry_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefinitionRegistry(slog.Default())

	first := testDefinition("wf-1")
	require.NoError(t, reg.Register(first))

	second := testDefinition("wf-1")
	second.Name = "Replacement Attempt"

	err := reg.Register(second)
	require.Error(t, err)
	assert.True(t, registry.IsDuplicateDefinition(err))

	// The original registration is unaffected.
	definition, ok := reg.Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, "Test Workflow", definition.Name)
}

func TestDefinitionRegistry_RegisterInvalid(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefinitionRegistry(slog.Default())

	assert.Error(t, reg.Register(nil))

	broken := testDefinition("wf-broken")
	broken.StartStageID = "missing"
	assert.Error(t, reg.Register(broken))

	_, ok := reg.Get("wf-broken")
	assert.False(t, ok)
}

func TestDefinitionRegistry_GetAll(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefinitionRegistry(slog.Default())

	require.NoError(t, reg.Register(testDefinition("wf-b")))
	require.NoError(t, reg.Register(testDefinition("wf-a")))

	all := reg.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "wf-a", all[0].ID)
	assert.Equal(t, "wf-b", all[1].ID)
}

func TestDefinitionRegistry_GetMissing(t *testing.T) {
	t.Parallel()

	reg := registry.NewDefinitionRegistry(slog.Default())

	_, ok := reg.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, reg.GetAll())
}
