package executor_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaia/cascata/pkg/executor"
	"github.com/tmaia/cascata/pkg/models"
)

func emptyState() *models.WorkflowInstanceState {
	return &models.WorkflowInstanceState{
		InstanceID: "inst-test",
		Status:     models.InstanceStatusRunning,
		Data:       map[string]any{},
	}
}

func TestHandlerExecutor_PassThroughDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	exec := executor.NewHandlerExecutor(slog.Default())

	stage := &models.StageDef{ID: "s1", Name: "Input", Type: models.StageTypeInput, NextStages: []string{"s2"}}

	result, err := exec.ExecuteNode(ctx, stage, emptyState())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "s2", result.NextStageID)

	terminal := &models.StageDef{ID: "s3", Name: "Output", Type: models.StageTypeOutput}

	result, err = exec.ExecuteNode(ctx, terminal, emptyState())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.NextStageID, "terminal stages complete the run")
}

func TestHandlerExecutor_DecisionRequiresHandler(t *testing.T) {
	t.Parallel()

	exec := executor.NewHandlerExecutor(slog.Default())
	stage := &models.StageDef{ID: "d1", Name: "Branch", Type: models.StageTypeDecision, NextStages: []string{"s2a", "s2b"}}

	_, err := exec.ExecuteNode(context.Background(), stage, emptyState())
	assert.ErrorIs(t, err, executor.ErrNoDecisionHandler)
}

func TestHandlerExecutor_StageOverrideWins(t *testing.T) {
	t.Parallel()

	exec := executor.NewHandlerExecutor(slog.Default())
	exec.RegisterStage("s1", func(_ context.Context, _ *models.StageDef, _ *models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
		return &models.NodeExecutionResult{
			Success:     true,
			Outputs:     map[string]any{"overridden": true},
			NextStageID: "elsewhere",
		}, nil
	})

	stage := &models.StageDef{ID: "s1", Name: "Input", Type: models.StageTypeInput, NextStages: []string{"s2"}}

	result, err := exec.ExecuteNode(context.Background(), stage, emptyState())
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", result.NextStageID)
	assert.Equal(t, true, result.Outputs["overridden"])
}

func TestHandlerExecutor_NilResultIsError(t *testing.T) {
	t.Parallel()

	exec := executor.NewHandlerExecutor(slog.Default())
	exec.RegisterStage("s1", func(_ context.Context, _ *models.StageDef, _ *models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
		return nil, nil
	})

	stage := &models.StageDef{ID: "s1", Name: "Input", Type: models.StageTypeInput}

	_, err := exec.ExecuteNode(context.Background(), stage, emptyState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result")
}

func TestDataKeyDecision(t *testing.T) {
	t.Parallel()

	handler := executor.DataKeyDecision("conditionData")
	stage := &models.StageDef{ID: "d1", Name: "Branch", Type: models.StageTypeDecision, NextStages: []string{"s2a", "s2b"}}

	state := emptyState()
	state.Data["conditionData"] = "s2a"

	result, err := handler(context.Background(), stage, state)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "s2a", result.NextStageID)

	result, err = handler(context.Background(), stage, emptyState())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "conditionData")
}
