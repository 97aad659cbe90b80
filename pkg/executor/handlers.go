package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmaia/cascata/pkg/models"
)

// HandlerExecutor dispatches stage execution over a type-keyed handler
// table, with optional per-stage overrides for stages whose behavior cannot
// be expressed by their type alone (typically decision stages).
//
// Defaults: input, process and output stages pass through, advancing to the
// first declared successor. Decision stages have no default; a decision
// handler must be registered for the stage id or the stage type.
type HandlerExecutor struct {
	logger  *slog.Logger
	byType  map[models.StageType]StageHandler
	byStage map[string]StageHandler
}

func NewHandlerExecutor(logger *slog.Logger) *HandlerExecutor {
	e := &HandlerExecutor{
		logger:  logger.With("module", "stage_executor"),
		byType:  make(map[models.StageType]StageHandler),
		byStage: make(map[string]StageHandler),
	}

	e.RegisterType(models.StageTypeInput, PassThroughHandler)
	e.RegisterType(models.StageTypeProcess, PassThroughHandler)
	e.RegisterType(models.StageTypeOutput, PassThroughHandler)

	return e
}

// RegisterType sets the handler for every stage of the given type.
func (e *HandlerExecutor) RegisterType(stageType models.StageType, handler StageHandler) {
	e.byType[stageType] = handler
}

// RegisterStage sets a handler for one specific stage id, taking precedence
// over the stage's type handler.
func (e *HandlerExecutor) RegisterStage(stageID string, handler StageHandler) {
	e.byStage[stageID] = handler
}

// ExecuteNode resolves the handler for the stage and runs it.
func (e *HandlerExecutor) ExecuteNode(ctx context.Context, stage *models.StageDef, state *models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
	handler, err := e.resolve(stage)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "Executing stage",
		"instance_id", state.InstanceID,
		"stage_id", stage.ID,
		"stage_type", stage.Type)

	result, err := handler(ctx, stage, state)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", stage.ID, err)
	}

	if result == nil {
		return nil, fmt.Errorf("stage %q: handler returned no result", stage.ID)
	}

	return result, nil
}

func (e *HandlerExecutor) resolve(stage *models.StageDef) (StageHandler, error) {
	if handler, ok := e.byStage[stage.ID]; ok {
		return handler, nil
	}

	if handler, ok := e.byType[stage.Type]; ok {
		return handler, nil
	}

	if stage.Type == models.StageTypeDecision {
		return nil, fmt.Errorf("decision stage %q: %w", stage.ID, ErrNoDecisionHandler)
	}

	return nil, fmt.Errorf("stage %q of type %q: %w", stage.ID, stage.Type, ErrNoHandler)
}

// PassThroughHandler succeeds without producing outputs and advances to the
// first declared successor, or completes the run when the stage declares
// none. It is the default behavior for non-decision stages.
func PassThroughHandler(_ context.Context, stage *models.StageDef, _ *models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
	result := &models.NodeExecutionResult{Success: true}
	if len(stage.NextStages) > 0 {
		result.NextStageID = stage.NextStages[0]
	}

	return result, nil
}

// DataKeyDecision builds a decision handler that routes on a string value in
// the instance's accumulated data: the value under key is taken verbatim as
// the next stage id. A missing or non-string value fails the stage.
func DataKeyDecision(key string) StageHandler {
	return func(_ context.Context, stage *models.StageDef, state *models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
		value, ok := state.Data[key].(string)
		if !ok || value == "" {
			return &models.NodeExecutionResult{
				Success: false,
				Error:   fmt.Sprintf("decision stage %s: data key %q missing or not a string", stage.ID, key),
			}, nil
		}

		return &models.NodeExecutionResult{Success: true, NextStageID: value}, nil
	}
}
