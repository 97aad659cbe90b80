// Package engine implements the workflow execution engine: it resolves
// definitions, creates or resumes instances, and steps them stage by stage
// until they reach a terminal status.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tmaia/cascata/pkg/checkpoint"
	"github.com/tmaia/cascata/pkg/eventbus"
	"github.com/tmaia/cascata/pkg/events"
	"github.com/tmaia/cascata/pkg/executor"
	"github.com/tmaia/cascata/pkg/models"
	"github.com/tmaia/cascata/pkg/otelhelper"
	"github.com/tmaia/cascata/pkg/registry"
	"github.com/tmaia/cascata/pkg/store"
)

// Engine drives workflow instances through their stage graph. Branching is
// entirely executor-driven: the engine never consults a stage's declared
// NextStages to pick a successor (unless strict edge validation is enabled,
// which only rejects, never chooses); it trusts the NextStageID returned by
// the executor for the stage just run.
//
// Within one instance, stages execute strictly sequentially. Different
// instances may run concurrently; the engine refuses to step the same
// instance id from two goroutines.
type Engine struct {
	logger        *slog.Logger
	registry      *registry.DefinitionRegistry
	store         store.InstanceStore
	executor      executor.StageExecutor
	checkpoints   checkpoint.Store
	eventBus      eventbus.EventBus
	tracer        trace.Tracer
	maxIterations int
	strictEdges   bool

	running sync.Map // instance id -> struct{}
}

func NewEngine(
	logger *slog.Logger,
	definitions *registry.DefinitionRegistry,
	instances store.InstanceStore,
	stageExecutor executor.StageExecutor,
	opts ...Option,
) *Engine {
	e := &Engine{
		logger:        logger.With("module", "execution_engine"),
		registry:      definitions,
		store:         instances,
		executor:      stageExecutor,
		maxIterations: DefaultMaxIterations,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RunWorkflow creates a fresh instance of the given definition and steps it
// to a terminal state. Per-stage failures and the iteration cap are recorded
// inside the returned instance, not returned as errors; only structural
// problems (unknown definition, dangling stage reference) produce an error.
func (e *Engine) RunWorkflow(ctx context.Context, definitionID string, initialData map[string]any) (*models.WorkflowInstanceState, error) {
	definition, ok := e.registry.Get(definitionID)
	if !ok {
		return nil, fmt.Errorf("definition %q: %w", definitionID, ErrDefinitionNotFound)
	}

	state, err := e.store.Create(ctx, definition, initialData)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance for definition %q: %w", definitionID, err)
	}

	e.publish(ctx, events.RunStarted{
		BaseEvent:    events.NewBaseEvent(events.RunStartedEvent, definition.ID, state.InstanceID),
		StartStageID: definition.StartStageID,
		InitialData:  initialData,
	})

	return e.run(ctx, definition, state)
}

// ResumeWorkflow loads a previously checkpointed instance and re-enters the
// stepping loop from its persisted current stage, reusing accumulated data
// and history. Resuming is idempotent with respect to recorded history: only
// stages at or after the persisted current stage execute.
func (e *Engine) ResumeWorkflow(ctx context.Context, instanceID string) (*models.WorkflowInstanceState, error) {
	if e.checkpoints == nil {
		return nil, ErrNoCheckpointStore
	}

	state, err := e.checkpoints.Load(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for instance %q: %w", instanceID, err)
	}

	if state.Status != models.InstanceStatusRunning {
		return nil, fmt.Errorf("instance %q has status %q: %w", instanceID, state.Status, ErrInstanceNotRunnable)
	}

	definition, ok := e.registry.Get(state.DefinitionID)
	if !ok {
		return nil, fmt.Errorf("definition %q: %w", state.DefinitionID, ErrDefinitionNotFound)
	}

	err = e.store.Put(ctx, state)
	if err != nil && !errors.Is(err, store.ErrInstanceAlreadyExists) {
		return nil, fmt.Errorf("failed to seed instance %q into store: %w", instanceID, err)
	}

	e.logger.InfoContext(ctx, "Resuming workflow instance",
		"instance_id", instanceID,
		"definition_id", state.DefinitionID,
		"current_stage_id", state.CurrentStageID,
		"history_entries", len(state.History))

	e.publish(ctx, events.RunResumed{
		BaseEvent:      events.NewBaseEvent(events.RunResumedEvent, state.DefinitionID, instanceID),
		ResumeStageID:  state.CurrentStageID,
		StagesRecorded: len(state.History),
	})

	return e.run(ctx, definition, state)
}

// run is the stepping loop. It owns the instance for its whole duration.
func (e *Engine) run(ctx context.Context, definition *models.WorkflowDefinition, state *models.WorkflowInstanceState) (*models.WorkflowInstanceState, error) {
	if _, loaded := e.running.LoadOrStore(state.InstanceID, struct{}{}); loaded {
		return nil, fmt.Errorf("instance %q: %w", state.InstanceID, ErrInstanceBusy)
	}
	defer e.running.Delete(state.InstanceID)

	logger := e.logger.With(
		"definition_id", definition.ID,
		"instance_id", state.InstanceID,
	)

	started := time.Now()

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
			attribute.String(otelhelper.DefinitionIDKey, definition.ID),
			attribute.String(otelhelper.InstanceIDKey, state.InstanceID),
		)
		defer span.End()
	}

	for iteration := 0; state.Status == models.InstanceStatusRunning; iteration++ {
		if iteration >= e.maxIterations {
			message := fmt.Sprintf("exceeded maximum iterations (%d)", e.maxIterations)
			logger.WarnContext(ctx, "Iteration cap reached, failing instance", "max_iterations", e.maxIterations)

			state = e.failInstance(ctx, state, state.CurrentStageID, message, started)

			return state, nil
		}

		currentStageID := state.CurrentStageID

		stage, ok := definition.Stage(currentStageID)
		if !ok {
			message := fmt.Sprintf("stage %q not found in definition %q", currentStageID, definition.ID)
			logger.ErrorContext(ctx, "Current stage missing from definition", "stage_id", currentStageID)

			state = e.failInstance(ctx, state, currentStageID, message, started)

			return state, fmt.Errorf("stage %q in definition %q: %w", currentStageID, definition.ID, ErrStageNotFound)
		}

		result, err := e.executeStage(ctx, stage, state)
		if err != nil || result == nil || !result.Success {
			message := failureMessage(result, err)
			logger.WarnContext(ctx, "Stage execution failed",
				"stage_id", stage.ID,
				"error", message)

			e.publish(ctx, events.StageFailed{
				BaseEvent: events.NewBaseEvent(events.StageFailedEvent, definition.ID, state.InstanceID),
				StageID:   stage.ID,
				StageType: stage.Type,
				Error:     message,
				Duration:  time.Since(started),
			})

			state = e.failInstance(ctx, state, stage.ID, message, started)

			return state, nil
		}

		if e.strictEdges && result.NextStageID != "" && !stage.HasNextStage(result.NextStageID) {
			message := fmt.Sprintf("stage %q returned undeclared next stage %q", stage.ID, result.NextStageID)
			logger.WarnContext(ctx, "Strict edge validation rejected successor",
				"stage_id", stage.ID,
				"next_stage_id", result.NextStageID)

			state = e.failInstance(ctx, state, stage.ID, message, started)

			return state, nil
		}

		state, err = e.applyResult(ctx, state, stage, result)
		if err != nil {
			return state, fmt.Errorf("failed to apply result of stage %q: %w", stage.ID, err)
		}

		e.publish(ctx, events.StageFinished{
			BaseEvent:   events.NewBaseEvent(events.StageFinishedEvent, definition.ID, state.InstanceID),
			StageID:     stage.ID,
			StageType:   stage.Type,
			NextStageID: result.NextStageID,
			Outputs:     result.Outputs,
			Duration:    time.Since(started),
		})
	}

	logger.InfoContext(ctx, "Workflow run finished",
		"status", state.Status,
		"stages_executed", len(state.History),
		"duration", time.Since(started))

	e.publish(ctx, events.RunCompleted{
		BaseEvent:      events.NewBaseEvent(events.RunCompletedEvent, definition.ID, state.InstanceID),
		StagesExecuted: len(state.History),
		Duration:       time.Since(started),
		FinalData:      state.Data,
	})

	return state, nil
}

// executeStage invokes the executor for a single stage, wrapped in a span
// when tracing is enabled.
func (e *Engine) executeStage(ctx context.Context, stage *models.StageDef, state *models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.stage",
			attribute.String(otelhelper.InstanceIDKey, state.InstanceID),
			attribute.String(otelhelper.StageIDKey, stage.ID),
			attribute.String(otelhelper.StageTypeKey, string(stage.Type)),
		)
		defer span.End()

		result, err := e.executor.ExecuteNode(ctx, stage, state)
		if err != nil {
			otelhelper.SetError(span, err,
				attribute.String(otelhelper.StageIDKey, stage.ID))
		}

		return result, err
	}

	return e.executor.ExecuteNode(ctx, stage, state)
}

// applyResult merges outputs, appends the success history entry and advances
// (or completes) the instance, then checkpoints the new state.
func (e *Engine) applyResult(ctx context.Context, state *models.WorkflowInstanceState, stage *models.StageDef, result *models.NodeExecutionResult) (*models.WorkflowInstanceState, error) {
	updated, err := e.store.Update(ctx, state.InstanceID, func(working *models.WorkflowInstanceState) error {
		working.MergeData(result.Outputs)
		working.AppendHistory(models.HistoryEntry{
			StageID:   stage.ID,
			Status:    models.HistoryStatusSuccess,
			Timestamp: time.Now().UTC(),
		})

		if result.NextStageID == "" {
			working.Status = models.InstanceStatusCompleted
			working.CurrentStageID = ""
		} else {
			working.CurrentStageID = result.NextStageID
		}

		return nil
	})
	if err != nil {
		return state, err
	}

	e.saveCheckpoint(ctx, updated)

	return updated, nil
}

// failInstance transitions the instance to failed, recording the failure in
// history while preserving all data accumulated so far.
func (e *Engine) failInstance(ctx context.Context, state *models.WorkflowInstanceState, stageID, message string, started time.Time) *models.WorkflowInstanceState {
	updated, err := e.store.Update(ctx, state.InstanceID, func(working *models.WorkflowInstanceState) error {
		working.AppendHistory(models.HistoryEntry{
			StageID:   stageID,
			Status:    models.HistoryStatusFailure,
			Error:     message,
			Timestamp: time.Now().UTC(),
		})
		working.Status = models.InstanceStatusFailed

		return nil
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to record instance failure",
			"instance_id", state.InstanceID,
			"error", err)

		// Fall back to the working copy so the caller still sees the failure.
		state.AppendHistory(models.HistoryEntry{
			StageID:   stageID,
			Status:    models.HistoryStatusFailure,
			Error:     message,
			Timestamp: time.Now().UTC(),
		})
		state.Status = models.InstanceStatusFailed
		updated = state
	}

	e.saveCheckpoint(ctx, updated)

	e.publish(ctx, events.RunFailed{
		BaseEvent:      events.NewBaseEvent(events.RunFailedEvent, updated.DefinitionID, updated.InstanceID),
		StageID:        stageID,
		Error:          message,
		StagesExecuted: len(updated.History),
		Duration:       time.Since(started),
	})

	return updated
}

// saveCheckpoint persists the state when a checkpoint store is configured.
// Checkpointing is durability, not correctness: a failed save is logged and
// the run continues.
func (e *Engine) saveCheckpoint(ctx context.Context, state *models.WorkflowInstanceState) {
	if e.checkpoints == nil {
		return
	}

	err := e.checkpoints.Save(ctx, state.InstanceID, state)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to save checkpoint",
			"instance_id", state.InstanceID,
			"error", err)
	}
}

// publish emits a lifecycle event when an event bus is configured.
func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	err := e.eventBus.Publish(ctx, keyForEvent(event), event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish run event",
			"event_type", event.GetType(),
			"error", err)
	}
}

func keyForEvent(event eventbus.Event) string {
	switch typed := event.(type) {
	case events.RunStarted:
		return typed.InstanceID
	case events.RunCompleted:
		return typed.InstanceID
	case events.RunFailed:
		return typed.InstanceID
	case events.RunResumed:
		return typed.InstanceID
	case events.StageFinished:
		return typed.InstanceID
	case events.StageFailed:
		return typed.InstanceID
	default:
		return string(event.GetType())
	}
}

func failureMessage(result *models.NodeExecutionResult, err error) string {
	if err != nil {
		return err.Error()
	}

	if result != nil && result.Error != "" {
		return result.Error
	}

	return "stage execution failed"
}
