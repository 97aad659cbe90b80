package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaia/cascata/pkg/engine"
	"github.com/tmaia/cascata/pkg/eventbus"
	"github.com/tmaia/cascata/pkg/events"
	"github.com/tmaia/cascata/pkg/models"
)

// recordingEventBus captures published events for assertions.
type recordingEventBus struct {
	mu        sync.Mutex
	published []eventbus.Event
}

func (r *recordingEventBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.published = append(r.published, event)

	return nil
}

func (r *recordingEventBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }
func (r *recordingEventBus) Subscribe(context.Context) error                      { return nil }
func (r *recordingEventBus) Close() error                                         { return nil }
func (r *recordingEventBus) GenerateID() string                                   { return "test-id" }

func (r *recordingEventBus) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	eventTypes := make([]events.EventType, 0, len(r.published))
	for _, event := range r.published {
		eventTypes = append(eventTypes, event.GetType())
	}

	return eventTypes
}

func midRunCheckpoint(instanceID string) *models.WorkflowInstanceState {
	recordedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	return &models.WorkflowInstanceState{
		InstanceID:     instanceID,
		DefinitionID:   "wf-linear",
		Status:         models.InstanceStatusRunning,
		CurrentStageID: "s2",
		Data:           map[string]any{"data1": "v1"},
		History: []models.HistoryEntry{
			{StageID: "s1", Status: models.HistoryStatusSuccess, Timestamp: recordedAt},
		},
		CreatedAt: recordedAt,
		UpdatedAt: recordedAt,
	}
}

func TestResumeWorkflow_ContinuesFromCheckpoint(t *testing.T) {
	t.Parallel()

	checkpoints := newMemoryCheckpointStore()
	require.NoError(t, checkpoints.Save(context.Background(), "inst-crashed", midRunCheckpoint("inst-crashed")))

	// A fresh engine, as after a process restart.
	exec := newScriptedExecutor()
	exec.returns("s1", &models.NodeExecutionResult{Success: true, Outputs: map[string]any{"data1": "v1"}, NextStageID: "s2"})
	exec.returns("s2", &models.NodeExecutionResult{Success: true, Outputs: map[string]any{"data2": "v2"}, NextStageID: "s3"})
	exec.returns("s3", &models.NodeExecutionResult{Success: true})

	eng := newTestEngine(t, linearDefinition(), exec, engine.WithCheckpointStore(checkpoints))

	state, err := eng.ResumeWorkflow(context.Background(), "inst-crashed")
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusCompleted, state.Status)
	assert.Equal(t, 0, exec.callCount("s1"), "stages already recorded must not re-execute")
	assert.Equal(t, 1, exec.callCount("s2"))
	assert.Equal(t, 1, exec.callCount("s3"))

	require.Len(t, state.History, 3)
	assert.Equal(t, "s1", state.History[0].StageID)
	assert.Equal(t, midRunCheckpoint("inst-crashed").History[0].Timestamp, state.History[0].Timestamp,
		"the recorded history entry survives the resume untouched")

	assert.Equal(t, "v1", state.Data["data1"])
	assert.Equal(t, "v2", state.Data["data2"])

	// The terminal state was checkpointed too.
	final, err := checkpoints.Load(context.Background(), "inst-crashed")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, final.Status)
}

func TestResumeWorkflow_TerminalInstanceNotRunnable(t *testing.T) {
	t.Parallel()

	checkpoints := newMemoryCheckpointStore()
	done := midRunCheckpoint("inst-done")
	done.Status = models.InstanceStatusCompleted
	done.CurrentStageID = ""
	require.NoError(t, checkpoints.Save(context.Background(), "inst-done", done))

	eng := newTestEngine(t, linearDefinition(), newScriptedExecutor(), engine.WithCheckpointStore(checkpoints))

	state, err := eng.ResumeWorkflow(context.Background(), "inst-done")

	require.ErrorIs(t, err, engine.ErrInstanceNotRunnable)
	assert.Nil(t, state)
}

func TestResumeWorkflow_RequiresCheckpointStore(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, linearDefinition(), newScriptedExecutor())

	_, err := eng.ResumeWorkflow(context.Background(), "inst-any")

	require.ErrorIs(t, err, engine.ErrNoCheckpointStore)
}

func TestResumeWorkflow_MissingCheckpoint(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, linearDefinition(), newScriptedExecutor(),
		engine.WithCheckpointStore(newMemoryCheckpointStore()))

	_, err := eng.ResumeWorkflow(context.Background(), "inst-unknown")

	require.Error(t, err)
}

func TestResumeWorkflow_ConcurrentResumeIsBusy(t *testing.T) {
	t.Parallel()

	checkpoints := newMemoryCheckpointStore()
	require.NoError(t, checkpoints.Save(context.Background(), "inst-slow", midRunCheckpoint("inst-slow")))

	executing := make(chan struct{})
	release := make(chan struct{})

	exec := newScriptedExecutor()
	exec.on("s2", func(*models.WorkflowInstanceState) (*models.NodeExecutionResult, error) {
		close(executing)
		<-release

		return &models.NodeExecutionResult{Success: true}, nil
	})

	eng := newTestEngine(t, linearDefinition(), exec, engine.WithCheckpointStore(checkpoints))

	var (
		firstState *models.WorkflowInstanceState
		firstErr   error
		wg         sync.WaitGroup
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		firstState, firstErr = eng.ResumeWorkflow(context.Background(), "inst-slow")
	}()

	<-executing

	_, err := eng.ResumeWorkflow(context.Background(), "inst-slow")
	require.ErrorIs(t, err, engine.ErrInstanceBusy)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, models.InstanceStatusCompleted, firstState.Status)
}

func TestRunWorkflow_PublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	exec := newScriptedExecutor()
	exec.returns("s1", &models.NodeExecutionResult{Success: true, NextStageID: "s2"})
	exec.returns("s2", &models.NodeExecutionResult{Success: true, NextStageID: "s3"})
	exec.returns("s3", &models.NodeExecutionResult{Success: true})

	bus := &recordingEventBus{}
	eng := newTestEngine(t, linearDefinition(), exec, engine.WithEventBus(bus))

	_, err := eng.RunWorkflow(context.Background(), "wf-linear", nil)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.RunStartedEvent,
		events.StageFinishedEvent,
		events.StageFinishedEvent,
		events.StageFinishedEvent,
		events.RunCompletedEvent,
	}, bus.types())
}

func TestRunWorkflow_PublishesFailureEvents(t *testing.T) {
	t.Parallel()

	exec := newScriptedExecutor()
	exec.returns("s1", &models.NodeExecutionResult{Success: true, NextStageID: "s2"})
	exec.returns("s2", &models.NodeExecutionResult{Success: false, Error: "boom"})

	bus := &recordingEventBus{}
	eng := newTestEngine(t, linearDefinition(), exec, engine.WithEventBus(bus))

	_, err := eng.RunWorkflow(context.Background(), "wf-linear", nil)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.RunStartedEvent,
		events.StageFinishedEvent,
		events.StageFailedEvent,
		events.RunFailedEvent,
	}, bus.types())
}
