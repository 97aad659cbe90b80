// Package events defines event types emitted over the run lifecycle.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/tmaia/cascata/pkg/models"
)

type EventType string

// Topic is the single topic run lifecycle events are published on.
const Topic = "cascata.run.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent    EventType = "run.started"
	RunCompletedEvent  EventType = "run.completed"
	RunFailedEvent     EventType = "run.failed"
	RunResumedEvent    EventType = "run.resumed"
	StageFinishedEvent EventType = "run.stage.finished"
	StageFailedEvent   EventType = "run.stage.failed"
)

type BaseEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	DefinitionID string    `json:"definition_id"`
	InstanceID   string    `json:"instance_id"`
}

type RunStarted struct {
	BaseEvent

	StartStageID string         `json:"start_stage_id"`
	InitialData  map[string]any `json:"initial_data,omitempty"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	StagesExecuted int            `json:"stages_executed"`
	Duration       time.Duration  `json:"duration"`
	FinalData      map[string]any `json:"final_data,omitempty"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	StageID        string        `json:"stage_id,omitempty"`
	Error          string        `json:"error"`
	StagesExecuted int           `json:"stages_executed"`
	Duration       time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunResumed struct {
	BaseEvent

	ResumeStageID  string `json:"resume_stage_id"`
	StagesRecorded int    `json:"stages_recorded"`
}

func (e RunResumed) GetType() EventType {
	return RunResumedEvent
}

type StageFinished struct {
	BaseEvent

	StageID     string         `json:"stage_id"`
	StageType   models.StageType `json:"stage_type"`
	NextStageID string         `json:"next_stage_id,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

func (e StageFinished) GetType() EventType {
	return StageFinishedEvent
}

type StageFailed struct {
	BaseEvent

	StageID   string           `json:"stage_id"`
	StageType models.StageType `json:"stage_type"`
	Error     string           `json:"error"`
	Duration  time.Duration    `json:"duration"`
}

func (e StageFailed) GetType() EventType {
	return StageFailedEvent
}

func NewBaseEvent(eventType EventType, definitionID, instanceID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		DefinitionID: definitionID,
		InstanceID:   instanceID,
	}
}
