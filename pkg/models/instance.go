package models

import (
	"maps"
	"time"
)

// InstanceStatus represents the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusRunning   InstanceStatus = "running"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusFailed    InstanceStatus = "failed"
)

// HistoryStatus records how a single stage execution ended.
type HistoryStatus string

const (
	HistoryStatusSuccess HistoryStatus = "success"
	HistoryStatusFailure HistoryStatus = "failure"
)

// HistoryEntry is one record in an instance's append-only execution history.
type HistoryEntry struct {
	StageID   string        `json:"stage_id"`
	Status    HistoryStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// WorkflowInstanceState is the per-run state of a workflow execution. It is
// created when a run starts, mutated only by the execution engine while the
// run steps, and becomes immutable once Status reaches a terminal value.
// CurrentStageID is set while running and cleared on completion. Data
// accumulates monotonically; History is append-only and strictly ordered by
// actual execution.
type WorkflowInstanceState struct {
	InstanceID     string         `json:"instance_id"`
	DefinitionID   string         `json:"definition_id"`
	Status         InstanceStatus `json:"status"`
	CurrentStageID string         `json:"current_stage_id,omitempty"`
	Data           map[string]any `json:"data"`
	History        []HistoryEntry `json:"history"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Terminal reports whether the instance reached a final status.
func (s *WorkflowInstanceState) Terminal() bool {
	return s.Status == InstanceStatusCompleted || s.Status == InstanceStatusFailed
}

// MergeData merges outputs into the accumulated data. Later keys overwrite
// earlier ones of the same name; nothing is ever removed.
func (s *WorkflowInstanceState) MergeData(outputs map[string]any) {
	if len(outputs) == 0 {
		return
	}

	if s.Data == nil {
		s.Data = make(map[string]any, len(outputs))
	}

	maps.Copy(s.Data, outputs)
}

// AppendHistory appends an execution record and bumps UpdatedAt.
func (s *WorkflowInstanceState) AppendHistory(entry HistoryEntry) {
	s.History = append(s.History, entry)
	s.UpdatedAt = entry.Timestamp
}

// Clone returns a deep copy of the instance state so callers can hold a
// snapshot without aliasing the store's canonical copy.
func (s *WorkflowInstanceState) Clone() *WorkflowInstanceState {
	if s == nil {
		return nil
	}

	clone := *s

	if s.Data != nil {
		clone.Data = make(map[string]any, len(s.Data))
		maps.Copy(clone.Data, s.Data)
	}

	if s.History != nil {
		clone.History = make([]HistoryEntry, len(s.History))
		copy(clone.History, s.History)
	}

	return &clone
}
