// Package models defines the core domain models for graph-based workflow execution.
package models

import (
	"errors"
	"fmt"
)

// StageType classifies a stage within a workflow graph.
type StageType string

const (
	StageTypeInput    StageType = "input"    // Seeds or validates run input data
	StageTypeProcess  StageType = "process"  // Transforms accumulated data
	StageTypeOutput   StageType = "output"   // Produces the run's results
	StageTypeDecision StageType = "decision" // Selects the next stage at runtime
)

// StageTypes lists every valid stage type.
var StageTypes = []StageType{StageTypeInput, StageTypeProcess, StageTypeOutput, StageTypeDecision}

func (t StageType) Valid() bool {
	switch t {
	case StageTypeInput, StageTypeProcess, StageTypeOutput, StageTypeDecision:
		return true
	default:
		return false
	}
}

// StageDef describes a single stage of a workflow graph. NextStages is
// advisory: it documents the intended edges, but the stage executor decides
// the actual successor at runtime.
type StageDef struct {
	ID         string    `json:"id"          validate:"required"`
	Name       string    `json:"name"        validate:"required"`
	Type       StageType `json:"type"        validate:"required,oneof=input process output decision"`
	Inputs     []string  `json:"inputs,omitempty"`
	Outputs    []string  `json:"outputs,omitempty"`
	NextStages []string  `json:"next_stages,omitempty"`
}

// HasNextStage reports whether stageID is one of the declared successors.
func (s *StageDef) HasNextStage(stageID string) bool {
	for _, next := range s.NextStages {
		if next == stageID {
			return true
		}
	}

	return false
}

// WorkflowDefinition is an immutable workflow graph. Once registered it is
// never modified; re-registration under the same id is rejected.
type WorkflowDefinition struct {
	ID           string               `json:"id"             validate:"required"`
	Name         string               `json:"name"           validate:"required,min=3"`
	Version      string               `json:"version"`
	StartStageID string               `json:"start_stage_id" validate:"required"`
	Stages       map[string]*StageDef `json:"stages"         validate:"required,min=1"`
}

// Stage returns the stage definition for the given id, if present.
func (d *WorkflowDefinition) Stage(stageID string) (*StageDef, bool) {
	stage, ok := d.Stages[stageID]

	return stage, ok
}

// Validate checks the semantic invariants that struct tags cannot express:
// the start stage must exist, map keys must agree with stage ids, and
// every stage must carry a valid type.
func (d *WorkflowDefinition) Validate() error {
	if len(d.Stages) == 0 {
		return errors.New("workflow definition has no stages")
	}

	if _, ok := d.Stages[d.StartStageID]; !ok {
		return fmt.Errorf("start stage %q not present in stages", d.StartStageID)
	}

	for key, stage := range d.Stages {
		if stage == nil {
			return fmt.Errorf("stage %q is nil", key)
		}

		if stage.ID != key {
			return fmt.Errorf("stage map key %q does not match stage id %q", key, stage.ID)
		}

		if !stage.Type.Valid() {
			return fmt.Errorf("stage %q has invalid type %q", key, stage.Type)
		}
	}

	return nil
}
