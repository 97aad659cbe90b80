package models

// NodeExecutionResult is what a stage executor reports back to the engine.
// Success=false and an executor error return are treated identically: the
// instance fails and no further stages run. NextStageID selects the
// successor; an empty NextStageID on success completes the run.
type NodeExecutionResult struct {
	Success     bool           `json:"success"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	NextStageID string         `json:"next_stage_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}
