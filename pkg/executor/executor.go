// Package executor defines the stage executor contract the engine depends on
// and a default handler-table implementation.
package executor

import (
	"context"

	"github.com/tmaia/cascata/pkg/models"
)

// StageExecutor performs the work of a single stage. Implementations must
// not mutate the passed state; everything they produce flows back through
// the returned NodeExecutionResult. A returned error and a result with
// Success=false are treated identically by the engine, so retry logic
// belongs inside the executor, never in the engine.
//
// Decision stages evaluate their own branching condition and return the
// chosen NextStageID. Terminal stages return an empty NextStageID, which
// completes the run.
type StageExecutor interface {
	ExecuteNode(ctx context.Context, stage *models.StageDef, state *models.WorkflowInstanceState) (*models.NodeExecutionResult, error)
}

// StageHandler is the function form of a single stage's behavior.
type StageHandler func(ctx context.Context, stage *models.StageDef, state *models.WorkflowInstanceState) (*models.NodeExecutionResult, error)
