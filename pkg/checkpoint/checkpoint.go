// Package checkpoint defines durable save/load of workflow instance state,
// enabling interrupted runs to resume.
package checkpoint

import (
	"context"
	"errors"

	"github.com/tmaia/cascata/pkg/models"
)

// Store persists instance state snapshots by instance id. Save must be
// durable and ideally atomic so an interrupted write never leaves a
// half-written checkpoint behind. Load returns ErrCheckpointNotFound when no
// checkpoint exists for the id.
type Store interface {
	Save(ctx context.Context, instanceID string, state *models.WorkflowInstanceState) error
	Load(ctx context.Context, instanceID string) (*models.WorkflowInstanceState, error)
}

// ErrCheckpointNotFound indicates no checkpoint exists for the given id.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// IsCheckpointNotFound checks if an error indicates a missing checkpoint.
func IsCheckpointNotFound(err error) bool {
	return errors.Is(err, ErrCheckpointNotFound)
}
