// Package store manages per-run workflow instance state records.
package store

import (
	"context"

	"github.com/tmaia/cascata/pkg/models"
)

// InstanceStore owns the canonical copy of every instance's state. Create
// seeds a fresh running instance; Update applies a state transition under a
// per-instance lock so only one writer ever mutates a given instance id.
// Get and Create return deep copies so callers never alias the canonical
// record.
type InstanceStore interface {
	Create(ctx context.Context, definition *models.WorkflowDefinition, initialData map[string]any) (*models.WorkflowInstanceState, error)
	Get(ctx context.Context, instanceID string) (*models.WorkflowInstanceState, error)
	Update(ctx context.Context, instanceID string, mutate func(*models.WorkflowInstanceState) error) (*models.WorkflowInstanceState, error)

	// Put inserts a previously persisted instance, used when resuming from
	// a checkpoint into a fresh store.
	Put(ctx context.Context, state *models.WorkflowInstanceState) error
}
