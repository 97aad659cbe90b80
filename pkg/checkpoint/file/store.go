// Package file implements a checkpoint store backed by JSON files, one per
// instance, suitable for single-node deployments and local development.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmaia/cascata/pkg/checkpoint"
	"github.com/tmaia/cascata/pkg/models"
)

// Store persists instance checkpoints under root/checkpoints/<instance-id>.json.
// Writes go through a temp file and rename so readers never observe a partial
// checkpoint.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// validateInstanceID validates that the instance ID is safe for file operations.
func (s *Store) validateInstanceID(instanceID string) error {
	if instanceID == "" {
		return errors.New("instance ID cannot be empty")
	}

	// Check for path traversal attempts
	if strings.Contains(instanceID, "..") || strings.Contains(instanceID, "/") || strings.Contains(instanceID, "\\") {
		return errors.New("instance ID contains invalid characters")
	}

	return nil
}

func (s *Store) checkpointsDir() string {
	return filepath.Join(s.root, "checkpoints")
}

// Save writes the state atomically, replacing any previous checkpoint for the
// instance.
func (s *Store) Save(_ context.Context, instanceID string, state *models.WorkflowInstanceState) error {
	if err := s.validateInstanceID(instanceID); err != nil {
		return fmt.Errorf("invalid instance ID: %w", err)
	}

	dir := s.checkpointsDir()

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint for instance %s: %w", instanceID, err)
	}

	tmp, err := os.CreateTemp(dir, instanceID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint file: %w", err)
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write checkpoint for instance %s: %w", instanceID, err)
	}

	finalPath := filepath.Join(dir, instanceID+".json")

	err = os.Rename(tmp.Name(), finalPath)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to commit checkpoint for instance %s: %w", instanceID, err)
	}

	return nil
}

// Load reads the latest checkpoint for the instance.
func (s *Store) Load(_ context.Context, instanceID string) (*models.WorkflowInstanceState, error) {
	if err := s.validateInstanceID(instanceID); err != nil {
		return nil, fmt.Errorf("invalid instance ID: %w", err)
	}

	filePath := filepath.Join(s.checkpointsDir(), instanceID+".json")

	data, err := os.ReadFile(filePath) // #nosec G304 -- filePath is validated and constructed safely
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("instance %s: %w", instanceID, checkpoint.ErrCheckpointNotFound)
		}

		return nil, fmt.Errorf("failed to read checkpoint for instance %s: %w", instanceID, err)
	}

	var state models.WorkflowInstanceState

	err = json.Unmarshal(data, &state)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint for instance %s: %w", instanceID, err)
	}

	return &state, nil
}

// ListInstanceIDs returns the ids of all checkpointed instances, for
// operator tooling. A missing checkpoints directory is an empty list.
func (s *Store) ListInstanceIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.checkpointsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return ids, nil
}
