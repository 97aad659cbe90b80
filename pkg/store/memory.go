package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaia/cascata/pkg/models"
)

// MemoryStore is the in-memory InstanceStore implementation. Each instance
// carries its own mutex, so concurrent runs of different instances never
// contend while updates to one instance stay serialized.
type MemoryStore struct {
	logger *slog.Logger

	mu        sync.RWMutex
	instances map[string]*instanceRecord
}

type instanceRecord struct {
	mu    sync.Mutex
	state *models.WorkflowInstanceState
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		logger:    logger.With("module", "instance_store"),
		instances: make(map[string]*instanceRecord),
	}
}

// Create generates a fresh instance id and seeds a running instance at the
// definition's start stage.
func (s *MemoryStore) Create(ctx context.Context, definition *models.WorkflowDefinition, initialData map[string]any) (*models.WorkflowInstanceState, error) {
	if definition == nil {
		return nil, ErrNilDefinition
	}

	data := make(map[string]any, len(initialData))
	maps.Copy(data, initialData)

	now := time.Now().UTC()
	state := &models.WorkflowInstanceState{
		InstanceID:     generateInstanceID(),
		DefinitionID:   definition.ID,
		Status:         models.InstanceStatusRunning,
		CurrentStageID: definition.StartStageID,
		Data:           data,
		History:        []models.HistoryEntry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	s.instances[state.InstanceID] = &instanceRecord{state: state}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Created workflow instance",
		"instance_id", state.InstanceID,
		"definition_id", definition.ID,
		"start_stage_id", definition.StartStageID)

	return state.Clone(), nil
}

// Put inserts an instance loaded from a checkpoint. Inserting an id that is
// already present fails; resumed instances must not collide with live ones.
func (s *MemoryStore) Put(ctx context.Context, state *models.WorkflowInstanceState) error {
	if state == nil || state.InstanceID == "" {
		return ErrNilInstance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[state.InstanceID]; exists {
		return fmt.Errorf("instance %q: %w", state.InstanceID, ErrInstanceAlreadyExists)
	}

	s.instances[state.InstanceID] = &instanceRecord{state: state.Clone()}

	return nil
}

// Get returns a copy of the instance state for the given id.
func (s *MemoryStore) Get(_ context.Context, instanceID string) (*models.WorkflowInstanceState, error) {
	record, err := s.record(instanceID)
	if err != nil {
		return nil, err
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	return record.state.Clone(), nil
}

// Update applies mutate to the canonical state under the instance's lock and
// returns a copy of the result. Returning an error from mutate leaves the
// canonical state untouched.
func (s *MemoryStore) Update(_ context.Context, instanceID string, mutate func(*models.WorkflowInstanceState) error) (*models.WorkflowInstanceState, error) {
	record, err := s.record(instanceID)
	if err != nil {
		return nil, err
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	working := record.state.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}

	working.UpdatedAt = time.Now().UTC()
	record.state = working

	return working.Clone(), nil
}

func (s *MemoryStore) record(instanceID string) (*instanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("instance %q: %w", instanceID, ErrInstanceNotFound)
	}

	return record, nil
}

func generateInstanceID() string {
	return "inst-" + uuid.New().String()
}
