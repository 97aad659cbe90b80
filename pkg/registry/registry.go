// Package registry stores immutable workflow definitions keyed by id.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tmaia/cascata/pkg/models"
)

// DefinitionRegistry holds registered workflow definitions. Definitions are
// write-once: registering an existing id fails and leaves the original
// untouched. The registry is safe to share read-only across engines.
type DefinitionRegistry struct {
	logger   *slog.Logger
	validate *validator.Validate

	mu          sync.RWMutex
	definitions map[string]*models.WorkflowDefinition
}

func NewDefinitionRegistry(logger *slog.Logger) *DefinitionRegistry {
	return &DefinitionRegistry{
		logger:      logger.With("module", "definition_registry"),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		definitions: make(map[string]*models.WorkflowDefinition),
	}
}

// Register validates and stores a definition. It fails with
// ErrDuplicateDefinition if the id is already taken.
func (r *DefinitionRegistry) Register(definition *models.WorkflowDefinition) error {
	if definition == nil {
		return ErrNilDefinition
	}

	if err := r.validate.Struct(definition); err != nil {
		return fmt.Errorf("definition %q is invalid: %w", definition.ID, err)
	}

	if err := definition.Validate(); err != nil {
		return fmt.Errorf("definition %q is invalid: %w", definition.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[definition.ID]; exists {
		return fmt.Errorf("definition %q: %w", definition.ID, ErrDuplicateDefinition)
	}

	r.definitions[definition.ID] = definition

	r.logger.Info("Registered workflow definition",
		"definition_id", definition.ID,
		"name", definition.Name,
		"stages", len(definition.Stages))

	return nil
}

// Get returns the definition for the given id, if registered.
func (r *DefinitionRegistry) Get(id string) (*models.WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definition, ok := r.definitions[id]

	return definition, ok
}

// GetAll returns all registered definitions ordered by id.
func (r *DefinitionRegistry) GetAll() []*models.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]*models.WorkflowDefinition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].ID < definitions[j].ID
	})

	return definitions
}
