// Package definition loads workflow definitions from JSON documents,
// validating them structurally against a JSON schema and semantically
// against the model rules before they reach the registry.
package definition

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/tmaia/cascata/pkg/models"
)

// definitionSchema is the structural contract for workflow definition
// documents. Semantic rules (start stage exists, stage key and id agree) are
// enforced by models.WorkflowDefinition.Validate.
const definitionSchema = `{
	"type": "object",
	"required": ["id", "name", "start_stage_id", "stages"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"version": {"type": "string"},
		"start_stage_id": {"type": "string", "minLength": 1},
		"stages": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"required": ["id", "name", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"type": {"type": "string", "enum": ["input", "process", "output", "decision"]},
					"inputs": {"type": "array", "items": {"type": "string"}},
					"outputs": {"type": "array", "items": {"type": "string"}},
					"next_stages": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

// Loader parses and validates workflow definition documents.
type Loader struct {
	logger   *slog.Logger
	validate *validator.Validate
	schema   gojsonschema.JSONLoader
}

func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{
		logger:   logger.With("module", "definition_loader"),
		validate: validator.New(),
		schema:   gojsonschema.NewStringLoader(definitionSchema),
	}
}

// Load parses a single definition document.
func (l *Loader) Load(data []byte) (*models.WorkflowDefinition, error) {
	err := l.validateSchema(data)
	if err != nil {
		return nil, err
	}

	var definition models.WorkflowDefinition

	err = json.Unmarshal(data, &definition)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
	}

	err = l.validate.Struct(&definition)
	if err != nil {
		return nil, fmt.Errorf("workflow definition failed validation: %w", err)
	}

	err = definition.Validate()
	if err != nil {
		return nil, fmt.Errorf("workflow definition %q is invalid: %w", definition.ID, err)
	}

	return &definition, nil
}

// LoadFile parses the definition document at path.
func (l *Loader) LoadFile(path string) (*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
	}

	definition, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("definition file %s: %w", path, err)
	}

	return definition, nil
}

// LoadDir parses every *.json file in dir, sorted by file name. It fails on
// the first invalid document rather than skipping it: a malformed definition
// in a definitions directory is an operator error, not noise.
func (l *Loader) LoadDir(dir string) ([]*models.WorkflowDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	definitions := make([]*models.WorkflowDefinition, 0, len(names))

	for _, name := range names {
		definition, err := l.LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		l.logger.Debug("Loaded workflow definition",
			"definition_id", definition.ID,
			"file", name,
			"stages", len(definition.Stages))

		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// validateSchema validates the raw document against the definition schema.
func (l *Loader) validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(l.schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to run schema validation: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
