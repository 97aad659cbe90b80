// Package postgresql implements a checkpoint store backed by PostgreSQL,
// with the full instance state stored as jsonb.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/tmaia/cascata/pkg/checkpoint"
	"github.com/tmaia/cascata/pkg/checkpoint/sqlbase"
	"github.com/tmaia/cascata/pkg/models"
)

// Store keeps one row per instance in the checkpoints table. Saves upsert,
// so the table always holds the latest checkpoint.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to PostgreSQL and runs pending migrations.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgresql_checkpoint_store")

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

// Save upserts the checkpoint row for the instance.
func (s *Store) Save(ctx context.Context, instanceID string, state *models.WorkflowInstanceState) error {
	if instanceID == "" {
		return errors.New("instance ID cannot be empty")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint for instance %s: %w", instanceID, err)
	}

	query := `
		INSERT INTO checkpoints (instance_id, definition_id, status, state, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (instance_id)
		DO UPDATE SET definition_id = EXCLUDED.definition_id,
		              status = EXCLUDED.status,
		              state = EXCLUDED.state,
		              updated_at = NOW()
	`

	_, err = s.db.ExecContext(ctx, query, instanceID, state.DefinitionID, string(state.Status), data)
	if err != nil {
		return fmt.Errorf("failed to store checkpoint for instance %s: %w", instanceID, err)
	}

	return nil
}

// Load reads the latest checkpoint for the instance.
func (s *Store) Load(ctx context.Context, instanceID string) (*models.WorkflowInstanceState, error) {
	if instanceID == "" {
		return nil, errors.New("instance ID cannot be empty")
	}

	var data []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM checkpoints WHERE instance_id = $1", instanceID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
