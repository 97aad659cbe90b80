// Package redis implements a checkpoint store backed by Redis, for
// deployments where several engine processes share checkpoints.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tmaia/cascata/pkg/checkpoint"
	"github.com/tmaia/cascata/pkg/models"
)

const keyPrefix = "cascata:checkpoints:"

// Config holds the Redis connection settings for a Store.
type Config struct {
	Addr     string
	Password string
	DB       int

	// TTL expires checkpoints after the given duration. Zero keeps them
	// until overwritten or deleted.
	TTL time.Duration
}

// Store keeps one JSON value per instance under cascata:checkpoints:<id>.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore connects to Redis and verifies the connection with a ping.
func NewStore(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("module", "redis_checkpoint_store")
	logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", config.DB)

	return &Store{
		client: client,
		ttl:    config.TTL,
		logger: logger,
	}, nil
}

func checkpointKey(instanceID string) string {
	return keyPrefix + instanceID
}

// Save stores the state, overwriting any previous checkpoint for the
// instance.
func (s *Store) Save(ctx context.Context, instanceID string, state *models.WorkflowInstanceState) error {
	if instanceID == "" {
		return errors.New("instance ID cannot be empty")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint for instance %s: %w", instanceID, err)
	}

	err = s.client.Set(ctx, checkpointKey(instanceID), data, s.ttl).Err()
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

	data, err := s.client.Get(ctx, checkpointKey(instanceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
