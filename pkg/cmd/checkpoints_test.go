package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaia/cascata/pkg/checkpoint/file"
)

func TestNewCheckpointStore_Empty(t *testing.T) {
	t.Parallel()

	store, err := NewCheckpointStore(context.Background(), slog.Default(), "")
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestNewCheckpointStore_File(t *testing.T) {
	t.Parallel()

	store, err := NewCheckpointStore(context.Background(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)

	// Bare paths default to the file backend.
	store, err = NewCheckpointStore(context.Background(), slog.Default(), t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)
}

func TestParseCheckpointProvider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "redis", parseCheckpointProvider("redis://localhost:6379/0"))
	assert.Equal(t, "postgres", parseCheckpointProvider("postgres://localhost:5432/cascata"))
	assert.Equal(t, "postgresql", parseCheckpointProvider("postgresql://localhost:5432/cascata"))
	assert.Equal(t, "file", parseCheckpointProvider("file:///var/lib/cascata"))
	assert.Equal(t, "file", parseCheckpointProvider("./data"))
	assert.Equal(t, "file", parseCheckpointProvider("mongodb://localhost"))
}

func TestParseRedisURL(t *testing.T) {
	t.Parallel()

	config, err := parseRedisURL("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", config.Addr)
	assert.Equal(t, "secret", config.Password)
	assert.Equal(t, 2, config.DB)

	_, err = parseRedisURL("redis://localhost:6379/notanumber")
	assert.Error(t, err)
}
