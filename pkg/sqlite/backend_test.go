package sqlite

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func TestOpen(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := Open(types.Config{DataDir: t.TempDir()}, WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	projects, err := store.Projects().List(false)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.NotEmpty(t, logs.String())
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := Open(types.Config{})
	assert.ErrorIs(t, err, types.ErrDataDirEmpty)
}

func TestNewBackend(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Open(types.Config{DataDir: t.TempDir(), DBFile: "work.db"}))
	require.NoError(t, b.Close())

	_, err := b.Projects().List(false)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}
