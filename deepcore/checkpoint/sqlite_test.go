package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	state := map[string]any{
		"run_id":   "run-1",
		"pipeline": "feature-delivery",
		"artifacts": map[string]any{
			"requirements": map[string]any{"output": "the requirements", "iterations": float64(2)},
		},
	}
	require.NoError(t, store.Save(ctx, "run-1", state))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "feature-delivery", loaded["pipeline"])
	artifacts := loaded["artifacts"].(map[string]any)
	assert.Contains(t, artifacts, "requirements")
}

func TestSQLiteSaveOverwrites(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "run-1", map[string]any{"iteration": float64(1)}))
	require.NoError(t, store.Save(ctx, "run-1", map[string]any{"iteration": float64(2)}))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), loaded["iteration"])

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestSQLiteLoadMissing(t *testing.T) {
	store := newSQLiteStore(t)
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDelete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "run-1", map[string]any{"a": "b"}))
	require.NoError(t, store.Delete(ctx, "run-1"))

	_, err := store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing run is not an error.
	assert.NoError(t, store.Delete(ctx, "run-1"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", map[string]any{"x": 1}))
	require.NoError(t, store.Save(ctx, "b", map[string]any{"x": 2}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded["x"])

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
