package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_DefinesTables(t *testing.T) {
	schema := Schema()
	for _, table := range []string{TableSections, TableChunks, TableMonitor} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	for _, col := range []string{"run_uuid", "stage_name", "stage_start_time", "stage_end_time", "duration_ms",
		"api_calls", "prompt_tokens", "completion_tokens", "total_cost", "status", "error_message"} {
		assert.Contains(t, schema, col)
	}
	for _, col := range append(append([]string{}, sectionColumns...), chunkColumns...) {
		assert.True(t, strings.Contains(schema, col), "schema missing column %s", col)
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	backend, err := Open(ctx, "sqlite://"+path, 0)
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Migrate(ctx))
	entries, err := backend.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	plain, err := Open(ctx, filepath.Join(t.TempDir(), "other.sqlite"), 0)
	require.NoError(t, err)
	require.NoError(t, plain.Close())
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(context.Background(), "mysql://admin:hunter2@db:3306/x", 0)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Contains(t, err.Error(), "mysql://***@db:3306/x")

	_, err = Open(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestInt32s(t *testing.T) {
	assert.Nil(t, int32s(nil))
	assert.Equal(t, []int32{1, 2, 3}, int32s([]int{1, 2, 3}))
}
