package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/testutil"
	"github.com/alexwday/aegis-project-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processed(doc string, size int64, chunkCount int) *types.ProcessedTranscript {
	key := types.IdentityKey{BankName: "RBC", FiscalYear: 2024, FiscalQuarter: "Q1", DocumentName: doc}
	pt := &types.ProcessedTranscript{
		Source: types.TranscriptSource{
			Key:     key,
			Path:    "/data/" + doc + ".txt",
			Size:    size,
			ModTime: time.Date(2024, 2, 1, 9, 30, 0, 999999999, time.Local),
		},
	}
	ids := make([]int, chunkCount)
	for i := 0; i < chunkCount; i++ {
		ids[i] = i + 1
		pt.Sentences = append(pt.Sentences, types.Sentence{ID: i + 1, Text: "S."})
		pt.Chunks = append(pt.Chunks, types.SectionedChunk{
			Chunk:        types.Chunk{ID: i + 1, SentenceIDs: []int{i + 1}, Content: "S."},
			SectionID:    1,
			SectionName:  "Opening",
			SectionType:  types.SectionTypeIntroduction,
			SectionOrder: i + 1,
		})
	}
	pt.Sections = []types.Section{{ID: 1, Type: types.SectionTypeIntroduction, Name: "Opening", ChunkIDs: ids, Order: 1}}
	return pt
}

func TestSync_ReplacesRows(t *testing.T) {
	store := testutil.NewMemoryStore()
	sync := catalog.NewSynchronizer(store, 0, nil)
	ctx := context.Background()

	res, err := sync.Sync(ctx, processed("call", 100, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.DeletedRows)
	assert.Equal(t, 1, res.SectionRows)
	assert.Equal(t, 3, res.ChunkRows)

	pt := processed("call", 120, 2)
	res, err = sync.Sync(ctx, pt)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.DeletedRows)

	key := pt.Source.Key
	require.Len(t, store.Chunks[key], 2)
	require.Len(t, store.Sections[key], 1)
	row := store.Sections[key][0]
	assert.Equal(t, int64(120), row.FileSize)
	assert.Equal(t, time.UTC, row.FileModified.Location())
	assert.Equal(t, 0, row.FileModified.Nanosecond()%1000)
	assert.Equal(t, 2, row.ChunkCount)
	assert.Equal(t, 2, store.Commits)
}

func TestSync_InsertFailureRollsBack(t *testing.T) {
	store := testutil.NewMemoryStore()
	sync := catalog.NewSynchronizer(store, 0, nil)
	ctx := context.Background()

	original := processed("call", 100, 3)
	_, err := sync.Sync(ctx, original)
	require.NoError(t, err)
	before := store.Chunks[original.Source.Key]

	cause := errors.New("disk full")
	store.InsertChunkErr = cause
	_, err = sync.Sync(ctx, processed("call", 150, 5))
	require.Error(t, err)

	var serr *catalog.SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, catalog.OpInsertChunks, serr.Op)
	assert.Equal(t, original.Source.Key, serr.Key)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, before, store.Chunks[original.Source.Key])
	assert.Equal(t, int64(100), store.Sections[original.Source.Key][0].FileSize)
	assert.Equal(t, 1, store.Rollbacks)
}

func TestSync_FailurePoints(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*testutil.MemoryStore)
		wantOp string
	}{
		{"begin", func(s *testutil.MemoryStore) { s.BeginErr = errors.New("x") }, catalog.OpBegin},
		{"delete", func(s *testutil.MemoryStore) { s.DeleteErr = errors.New("x") }, catalog.OpDelete},
		{"sections", func(s *testutil.MemoryStore) { s.InsertSectionErr = errors.New("x") }, catalog.OpInsertSections},
		{"commit", func(s *testutil.MemoryStore) { s.CommitErr = errors.New("x") }, catalog.OpCommit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemoryStore()
			tt.inject(store)

			_, err := catalog.NewSynchronizer(store, 0, nil).Sync(context.Background(), processed("call", 1, 1))
			var serr *catalog.SyncError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantOp, serr.Op)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestSync_InvalidSource(t *testing.T) {
	pt := processed("call", 1, 1)
	pt.Source.Key.FiscalQuarter = "Q9"

	_, err := catalog.NewSynchronizer(testutil.NewMemoryStore(), 0, nil).Sync(context.Background(), pt)
	var serr *catalog.SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, catalog.OpValidate, serr.Op)
}

func TestRemove(t *testing.T) {
	store := testutil.NewMemoryStore()
	sync := catalog.NewSynchronizer(store, time.Second, nil)
	ctx := context.Background()

	keep := processed("keep", 1, 1)
	drop := processed("drop", 1, 2)
	_, err := sync.Sync(ctx, keep)
	require.NoError(t, err)
	_, err = sync.Sync(ctx, drop)
	require.NoError(t, err)

	n, err := sync.Remove(ctx, drop.Source.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []types.IdentityKey{keep.Source.Key}, store.Keys())
}

func TestSync_DiffRoundTrip(t *testing.T) {
	store := testutil.NewMemoryStore()
	sync := catalog.NewSynchronizer(store, 0, nil)
	ctx := context.Background()

	pt := processed("call", 42, 2)
	_, err := sync.Sync(ctx, pt)
	require.NoError(t, err)

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	plan := catalog.Diff([]types.TranscriptSource{pt.Source}, entries)
	assert.True(t, plan.Empty())
}
