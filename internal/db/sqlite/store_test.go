package sqlite

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/llm"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func transcript(doc string, size int64, chunks int) *types.ProcessedTranscript {
	pt := &types.ProcessedTranscript{
		Source: types.TranscriptSource{
			Key:     types.IdentityKey{BankName: "RBC", FiscalYear: 2024, FiscalQuarter: "Q3", DocumentName: doc},
			Path:    "/data/" + doc + ".txt",
			Size:    size,
			ModTime: time.Date(2024, 8, 28, 7, 0, 0, 123456789, time.UTC),
		},
	}
	ids := make([]int, chunks)
	for i := 0; i < chunks; i++ {
		ids[i] = i + 1
		pt.Chunks = append(pt.Chunks, types.SectionedChunk{
			Chunk: types.Chunk{
				ID:                i + 1,
				SentenceIDs:       []int{2*i + 1, 2*i + 2},
				Speaker:           "CFO",
				Content:           fmt.Sprintf("Chunk %d.", i+1),
				Tags:              []string{"capital"},
				Topics:            []string{"Capital ratios"},
				AdditionalContext: []types.ContextNote{{SourceSentenceID: 2*i + 1, Text: "CET1 means common equity tier 1"}},
				Embedding:         []float32{0.25, -1, 3.5},
			},
			SectionID:      1,
			SectionName:    "Results",
			SectionType:    types.SectionTypeFinancialResults,
			SectionSummary: "Strong quarter.",
			SectionOrder:   i + 1,
		})
		if i > 0 {
			pt.Chunks[i].RelatedChunkIDs = []int{i}
		}
	}
	pt.Sections = []types.Section{{
		ID: 1, Type: types.SectionTypeFinancialResults, Name: "Results", Summary: "Strong quarter.",
		Content: "all", ChunkIDs: ids, Order: 1,
	}}
	return pt
}

func TestStore_SyncRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	pt := transcript("call", 500, 3)

	_, err := catalog.NewSynchronizer(store, 0, nil).Sync(ctx, pt)
	require.NoError(t, err)

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pt.Source.Key, entries[0].Key)
	assert.Equal(t, int64(500), entries[0].FileSize)
	assert.Equal(t, catalog.NormalizeTime(pt.Source.ModTime), entries[0].FileModified)

	chunks, err := store.ChunkRows(ctx, pt.Source.Key)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	c := chunks[1]
	assert.Equal(t, 2, c.ChunkID)
	assert.Equal(t, []int{3, 4}, c.SentenceIDs)
	assert.Equal(t, []int{1}, c.RelatedChunkIDs)
	assert.Equal(t, []string{"capital"}, c.Tags)
	assert.Equal(t, []float32{0.25, -1, 3.5}, c.Embedding)
	assert.Equal(t, "CET1 means common equity tier 1", c.AdditionalContext[0].Text)
	assert.Equal(t, types.SectionTypeFinancialResults, c.SectionType)
	assert.Equal(t, 2, c.SectionOrder)
	assert.Nil(t, chunks[0].RelatedChunkIDs)

	sections, err := store.SectionRows(ctx, pt.Source.Key)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, 3, sections[0].ChunkCount)

	plan := catalog.Diff([]types.TranscriptSource{pt.Source}, entries)
	assert.True(t, plan.Empty())
}

func TestStore_FailedInsertRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	syncer := catalog.NewSynchronizer(store, 0, nil)

	_, err := syncer.Sync(ctx, transcript("call", 500, 3))
	require.NoError(t, err)

	broken := transcript("call", 900, 4)
	broken.Chunks[3].ID = 3 // violates the unique chunk id after the delete ran
	_, err = syncer.Sync(ctx, broken)
	var serr *catalog.SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, catalog.OpInsertChunks, serr.Op)

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(500), entries[0].FileSize)

	chunks, err := store.ChunkRows(ctx, broken.Source.Key)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestStore_UnencodableEmbeddingRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	syncer := catalog.NewSynchronizer(store, 0, nil)

	_, err := syncer.Sync(ctx, transcript("call", 500, 3))
	require.NoError(t, err)

	broken := transcript("call", 900, 3)
	broken.Chunks[1].Embedding = []float32{0.5, float32(math.NaN())}
	_, err = syncer.Sync(ctx, broken)
	var serr *catalog.SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, catalog.OpInsertChunks, serr.Op)
	assert.Contains(t, err.Error(), "encode chunk 2")

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(500), entries[0].FileSize)

	chunks, err := store.ChunkRows(ctx, broken.Source.Key)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []float32{0.25, -1, 3.5}, chunks[1].Embedding)
}

func TestStore_ConcurrentSyncsKeepKeysSeparate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	syncer := catalog.NewSynchronizer(store, 0, nil)

	a := transcript("a", 1, 2)
	b := transcript("b", 2, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pt := range []*types.ProcessedTranscript{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = syncer.Sync(ctx, pt)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	ca, err := store.ChunkRows(ctx, a.Source.Key)
	require.NoError(t, err)
	cb, err := store.ChunkRows(ctx, b.Source.Key)
	require.NoError(t, err)
	assert.Len(t, ca, 2)
	assert.Len(t, cb, 5)

	n, err := syncer.Remove(ctx, a.Source.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, b.Source.Key, entries[0].Key)
}

func TestStore_StageRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	m := monitor.New("8c2a7a1e-0f7e-4c55-9d59-2b1f4a6f3c11", monitor.Pricing{PromptPer1K: 1}, nil)
	span := m.Start("RBC/2024/Q3/call", monitor.StageChunkAssembly)
	span.RecordUsage(llm.Usage{Calls: 4, PromptTokens: 2000, CompletionTokens: 100})
	_, err := span.End(monitor.StatusFailure, fmt.Errorf("oracle assign failed"))
	require.NoError(t, err)
	_, err = m.Close(monitor.StatusFailure, nil)
	require.NoError(t, err)
	require.NoError(t, m.Flush(ctx, store))

	records, err := store.ListStageRecords(ctx, m.RunID())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, monitor.StageChunkAssembly, records[0].Stage)
	assert.Equal(t, 4, records[0].Calls)
	assert.Equal(t, 2000, records[0].PromptTokens)
	assert.InDelta(t, 2.0, records[0].Cost, 1e-9)
	assert.Equal(t, monitor.StatusFailure, records[0].Status)
	assert.Equal(t, "oracle assign failed", records[0].Error)
	assert.Equal(t, monitor.StageRun, records[1].Stage)
	assert.Empty(t, records[1].Error)

	none, err := store.ListStageRecords(ctx, "other-run")
	require.NoError(t, err)
	assert.Empty(t, none)
}
