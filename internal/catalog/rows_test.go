package catalog

import (
	"testing"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRows(t *testing.T) {
	k := key("TD", "call")
	pt := &types.ProcessedTranscript{
		Source: types.TranscriptSource{Key: k, Path: "/x", Size: 99, ModTime: base},
		Sections: []types.Section{
			{ID: 1, Type: types.SectionTypeIntroduction, Name: "Intro", Summary: "Hi", Content: "A\n\nB", ChunkIDs: []int{1, 2}, Order: 1},
		},
		Chunks: []types.SectionedChunk{
			{Chunk: types.Chunk{ID: 1, SentenceIDs: []int{1}, Content: "A", Speaker: "Operator", Tags: []string{"x"}}, SectionID: 1, SectionName: "Intro", SectionType: types.SectionTypeIntroduction, SectionSummary: "Hi", SectionOrder: 1},
			{Chunk: types.Chunk{ID: 2, SentenceIDs: []int{2, 3}, Content: "B", RelatedChunkIDs: []int{1}, Embedding: []float32{1, 2}}, SectionID: 1, SectionName: "Intro", SectionType: types.SectionTypeIntroduction, SectionSummary: "Hi", SectionOrder: 2},
		},
	}

	sections, chunks := BuildRows(pt)
	require.Len(t, sections, 1)
	require.Len(t, chunks, 2)

	assert.Equal(t, k, sections[0].Key)
	assert.Equal(t, 2, sections[0].ChunkCount)
	assert.Equal(t, base.Truncate(time.Microsecond), sections[0].FileModified)
	assert.Equal(t, "A\n\nB", sections[0].SectionContent)

	assert.Equal(t, 2, chunks[1].ChunkID)
	assert.Equal(t, []int{2, 3}, chunks[1].SentenceIDs)
	assert.Equal(t, []int{1}, chunks[1].RelatedChunkIDs)
	assert.Equal(t, 2, chunks[1].SectionOrder)
	assert.Equal(t, "Operator", chunks[0].Speaker)
	assert.Equal(t, int64(99), chunks[0].FileSize)
}
