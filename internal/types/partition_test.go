package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentences(n int) []Sentence {
	out := make([]Sentence, n)
	for i := range out {
		out[i] = Sentence{ID: i + 1, Text: "s"}
	}
	return out
}

func TestValidateChunkPartition_Valid(t *testing.T) {
	chunks := []Chunk{
		{ID: 1, SentenceIDs: []int{1, 2}},
		{ID: 2, SentenceIDs: []int{3}},
		{ID: 3, SentenceIDs: []int{4, 5}, RelatedChunkIDs: []int{1}},
	}
	assert.NoError(t, ValidateChunkPartition(sentences(5), chunks))
}

func TestValidateChunkPartition_Errors(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
	}{
		{name: "gap", chunks: []Chunk{{ID: 1, SentenceIDs: []int{1, 2}}, {ID: 2, SentenceIDs: []int{4, 5}}}},
		{name: "overlap", chunks: []Chunk{{ID: 1, SentenceIDs: []int{1, 2, 3}}, {ID: 2, SentenceIDs: []int{3, 4, 5}}}},
		{name: "missing tail", chunks: []Chunk{{ID: 1, SentenceIDs: []int{1, 2, 3, 4}}}},
		{name: "empty chunk", chunks: []Chunk{{ID: 1, SentenceIDs: []int{1, 2, 3, 4, 5}}, {ID: 2}}},
		{name: "bad id", chunks: []Chunk{{ID: 2, SentenceIDs: []int{1, 2, 3, 4, 5}}}},
		{name: "forward reference", chunks: []Chunk{
			{ID: 1, SentenceIDs: []int{1, 2}, RelatedChunkIDs: []int{2}},
			{ID: 2, SentenceIDs: []int{3, 4, 5}},
		}},
		{name: "self reference", chunks: []Chunk{{ID: 1, SentenceIDs: []int{1, 2, 3, 4, 5}, RelatedChunkIDs: []int{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkPartition(sentences(5), tt.chunks)
			require.Error(t, err)
			var perr *PartitionError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "chunk", perr.Level)
		})
	}
}

func TestValidateSectionPartition(t *testing.T) {
	chunks := []Chunk{{ID: 1}, {ID: 2}, {ID: 3}}

	valid := []Section{
		{ID: 1, Order: 1, ChunkIDs: []int{1, 2}},
		{ID: 2, Order: 2, ChunkIDs: []int{3}},
	}
	assert.NoError(t, ValidateSectionPartition(chunks, valid))

	outOfOrder := []Section{
		{ID: 1, Order: 1, ChunkIDs: []int{2}},
		{ID: 2, Order: 2, ChunkIDs: []int{1, 3}},
	}
	assert.Error(t, ValidateSectionPartition(chunks, outOfOrder))

	badOrder := []Section{
		{ID: 1, Order: 2, ChunkIDs: []int{1, 2, 3}},
	}
	assert.Error(t, ValidateSectionPartition(chunks, badOrder))

	uncovered := []Section{{ID: 1, Order: 1, ChunkIDs: []int{1}}}
	assert.Error(t, ValidateSectionPartition(chunks, uncovered))

	assert.Error(t, ValidateSectionPartition(nil, nil))
}
