// Package oracle defines the Decision Oracle contract: the five judgments the
// segmentation pipeline delegates to an external, fallible model.
package oracle

import (
	"context"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// Oracle supplies every natural-language judgment used by the pipeline.
// Implementations must be safe for concurrent use across transcripts.
type Oracle interface {
	// Assign decides whether the candidate sentence extends the open chunk.
	Assign(ctx context.Context, req *AssignRequest) (*AssignResult, error)
	// Tag labels a finalized chunk.
	Tag(ctx context.Context, req *TagRequest) (*TagResult, error)
	// Embed returns the embedding vector of a chunk's content.
	Embed(ctx context.Context, text string) ([]float32, error)
	// SectionBoundary decides whether a chunk opens a new section.
	SectionBoundary(ctx context.Context, req *BoundaryRequest) (*BoundaryResult, error)
	// Summarize writes the summary of a closed section.
	Summarize(ctx context.Context, req *SummarizeRequest) (string, error)
}

// ChunkView is the read-only projection of a chunk sent to the oracle.
type ChunkView struct {
	ID      int      `json:"chunk_id,omitempty"`
	Speaker string   `json:"speaker,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Topics  []string `json:"topics,omitempty"`
}

// ViewOf projects a chunk.
func ViewOf(c *types.Chunk) ChunkView {
	return ChunkView{ID: c.ID, Speaker: c.Speaker, Content: c.Content, Tags: c.Tags, Topics: c.Topics}
}

// AssignRequest is the bounded decision context for one sentence.
type AssignRequest struct {
	Key       types.IdentityKey
	Prior     []ChunkView      // most recent finalized chunks, oldest first
	Open      ChunkView        // the chunk the candidate may extend
	Candidate types.Sentence   // the sentence being decided
	Lookahead []types.Sentence // upcoming sentences, read-only
}

// AssignResult is the oracle's decision for one sentence.
type AssignResult struct {
	Extend            bool                `json:"extend"`
	RelatedChunkIDs   []int               `json:"related_chunk_ids"`
	AdditionalContext []types.ContextNote `json:"additional_context"`
}

// TagRequest asks for labels of one finalized chunk.
type TagRequest struct {
	Key   types.IdentityKey
	Chunk ChunkView
}

// TagResult holds chunk labels.
type TagResult struct {
	Tags   []string `json:"tags"`
	Topics []string `json:"topics"`
}

// SectionView describes the currently open section.
type SectionView struct {
	ID         int
	Type       types.SectionType
	Name       string
	ChunkCount int
}

// BoundaryRequest is the context for one section-boundary decision.
type BoundaryRequest struct {
	Key      types.IdentityKey
	Current  *SectionView // nil for the first chunk
	Recent   []ChunkView  // trailing chunks of the current section
	Chunk    ChunkView
	Position int // 1-based position of Chunk in the transcript
	Total    int
}

// BoundaryResult is the oracle's section decision for one chunk.
type BoundaryResult struct {
	NewSection  bool   `json:"new_section"`
	SectionType string `json:"section_type"`
	SectionName string `json:"section_name"`
}

// SummarizeRequest carries a closed section's chunks.
type SummarizeRequest struct {
	Key     types.IdentityKey
	Section SectionView
	Chunks  []ChunkView
}
