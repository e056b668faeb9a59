package catalog

import (
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// SectionRow is one row of transcript_sections.
type SectionRow struct {
	Key            types.IdentityKey
	FileSize       int64
	FileModified   time.Time
	SectionID      int
	SectionType    types.SectionType
	SectionName    string
	SectionSummary string
	SectionContent string
	SectionOrder   int
	ChunkCount     int
}

// ChunkRow is one row of transcript_chunks.
type ChunkRow struct {
	Key               types.IdentityKey
	FileSize          int64
	FileModified      time.Time
	ChunkID           int
	SectionID         int
	SectionName       string
	SectionType       types.SectionType
	SectionSummary    string
	SectionOrder      int // position within the section
	SentenceIDs       []int
	Speaker           string
	Content           string
	Tags              []string
	Topics            []string
	RelatedChunkIDs   []int
	AdditionalContext []types.ContextNote
	Embedding         []float32
}

// BuildRows flattens a processed transcript into catalog rows.
func BuildRows(pt *types.ProcessedTranscript) ([]SectionRow, []ChunkRow) {
	key := pt.Source.Key
	size := pt.Source.Size
	modified := NormalizeTime(pt.Source.ModTime)

	sections := make([]SectionRow, len(pt.Sections))
	for i, s := range pt.Sections {
		sections[i] = SectionRow{
			Key:            key,
			FileSize:       size,
			FileModified:   modified,
			SectionID:      s.ID,
			SectionType:    s.Type,
			SectionName:    s.Name,
			SectionSummary: s.Summary,
			SectionContent: s.Content,
			SectionOrder:   s.Order,
			ChunkCount:     len(s.ChunkIDs),
		}
	}

	chunks := make([]ChunkRow, len(pt.Chunks))
	for i, c := range pt.Chunks {
		chunks[i] = ChunkRow{
			Key:               key,
			FileSize:          size,
			FileModified:      modified,
			ChunkID:           c.ID,
			SectionID:         c.SectionID,
			SectionName:       c.SectionName,
			SectionType:       c.SectionType,
			SectionSummary:    c.SectionSummary,
			SectionOrder:      c.SectionOrder,
			SentenceIDs:       c.SentenceIDs,
			Speaker:           c.Speaker,
			Content:           c.Content,
			Tags:              c.Tags,
			Topics:            c.Topics,
			RelatedChunkIDs:   c.RelatedChunkIDs,
			AdditionalContext: c.AdditionalContext,
			Embedding:         c.Embedding,
		}
	}
	return sections, chunks
}
