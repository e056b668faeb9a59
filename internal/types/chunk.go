package types

import "strings"

// ContextNote is supplementary text attached to a chunk, such as a definition
// or a resolved reference taken from a nearby sentence.
type ContextNote struct {
	SourceSentenceID int    `json:"source_sentence_id"`
	Text             string `json:"text"`
}

// Chunk is a contiguous run of sentences forming one semantic unit.
type Chunk struct {
	ID                   int           `json:"chunk_id"`
	SentenceIDs          []int         `json:"sentence_ids"`
	RelatedChunkIDs      []int         `json:"related_chunk_ids,omitempty"`
	AdditionalContext    []ContextNote `json:"additional_context,omitempty"`
	Speaker              string        `json:"speaker,omitempty"`
	Tags                 []string      `json:"tags,omitempty"`
	Topics               []string      `json:"topics,omitempty"`
	Content              string        `json:"content"`
	Embedding            []float32     `json:"embedding,omitempty"`
	ProvisionalSectionID int           `json:"provisional_section_id,omitempty"`
}

// FirstSentenceID returns the first sentence in the chunk, or 0 when empty.
func (c *Chunk) FirstSentenceID() int {
	if len(c.SentenceIDs) == 0 {
		return 0
	}
	return c.SentenceIDs[0]
}

// LastSentenceID returns the last sentence in the chunk, or 0 when empty.
func (c *Chunk) LastSentenceID() int {
	if len(c.SentenceIDs) == 0 {
		return 0
	}
	return c.SentenceIDs[len(c.SentenceIDs)-1]
}

// JoinSentences concatenates sentence texts the way chunk content is built.
func JoinSentences(sentences []Sentence) string {
	parts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// SectionedChunk is a chunk with its final section identity filled in.
type SectionedChunk struct {
	Chunk
	SectionID      int         `json:"section_id"`
	SectionName    string      `json:"section_name"`
	SectionType    SectionType `json:"section_type"`
	SectionSummary string      `json:"section_summary"`
	SectionOrder   int         `json:"section_order"` // 1-based position within the section
}
