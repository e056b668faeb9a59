package types

import "fmt"

// PartitionError reports a broken sentence/chunk or chunk/section partition.
type PartitionError struct {
	Level   string // "chunk" or "section"
	Message string
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s partition invalid: %s", e.Level, e.Message)
}

// ValidateChunkPartition checks that the chunks cover every sentence exactly
// once, in order, without gaps, and that chunk IDs run 1..n. Related chunk
// references must point at earlier chunks.
func ValidateChunkPartition(sentences []Sentence, chunks []Chunk) error {
	if len(sentences) == 0 {
		return &PartitionError{Level: "chunk", Message: "no sentences"}
	}
	next := 0
	for i, c := range chunks {
		if c.ID != i+1 {
			return &PartitionError{Level: "chunk", Message: fmt.Sprintf("chunk at index %d has id %d, want %d", i, c.ID, i+1)}
		}
		if len(c.SentenceIDs) == 0 {
			return &PartitionError{Level: "chunk", Message: fmt.Sprintf("chunk %d is empty", c.ID)}
		}
		for _, sid := range c.SentenceIDs {
			if next >= len(sentences) {
				return &PartitionError{Level: "chunk", Message: fmt.Sprintf("chunk %d references sentence %d beyond the transcript", c.ID, sid)}
			}
			if sid != sentences[next].ID {
				return &PartitionError{Level: "chunk", Message: fmt.Sprintf("chunk %d has sentence %d, want %d", c.ID, sid, sentences[next].ID)}
			}
			next++
		}
		for _, rel := range c.RelatedChunkIDs {
			if rel < 1 || rel >= c.ID {
				return &PartitionError{Level: "chunk", Message: fmt.Sprintf("chunk %d references chunk %d which was not finalized before it", c.ID, rel)}
			}
		}
	}
	if next != len(sentences) {
		return &PartitionError{Level: "chunk", Message: fmt.Sprintf("%d of %d sentences not assigned to a chunk", len(sentences)-next, len(sentences))}
	}
	return nil
}

// ValidateSectionPartition checks that sections cover every chunk exactly once,
// in order, and that section order is 1..n.
func ValidateSectionPartition(chunks []Chunk, sections []Section) error {
	if len(chunks) == 0 {
		return &PartitionError{Level: "section", Message: "no chunks"}
	}
	next := 0
	for i, s := range sections {
		if s.Order != i+1 {
			return &PartitionError{Level: "section", Message: fmt.Sprintf("section %d has order %d, want %d", s.ID, s.Order, i+1)}
		}
		if len(s.ChunkIDs) == 0 {
			return &PartitionError{Level: "section", Message: fmt.Sprintf("section %d is empty", s.ID)}
		}
		for _, cid := range s.ChunkIDs {
			if next >= len(chunks) {
				return &PartitionError{Level: "section", Message: fmt.Sprintf("section %d references chunk %d beyond the transcript", s.ID, cid)}
			}
			if cid != chunks[next].ID {
				return &PartitionError{Level: "section", Message: fmt.Sprintf("section %d has chunk %d, want %d", s.ID, cid, chunks[next].ID)}
			}
			next++
		}
	}
	if next != len(chunks) {
		return &PartitionError{Level: "section", Message: fmt.Sprintf("%d of %d chunks not assigned to a section", len(chunks)-next, len(chunks))}
	}
	return nil
}
