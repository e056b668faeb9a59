package chunking

import "github.com/alexwday/aegis-project-sub000/internal/types"

// State is the scan position of one transcript. It is owned by a single
// goroutine.
type State struct {
	Key       types.IdentityKey
	Sentences []types.Sentence
	Finalized []types.Chunk
	Cursor    int // index of the next sentence to decide
	Dropped   int

	open *openChunk
}

// NewState seeds the open chunk with the first sentence.
func NewState(key types.IdentityKey, sentences []types.Sentence) *State {
	st := &State{Key: key, Sentences: sentences}
	if len(sentences) > 0 {
		st.open = newOpenChunk(sentences[0])
		st.Cursor = 1
	}
	return st
}

// Done reports whether every sentence is in a finalized chunk.
func (s *State) Done() bool {
	return s.open == nil && s.Cursor >= len(s.Sentences)
}

// OpenSentenceIDs returns the ids held by the open chunk.
func (s *State) OpenSentenceIDs() []int {
	if s.open == nil {
		return nil
	}
	ids := make([]int, len(s.open.sentences))
	for i, sent := range s.open.sentences {
		ids[i] = sent.ID
	}
	return ids
}

type openChunk struct {
	sentences []types.Sentence
	related   []int
	notes     []types.ContextNote
}

func newOpenChunk(s types.Sentence) *openChunk {
	return &openChunk{sentences: []types.Sentence{s}}
}

func (c *openChunk) add(s types.Sentence) {
	c.sentences = append(c.sentences, s)
}

func (c *openChunk) relate(id int) {
	for _, existing := range c.related {
		if existing == id {
			return
		}
	}
	c.related = append(c.related, id)
}
