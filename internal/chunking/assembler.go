// Package chunking groups a transcript's sentences into semantic chunks with a
// sliding-window scan driven by the decision oracle.
package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// Default window sizes.
const (
	DefaultPriorWindow = 20
	DefaultLookahead   = 19
)

// Options bounds the context sent with every assignment decision.
type Options struct {
	PriorWindow int // K: finalized chunks shown to the oracle
	Lookahead   int // L: upcoming sentences shown to the oracle
}

// DefaultOptions returns K=20, L=19.
func DefaultOptions() Options {
	return Options{PriorWindow: DefaultPriorWindow, Lookahead: DefaultLookahead}
}

// Result is the outcome of assembling one transcript.
type Result struct {
	Chunks []types.Chunk
	// DroppedReferences counts related ids and context notes discarded
	// because they pointed outside the request window.
	DroppedReferences int
}

// Assembler runs the chunk scan. It holds no per-transcript state and can be
// shared across goroutines.
type Assembler struct {
	oracle oracle.Oracle
	opts   Options
	logger *slog.Logger
}

// NewAssembler creates an assembler. Non-positive window sizes fall back to
// the defaults.
func NewAssembler(o oracle.Oracle, opts Options, logger *slog.Logger) *Assembler {
	if opts.PriorWindow <= 0 {
		opts.PriorWindow = DefaultPriorWindow
	}
	if opts.Lookahead < 0 {
		opts.Lookahead = DefaultLookahead
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{oracle: o, opts: opts, logger: logger}
}

// Assemble scans every sentence and returns the finalized chunks. Any
// oracle failure aborts the scan and no chunks are returned.
func (a *Assembler) Assemble(ctx context.Context, key types.IdentityKey, sentences []types.Sentence) (*Result, error) {
	st := NewState(key, sentences)
	for {
		done, err := a.Advance(ctx, st)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return &Result{Chunks: st.Finalized, DroppedReferences: st.Dropped}, nil
}

// Advance performs one step of the scan: it decides the sentence at the
// cursor, or finalizes the trailing open chunk once every sentence has been
// decided. It reports done when nothing is left.
func (a *Assembler) Advance(ctx context.Context, st *State) (bool, error) {
	if st.Done() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if st.Cursor >= len(st.Sentences) {
		if err := a.finalize(ctx, st); err != nil {
			return false, err
		}
		return true, nil
	}

	s := st.Sentences[st.Cursor]
	req := a.request(st, s)
	res, err := a.oracle.Assign(ctx, req)
	if err != nil {
		return false, fmt.Errorf("failed to assign sentence %d: %w", s.ID, err)
	}

	if res.Extend {
		st.open.add(s)
	} else {
		if err := a.finalize(ctx, st); err != nil {
			return false, err
		}
		st.open = newOpenChunk(s)
	}

	lookahead := make(map[int]bool, len(req.Lookahead)+1)
	lookahead[s.ID] = true
	for _, la := range req.Lookahead {
		lookahead[la.ID] = true
	}
	// After a split the chunk just finalized joins the window and the
	// oldest one leaves it, so references always target the last K chunks.
	prior := a.prior(st)
	window := make(map[int]bool, len(prior))
	for _, c := range prior {
		window[c.ID] = true
	}
	a.attach(st, s, res, window, lookahead)

	st.Cursor++
	return false, nil
}

func (a *Assembler) request(st *State, s types.Sentence) *oracle.AssignRequest {
	prior := a.prior(st)
	views := make([]oracle.ChunkView, len(prior))
	for i := range prior {
		views[i] = oracle.ViewOf(&prior[i])
	}

	end := st.Cursor + 1 + a.opts.Lookahead
	if end > len(st.Sentences) {
		end = len(st.Sentences)
	}

	return &oracle.AssignRequest{
		Key:   st.Key,
		Prior: views,
		Open: oracle.ChunkView{
			ID:      len(st.Finalized) + 1,
			Speaker: majoritySpeaker(st.open.sentences),
			Content: types.JoinSentences(st.open.sentences),
		},
		Candidate: s,
		Lookahead: st.Sentences[st.Cursor+1 : end],
	}
}

// prior returns the last K finalized chunks.
func (a *Assembler) prior(st *State) []types.Chunk {
	if len(st.Finalized) > a.opts.PriorWindow {
		return st.Finalized[len(st.Finalized)-a.opts.PriorWindow:]
	}
	return st.Finalized
}

// attach adds the decision's relations and notes to the chunk that received s.
func (a *Assembler) attach(st *State, s types.Sentence, res *oracle.AssignResult, window, lookahead map[int]bool) {
	open := st.open
	receiverID := len(st.Finalized) + 1

	for _, id := range res.RelatedChunkIDs {
		if !window[id] || id >= receiverID {
			st.Dropped++
			a.logger.Warn("dropping out-of-window chunk reference",
				"transcript", st.Key.String(), "sentence_id", s.ID, "related_chunk_id", id)
			continue
		}
		open.relate(id)
	}
	for _, note := range res.AdditionalContext {
		text := strings.TrimSpace(note.Text)
		if text == "" {
			continue
		}
		if !lookahead[note.SourceSentenceID] {
			st.Dropped++
			a.logger.Warn("dropping context note from unknown sentence",
				"transcript", st.Key.String(), "sentence_id", s.ID, "source_sentence_id", note.SourceSentenceID)
			continue
		}
		open.notes = append(open.notes, types.ContextNote{SourceSentenceID: note.SourceSentenceID, Text: text})
	}
}

// finalize closes the open chunk, labels and embeds it.
func (a *Assembler) finalize(ctx context.Context, st *State) error {
	open := st.open
	if open == nil || len(open.sentences) == 0 {
		st.open = nil
		return nil
	}

	chunk := types.Chunk{
		ID:                len(st.Finalized) + 1,
		SentenceIDs:       make([]int, len(open.sentences)),
		RelatedChunkIDs:   open.related,
		AdditionalContext: open.notes,
		Speaker:           majoritySpeaker(open.sentences),
		Content:           types.JoinSentences(open.sentences),
	}
	for i, s := range open.sentences {
		chunk.SentenceIDs[i] = s.ID
	}

	tags, err := a.oracle.Tag(ctx, &oracle.TagRequest{Key: st.Key, Chunk: oracle.ViewOf(&chunk)})
	if err != nil {
		return fmt.Errorf("failed to tag chunk %d: %w", chunk.ID, err)
	}
	chunk.Tags, chunk.Topics = tags.Tags, tags.Topics

	embedding, err := a.oracle.Embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("failed to embed chunk %d: %w", chunk.ID, err)
	}
	chunk.Embedding = embedding

	st.Finalized = append(st.Finalized, chunk)
	st.open = nil
	return nil
}

// majoritySpeaker returns the most frequent non-empty speaker; ties go to
// the speaker heard most recently.
func majoritySpeaker(sentences []types.Sentence) string {
	counts := make(map[string]int)
	last := make(map[string]int)
	for i, s := range sentences {
		if s.Speaker == "" {
			continue
		}
		counts[s.Speaker]++
		last[s.Speaker] = i
	}

	best, bestCount, bestLast := "", 0, -1
	for speaker, n := range counts {
		if n > bestCount || (n == bestCount && last[speaker] > bestLast) {
			best, bestCount, bestLast = speaker, n, last[speaker]
		}
	}
	return best
}
