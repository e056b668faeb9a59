// Package sectioning groups finalized chunks into labelled, summarized
// sections in two passes: a forward boundary scan, then a link pass that
// back-fills each chunk's section identity.
package sectioning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// DefaultRecentWindow is how many trailing chunks of the open section are
// sent with each boundary decision.
const DefaultRecentWindow = 5

// Options configures a Grouper.
type Options struct {
	RecentWindow int
}

// DefaultOptions returns the default grouper options.
func DefaultOptions() Options {
	return Options{RecentWindow: DefaultRecentWindow}
}

// Result holds the sections and the chunks with their section identity.
type Result struct {
	Sections []types.Section
	Chunks   []types.SectionedChunk
}

// Grouper runs section grouping. It is safe for concurrent use.
type Grouper struct {
	oracle oracle.Oracle
	opts   Options
	logger *slog.Logger
}

// NewGrouper creates a grouper.
func NewGrouper(o oracle.Oracle, opts Options, logger *slog.Logger) *Grouper {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{oracle: o, opts: opts, logger: logger}
}

// section is the scan-time view of a section.
type section struct {
	id      int
	typ     types.SectionType
	name    string
	summary string
	chunks  []int // indexes into the working chunk slice
}

func (s *section) view() oracle.SectionView {
	return oracle.SectionView{ID: s.id, Type: s.typ, Name: s.name, ChunkCount: len(s.chunks)}
}

// Group assigns every chunk to a section. The input chunks are not modified.
func (g *Grouper) Group(ctx context.Context, key types.IdentityKey, chunks []types.Chunk) (*Result, error) {
	work := make([]types.Chunk, len(chunks))
	copy(work, chunks)

	sections, err := g.scan(ctx, key, work)
	if err != nil {
		return nil, err
	}
	return link(work, sections), nil
}

// scan is the forward pass: boundary decisions, provisional ids, and one
// summary per closed section.
func (g *Grouper) scan(ctx context.Context, key types.IdentityKey, work []types.Chunk) ([]*section, error) {
	var sections []*section
	var current *section

	for i := range work {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := &oracle.BoundaryRequest{
			Key:      key,
			Chunk:    oracle.ViewOf(&work[i]),
			Position: i + 1,
			Total:    len(work),
		}
		if current != nil {
			v := current.view()
			req.Current = &v
			req.Recent = g.recent(work, current)
		}

		res, err := g.oracle.SectionBoundary(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to decide section boundary at chunk %d: %w", work[i].ID, err)
		}

		if current == nil || res.NewSection {
			if current != nil {
				if err := g.close(ctx, key, work, current); err != nil {
					return nil, err
				}
			}
			current = g.open(key, len(sections)+1, res)
			sections = append(sections, current)
		}
		current.chunks = append(current.chunks, i)
		work[i].ProvisionalSectionID = current.id
	}

	if current != nil {
		if err := g.close(ctx, key, work, current); err != nil {
			return nil, err
		}
	}
	return sections, nil
}

func (g *Grouper) open(key types.IdentityKey, id int, res *oracle.BoundaryResult) *section {
	typ, ok := types.ParseSectionType(res.SectionType)
	if !ok {
		g.logger.Warn("unknown section type, using other",
			"transcript", key.String(), "section_id", id, "section_type", res.SectionType)
	}
	name := strings.TrimSpace(res.SectionName)
	if name == "" {
		name = typ.Title()
	}
	return &section{id: id, typ: typ, name: name}
}

func (g *Grouper) close(ctx context.Context, key types.IdentityKey, work []types.Chunk, s *section) error {
	views := make([]oracle.ChunkView, len(s.chunks))
	for i, idx := range s.chunks {
		views[i] = oracle.ViewOf(&work[idx])
	}
	summary, err := g.oracle.Summarize(ctx, &oracle.SummarizeRequest{Key: key, Section: s.view(), Chunks: views})
	if err != nil {
		return fmt.Errorf("failed to summarize section %d: %w", s.id, err)
	}
	s.summary = strings.TrimSpace(summary)
	return nil
}

func (g *Grouper) recent(work []types.Chunk, s *section) []oracle.ChunkView {
	idx := s.chunks
	if len(idx) > g.opts.RecentWindow {
		idx = idx[len(idx)-g.opts.RecentWindow:]
	}
	views := make([]oracle.ChunkView, len(idx))
	for i, j := range idx {
		views[i] = oracle.ViewOf(&work[j])
	}
	return views
}
