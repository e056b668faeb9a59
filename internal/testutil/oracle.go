// Package testutil holds in-memory doubles shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexwday/aegis-project-sub000/internal/llm"
	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// StubOracle is a thread-safe oracle.Oracle whose judgments come from
// optional funcs. Unset funcs fall back to deterministic defaults: never
// extend, one tag per chunk, a fixed 3-dimension embedding, a single
// introduction section, and a summary naming the section.
type StubOracle struct {
	AssignFunc          func(ctx context.Context, req *oracle.AssignRequest) (*oracle.AssignResult, error)
	TagFunc             func(ctx context.Context, req *oracle.TagRequest) (*oracle.TagResult, error)
	EmbedFunc           func(ctx context.Context, text string) ([]float32, error)
	SectionBoundaryFunc func(ctx context.Context, req *oracle.BoundaryRequest) (*oracle.BoundaryResult, error)
	SummarizeFunc       func(ctx context.Context, req *oracle.SummarizeRequest) (string, error)

	// UsagePerCall is reported through llm.RecordUsage on every call.
	UsagePerCall llm.Usage

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times op was invoked.
func (s *StubOracle) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *StubOracle) record(ctx context.Context, op string) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
	s.mu.Unlock()
	if s.UsagePerCall != (llm.Usage{}) {
		llm.RecordUsage(ctx, s.UsagePerCall)
	}
}

func (s *StubOracle) Assign(ctx context.Context, req *oracle.AssignRequest) (*oracle.AssignResult, error) {
	s.record(ctx, "assign")
	if s.AssignFunc != nil {
		return s.AssignFunc(ctx, req)
	}
	return &oracle.AssignResult{}, nil
}

func (s *StubOracle) Tag(ctx context.Context, req *oracle.TagRequest) (*oracle.TagResult, error) {
	s.record(ctx, "tag")
	if s.TagFunc != nil {
		return s.TagFunc(ctx, req)
	}
	return &oracle.TagResult{Tags: []string{fmt.Sprintf("chunk-%d", req.Chunk.ID)}}, nil
}

func (s *StubOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	s.record(ctx, "embed")
	if s.EmbedFunc != nil {
		return s.EmbedFunc(ctx, text)
	}
	return []float32{float32(len(text)), 0, 1}, nil
}

func (s *StubOracle) SectionBoundary(ctx context.Context, req *oracle.BoundaryRequest) (*oracle.BoundaryResult, error) {
	s.record(ctx, "section_boundary")
	if s.SectionBoundaryFunc != nil {
		return s.SectionBoundaryFunc(ctx, req)
	}
	if req.Current == nil {
		return &oracle.BoundaryResult{NewSection: true, SectionType: string(types.SectionTypeIntroduction), SectionName: "Opening"}, nil
	}
	return &oracle.BoundaryResult{}, nil
}

func (s *StubOracle) Summarize(ctx context.Context, req *oracle.SummarizeRequest) (string, error) {
	s.record(ctx, "summarize")
	if s.SummarizeFunc != nil {
		return s.SummarizeFunc(ctx, req)
	}
	return "Summary of " + req.Section.Name, nil
}

var _ oracle.Oracle = (*StubOracle)(nil)
