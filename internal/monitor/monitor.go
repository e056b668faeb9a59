// Package monitor records per-stage timing, usage and outcome for a
// processing run. Records are append-only and closed when the run ends.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/llm"
)

// Status is the outcome of a stage or run.
type Status string

// Statuses
const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
)

// Stage names
const (
	StageCatalogDiff        = "catalog_diff"
	StageSentenceExtraction = "sentence_extraction"
	StageChunkAssembly      = "chunk_assembly"
	StageSectionGrouping    = "section_grouping"
	StageCatalogSync        = "catalog_sync"
	StageCatalogRemoval     = "catalog_removal"
	StageRun                = "run"
)

// RunTranscript is the transcript label of run-wide records.
const RunTranscript = "*"

// ErrRunClosed is returned when appending to a closed run.
var ErrRunClosed = errors.New("run is closed")

// StageRecord is one row of process_monitor.
type StageRecord struct {
	RunID            string        `json:"run_id"`
	Transcript       string        `json:"transcript"`
	Stage            string        `json:"stage"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          time.Time     `json:"ended_at"`
	Duration         time.Duration `json:"duration"`
	Calls            int           `json:"api_calls"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Cost             float64       `json:"total_cost"`
	Status           Status        `json:"status"`
	Error            string        `json:"error,omitempty"`
}

// Pricing converts token usage into cost.
type Pricing struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

// Cost returns the price of u.
func (p Pricing) Cost(u llm.Usage) float64 {
	return float64(u.PromptTokens)/1000*p.PromptPer1K + float64(u.CompletionTokens)/1000*p.CompletionPer1K
}

// Sink persists stage records.
type Sink interface {
	InsertStageRecords(ctx context.Context, records []StageRecord) error
}

// Monitor collects the records of one run. It is safe for concurrent use.
type Monitor struct {
	runID   string
	pricing Pricing
	logger  *slog.Logger
	started time.Time
	now     func() time.Time

	mu      sync.Mutex
	records []StageRecord
	closed  bool
}

// New starts a run.
func New(runID string, pricing Pricing, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{runID: runID, pricing: pricing, logger: logger, now: time.Now}
	m.started = m.now()
	return m
}

// RunID returns the run's identifier.
func (m *Monitor) RunID() string {
	return m.runID
}

// Start opens a span timing stage for transcript.
func (m *Monitor) Start(transcript, stage string) *Span {
	return &Span{m: m, transcript: transcript, stage: stage, start: m.now()}
}

// Append adds a finished record to the run.
func (m *Monitor) Append(rec StageRecord) error {
	rec.RunID = m.runID
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrRunClosed
	}
	m.records = append(m.records, rec)
	m.logger.Debug("stage finished",
		"run_id", m.runID, "transcript", rec.Transcript, "stage", rec.Stage,
		"status", rec.Status, "duration_ms", rec.Duration.Milliseconds(), "api_calls", rec.Calls)
	return nil
}

// Records returns a copy of the records appended so far.
func (m *Monitor) Records() []StageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StageRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Closed reports whether the run has ended.
func (m *Monitor) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close appends the run-level record, summing usage across every stage,
// and rejects further appends.
func (m *Monitor) Close(status Status, runErr error) (StageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return StageRecord{}, ErrRunClosed
	}

	var usage llm.Usage
	for _, r := range m.records {
		usage = usage.Add(llm.Usage{Calls: r.Calls, PromptTokens: r.PromptTokens, CompletionTokens: r.CompletionTokens})
	}
	end := m.now()
	rec := StageRecord{
		RunID:            m.runID,
		Transcript:       RunTranscript,
		Stage:            StageRun,
		StartedAt:        m.started,
		EndedAt:          end,
		Duration:         end.Sub(m.started),
		Calls:            usage.Calls,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Cost:             m.pricing.Cost(usage),
		Status:           status,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	m.records = append(m.records, rec)
	m.closed = true
	return rec, nil
}

// Flush writes every record through sink.
func (m *Monitor) Flush(ctx context.Context, sink Sink) error {
	records := m.Records()
	if len(records) == 0 {
		return nil
	}
	if err := sink.InsertStageRecords(ctx, records); err != nil {
		return fmt.Errorf("failed to flush %d stage records: %w", len(records), err)
	}
	return nil
}

// Span times one stage and meters the oracle usage made inside it.
type Span struct {
	m          *Monitor
	transcript string
	stage      string
	start      time.Time

	mu    sync.Mutex
	usage llm.Usage
	ended bool
}

// RecordUsage implements llm.UsageRecorder.
func (s *Span) RecordUsage(u llm.Usage) {
	s.mu.Lock()
	s.usage = s.usage.Add(u)
	s.mu.Unlock()
}

// Meter returns the span as a usage recorder.
func (s *Span) Meter() llm.UsageRecorder {
	return s
}

// Context returns ctx carrying the span's meter.
func (s *Span) Context(ctx context.Context) context.Context {
	return llm.WithUsageRecorder(ctx, s)
}

// End closes the span and appends its record. Ending twice is a no-op.
func (s *Span) End(status Status, err error) (StageRecord, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return StageRecord{}, nil
	}
	s.ended = true
	usage := s.usage
	s.mu.Unlock()

	end := s.m.now()
	rec := StageRecord{
		Transcript:       s.transcript,
		Stage:            s.stage,
		StartedAt:        s.start,
		EndedAt:          end,
		Duration:         end.Sub(s.start),
		Calls:            usage.Calls,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Cost:             s.m.pricing.Cost(usage),
		Status:           status,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if err := s.m.Append(rec); err != nil {
		return StageRecord{}, err
	}
	rec.RunID = s.m.runID
	return rec, nil
}
