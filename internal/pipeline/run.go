// Package pipeline orchestrates a sync run: diff the transcript tree against
// the catalog, remove deleted transcripts, then extract, chunk, group and
// sync every new or changed transcript in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/chunking"
	"github.com/alexwday/aegis-project-sub000/internal/ingestion"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/sectioning"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// DefaultMaxConcurrent bounds how many transcripts are processed at once.
const DefaultMaxConcurrent = 4

// ErrCancelled is recorded for a transcript whose run was cancelled before
// it finished.
var ErrCancelled = errors.New("cancelled")

// Store is the catalog plus the sink for run records.
type Store interface {
	catalog.Store
	monitor.Sink
}

// ProgressEvent represents a finished stage.
type ProgressEvent struct {
	RunID      string         `json:"run_id"`
	Transcript string         `json:"transcript"`
	Stage      string         `json:"stage"`
	Status     monitor.Status `json:"status"`
	Message    string         `json:"message,omitempty"`
}

// ProgressCallback is called when a stage finishes. It may be called from
// several goroutines at once.
type ProgressCallback func(event ProgressEvent)

// Options holds configuration for a run.
type Options struct {
	Root          string
	MaxConcurrent int
	DryRun        bool
	SyncTimeout   time.Duration
	Chunking      chunking.Options
	Sectioning    sectioning.Options
	Pricing       monitor.Pricing
	OnProgress    ProgressCallback
}

// TranscriptResult is the outcome of processing one transcript.
type TranscriptResult struct {
	Key               types.IdentityKey
	Chunks            int
	Sections          int
	DroppedReferences int
	Sync              *catalog.SyncResult
	// FailedStage and Err are set when the transcript did not sync.
	FailedStage string
	Err         error
}

// RemovalResult is the outcome of removing one transcript from the catalog.
type RemovalResult struct {
	Key         types.IdentityKey
	DeletedRows int64
	Err         error
}

// Report summarizes a run.
type Report struct {
	RunID     string
	DryRun    bool
	Plan      *catalog.Plan
	Status    monitor.Status
	Processed []TranscriptResult
	Removed   []RemovalResult
	Records   []monitor.StageRecord
}

// Failures returns the number of transcripts and removals that failed.
func (r *Report) Failures() int {
	n := 0
	for _, p := range r.Processed {
		if p.Err != nil {
			n++
		}
	}
	for _, rm := range r.Removed {
		if rm.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline runs sync passes against one store and oracle.
type Pipeline struct {
	store     Store
	extractor *ingestion.Extractor
	assembler *chunking.Assembler
	grouper   *sectioning.Grouper
	syncer    *catalog.Synchronizer
	opts      Options
	logger    *slog.Logger
	newRunID  func() string
}

// New creates a pipeline. The oracle is used as given; wrap it with
// oracle.WithRetry for retries.
func New(store Store, o oracle.Oracle, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Pipeline{
		store:     store,
		extractor: ingestion.NewExtractor(logger),
		assembler: chunking.NewAssembler(o, opts.Chunking, logger),
		grouper:   sectioning.NewGrouper(o, opts.Sectioning, logger),
		syncer:    catalog.NewSynchronizer(store, opts.SyncTimeout, logger),
		opts:      opts,
		logger:    logger,
		newRunID:  uuid.NewString,
	}
}

// Plan lists the transcript tree and diffs it against the catalog without
// writing anything.
func (p *Pipeline) Plan(ctx context.Context) (*catalog.Plan, error) {
	sources, err := ingestion.List(p.opts.Root, p.logger)
	if err != nil {
		return nil, err
	}
	entries, err := p.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	return catalog.Diff(sources, entries), nil
}

// Run performs one sync pass. Per-transcript failures are reported in the
// Report and never abort the run; the returned error is set only when the
// diff or the final record flush fails.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	runID := p.newRunID()
	mon := monitor.New(runID, p.opts.Pricing, p.logger)
	report := &Report{RunID: runID, DryRun: p.opts.DryRun}
	logger := p.logger.With("run_id", runID)

	span := mon.Start(monitor.RunTranscript, monitor.StageCatalogDiff)
	plan, err := p.Plan(ctx)
	p.end(runID, monitor.RunTranscript, span, err)
	if err != nil {
		err = fmt.Errorf("catalog diff failed: %w", err)
		report.Status = monitor.StatusFailure
		return p.finish(ctx, mon, report, err)
	}
	report.Plan = plan
	logger.Info("catalog diff",
		"to_process", len(plan.ToProcess), "to_remove", len(plan.Removed()), "unchanged", plan.Unchanged)

	if p.opts.DryRun {
		report.Status = monitor.StatusSuccess
		if _, err := mon.Close(report.Status, nil); err != nil {
			return report, err
		}
		report.Records = mon.Records()
		return report, nil
	}

	for _, key := range plan.Removed() {
		report.Removed = append(report.Removed, p.remove(ctx, runID, mon, key))
	}

	report.Processed = make([]TranscriptResult, len(plan.ToProcess))
	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrent)
	for i, src := range plan.ToProcess {
		g.Go(func() error {
			report.Processed[i] = p.process(ctx, runID, mon, src)
			return nil
		})
	}
	_ = g.Wait()

	total := len(report.Processed) + len(report.Removed)
	failed := report.Failures()
	var runErr error
	switch {
	case failed == 0:
		report.Status = monitor.StatusSuccess
	case failed == total:
		report.Status = monitor.StatusFailure
		runErr = fmt.Errorf("all %d transcripts failed", total)
	default:
		report.Status = monitor.StatusPartial
		runErr = fmt.Errorf("%d of %d transcripts failed", failed, total)
	}
	logger.Info("run finished", "status", report.Status, "processed", len(report.Processed),
		"removed", len(report.Removed), "failed", failed)
	return p.finish(ctx, mon, report, runErr)
}

// finish closes the run and flushes its records. runErr is recorded on the
// run record; only a diff failure is passed up as the returned error.
func (p *Pipeline) finish(ctx context.Context, mon *monitor.Monitor, report *Report, runErr error) (*Report, error) {
	if _, err := mon.Close(report.Status, runErr); err != nil {
		return report, err
	}
	report.Records = mon.Records()

	var diffErr error
	if report.Plan == nil {
		diffErr = runErr
	}
	if err := mon.Flush(context.WithoutCancel(ctx), p.store); err != nil {
		return report, errors.Join(diffErr, err)
	}
	return report, diffErr
}

func (p *Pipeline) remove(ctx context.Context, runID string, mon *monitor.Monitor, key types.IdentityKey) RemovalResult {
	res := RemovalResult{Key: key}
	span := mon.Start(key.String(), monitor.StageCatalogRemoval)
	if ctx.Err() != nil {
		res.Err = ErrCancelled
	} else {
		res.DeletedRows, res.Err = p.syncer.Remove(ctx, key)
	}
	p.end(runID, key.String(), span, res.Err)
	return res
}

// process runs one transcript through every stage. Cancellation is checked
// before each stage starts.
func (p *Pipeline) process(ctx context.Context, runID string, mon *monitor.Monitor, src types.TranscriptSource) TranscriptResult {
	key := src.Key
	label := key.String()
	res := TranscriptResult{Key: key}

	step := func(stage string, fn func(ctx context.Context) error) bool {
		span := mon.Start(label, stage)
		var err error
		if ctx.Err() != nil {
			err = ErrCancelled
		} else {
			err = fn(span.Context(ctx))
		}
		p.end(runID, label, span, err)
		if err != nil {
			res.FailedStage = stage
			res.Err = err
			p.logger.Error("transcript failed", "run_id", runID, "transcript", label, "stage", stage, "error", err)
			return false
		}
		return true
	}

	var transcript *types.Transcript
	if !step(monitor.StageSentenceExtraction, func(context.Context) error {
		var err error
		transcript, err = p.extractor.Extract(src)
		return err
	}) {
		return res
	}

	var chunks []types.Chunk
	if !step(monitor.StageChunkAssembly, func(ctx context.Context) error {
		assembled, err := p.assembler.Assemble(ctx, key, transcript.Sentences)
		if err != nil {
			return err
		}
		if err := types.ValidateChunkPartition(transcript.Sentences, assembled.Chunks); err != nil {
			return err
		}
		chunks = assembled.Chunks
		res.Chunks = len(chunks)
		res.DroppedReferences = assembled.DroppedReferences
		return nil
	}) {
		return res
	}

	var grouped *sectioning.Result
	if !step(monitor.StageSectionGrouping, func(ctx context.Context) error {
		var err error
		if grouped, err = p.grouper.Group(ctx, key, chunks); err != nil {
			return err
		}
		if err := types.ValidateSectionPartition(chunks, grouped.Sections); err != nil {
			return err
		}
		res.Sections = len(grouped.Sections)
		return nil
	}) {
		return res
	}

	step(monitor.StageCatalogSync, func(ctx context.Context) error {
		var err error
		res.Sync, err = p.syncer.Sync(ctx, &types.ProcessedTranscript{
			Source:    src,
			Sentences: transcript.Sentences,
			Sections:  grouped.Sections,
			Chunks:    grouped.Chunks,
		})
		return err
	})
	return res
}

// end closes span and reports the stage to the progress callback.
func (p *Pipeline) end(runID, transcript string, span *monitor.Span, err error) {
	status := monitor.StatusSuccess
	if err != nil {
		status = monitor.StatusFailure
	}
	rec, endErr := span.End(status, err)
	if endErr != nil {
		p.logger.Warn("failed to record stage", "run_id", runID, "transcript", transcript, "error", endErr)
		return
	}
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(ProgressEvent{
			RunID:      runID,
			Transcript: transcript,
			Stage:      rec.Stage,
			Status:     rec.Status,
			Message:    rec.Error,
		})
	}
}
