// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/pipeline"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeKeys lists up to maxItemsToShow keys under a heading.
func writeKeys(sb *strings.Builder, heading string, keys []types.IdentityKey) {
	if len(keys) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("%s (%d):\n", heading, len(keys)))
	count := min(len(keys), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", keys[i]))
	}
	if len(keys) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(keys)-maxItemsToShow))
	}
}

// PrintPlan outputs the catalog diff.
func (p *Printer) PrintPlan(plan *catalog.Plan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To process: %d\n", len(plan.ToProcess)))
	sb.WriteString(fmt.Sprintf("To remove:  %d\n", len(plan.Removed())))
	sb.WriteString(fmt.Sprintf("Unchanged:  %d\n", plan.Unchanged))

	process := make([]types.IdentityKey, len(plan.ToProcess))
	for i, src := range plan.ToProcess {
		process[i] = src.Key
	}
	removed := plan.Removed()
	if len(process) > 0 || len(removed) > 0 {
		sb.WriteString("\n")
	}
	writeKeys(&sb, "Process", process)
	writeKeys(&sb, "Remove", removed)

	p.printBox("CATALOG DIFF", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs the outcome of a run.
func (p *Printer) PrintReport(report *pipeline.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:     %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", report.Status))
	if report.DryRun {
		sb.WriteString("Mode:    dry run (catalog untouched)\n")
	}
	sb.WriteString(fmt.Sprintf("Synced:  %d\n", len(report.Processed)-countFailed(report.Processed)))
	sb.WriteString(fmt.Sprintf("Removed: %d\n", len(report.Removed)))

	if failed := report.Failures(); failed > 0 {
		sb.WriteString(fmt.Sprintf("\nFailed (%d):\n", failed))
		for _, res := range report.Processed {
			if res.Err != nil {
				sb.WriteString(fmt.Sprintf("⚠ %s\n", res.Key))
				sb.WriteString(fmt.Sprintf("  %s: %v\n", res.FailedStage, res.Err))
			}
		}
		for _, rm := range report.Removed {
			if rm.Err != nil {
				sb.WriteString(fmt.Sprintf("⚠ %s\n", rm.Key))
				sb.WriteString(fmt.Sprintf("  %s: %v\n", monitor.StageCatalogRemoval, rm.Err))
			}
		}
	}

	for _, rec := range report.Records {
		if rec.Stage == monitor.StageRun {
			sb.WriteString(fmt.Sprintf("\nOracle calls: %d  Tokens: %d/%d  Cost: $%.4f\n",
				rec.Calls, rec.PromptTokens, rec.CompletionTokens, rec.Cost))
			sb.WriteString(fmt.Sprintf("Duration:     %s\n", rec.Duration.Round(time.Millisecond)))
		}
	}

	p.printBox("SYNC REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

func countFailed(results []pipeline.TranscriptResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// PrintRecords outputs the stage records of one run as a table.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRecords(runID string, records []monitor.StageRecord) {
	if len(records) == 0 {
		fmt.Fprintf(p.out, "No stage records for run %s\n", runID)
		return
	}

	fmt.Fprintf(p.out, "%-28s %-20s %-8s %10s %6s %9s\n", "TRANSCRIPT", "STAGE", "STATUS", "DURATION", "CALLS", "COST")
	for _, r := range records {
		transcript := r.Transcript
		if len(transcript) > 28 {
			transcript = transcript[:25] + "..."
		}
		fmt.Fprintf(p.out, "%-28s %-20s %-8s %10s %6d %9.4f\n",
			transcript, r.Stage, r.Status, r.Duration.Round(time.Millisecond), r.Calls, r.Cost)
		if r.Error != "" {
			fmt.Fprintf(p.out, "  error: %s\n", r.Error)
		}
	}
}

// PrintProgress outputs one finished stage. It matches pipeline.ProgressCallback
// and is safe to call from several goroutines.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	mark := "✓"
	if event.Status != monitor.StatusSuccess {
		mark = "✗"
	}
	line := fmt.Sprintf("[VERBOSE] %s %s %s", mark, event.Transcript, event.Stage)
	if event.Message != "" {
		line += ": " + event.Message
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
