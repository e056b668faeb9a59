package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexwday/aegis-project-sub000/internal/chunking"
	"github.com/alexwday/aegis-project-sub000/internal/config"
	"github.com/alexwday/aegis-project-sub000/internal/llm"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/observability"
	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/pipeline"
	"github.com/alexwday/aegis-project-sub000/internal/sectioning"
	"github.com/alexwday/aegis-project-sub000/internal/watcher"
)

var syncCommand = &cobra.Command{
	Use:   "sync",
	Short: "Bring the catalog in step with the transcript tree",
	Long: `Diffs the transcript tree against the catalog, removes transcripts that disappeared, and runs every new or changed transcript through extraction -> chunk assembly -> section grouping -> catalog sync.

With --watch the command keeps running and syncs again whenever the tree changes.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var (
	syncAPIKey        string
	syncDryRun        bool
	syncWatch         bool
	syncMaxConcurrent int
	syncDebounce      time.Duration
)

func init() {
	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	syncCommand.Flags().StringVar(&syncAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	syncCommand.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the plan without touching the catalog")
	syncCommand.Flags().BoolVarP(&syncWatch, "watch", "w", false, "Keep running and sync again when transcripts change")
	syncCommand.Flags().IntVar(&syncMaxConcurrent, "max-concurrent", 0, "Transcripts processed in parallel")
	syncCommand.Flags().DurationVar(&syncDebounce, "debounce", 0, "Quiet period before a watch-triggered sync")

	rootCmd.AddCommand(syncCommand)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = syncAPIKey
	}
	if cmd.Flags().Changed("max-concurrent") {
		cfg.MaxConcurrent = syncMaxConcurrent
	}
	if cmd.Flags().Changed("debounce") {
		cfg.WatchDebounce = config.Duration(syncDebounce)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireTranscripts(); err != nil {
		return err
	}
	if syncWatch && syncDryRun {
		return fmt.Errorf("--watch and --dry-run are mutually exclusive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := newLogger(cmd, cfg)
	printer := observability.NewPrinter(cmd.OutOrStdout())

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	var o oracle.Oracle
	if !syncDryRun {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		defer func() { _ = client.Close() }()
		o = newOracle(client, cfg, logger)
	}

	opts := pipelineOptions(cfg, syncDryRun)
	if rootVerbose {
		opts.OnProgress = printer.PrintProgress
	}
	p := pipeline.New(backend, o, opts, logger)

	runOnce := func(ctx context.Context) error {
		report, err := p.Run(ctx)
		if report != nil {
			if report.DryRun || rootVerbose {
				printer.PrintPlan(report.Plan)
			}
			printer.PrintReport(report)
		}
		if err != nil {
			return err
		}
		if report.Status != monitor.StatusSuccess {
			return fmt.Errorf("run %s finished with status %s", report.RunID, report.Status)
		}
		return nil
	}

	if !syncWatch {
		return runOnce(ctx)
	}

	if err := runOnce(ctx); err != nil {
		logger.Error("initial sync failed", "error", err)
	}
	w, err := watcher.New(cfg.TranscriptsDir, cfg.WatchDebounce.Std(), runOnce, logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newOracle builds the LLM-backed oracle with retries.
func newOracle(client llm.Client, cfg *config.Config, logger *slog.Logger) oracle.Oracle {
	opts := oracle.DefaultLLMOptions()
	opts.EmbeddingDimensions = cfg.Oracle.EmbeddingDimensions
	return oracle.WithRetry(oracle.NewLLMOracle(client, opts), cfg.RetryPolicy(), logger)
}

func pipelineOptions(cfg *config.Config, dryRun bool) pipeline.Options {
	return pipeline.Options{
		Root:          cfg.TranscriptsDir,
		MaxConcurrent: cfg.MaxConcurrent,
		DryRun:        dryRun,
		SyncTimeout:   cfg.SyncTimeout.Std(),
		Chunking:      chunking.Options{PriorWindow: cfg.Chunking.PriorWindow, Lookahead: cfg.Chunking.Lookahead},
		Sectioning:    sectioning.Options{RecentWindow: cfg.Sections.RecentWindow},
		Pricing:       cfg.MonitorPricing(),
	}
}
