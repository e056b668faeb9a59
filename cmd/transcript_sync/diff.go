package main

import (
	"github.com/spf13/cobra"

	"github.com/alexwday/aegis-project-sub000/internal/observability"
	"github.com/alexwday/aegis-project-sub000/internal/pipeline"
)

var diffCommand = &cobra.Command{
	Use:   "diff",
	Short: "Show which transcripts a sync would process or remove",
	Long:  "Compares the transcript tree with the catalog and prints the plan. Nothing is written.",
	Args:  cobra.NoArgs,
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCommand)
}

func runDiff(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireTranscripts(); err != nil {
		return err
	}
	ctx := cmd.Context()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	// planning never consults the oracle
	p := pipeline.New(backend, nil, pipeline.Options{Root: cfg.TranscriptsDir}, newLogger(cmd, cfg))
	plan, err := p.Plan(ctx)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintPlan(plan)
	return nil
}
