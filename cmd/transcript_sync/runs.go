package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/observability"
)

var runsCommand = &cobra.Command{
	Use:   "runs <run-id>",
	Short: "Show the stage records of a sync run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRuns,
}

var runsJSON bool

func init() {
	runsCommand.Flags().BoolVar(&runsJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(runsCommand)
}

func runRuns(cmd *cobra.Command, args []string) error {
	runID := args[0]
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	records, err := backend.ListStageRecords(ctx, runID)
	if err != nil {
		return err
	}

	if runsJSON {
		if records == nil {
			records = []monitor.StageRecord{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRecords(runID, records)
	return nil
}
