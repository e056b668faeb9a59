package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexwday/aegis-project-sub000/internal/config"
	"github.com/alexwday/aegis-project-sub000/internal/db"
	"github.com/alexwday/aegis-project-sub000/internal/logging"
)

var (
	rootConfigPath     string
	rootDatabaseURL    string
	rootTranscriptsDir string
	rootLogLevel       string
	rootLogFormat      string
	rootVerbose        bool
)

func init() {
	// Config file flag (processed first)
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	rootCmd.PersistentFlags().StringVar(&rootDatabaseURL, "db-url", "", "Catalog database: postgres:// URL or SQLite path (defaults to DATABASE_URL env var)")
	rootCmd.PersistentFlags().StringVarP(&rootTranscriptsDir, "transcripts", "t", "", "Transcript tree root (defaults to TRANSCRIPTS_DIR env var)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level: debug, info, warn, error (defaults to LOG_LEVEL env var)")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed progress information")
}

// loadConfig merges, in priority order, explicitly set flags, the config
// file, the environment and the defaults, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if rootConfigPath != "" {
		loaded, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL = rootDatabaseURL
	}
	if flags.Changed("transcripts") {
		cfg.TranscriptsDir = rootTranscriptsDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = rootLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = rootLogFormat
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
}

// openBackend connects to the catalog named by the config.
func openBackend(ctx context.Context, cfg *config.Config) (db.Backend, error) {
	backend, err := db.Open(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return backend, nil
}
