// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alexwday/aegis-project-sub000/internal/chunking"
	"github.com/alexwday/aegis-project-sub000/internal/llm"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/oracle"
	"github.com/alexwday/aegis-project-sub000/internal/sectioning"
	"github.com/alexwday/aegis-project-sub000/internal/watcher"
)

// Environment variables consulted when the file leaves a field empty.
const (
	EnvDatabaseURL    = "DATABASE_URL"
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvTranscriptsDir = "TRANSCRIPTS_DIR"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config represents the CLI configuration that can be loaded from a JSON or
// YAML file. Missing values use defaults, environment variables or CLI flags.
type Config struct {
	TranscriptsDir string `json:"transcripts_dir" yaml:"transcripts_dir"`
	DatabaseURL    string `json:"database_url" yaml:"database_url" validate:"required"`
	MaxConns       int32  `json:"max_conns" yaml:"max_conns" validate:"min=1,max=100"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	MaxConcurrent  int    `json:"max_concurrent" yaml:"max_concurrent" validate:"min=1,max=64"`

	SyncTimeout   Duration `json:"sync_timeout" yaml:"sync_timeout" validate:"min=0"`
	WatchDebounce Duration `json:"watch_debounce" yaml:"watch_debounce" validate:"min=0"`

	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Chunking ChunkingConfig `json:"chunking" yaml:"chunking"`
	Sections SectionsConfig `json:"sections" yaml:"sections"`
	Oracle   OracleConfig   `json:"oracle" yaml:"oracle"`
	Pricing  PricingConfig  `json:"pricing" yaml:"pricing"`
}

// LoggingConfig selects the slog handler. Empty values mean info and text.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// ChunkingConfig sizes the assembler's windows.
type ChunkingConfig struct {
	PriorWindow int `json:"prior_window" yaml:"prior_window" validate:"min=1,max=200"`
	Lookahead   int `json:"lookahead" yaml:"lookahead" validate:"min=0,max=200"`
}

// SectionsConfig sizes the grouper's window.
type SectionsConfig struct {
	RecentWindow int `json:"recent_window" yaml:"recent_window" validate:"min=1,max=100"`
}

// OracleConfig configures the models behind the decision oracle and how
// their calls are retried.
type OracleConfig struct {
	Models              map[llm.ModelTier]string `json:"models,omitempty" yaml:"models,omitempty"`
	EmbeddingModel      string                   `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
	EmbeddingDimensions int                      `json:"embedding_dimensions" yaml:"embedding_dimensions" validate:"min=0"`
	MaxAttempts         int                      `json:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
	InitialBackoff      Duration                 `json:"initial_backoff" yaml:"initial_backoff" validate:"min=0"`
	MaxBackoff          Duration                 `json:"max_backoff" yaml:"max_backoff" validate:"min=0"`
	CallTimeout         Duration                 `json:"call_timeout" yaml:"call_timeout" validate:"min=0"`
}

// PricingConfig is the provider price per 1K tokens.
type PricingConfig struct {
	PromptPer1K     float64 `json:"prompt_per_1k" yaml:"prompt_per_1k" validate:"min=0"`
	CompletionPer1K float64 `json:"completion_per_1k" yaml:"completion_per_1k" validate:"min=0"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	retry := oracle.DefaultRetryPolicy()
	chunk := chunking.DefaultOptions()
	return &Config{
		MaxConns:      10,
		MaxConcurrent: 4,
		SyncTimeout:   Duration(60 * time.Second),
		WatchDebounce: Duration(watcher.DefaultDebounce),
		Chunking:      ChunkingConfig{PriorWindow: chunk.PriorWindow, Lookahead: chunk.Lookahead},
		Sections:      SectionsConfig{RecentWindow: sectioning.DefaultRecentWindow},
		Oracle: OracleConfig{
			MaxAttempts:    retry.MaxAttempts,
			InitialBackoff: Duration(retry.InitialInterval),
			MaxBackoff:     Duration(retry.MaxInterval),
			CallTimeout:    Duration(retry.CallTimeout),
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file on top of the
// defaults. The format follows the file extension.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// ApplyEnv fills empty fields from the environment through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv(EnvDatabaseURL)
	}
	if c.APIKey == "" {
		c.APIKey = getenv(EnvAPIKey)
	}
	if c.TranscriptsDir == "" {
		c.TranscriptsDir = getenv(EnvTranscriptsDir)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = strings.ToLower(getenv(EnvLogLevel))
	}
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("'%s' failed '%s'", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.Oracle.MaxBackoff < c.Oracle.InitialBackoff {
		return fmt.Errorf("config error: 'oracle.max_backoff' must not be below 'oracle.initial_backoff'")
	}
	return nil
}

// RequireTranscripts checks that the transcripts directory is set and exists.
func (c *Config) RequireTranscripts() error {
	if c.TranscriptsDir == "" {
		return fmt.Errorf("config error: transcripts directory is required (--transcripts or %s)", EnvTranscriptsDir)
	}
	if info, err := os.Stat(c.TranscriptsDir); err != nil || !info.IsDir() {
		return fmt.Errorf("config error: transcripts directory not found: %s", c.TranscriptsDir)
	}
	return nil
}

// RequireAPIKey checks that a provider key is available.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("config error: API key is required (--api-key or %s)", EnvAPIKey)
	}
	return nil
}

// RetryPolicy returns the oracle retry policy.
func (c *Config) RetryPolicy() oracle.RetryPolicy {
	return oracle.RetryPolicy{
		MaxAttempts:     c.Oracle.MaxAttempts,
		InitialInterval: c.Oracle.InitialBackoff.Std(),
		MaxInterval:     c.Oracle.MaxBackoff.Std(),
		CallTimeout:     c.Oracle.CallTimeout.Std(),
	}
}

// LLMConfig returns the provider client configuration with any model
// overrides applied.
func (c *Config) LLMConfig() *llm.Config {
	out := llm.DefaultConfig()
	for tier, model := range c.Oracle.Models {
		if model != "" {
			out = out.WithModel(tier, model)
		}
	}
	if c.Oracle.EmbeddingModel != "" {
		out.EmbeddingModel = c.Oracle.EmbeddingModel
	}
	return out
}

// MonitorPricing returns the pricing used for run cost.
func (c *Config) MonitorPricing() monitor.Pricing {
	return monitor.Pricing{PromptPer1K: c.Pricing.PromptPer1K, CompletionPer1K: c.Pricing.CompletionPer1K}
}
