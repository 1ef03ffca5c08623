package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Ingest      IngestConfig     `toml:"ingest"`
	Claude      ClaudeConfig     `toml:"claude"`
	Enrichment  EnrichmentConfig `toml:"enrichment"`
	Report      ReportConfig     `toml:"report"`
	Sweep       SweepConfig      `toml:"sweep"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// IngestConfig bounds the CSV ingestion boundary.
type IngestConfig struct {
	MaxRows        int `toml:"max_rows"`        // cap on rows parsed per file (0 = unlimited)
	InitialTriage  int `toml:"initial_triage"`  // records triaged immediately after ingest (0 = none)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY preferred)
	Model       string  `toml:"model"`       // Model for analysis (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 2048)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "45s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// EnrichmentConfig tunes the orchestrator against the service's rate limits.
type EnrichmentConfig struct {
	Concurrency    int    `toml:"concurrency"`     // bounded worker pool size (default: 4)
	RateLimit      string `toml:"rate_limit"`      // minimum spacing between calls (default: "1s")
	MaxAttempts    int    `toml:"max_attempts"`    // attempt ceiling per fingerprint (default: 3)
	InitialBackoff string `toml:"initial_backoff"` // first retry delay (default: "2s")
	MaxBackoff     string `toml:"max_backoff"`     // retry delay cap (default: "30s")
	BatchTimeout   string `toml:"batch_timeout"`   // batch abandonment threshold (default: "10m")
}

// ReportConfig bounds report generation.
type ReportConfig struct {
	SampleBudget int `toml:"sample_budget"` // max records forwarded to narrative summarization (default: 20)
}

// SweepConfig drives the scheduled enrichment of pending records.
type SweepConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron format (default: "0 */5 * * * *")
	Limit    int    `toml:"limit"`    // max records triaged per sweep (default: 50)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings belong in logsight.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8050,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Ingest: IngestConfig{
			MaxRows:       0,
			InitialTriage: 5,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   2048,
			Timeout:     "45s",
			Temperature: 0.2,
		},
		Enrichment: EnrichmentConfig{
			Concurrency:    4,
			RateLimit:      "1s",
			MaxAttempts:    3,
			InitialBackoff: "2s",
			MaxBackoff:     "30s",
			BatchTimeout:   "10m",
		},
		Report: ReportConfig{
			SampleBudget: 20,
		},
		Sweep: SweepConfig{
			Enabled:  false,
			Schedule: "0 */5 * * * *",
			Limit:    50,
		},
	}
}

// LoadFromFile loads configuration in priority order:
// defaults -> TOML file (optional) -> environment variables.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies LOGSIGHT_* environment variables over the file
// configuration. The Anthropic key also honors the SDK's own variable.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LOGSIGHT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("LOGSIGHT_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("LOGSIGHT_DATA_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("LOGSIGHT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	} else if v := os.Getenv("LOGSIGHT_CLAUDE_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("LOGSIGHT_CLAUDE_MODEL"); v != "" {
		config.Claude.Model = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ParseDurationOr parses a duration string, falling back when empty or invalid.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
