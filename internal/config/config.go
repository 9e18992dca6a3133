package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth. Empty disables the bearer check on /api.
	DocfillAPIKey string `yaml:"api_key"`

	// Question phrasing. Without a key replies come from fixed templates.
	AnthropicAPIKey    string        `yaml:"anthropic_api_key"`
	AnthropicModel     string        `yaml:"anthropic_model"`
	AnthropicTimeout   time.Duration `yaml:"anthropic_timeout"`
	HistoryTokenBudget int           `yaml:"history_token_budget"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Session state
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Placeholder handling
	ScanHeaders          bool `yaml:"scan_headers"`
	RenameBlank          bool `yaml:"rename_blank_placeholders"`
	PermissiveExtraction bool `yaml:"permissive_extraction"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:               "8090",
		AnthropicModel:     "claude-sonnet-4-5-20250929",
		AnthropicTimeout:   30 * time.Second,
		HistoryTokenBudget: 2000,
		MaxUploadBytes:     20 << 20, // 20MB
		SessionTTL:         1 * time.Hour,
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// DOCFILL_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("DOCFILL_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DocfillAPIKey = envOr("DOCFILL_API_KEY", cfg.DocfillAPIKey)
	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicTimeout = envDuration("ANTHROPIC_TIMEOUT", cfg.AnthropicTimeout)
	cfg.HistoryTokenBudget = envInt("HISTORY_TOKEN_BUDGET", cfg.HistoryTokenBudget)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.ScanHeaders = envBool("SCAN_HEADERS", cfg.ScanHeaders)
	cfg.RenameBlank = envBool("RENAME_BLANK_PLACEHOLDERS", cfg.RenameBlank)
	cfg.PermissiveExtraction = envBool("PERMISSIVE_EXTRACTION", cfg.PermissiveExtraction)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	def := Defaults()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.AnthropicTimeout <= 0 {
		cfg.AnthropicTimeout = def.AnthropicTimeout
	}
	if cfg.HistoryTokenBudget <= 0 {
		cfg.HistoryTokenBudget = def.HistoryTokenBudget
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if c.AnthropicAPIKey != "" && c.AnthropicModel == "" {
		return fmt.Errorf("ANTHROPIC_MODEL is required when ANTHROPIC_API_KEY is set")
	}
	return nil
}

// ParseLevel maps LOG_LEVEL to a slog level. Unknown values give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
