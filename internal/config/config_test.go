package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DOCFILL_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("expected 1h session TTL, got %s", cfg.SessionTTL)
	}
	if cfg.ScanHeaders || cfg.RenameBlank || cfg.PermissiveExtraction {
		t.Errorf("expected optional behaviours off by default, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docfill.yaml")
	body := "port: \"9000\"\nsession_ttl: 30m\nscan_headers: true\nlog_level: debug\nmax_upload_bytes: -1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCFILL_CONFIG", path)
	t.Setenv("PORT", "9100")
	t.Setenv("RENAME_BLANK_PLACEHOLDERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("expected env to override file port, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected 30m from file, got %s", cfg.SessionTTL)
	}
	if !cfg.ScanHeaders || !cfg.RenameBlank {
		t.Errorf("expected scan_headers and rename_blank on, got %+v", cfg)
	}
	if cfg.MaxUploadBytes != Defaults().MaxUploadBytes {
		t.Errorf("expected non-positive upload limit reset to default, got %d", cfg.MaxUploadBytes)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("DOCFILL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}
	cfg = Defaults()
	cfg.Port = "http"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}
