package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIMEBOX_DB_PATH", "")
	t.Setenv("TIMEBOX_LOG_LEVEL", "")
	t.Setenv("TIMEBOX_LOG_PATH", "")
	t.Setenv("TIMEBOX_DEV_MODE", "")

	cfg := Load()
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}
	if cfg.LogPath == "" {
		t.Fatal("log path should have a default")
	}
	if cfg.DevMode {
		t.Fatal("dev mode should be off by default")
	}
}

func TestLoadEnvWins(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "custom.db")
	t.Setenv("TIMEBOX_DB_PATH", dbPath)
	t.Setenv("TIMEBOX_LOG_LEVEL", "debug")
	t.Setenv("TIMEBOX_DEV_MODE", "")

	cfg := Load()
	if cfg.DBPath != dbPath {
		t.Fatalf("expected db path %q, got %q", dbPath, cfg.DBPath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
	}
}

func TestLoadDevMode(t *testing.T) {
	t.Setenv("TIMEBOX_DB_PATH", "")
	t.Setenv("TIMEBOX_DEV_MODE", "1")

	cfg := Load()
	if !cfg.DevMode {
		t.Fatal("dev mode should be on")
	}
	if cfg.LogLevel != "debug" {
		t.Fatal("dev mode should force debug logging")
	}
	if cfg.DBPath == "" {
		t.Fatal("dev mode should pick a throwaway db path")
	}
}

func TestCoalesce(t *testing.T) {
	if got := coalesce("", "b", "c"); got != "b" {
		t.Fatalf("coalesce = %q, want %q", got, "b")
	}
	if got := coalesce("", ""); got != "" {
		t.Fatalf("coalesce = %q, want empty", got)
	}
	if got := coalesce("a", "b"); got != "a" {
		t.Fatalf("coalesce = %q, want %q", got, "a")
	}
}
