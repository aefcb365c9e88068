package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("TEST_MEMORY_DSN", "postgres://app:secret@db:5432/memories")
	path := writeConfig(t, `{
		"server": {"port": ${TEST_MEMORY_PORT:9090}, "log_level": "${TEST_MEMORY_LOG:info}"},
		"database": {"dsn": "${TEST_MEMORY_DSN}"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "postgres://app:secret@db:5432/memories" {
		t.Errorf("dsn not substituted: %q", cfg.Database.DSN)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Server.LogLevel)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("TEST_MEMORY_PORT", "3210")
	path := writeConfig(t, `{
		"server": {"port": ${TEST_MEMORY_PORT:9090}},
		"database": {"dsn": "x"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 3210 {
		t.Errorf("expected env port 3210, got %d", cfg.Server.Port)
	}
}

func TestLoadUnsetVarWithoutDefaultIsEmpty(t *testing.T) {
	path := writeConfig(t, `{"database": {"dsn": "${TEST_MEMORY_MISSING_DSN}"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Empty DSN is the fail-fast signal checked at startup.
	if cfg.Database.DSN != "" {
		t.Errorf("expected empty dsn, got %q", cfg.Database.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
