package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Integration tests that exercise the full LoadFrom pipeline:
// defaults < YAML < environment variables.

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BUILDNOTIFY_PORT", "7070")
	t.Setenv("BUILDNOTIFY_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadFrom_ChannelSettingsExpandEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
channels:
  - name: ops
    provider: pushover
    settings:
      app_token: "${PUSHOVER_TOKEN}"
      device: "${PUSHOVER_DEVICE:-phone}"
    routing:
      global: "user-key"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PUSHOVER_TOKEN", "secret-token")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	settings := cfg.Channels[0].Settings
	if settings["app_token"] != "secret-token" {
		t.Errorf("expected token from env, got %q", settings["app_token"])
	}
	if settings["device"] != "phone" {
		t.Errorf("expected default device, got %q", settings["device"])
	}
}

func TestLoadFrom_ValidationError(t *testing.T) {
	t.Setenv("BUILDNOTIFY_BREAKER_MAX_FAILURES", "0")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected validation error")
	}
}
