package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if len(cfg.Backends) != 1 {
		t.Fatalf("len(Backends) = %d, want 1", len(cfg.Backends))
	}
	b := cfg.Backends[0]
	if b.Kind != "inference" || b.APIKeyEnv != "ANTHROPIC_API_KEY" {
		t.Errorf("primary backend = %+v", b)
	}
	if cfg.Dispatch.MaxConcurrency != 4 || cfg.Dispatch.MaxRetries != 2 {
		t.Errorf("Dispatch = %+v", cfg.Dispatch)
	}
	if cfg.FailOn != "none" {
		t.Errorf("FailOn = %q, want none", cfg.FailOn)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
	if !cfg.Privacy.RedactSecrets {
		t.Error("redaction should default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_FileMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qrev.toml")
	data := `
fail_on = "major"
exclude = ["generated/**"]

[dispatch]
max_concurrency = 8

[[backends]]
name = "q-cli"
kind = "process"
command = ["q", "chat"]
timeout_sec = 30

[[backends]]
name = "kiro"
kind = "http"
endpoint = "https://kiro.example.com/v1/chat"
model = "kiro-large"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Backends) != 2 {
		t.Fatalf("len(Backends) = %d, want 2", len(cfg.Backends))
	}
	if cfg.Backends[0].Name != "q-cli" || cfg.Backends[0].Kind != "process" {
		t.Errorf("Backends[0] = %+v", cfg.Backends[0])
	}
	if cfg.Backends[0].Timeout() != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Backends[0].Timeout())
	}
	if cfg.Backends[1].Endpoint != "https://kiro.example.com/v1/chat" {
		t.Errorf("Backends[1].Endpoint = %q", cfg.Backends[1].Endpoint)
	}
	if cfg.Dispatch.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d, want 8", cfg.Dispatch.MaxConcurrency)
	}
	// Unset file fields keep their defaults.
	if cfg.Dispatch.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want default 2", cfg.Dispatch.MaxRetries)
	}
	if cfg.FailOn != "major" {
		t.Errorf("FailOn = %q, want major", cfg.FailOn)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "generated/**" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Dispatch.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want default 4", cfg.Dispatch.MaxConcurrency)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QREV_FAIL_ON", "critical")
	t.Setenv("QREV_MAX_CONCURRENCY", "2")
	t.Setenv("QREV_MAX_RETRIES", "0")
	t.Setenv("REVIEW_TIMEOUT_SEC", "45")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.FailOn != "critical" {
		t.Errorf("FailOn = %q, want critical", cfg.FailOn)
	}
	if cfg.Dispatch.MaxConcurrency != 2 {
		t.Errorf("MaxConcurrency = %d, want 2", cfg.Dispatch.MaxConcurrency)
	}
	if cfg.Dispatch.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Dispatch.MaxRetries)
	}
	if cfg.Backends[0].TimeoutSec != 45 {
		t.Errorf("TimeoutSec = %d, want 45", cfg.Backends[0].TimeoutSec)
	}
}

func TestLoad_FlagOverridesBeatEnv(t *testing.T) {
	t.Setenv("QREV_FAIL_ON", "minor")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), map[string]string{
		"failOn":         "critical",
		"maxConcurrency": "16",
		"rulesFile":      "team-rules.json",
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.FailOn != "critical" {
		t.Errorf("FailOn = %q, want flag value critical", cfg.FailOn)
	}
	if cfg.Dispatch.MaxConcurrency != 16 {
		t.Errorf("MaxConcurrency = %d, want 16", cfg.Dispatch.MaxConcurrency)
	}
	if cfg.RulesFile != "team-rules.json" {
		t.Errorf("RulesFile = %q", cfg.RulesFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no backends", func(c *Config) { c.Backends = nil }, true},
		{"bad kind", func(c *Config) { c.Backends[0].Kind = "smoke-signal" }, true},
		{"zero concurrency", func(c *Config) { c.Dispatch.MaxConcurrency = 0 }, true},
		{"negative retries", func(c *Config) { c.Dispatch.MaxRetries = -1 }, true},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(&cfg)
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestBackendTimeoutDefault(t *testing.T) {
	b := BackendConfig{}
	if b.Timeout() != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", b.Timeout())
	}
}
