package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// BackendConfig describes one analysis backend in the fallback chain.
type BackendConfig struct {
	// Name identifies the backend in results and diagnostics. Defaults
	// to Kind when empty.
	Name string `toml:"name"`
	// Kind selects the variant: "http", "process", or "inference".
	Kind string `toml:"kind"`

	// HTTP and inference backends.
	Endpoint  string `toml:"endpoint"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`

	// Process backends. Command is the local argv; when Host is set the
	// command runs over SSH instead.
	Command []string `toml:"command"`
	Host    string   `toml:"host"`
	User    string   `toml:"user"`
	Port    int      `toml:"port"`
	KeyPath string   `toml:"key_path"`

	// TimeoutSec is the per-call deadline. Zero means the default.
	TimeoutSec int `toml:"timeout_sec"`
}

// Timeout returns the per-call deadline with the default applied.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSec > 0 {
		return time.Duration(b.TimeoutSec) * time.Second
	}
	return 120 * time.Second
}

// DispatchConfig is the declarative retry/backoff/concurrency policy
// applied uniformly across all backends.
type DispatchConfig struct {
	MaxConcurrency int `toml:"max_concurrency"`
	MaxRetries     int `toml:"max_retries"`
	BackoffBaseMS  int `toml:"backoff_base_ms"`
	BackoffCapMS   int `toml:"backoff_cap_ms"`
}

// CacheConfig controls the per-hunk findings cache.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// PrivacyConfig controls secret redaction of hunk text before submission.
type PrivacyConfig struct {
	RedactSecrets bool `toml:"redact_secrets"`
}

// Config is the full qrev configuration.
type Config struct {
	// Backends is the ordered chain: the first entry is the primary, the
	// rest are fallbacks tried in order.
	Backends []BackendConfig `toml:"backends"`
	Dispatch DispatchConfig  `toml:"dispatch"`

	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`

	GuidelinesFile string `toml:"guidelines_file"`
	RulesFile      string `toml:"rules_file"`
	FailOn         string `toml:"fail_on"`

	Cache   CacheConfig   `toml:"cache"`
	Privacy PrivacyConfig `toml:"privacy"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Backends: []BackendConfig{
			{
				Name:       "anthropic",
				Kind:       "inference",
				Model:      "claude-sonnet-4-20250514",
				APIKeyEnv:  "ANTHROPIC_API_KEY",
				TimeoutSec: 120,
			},
		},
		Dispatch: DispatchConfig{
			MaxConcurrency: 4,
			MaxRetries:     2,
			BackoffBaseMS:  500,
			BackoffCapMS:   8000,
		},
		Include: []string{"**/*"},
		Exclude: []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		FailOn:  "none",
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{RedactSecrets: true},
	}
}

// ConfigDir returns the platform-appropriate config directory for qrev.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "qrev"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "qrev"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "qrev"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "qrev"), nil
	default:
		return filepath.Join(home, ".config", "qrev"), nil
	}
}

const fileName = "qrev.toml"

// ConfigPath returns the path of the user config file, whether or not it
// exists yet.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Save writes the config to the user config file as TOML, creating the
// config directory if needed.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config: defaults <- file <- env <- overrides.
// When path is empty, qrev.toml in the working directory is tried first,
// then the user config directory. A missing file is not an error.
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, found, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}
	if found {
		mergeFile(&cfg, fileCfg)
	}
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the system relies on.
func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	for i, b := range c.Backends {
		switch b.Kind {
		case "http", "process", "inference":
		default:
			return fmt.Errorf("backend %d: unknown kind %q", i, b.Kind)
		}
	}
	if c.Dispatch.MaxConcurrency < 1 {
		return fmt.Errorf("dispatch.max_concurrency must be >= 1")
	}
	if c.Dispatch.MaxRetries < 0 {
		return fmt.Errorf("dispatch.max_retries must be >= 0")
	}
	return nil
}

func loadFile(path string) (Config, bool, error) {
	if path == "" {
		if _, err := os.Stat(fileName); err == nil {
			path = fileName
		} else if dir, derr := ConfigDir(); derr == nil {
			candidate := filepath.Join(dir, fileName)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path == "" {
		return Config{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, true, nil
}

func mergeFile(dst *Config, src Config) {
	if len(src.Backends) > 0 {
		dst.Backends = src.Backends
	}
	if src.Dispatch.MaxConcurrency > 0 {
		dst.Dispatch.MaxConcurrency = src.Dispatch.MaxConcurrency
	}
	if src.Dispatch.MaxRetries > 0 {
		dst.Dispatch.MaxRetries = src.Dispatch.MaxRetries
	}
	if src.Dispatch.BackoffBaseMS > 0 {
		dst.Dispatch.BackoffBaseMS = src.Dispatch.BackoffBaseMS
	}
	if src.Dispatch.BackoffCapMS > 0 {
		dst.Dispatch.BackoffCapMS = src.Dispatch.BackoffCapMS
	}
	if len(src.Include) > 0 {
		dst.Include = src.Include
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.GuidelinesFile != "" {
		dst.GuidelinesFile = src.GuidelinesFile
	}
	if src.RulesFile != "" {
		dst.RulesFile = src.RulesFile
	}
	if src.FailOn != "" {
		dst.FailOn = src.FailOn
	}
	dst.Cache.Enabled = src.Cache.Enabled || dst.Cache.Enabled
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	dst.Privacy.RedactSecrets = src.Privacy.RedactSecrets || dst.Privacy.RedactSecrets
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("QREV_FAIL_ON"); v != "" {
		cfg.FailOn = v
	}
	if v := os.Getenv("QREV_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dispatch.MaxConcurrency = n
		}
	}
	if v := os.Getenv("QREV_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Dispatch.MaxRetries = n
		}
	}
	if v := os.Getenv("QREV_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("REVIEW_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			for i := range cfg.Backends {
				cfg.Backends[i].TimeoutSec = n
			}
		}
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["failOn"]; ok && v != "" {
		cfg.FailOn = v
	}
	if v, ok := overrides["maxConcurrency"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dispatch.MaxConcurrency = n
		}
	}
	if v, ok := overrides["maxRetries"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Dispatch.MaxRetries = n
		}
	}
	if v, ok := overrides["guidelines"]; ok && v != "" {
		cfg.GuidelinesFile = v
	}
	if v, ok := overrides["rulesFile"]; ok && v != "" {
		cfg.RulesFile = v
	}
	if v, ok := overrides["timeoutSec"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			for i := range cfg.Backends {
				cfg.Backends[i].TimeoutSec = n
			}
		}
	}
}
