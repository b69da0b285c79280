package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Deck identifies the device being driven and how long one request may take.
type Deck struct {
	URL              string `toml:"url"`
	TransportIndex   int    `toml:"transport_index"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
}

// Polling controls the status loop cadence and the health-check window.
type Polling struct {
	ConnectedIntervalMS    int `toml:"connected_interval_ms"`
	DisconnectedIntervalMS int `toml:"disconnected_interval_ms"`
	HealthWindowMS         int `toml:"health_window_ms"`
	FailureThreshold       int `toml:"failure_threshold"`
}

// Cache bounds the response cache.
type Cache struct {
	TTLMS      int `toml:"ttl_ms"`
	MaxEntries int `toml:"max_entries"`
}

// Retry governs transient-failure retries.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for deckhand.
type Config struct {
	Deck    Deck    `toml:"deck"`
	Polling Polling `toml:"polling"`
	Cache   Cache   `toml:"cache"`
	Retry   Retry   `toml:"retry"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/deckhand/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// values are the config, the resolved path, and whether a file existed.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with a hook applied between parsing and
// validation, so command-line flags can override file values and still go
// through normalization.
func LoadWithOverrides(path string, override func(*Config)) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if override != nil {
		override(&cfg)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("deckhand.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Duration accessors keep the TOML surface in plain integers while the rest
// of the code works in time.Duration.

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Deck.RequestTimeoutMS) * time.Millisecond
}

func (c *Config) ConnectedInterval() time.Duration {
	return time.Duration(c.Polling.ConnectedIntervalMS) * time.Millisecond
}

func (c *Config) DisconnectedInterval() time.Duration {
	return time.Duration(c.Polling.DisconnectedIntervalMS) * time.Millisecond
}

func (c *Config) HealthWindow() time.Duration {
	return time.Duration(c.Polling.HealthWindowMS) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMS) * time.Millisecond
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
