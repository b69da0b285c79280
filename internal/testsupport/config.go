// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"testing"

	"deckhand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config pointed at a placeholder deck with timings
// shrunk so tests never wait on production cadences.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Deck.URL = "http://127.0.0.1:1"
	cfg.Deck.RequestTimeoutMS = 250
	cfg.Polling.ConnectedIntervalMS = 10
	cfg.Polling.DisconnectedIntervalMS = 50
	cfg.Polling.HealthWindowMS = 50
	cfg.Retry.BaseDelayMS = 1
	cfg.Retry.MaxDelayMS = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDeckURL points the config at the given deck address.
func WithDeckURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Deck.URL = url
	}
}

// WithSlowPolling parks the background polling loop after its startup
// tick, leaving the test in control of all deck traffic.
func WithSlowPolling() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Polling.ConnectedIntervalMS = 3_600_000
		cfg.Polling.DisconnectedIntervalMS = 7_200_000
		cfg.Polling.HealthWindowMS = 1
	}
}

// WithRetryAttempts overrides the retry ceiling.
func WithRetryAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Retry.MaxAttempts = attempts
	}
}
