package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDeck(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDeck() error {
	if c.Deck.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/deckhand/config.toml"
		}
		return fmt.Errorf("deck.url is required. Set DECKHAND_URL or edit %s (create with 'deckhand config init')", defaultPath)
	}
	if c.Deck.TransportIndex < 0 || c.Deck.TransportIndex > 7 {
		return errors.New("deck.transport_index must be between 0 and 7")
	}
	return nil
}

func (c *Config) validatePolling() error {
	if c.Polling.ConnectedIntervalMS >= c.Polling.DisconnectedIntervalMS {
		return errors.New("polling.connected_interval_ms must be shorter than polling.disconnected_interval_ms")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.BaseDelayMS > c.Retry.MaxDelayMS {
		return errors.New("retry.base_delay_ms must not exceed retry.max_delay_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
