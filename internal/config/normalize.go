package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() {
	c.Deck.URL = strings.TrimSpace(c.Deck.URL)
	if c.Deck.URL == "" {
		if value, ok := os.LookupEnv("DECKHAND_URL"); ok {
			c.Deck.URL = strings.TrimSpace(value)
		}
	}
	if c.Deck.RequestTimeoutMS <= 0 {
		c.Deck.RequestTimeoutMS = defaultRequestTimeoutMS
	}
	if c.Polling.ConnectedIntervalMS <= 0 {
		c.Polling.ConnectedIntervalMS = defaultConnectedIntervalMS
	}
	if c.Polling.DisconnectedIntervalMS <= 0 {
		c.Polling.DisconnectedIntervalMS = defaultDisconnectedIntervalMS
	}
	if c.Polling.HealthWindowMS <= 0 {
		c.Polling.HealthWindowMS = defaultHealthWindowMS
	}
	if c.Polling.FailureThreshold <= 0 {
		c.Polling.FailureThreshold = defaultFailureThreshold
	}
	if c.Cache.TTLMS <= 0 {
		c.Cache.TTLMS = defaultCacheTTLMS
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheMaxEntries
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = defaultRetryMaxDelayMS
	}
	c.normalizeLogging()
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
