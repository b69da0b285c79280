// Package config loads, normalizes, and validates the deckhand TOML
// configuration: the deck endpoint, polling cadence, cache bounds, retry
// policy, and log output settings.
package config
