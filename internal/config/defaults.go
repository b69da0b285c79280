package config

// Timing defaults match the device's comfortable request budget: a 1s poll
// while reachable, backing off to 5s while the deck is away.
const (
	defaultTransportIndex         = 0
	defaultRequestTimeoutMS       = 2500
	defaultConnectedIntervalMS    = 1000
	defaultDisconnectedIntervalMS = 5000
	defaultHealthWindowMS         = 5000
	defaultFailureThreshold       = 3
	defaultCacheTTLMS             = 1000
	defaultCacheMaxEntries        = 128
	defaultRetryMaxAttempts       = 3
	defaultRetryBaseDelayMS       = 500
	defaultRetryMaxDelayMS        = 5000
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults. The deck URL
// has no default; it must come from the file, flag, or environment.
func Default() Config {
	return Config{
		Deck: Deck{
			TransportIndex:   defaultTransportIndex,
			RequestTimeoutMS: defaultRequestTimeoutMS,
		},
		Polling: Polling{
			ConnectedIntervalMS:    defaultConnectedIntervalMS,
			DisconnectedIntervalMS: defaultDisconnectedIntervalMS,
			HealthWindowMS:         defaultHealthWindowMS,
			FailureThreshold:       defaultFailureThreshold,
		},
		Cache: Cache{
			TTLMS:      defaultCacheTTLMS,
			MaxEntries: defaultCacheMaxEntries,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
			MaxDelayMS:  defaultRetryMaxDelayMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
