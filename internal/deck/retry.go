package deck

import (
	"math/rand/v2"
	"time"
)

const (
	defaultRetryMaxAttempts = 3
	defaultRetryBaseDelay   = 500 * time.Millisecond
	defaultRetryMaxDelay    = 5 * time.Second
)

// Policy decides whether a failed attempt is retried and how long to wait
// before the next one. The zero value is unusable; construct with
// NewPolicy so defaults and the jitter source are populated.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	jitter func() float64
}

// NewPolicy builds a retry policy. Non-positive arguments fall back to the
// package defaults (3 attempts, 500ms base, 5s cap).
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) Policy {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		jitter:      rand.Float64,
	}
}

// WithJitterSource returns a copy of the policy using the supplied source
// for jitter, in [0, 1). Tests pass a deterministic source.
func (p Policy) WithJitterSource(src func() float64) Policy {
	p.jitter = src
	return p
}

// Next reports whether the attempt (1-based) that failed with err should be
// retried, and the delay to wait first. Only transient errors are retried,
// and never beyond MaxAttempts.
func (p Policy) Next(attempt int, err error) (time.Duration, bool) {
	if err == nil || attempt >= p.MaxAttempts {
		return 0, false
	}
	if !Transient(err) {
		return 0, false
	}
	return p.backoff(attempt), true
}

// backoff computes base * 2^(attempt-1) capped at MaxDelay, plus random
// jitter in [0, delay/2] so simultaneous clients do not retry in lockstep.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if delay > p.MaxDelay/2 {
			delay = p.MaxDelay
			break
		}
		delay *= 2
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.jitter != nil {
		delay += time.Duration(p.jitter() * float64(delay) / 2)
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
