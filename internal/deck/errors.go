package deck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNetwork    = errors.New("network error")
	ErrTimeout    = errors.New("timeout")
	ErrDevice     = errors.New("device error")
	ErrProtocol   = errors.New("protocol error")
)

// StatusError reports a non-2xx response from the deck. The body is kept
// for diagnostics; decks return short JSON error payloads.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deck returned http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transient reports whether a retry could plausibly succeed: connection
// level failures, timeouts, DNS errors, and 5xx responses. Client-side
// rejections (4xx) and malformed payloads are not transient. Caller
// cancellation is the one non-retryable interrupt; a request timeout is
// transient (net/http reports it as wrapping context.DeadlineExceeded).
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrProtocol) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// Classify wraps a raw transport failure with the sentinel kind a consumer
// should branch on. Errors already carrying a sentinel pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNetwork),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrDevice),
		errors.Is(err, ErrProtocol):
		return err
	}

	// Caller cancellation is not a deck fault; hand it back untouched.
	if errors.Is(err, context.Canceled) {
		return err
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	return fmt.Errorf("%w: %w", ErrProtocol, err)
}
