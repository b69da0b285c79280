package deck

import (
	"fmt"
	"net/url"
	"strings"
)

const controlAPIPath = "/control/api/v1/"

// Endpoint is the immutable address of one deck. A different deck means a
// different Endpoint and a different Client.
type Endpoint struct {
	base *url.URL
}

// ParseEndpoint normalizes anything an operator is likely to type (a bare
// IP, host:port, or a scheme'd URL, with or without the control API
// suffix) into a canonical base URL ending in /control/api/v1/.
func ParseEndpoint(raw string) (Endpoint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Endpoint{}, fmt.Errorf("%w: deck url required", ErrValidation)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: parse deck url %q: %w", ErrValidation, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("%w: deck url %q: unsupported scheme %q", ErrValidation, raw, u.Scheme)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: deck url %q: missing host", ErrValidation, raw)
	}

	path := strings.TrimRight(u.Path, "/")
	if !strings.EqualFold(path, strings.TrimRight(controlAPIPath, "/")) {
		path += controlAPIPath
	} else {
		path += "/"
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return Endpoint{base: u}, nil
}

// BaseURL returns the canonical base URL string.
func (e Endpoint) BaseURL() string {
	if e.base == nil {
		return ""
	}
	return e.base.String()
}

// Host returns the host (and port, if any) of the deck.
func (e Endpoint) Host() string {
	if e.base == nil {
		return ""
	}
	return e.base.Host
}

// resolve joins a relative API path and query onto the base URL.
func (e Endpoint) resolve(path string, query url.Values) *url.URL {
	rel := &url.URL{Path: strings.TrimLeft(path, "/")}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return e.base.ResolveReference(rel)
}
