package deck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"deckhand/internal/logging"
	"deckhand/internal/respcache"
)

const (
	defaultRequestTimeout = 2500 * time.Millisecond
	userAgent             = "deckhand/0.3"
)

// HTTPDoer describes the HTTP client used to reach the deck. Tests swap in
// a double; production uses one persistent *http.Client per deck.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues reads and transport commands against a single deck.
type Client struct {
	endpoint Endpoint
	http     HTTPDoer
	logger   *slog.Logger
	cache    *respcache.Cache
	policy   Policy
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport. The caller keeps responsibility
// for timeouts on the supplied client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCache attaches a response cache for idempotent reads.
func WithCache(cache *respcache.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithSleeper overrides how retry waits happen (tests avoid real sleeps).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient builds a client for one deck endpoint. The default transport
// keeps the connection to the deck alive across requests.
func NewClient(endpoint Endpoint, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logging.NewNop(),
		policy: NewPolicy(0, 0, 0),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the deck endpoint this client was built for.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Read performs an idempotent GET. A live cache entry short-circuits the
// network and the retry machinery entirely; otherwise the request runs
// under the retry policy and a success is stored with a fresh timestamp.
// Exhausted retries surface a classified error, never a stale entry.
func (c *Client) Read(ctx context.Context, path string, query url.Values) ([]byte, error) {
	key := cacheKey(path, query)
	if c.cache != nil {
		if body, ok := c.cache.Lookup(key); ok {
			return body, nil
		}
	}
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Store(key, body)
	}
	return body, nil
}

// Command dispatches a mutating transport operation. Whatever the outcome,
// every cache entry the command could have affected is dropped: after a
// failed command the device state is just as unknown as after a success.
func (c *Client) Command(ctx context.Context, req CommandRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer c.invalidateAfterCommand(req.Index)

	var payload any
	if req.Action == ActionShuttle {
		payload = map[string]float64{"rate": req.Rate}
	}
	path := "transports/" + strconv.Itoa(req.Index) + "/" + string(req.Action)
	return c.doWithRetry(ctx, http.MethodPut, path, nil, payload)
}

// Status fetches the overall device status (power, slots).
func (c *Client) Status(ctx context.Context) (DeviceStatus, error) {
	body, err := c.Read(ctx, "status", nil)
	if err != nil {
		return DeviceStatus{}, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return DeviceStatus{}, fmt.Errorf("%w: decode status payload: %w", ErrProtocol, err)
	}
	return DeviceStatus{Raw: json.RawMessage(body), Fields: fields}, nil
}

// Transport fetches the playback snapshot for one transport index.
func (c *Client) Transport(ctx context.Context, index int) (TransportStatus, error) {
	if index < MinTransportIndex || index > MaxTransportIndex {
		return TransportStatus{}, fmt.Errorf("%w: transport index %d outside [%d, %d]",
			ErrValidation, index, MinTransportIndex, MaxTransportIndex)
	}
	body, err := c.Read(ctx, "transports/"+strconv.Itoa(index), nil)
	if err != nil {
		return TransportStatus{}, err
	}
	status, err := parseTransportStatus(index, body)
	if err != nil {
		return TransportStatus{}, err
	}
	if clip, clipErr := c.ActiveClipName(ctx); clipErr == nil {
		status.ClipName = clip
	}
	return status, nil
}

// ActiveClipName resolves the active clip. Older firmware lacks
// clips/active, so a failure falls back to scanning the clip list for the
// entry flagged active.
func (c *Client) ActiveClipName(ctx context.Context) (string, error) {
	if body, err := c.Read(ctx, "clips/active", nil); err == nil {
		fields := map[string]any{}
		if json.Unmarshal(body, &fields) == nil {
			return deriveClipName(fields), nil
		}
	}
	body, err := c.Read(ctx, "clips", nil)
	if err != nil {
		return "", err
	}
	var listing struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		var bare []map[string]any
		if json.Unmarshal(body, &bare) != nil {
			return "", fmt.Errorf("%w: decode clips payload: %w", ErrProtocol, err)
		}
		listing.Items = bare
	}
	for _, clip := range listing.Items {
		if active, ok := clip["active"].(bool); ok && active {
			return deriveClipName(clip), nil
		}
	}
	return "", nil
}

// Health is the lightweight reachability probe: a fresh GET status that
// bypasses the response cache and the retry loop. Reachability caching is
// the connection manager's job, and a probe that has to survive three
// retries is not a healthy deck.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "status", nil, nil, uuid.NewString())
	return Classify(err)
}

// Play starts playback on the given transport.
func (c *Client) Play(ctx context.Context, index int) error {
	_, err := c.Command(ctx, CommandRequest{Action: ActionPlay, Index: index})
	return err
}

// Stop halts playback or recording on the given transport.
func (c *Client) Stop(ctx context.Context, index int) error {
	_, err := c.Command(ctx, CommandRequest{Action: ActionStop, Index: index})
	return err
}

// Record starts recording on the given transport.
func (c *Client) Record(ctx context.Context, index int) error {
	_, err := c.Command(ctx, CommandRequest{Action: ActionRecord, Index: index})
	return err
}

// Shuttle sets the shuttle rate on the given transport.
func (c *Client) Shuttle(ctx context.Context, index int, rate float64) error {
	_, err := c.Command(ctx, CommandRequest{Action: ActionShuttle, Index: index, Rate: rate})
	return err
}

func (c *Client) invalidateAfterCommand(index int) {
	if c.cache == nil {
		return
	}
	removed := c.cache.Invalidate(
		"transports/"+strconv.Itoa(index),
		"status",
		"clips",
	)
	if removed > 0 {
		c.logger.Debug("invalidated cached responses after command",
			logging.Int("entries", removed),
			logging.Int("transport_index", index))
	}
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	correlationID := uuid.NewString()
	var lastErr error
	for attempt := 1; ; attempt++ {
		body, err := c.do(ctx, method, path, query, payload, correlationID)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// A timeout from the caller's own ctx looks like any other
		// timeout; stop retrying once the caller has given up.
		if ctx.Err() != nil {
			break
		}
		delay, retry := c.policy.Next(attempt, err)
		if !retry {
			break
		}
		c.logger.Warn("deck request failed; retrying",
			logging.String(logging.FieldCorrelationID, correlationID),
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, Classify(err)
		}
	}
	return nil, Classify(lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, correlationID string) ([]byte, error) {
	reqURL := c.endpoint.resolve(path, query)

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s body: %w", ErrValidation, path, err)
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %w", ErrValidation, path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("deck request completed",
		logging.String(logging.FieldCorrelationID, correlationID),
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode))

	// Commands often ack with 204 or an empty body.
	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
