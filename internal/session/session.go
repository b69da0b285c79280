package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/health"
	"deckhand/internal/logging"
	"deckhand/internal/monitor"
	"deckhand/internal/respcache"
)

// Session is a live connection to one deck: a persistent HTTP client, its
// response cache, the reachability state machine, and the background
// polling loop feeding subscribers.
type Session struct {
	id      string
	cfg     *config.Config
	logger  *slog.Logger
	client  *deck.Client
	cache   *respcache.Cache
	health  *health.Manager
	monitor *monitor.Monitor
	cancel  context.CancelFunc

	mu          sync.Mutex
	subscribers []func(monitor.Event)
	stateSubs   []func(previous, current health.State)

	stopOnce sync.Once
}

// Option customizes session construction.
type Option func(*options)

type options struct {
	httpClient deck.HTTPDoer
}

// WithHTTPClient overrides the deck transport (tests point it at a
// httptest server's client).
func WithHTTPClient(doer deck.HTTPDoer) Option {
	return func(o *options) {
		o.httpClient = doer
	}
}

// Connect builds the full stack for the configured deck and starts the
// polling loop. The returned session is live until Shutdown.
func Connect(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	endpoint, err := deck.ParseEndpoint(cfg.Deck.URL)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	s := &Session{
		id:     sessionID,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldSessionID, sessionID), logging.String(logging.FieldDeck, endpoint.Host())),
	}

	s.cache = respcache.New(cfg.CacheTTL(), cfg.Cache.MaxEntries)

	clientOpts := []deck.Option{
		deck.WithLogger(logging.NewComponentLogger(s.logger, "deck")),
		deck.WithCache(s.cache),
		deck.WithRetryPolicy(deck.NewPolicy(cfg.Retry.MaxAttempts, cfg.RetryBaseDelay(), cfg.RetryMaxDelay())),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, deck.WithHTTPClient(o.httpClient))
	}
	s.client = deck.NewClient(endpoint, cfg.RequestTimeout(), clientOpts...)

	s.health = health.NewManager(s.client,
		health.WithLogger(s.logger),
		health.WithWindow(cfg.HealthWindow()),
		health.WithFailureThreshold(cfg.Polling.FailureThreshold),
		health.WithListener(s.dispatchStateChange),
	)

	s.monitor = monitor.New(s.client, s.health, cfg.Deck.TransportIndex, s.dispatch,
		monitor.WithLogger(s.logger),
		monitor.WithIntervals(cfg.ConnectedInterval(), cfg.DisconnectedInterval()),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if err := s.monitor.Start(runCtx); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier carried on every log line.
func (s *Session) ID() string {
	return s.id
}

// Endpoint returns the normalized deck endpoint.
func (s *Session) Endpoint() deck.Endpoint {
	return s.client.Endpoint()
}

// State returns the last known connection state without blocking.
func (s *Session) State() health.State {
	return s.health.Current()
}

// CheckNow forces a fresh health check, blocking up to the request
// timeout, and returns the resulting state.
func (s *Session) CheckNow(ctx context.Context) health.State {
	return s.health.CheckNow(ctx)
}

// Subscribe registers a callback for poll events. Callbacks run on the
// polling goroutine in registration order.
func (s *Session) Subscribe(fn func(monitor.Event)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// SubscribeStateChanges registers a callback fired exactly once per
// connection-state transition, in the order transitions happen. A check
// that re-confirms the current state never fires it. Callbacks run on
// whichever goroutine performed the health check.
func (s *Session) SubscribeStateChanges(fn func(previous, current health.State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateSubs = append(s.stateSubs, fn)
}

// SendCommand validates and dispatches a transport command. Device-level
// rejections come back as a deck.ErrDevice-classified error, not a panic.
func (s *Session) SendCommand(ctx context.Context, req deck.CommandRequest) error {
	_, err := s.client.Command(ctx, req)
	return err
}

// Status fetches the overall device status through the cached read path.
func (s *Session) Status(ctx context.Context) (deck.DeviceStatus, error) {
	return s.client.Status(ctx)
}

// Transport fetches the configured transport's snapshot through the cached
// read path.
func (s *Session) Transport(ctx context.Context) (deck.TransportStatus, error) {
	return s.client.Transport(ctx, s.cfg.Deck.TransportIndex)
}

// Shutdown stops polling and releases the connection. Safe to call more
// than once and from any goroutine; no event is delivered after it
// returns.
func (s *Session) Shutdown() {
	s.stopOnce.Do(func() {
		s.monitor.Stop()
		if s.cancel != nil {
			s.cancel()
		}
		s.cache.Purge()
		s.logger.Info("session closed",
			logging.String(logging.FieldEventType, "session_closed"))
	})
}

func (s *Session) dispatchStateChange(previous, current health.State) {
	s.mu.Lock()
	subscribers := make([]func(previous, current health.State), len(s.stateSubs))
	copy(subscribers, s.stateSubs)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(previous, current)
	}
}

func (s *Session) dispatch(event monitor.Event) {
	s.mu.Lock()
	subscribers := make([]func(monitor.Event), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(event)
	}
}
