package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"deckhand/internal/deck"
	"deckhand/internal/health"
	"deckhand/internal/logging"
)

const (
	defaultConnectedInterval    = time.Second
	defaultDisconnectedInterval = 5 * time.Second
)

// Event is one delivery to the consumer: the connection state observed
// this tick and either a fresh status snapshot or the error that prevented
// one.
type Event struct {
	State  health.State
	Status *deck.TransportStatus
	Err    error
	At     time.Time
}

// StatusReader fetches one transport snapshot; satisfied by *deck.Client.
type StatusReader interface {
	Transport(ctx context.Context, index int) (deck.TransportStatus, error)
}

// Checker is the health manager surface the loop needs.
type Checker interface {
	Check(ctx context.Context) health.State
	Current() health.State
}

// Monitor drives the polling loop for one deck transport.
type Monitor struct {
	client StatusReader
	health Checker
	logger *slog.Logger
	notify func(Event)
	index  int

	connectedInterval    time.Duration
	disconnectedInterval time.Duration

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithIntervals overrides the reachable/unreachable tick cadence.
func WithIntervals(connected, disconnected time.Duration) Option {
	return func(m *Monitor) {
		if connected > 0 {
			m.connectedInterval = connected
		}
		if disconnected > 0 {
			m.disconnectedInterval = disconnected
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logging.NewComponentLogger(logger, "monitor")
		}
	}
}

// New builds a monitor polling the given transport index. notify receives
// every tick's outcome and runs on the polling goroutine; it must not
// block for long.
func New(client StatusReader, checker Checker, index int, notify func(Event), opts ...Option) *Monitor {
	m := &Monitor{
		client:               client,
		health:               checker,
		logger:               logging.NewNop(),
		notify:               notify,
		index:                index,
		connectedInterval:    defaultConnectedInterval,
		disconnectedInterval: defaultDisconnectedInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the polling goroutine. It returns immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop(runCtx)
	return nil
}

// Stop halts scheduling and waits for the in-flight tick to finish. It is
// idempotent and safe to call from any goroutine.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Interval reports the tick delay the loop would use for the given state.
func (m *Monitor) Interval(state health.State) time.Duration {
	if state.Reachable() {
		return m.connectedInterval
	}
	return m.disconnectedInterval
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	// A timer rather than a ticker: the delay is re-chosen after every
	// tick so a state change takes effect within one tick.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		state := m.poll(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(m.Interval(state))
	}
}

// poll runs one tick: refresh the connection state if its window lapsed,
// then attempt a status read. The state delivered with a failed read is
// re-fetched afterwards, since the failure itself may have demoted it.
func (m *Monitor) poll(ctx context.Context) health.State {
	state := m.health.Check(ctx)

	status, err := m.client.Transport(ctx, m.index)
	if err != nil {
		if ctx.Err() != nil {
			return state
		}
		state = m.health.Current()
		m.logger.Warn("status poll failed",
			logging.String(logging.FieldEventType, "status_poll_failed"),
			logging.String("state", state.String()),
			logging.Error(err))
		m.deliver(Event{State: state, Err: err, At: time.Now()})
		return state
	}

	m.deliver(Event{State: state, Status: &status, At: time.Now()})
	return state
}

func (m *Monitor) deliver(event Event) {
	if m.notify == nil {
		return
	}
	m.notify(event)
}
