package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"deckhand/internal/logging"
)

const (
	defaultWindow           = 5 * time.Second
	defaultFailureThreshold = 3
)

// Prober is the lightweight reachability check, satisfied by the deck
// client. It must honor ctx and return within the transport timeout.
type Prober interface {
	Health(ctx context.Context) error
}

// Listener receives exactly one call per state transition. Re-confirming
// the current state never fires it.
type Listener func(previous, current State)

// Manager tracks reachability for one deck.
type Manager struct {
	prober    Prober
	logger    *slog.Logger
	window    time.Duration
	threshold int
	now       func() time.Time
	listener  Listener

	mu        sync.Mutex
	state     State
	failures  int
	lastCheck time.Time
	checked   bool
}

type transition struct {
	previous State
	current  State
}

// Option customizes a Manager.
type Option func(*Manager)

// WithWindow sets how long a check result stays valid.
func WithWindow(window time.Duration) Option {
	return func(m *Manager) {
		if window > 0 {
			m.window = window
		}
	}
}

// WithFailureThreshold sets how many consecutive failures demote a
// previously connected deck all the way to Disconnected.
func WithFailureThreshold(threshold int) Option {
	return func(m *Manager) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logging.NewComponentLogger(logger, "health")
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithListener registers the transition listener. The listener runs on the
// checking goroutine with no manager lock held.
func WithListener(listener Listener) Option {
	return func(m *Manager) {
		m.listener = listener
	}
}

// NewManager builds a manager starting in StateUnknown.
func NewManager(prober Prober, opts ...Option) *Manager {
	m := &Manager{
		prober:    prober,
		logger:    logging.NewNop(),
		window:    defaultWindow,
		threshold: defaultFailureThreshold,
		now:       time.Now,
		state:     StateUnknown,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the last known state without touching the network.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Check returns the current state, probing only when the last result has
// aged out of the validity window.
func (m *Manager) Check(ctx context.Context) State {
	m.mu.Lock()
	if m.checked && m.now().Sub(m.lastCheck) < m.window {
		state := m.state
		m.mu.Unlock()
		return state
	}
	m.mu.Unlock()
	return m.CheckNow(ctx)
}

// CheckNow probes the deck, applies the transition rules, and returns the
// resulting state. It may block up to the prober's timeout. Probe errors
// are consumed here; they only ever surface as state.
func (m *Manager) CheckNow(ctx context.Context) State {
	m.mu.Lock()
	var transitions []transition
	if m.state == StateUnknown {
		transitions = m.transitionLocked(transitions, StateConnecting)
	}
	m.mu.Unlock()
	m.emit(transitions)

	// The probe runs with no lock held; only the bookkeeping below is
	// serialized.
	err := m.prober.Health(ctx)

	m.mu.Lock()
	m.lastCheck = m.now()
	m.checked = true
	transitions = nil

	if err == nil {
		m.failures = 0
		transitions = m.transitionLocked(transitions, StateConnected)
	} else {
		m.failures++
		m.logger.Debug("health probe failed",
			logging.Int("consecutive_failures", m.failures),
			logging.Error(err))
		switch m.state {
		case StateConnected, StateDegraded:
			// A brief blip should not flap the consumer straight to
			// Disconnected; demote gradually until the threshold.
			if m.failures >= m.threshold {
				transitions = m.transitionLocked(transitions, StateDisconnected)
			} else {
				transitions = m.transitionLocked(transitions, StateDegraded)
			}
		default:
			transitions = m.transitionLocked(transitions, StateDisconnected)
		}
	}
	state := m.state
	m.mu.Unlock()

	m.emit(transitions)
	return state
}

func (m *Manager) transitionLocked(pending []transition, next State) []transition {
	if m.state == next {
		return pending
	}
	previous := m.state
	m.state = next
	m.logger.Info("connection state changed",
		logging.String(logging.FieldEventType, "connection_state_changed"),
		logging.String("from", previous.String()),
		logging.String("to", next.String()))
	return append(pending, transition{previous: previous, current: next})
}

func (m *Manager) emit(transitions []transition) {
	if m.listener == nil {
		return
	}
	for _, tr := range transitions {
		m.listener(tr.previous, tr.current)
	}
}
