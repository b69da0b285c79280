package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"deckhand/internal/deck"
	"deckhand/internal/health"
	"deckhand/internal/monitor"
	"deckhand/internal/testsupport"
)

type deckServer struct {
	mu       sync.Mutex
	reads    int
	commands int
	down     bool
}

func (d *deckServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.down {
			http.Error(w, "unreachable", http.StatusServiceUnavailable)
			return
		}
		if r.Method == http.MethodPut {
			d.commands++
			w.WriteHeader(http.StatusNoContent)
			return
		}
		d.reads++
		switch r.URL.Path {
		case "/control/api/v1/status":
			w.Write([]byte(`{"power":true}`))
		case "/control/api/v1/clips/active":
			w.Write([]byte(`{"name":"take1"}`))
		default:
			w.Write([]byte(`{"status":"stop","timecode":"00:00:00:00"}`))
		}
	})
}

func (d *deckServer) readCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *deckServer) setDown(down bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.down = down
}

func newTestSession(t *testing.T, srv *deckServer, opts ...testsupport.ConfigOption) (*Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(srv.handler())
	t.Cleanup(server.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithDeckURL(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	s, err := Connect(cfg, nil, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s, server
}

// waitQuiescent blocks until the deck has seen no new reads for a little
// while, so the startup poll cannot interleave with count assertions.
func waitQuiescent(t *testing.T, srv *deckServer) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	last := srv.readCount()
	for {
		select {
		case <-deadline:
			t.Fatal("deck traffic never settled")
		case <-time.After(50 * time.Millisecond):
		}
		current := srv.readCount()
		if current == last {
			return
		}
		last = current
	}
}

func TestConnectRejectsBadConfig(t *testing.T) {
	if _, err := Connect(nil, nil); err == nil {
		t.Fatal("nil config accepted")
	}

	cfg := testsupport.NewConfig(t, testsupport.WithDeckURL("ftp://deck"))
	if _, err := Connect(cfg, nil); !errors.Is(err, deck.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSessionReachesConnected(t *testing.T) {
	s, _ := newTestSession(t, &deckServer{})

	if state := s.CheckNow(context.Background()); state != health.StateConnected {
		t.Fatalf("state = %v, want Connected", state)
	}
	if state := s.State(); state != health.StateConnected {
		t.Fatalf("State() = %v, want Connected", state)
	}
}

func TestSubscribersReceivePollEvents(t *testing.T) {
	s, _ := newTestSession(t, &deckServer{})

	events := make(chan monitor.Event, 16)
	s.Subscribe(func(event monitor.Event) {
		select {
		case events <- event:
		default:
		}
	})

	select {
	case event := <-events:
		if event.Err != nil {
			t.Fatalf("event error: %v", event.Err)
		}
		if event.Status == nil {
			t.Fatal("event without snapshot")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no poll event delivered")
	}
}

func TestSendCommandInvalidatesCachedReads(t *testing.T) {
	srv := &deckServer{}
	s, _ := newTestSession(t, srv, testsupport.WithSlowPolling())
	waitQuiescent(t, srv)
	ctx := context.Background()

	if _, err := s.Status(ctx); err != nil {
		t.Fatal(err)
	}
	before := srv.readCount()

	// A cached re-read first, to prove the entry was live.
	if _, err := s.Status(ctx); err != nil {
		t.Fatal(err)
	}
	if srv.readCount() != before {
		t.Fatal("status re-read hit the network")
	}

	if err := s.SendCommand(ctx, deck.CommandRequest{Action: deck.ActionPlay, Index: 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Status(ctx); err != nil {
		t.Fatal(err)
	}
	if srv.readCount() == before {
		t.Fatal("status read after command must refetch")
	}
}

func TestSendCommandRejectsInvalidRequest(t *testing.T) {
	srv := &deckServer{}
	s, _ := newTestSession(t, srv, testsupport.WithSlowPolling())
	waitQuiescent(t, srv)

	err := s.SendCommand(context.Background(), deck.CommandRequest{Action: deck.ActionShuttle, Index: 0, Rate: 500})
	if !errors.Is(err, deck.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.commands != 0 {
		t.Fatalf("commands = %d, want 0", srv.commands)
	}
}

func TestSessionSurvivesDeckOutage(t *testing.T) {
	srv := &deckServer{}
	s, _ := newTestSession(t, srv, testsupport.WithSlowPolling())
	waitQuiescent(t, srv)
	ctx := context.Background()

	if state := s.CheckNow(ctx); state != health.StateConnected {
		t.Fatalf("state = %v", state)
	}

	srv.setDown(true)
	if state := s.CheckNow(ctx); state != health.StateDegraded {
		t.Fatalf("state after first failure = %v, want Degraded", state)
	}

	srv.setDown(false)
	if state := s.CheckNow(ctx); state != health.StateConnected {
		t.Fatalf("state after recovery = %v, want Connected", state)
	}
}

func TestStateChangeSubscribersFireOncePerTransition(t *testing.T) {
	srv := &deckServer{}
	s, _ := newTestSession(t, srv, testsupport.WithSlowPolling())
	waitQuiescent(t, srv)
	ctx := context.Background()

	if state := s.CheckNow(ctx); state != health.StateConnected {
		t.Fatalf("state = %v", state)
	}

	var mu sync.Mutex
	var transitions []string
	s.SubscribeStateChanges(func(previous, current health.State) {
		mu.Lock()
		transitions = append(transitions, previous.String()+">"+current.String())
		mu.Unlock()
	})

	srv.setDown(true)
	s.CheckNow(ctx) // Connected -> Degraded
	s.CheckNow(ctx) // still Degraded, must not re-notify
	srv.setDown(false)
	s.CheckNow(ctx) // Degraded -> Connected

	mu.Lock()
	defer mu.Unlock()
	want := []string{"Connected>Degraded", "Degraded>Connected"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestShutdownStopsDeliveryAndIsIdempotent(t *testing.T) {
	srv := &deckServer{}
	s, _ := newTestSession(t, srv)

	var mu sync.Mutex
	delivered := 0
	s.Subscribe(func(monitor.Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := delivered
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no events before shutdown")
		case <-time.After(time.Millisecond):
		}
	}

	s.Shutdown()
	s.Shutdown()

	mu.Lock()
	after := delivered
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	later := delivered
	mu.Unlock()
	if later != after {
		t.Fatalf("events delivered after shutdown: %d -> %d", after, later)
	}
}

func TestTransportUsesConfiguredIndex(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(`{"status":"play"}`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithDeckURL(server.URL))
	cfg.Deck.TransportIndex = 3
	s, err := Connect(cfg, nil, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Shutdown)

	if _, err := s.Transport(context.Background()); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, path := range paths {
		if path == "/control/api/v1/transports/3" {
			return
		}
	}
	t.Fatalf("no request for transport 3, saw %v", paths)
}
