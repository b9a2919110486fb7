package auth_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/napassornsp/restbase-go/pkg/auth"
)

// sessionScript serves /auth/session from a fixed response sequence, holding
// the last entry once exhausted.
type sessionScript struct {
	mu        sync.Mutex
	responses []string
	idx       int
}

func (s *sessionScript) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := s.responses[s.idx]
	if s.idx < len(s.responses)-1 {
		s.idx++
	}
	return resp
}

func (s *sessionScript) set(responses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = responses
	s.idx = 0
}

func newScriptedClient(t *testing.T, script *sessionScript) *auth.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/session" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, script.next())
	}))
	t.Cleanup(srv.Close)

	client, err := auth.New(srv.URL, auth.WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

type eventLog struct {
	mu     sync.Mutex
	events []auth.Event
}

func (l *eventLog) record(ev auth.Event, _ *auth.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []auth.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]auth.Event(nil), l.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestPollNotifiesOnlyOnChange(t *testing.T) {
	script := &sessionScript{responses: []string{
		`{"user":null}`,
		`{"user":{"id":"u1"}}`,
		`{"user":{"id":"u1"}}`,
		`{"user":null}`,
	}}
	client := newScriptedClient(t, script)

	log := &eventLog{}
	sub := client.OnAuthStateChange(log.record)
	defer sub.Unsubscribe()

	waitFor(t, func() bool { return len(log.snapshot()) >= 2 })

	// Let a few more ticks land on the repeated trailing value.
	time.Sleep(100 * time.Millisecond)

	events := log.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected exactly two notifications, got %v", events)
	}
	if events[0] != auth.EventSignedIn || events[1] != auth.EventSignedOut {
		t.Fatalf("unexpected event order: %v", events)
	}
}

func TestPollDeliversNewSessionValue(t *testing.T) {
	script := &sessionScript{responses: []string{
		`{"user":null}`,
		`{"user":{"id":"u1","email":"u1@example.com"}}`,
	}}
	client := newScriptedClient(t, script)

	var (
		mu   sync.Mutex
		got  *auth.Session
		seen bool
	)
	sub := client.OnAuthStateChange(func(ev auth.Event, sess *auth.Session) {
		mu.Lock()
		defer mu.Unlock()
		got = sess
		seen = true
	})
	defer sub.Unsubscribe()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen
	})

	mu.Lock()
	defer mu.Unlock()
	if got == nil || got.User == nil || got.User.ID != "u1" || got.User.Email != "u1@example.com" {
		t.Fatalf("unexpected session value: %+v", got)
	}
	if cached := client.Session(); !sameSession(cached, got) {
		t.Fatalf("cache not swapped: %+v", cached)
	}
}

func sameSession(a, b *auth.Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.User != nil && b.User != nil && *a.User == *b.User
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	script := &sessionScript{responses: []string{`{"user":null}`}}
	client := newScriptedClient(t, script)

	log := &eventLog{}
	sub := client.OnAuthStateChange(log.record)
	sub.Unsubscribe()

	// Force session changes after the unsubscribe has returned.
	script.set(`{"user":{"id":"u2"}}`)
	time.Sleep(100 * time.Millisecond)

	if events := log.snapshot(); len(events) != 0 {
		t.Fatalf("removed callback was invoked: %v", events)
	}

	// Unsubscribing again is a no-op.
	sub.Unsubscribe()
}

func TestPollErrorsAreSwallowed(t *testing.T) {
	var (
		mu      sync.Mutex
		failing = true
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fail := failing
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, `{"error":"upstream down"}`)
			return
		}
		io.WriteString(w, `{"user":{"id":"u1"}}`)
	}))
	defer srv.Close()

	client, err := auth.New(srv.URL, auth.WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	log := &eventLog{}
	sub := client.OnAuthStateChange(log.record)
	defer sub.Unsubscribe()

	// Failing ticks produce no notifications and no crash.
	time.Sleep(60 * time.Millisecond)
	if events := log.snapshot(); len(events) != 0 {
		t.Fatalf("expected no events while failing, got %v", events)
	}

	// Once the endpoint recovers, the poll resumes and notifies.
	mu.Lock()
	failing = false
	mu.Unlock()

	waitFor(t, func() bool { return len(log.snapshot()) == 1 })
	if events := log.snapshot(); events[0] != auth.EventSignedIn {
		t.Fatalf("unexpected event: %v", events)
	}
}

func TestUnsubscribeAfterCloseIsNoOp(t *testing.T) {
	script := &sessionScript{responses: []string{`{"user":null}`}}
	client := newScriptedClient(t, script)

	sub := client.OnAuthStateChange(func(auth.Event, *auth.Session) {})
	client.Close()
	sub.Unsubscribe()

	// Registering after Close yields an inert handle.
	late := client.OnAuthStateChange(func(auth.Event, *auth.Session) {})
	late.Unsubscribe()
}
