package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/store"
	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/denkrupka/portalgate/pkg/clockx"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	mu           sync.Mutex
	records      []store.SessionRecord
	replaceCalls int
}

func (m *memStore) LoadSessions(ctx context.Context) ([]store.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.SessionRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) ReplaceSessions(ctx context.Context, records []store.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make([]store.SessionRecord, len(records))
	copy(m.records, records)
	m.replaceCalls++
	return nil
}

func (m *memStore) ApplyMigrations() error         { return nil }
func (m *memStore) Ping(ctx context.Context) error { return nil }
func (m *memStore) Close() error                   { return nil }

func (m *memStore) snapshot() []store.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.SessionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// portal is a scriptable stand-in for the upstream web portal.
type portal struct {
	srv *httptest.Server

	mu         sync.Mutex
	loginCalls int
	login      func(w http.ResponseWriter, body map[string]any)
	business   func(w http.ResponseWriter, r *http.Request)
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	p := &portal{}
	p.login = func(w http.ResponseWriter, body map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
	p.business = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "anon=seed; path=/")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		p.mu.Lock()
		p.loginCalls++
		h := p.login
		p.mu.Unlock()

		w.Header().Add("Set-Cookie", "portalSession=s1; path=/; HttpOnly")
		h(w, body)
	})
	mux.HandleFunc("/api/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":            map[string]string{"name": "Alice", "email": "alice@example.com"},
			"currentCustomer": map[string]string{"nameShort": "ACME", "idEx": "C-42"},
			"pricetype":       map[string]string{"name": "wholesale"},
		})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		h := p.business
		p.mu.Unlock()
		h(w, r)
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *portal) setLogin(h func(w http.ResponseWriter, body map[string]any)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.login = h
}

func (p *portal) setBusiness(h func(w http.ResponseWriter, r *http.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.business = h
}

func (p *portal) logins() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginCalls
}

// fixture bundles a fully wired gateway over a scripted portal.
type fixture struct {
	portal     *portal
	store      *memStore
	clock      *clockx.Mock
	sessions   *Sessions
	challenges *ChallengeRegistry
	refresher  *Refresher
	gateway    *Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := newPortal(t)
	st := &memStore{}
	clock := clockx.NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions := NewSessions(st, logger, 0)
	challenges := NewChallengeRegistry(clock, 0)
	client := upstream.NewClient(p.srv.URL)
	refresher := NewRefresher(sessions, client, clock, logger, 0)

	return &fixture{
		portal:     p,
		store:      st,
		clock:      clock,
		sessions:   sessions,
		challenges: challenges,
		refresher:  refresher,
		gateway:    NewGateway(sessions, challenges, client, refresher, clock, logger),
	}
}
