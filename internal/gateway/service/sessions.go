package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/domain"
	"github.com/denkrupka/portalgate/internal/gateway/store"
	"github.com/denkrupka/portalgate/pkg/cookiejar"
	"github.com/denkrupka/portalgate/pkg/cryptox"
)

// DefaultFlushInterval is how often the session table is flushed to the
// durable snapshot in addition to the flush after every mutation.
const DefaultFlushInterval = 5 * time.Minute

// Sessions is the live table of authenticated sessions, keyed by opaque
// session id. It owns persistence: the table is hydrated from the store's
// snapshot at start and the full table replaces the snapshot on every
// mutating operation plus on a fixed timer. No automatic eviction;
// sessions leave only via logout.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*domain.Session

	store  store.Store
	logger *slog.Logger

	flushInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewSessions creates the session table backed by st. A zero interval
// falls back to DefaultFlushInterval.
func NewSessions(st store.Store, logger *slog.Logger, flushInterval time.Duration) *Sessions {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Sessions{
		byID:          make(map[string]*domain.Session),
		store:         st,
		logger:        logger,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// sealedPayload is the sensitive part of a persisted session record.
type sealedPayload struct {
	Credentials domain.Credentials `json:"credentials"`
	Cookies     map[string]string  `json:"cookies"`
}

// Hydrate loads every persisted session into the table. Called once at
// process start, before any traffic.
func (s *Sessions) Hydrate(ctx context.Context) error {
	records, err := s.store.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		sess, err := recordToSession(rec)
		if err != nil {
			// An undecryptable record (rotated master key) is dropped
			// rather than wedging startup; the user logs in again.
			s.logger.Warn("discarding unreadable session record", "session_id", rec.ID, "error", err)
			continue
		}
		s.byID[sess.ID] = sess
	}

	s.logger.Info("sessions hydrated", "count", len(s.byID))
	return nil
}

// Create registers a new session and flushes the snapshot before
// returning, so the caller never holds an id the store does not know.
func (s *Sessions) Create(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	s.byID[sess.ID] = sess
	s.mu.Unlock()

	return s.Flush(ctx)
}

// Get returns the session for id.
func (s *Sessions) Get(id string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok
}

// Delete removes the session for id (logout) and flushes the snapshot.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()

	return s.Flush(ctx)
}

// All returns the current sessions. The slice is a copy; the sessions
// themselves are shared and protected by their own locks.
func (s *Sessions) All() []*domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Session, 0, len(s.byID))
	for _, sess := range s.byID {
		out = append(out, sess)
	}
	return out
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Flush serializes the full table and replaces the durable snapshot.
func (s *Sessions) Flush(ctx context.Context) error {
	s.mu.RLock()
	records := make([]store.SessionRecord, 0, len(s.byID))
	var err error
	for _, sess := range s.byID {
		var rec store.SessionRecord
		if rec, err = sessionToRecord(sess); err != nil {
			break
		}
		records = append(records, rec)
	}
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("serialize sessions: %w", err)
	}

	if err := s.store.ReplaceSessions(ctx, records); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Start launches the periodic flush worker.
func (s *Sessions) Start() {
	go s.run()
	s.logger.Info("session flush worker started", "interval", s.flushInterval)
}

// Stop shuts the flush worker down and performs a final flush.
func (s *Sessions) Stop() {
	close(s.stopCh)
	<-s.doneCh

	if err := s.Flush(context.Background()); err != nil {
		s.logger.Error("final session flush failed", "error", err)
	}
	s.logger.Info("session flush worker stopped")
}

func (s *Sessions) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(context.Background()); err != nil {
				s.logger.Error("periodic session flush failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

func sessionToRecord(sess *domain.Session) (store.SessionRecord, error) {
	// Take the session's writer lock for the read so a refresh swapping
	// the jar cannot interleave with serialization. Callers of Flush must
	// not hold a session lock of their own.
	sess.Lock()
	defer sess.Unlock()

	payload, err := json.Marshal(sealedPayload{
		Credentials: sess.Credentials,
		Cookies:     sess.Jar.Snapshot(),
	})
	if err != nil {
		return store.SessionRecord{}, err
	}

	sealed, err := cryptox.Seal(payload)
	if err != nil {
		return store.SessionRecord{}, err
	}

	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return store.SessionRecord{}, err
	}

	return store.SessionRecord{
		ID:              sess.ID,
		Sealed:          sealed,
		ProfileJSON:     string(profile),
		CreatedAt:       sess.CreatedAt,
		LastUsedAt:      sess.LastUsedAt,
		LastRefreshedAt: sess.LastRefreshedAt,
	}, nil
}

func recordToSession(rec store.SessionRecord) (*domain.Session, error) {
	opened, err := cryptox.Open(rec.Sealed)
	if err != nil {
		return nil, err
	}

	var payload sealedPayload
	if err := json.Unmarshal(opened, &payload); err != nil {
		return nil, err
	}

	var profile domain.Profile
	if err := json.Unmarshal([]byte(rec.ProfileJSON), &profile); err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:              rec.ID,
		Credentials:     payload.Credentials,
		Profile:         profile,
		Jar:             cookiejar.FromSnapshot(payload.Cookies),
		CreatedAt:       rec.CreatedAt,
		LastUsedAt:      rec.LastUsedAt,
		LastRefreshedAt: rec.LastRefreshedAt,
	}
	return sess, nil
}
