package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/domain"
	"github.com/denkrupka/portalgate/pkg/cookiejar"
	"github.com/stretchr/testify/require"
)

func testSession(id string) *domain.Session {
	jar := cookiejar.New()
	jar.Set("portalSession", "s1")
	jar.Set("rememberDevice", "yes")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Session{
		ID:          id,
		Credentials: domain.Credentials{Username: "alice", Password: "secret"},
		Profile: domain.Profile{
			UserName:     "Alice",
			Email:        "alice@example.com",
			CustomerName: "ACME",
			CustomerID:   "C-42",
			PriceTier:    "wholesale",
		},
		Jar:             jar,
		CreatedAt:       now,
		LastUsedAt:      now,
		LastRefreshedAt: now,
	}
}

func newTestSessions(st *memStore) *Sessions {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSessions(st, logger, 0)
}

func TestSessionsCreateFlushesSnapshot(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	sessions := newTestSessions(st)

	require.NoError(t, sessions.Create(ctx, testSession("sess-1")))

	records := st.snapshot()
	require.Len(t, records, 1)
	require.Equal(t, "sess-1", records[0].ID)

	// Credentials and cookies never hit the store in the clear.
	require.NotContains(t, string(records[0].Sealed), "secret")
	require.NotContains(t, string(records[0].Sealed), "portalSession")
	require.Contains(t, records[0].ProfileJSON, "alice@example.com")
}

func TestSessionsHydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}

	src := newTestSessions(st)
	require.NoError(t, src.Create(ctx, testSession("sess-1")))
	require.NoError(t, src.Create(ctx, testSession("sess-2")))

	// A fresh table over the same store sees both sessions intact.
	dst := newTestSessions(st)
	require.NoError(t, dst.Hydrate(ctx))
	require.Equal(t, 2, dst.Len())

	sess, ok := dst.Get("sess-1")
	require.True(t, ok)
	require.Equal(t, "alice", sess.Credentials.Username)
	require.Equal(t, "secret", sess.Credentials.Password)
	require.Equal(t, "Alice", sess.Profile.UserName)
	require.Equal(t, "wholesale", sess.Profile.PriceTier)

	v, ok := sess.Jar.Get("portalSession")
	require.True(t, ok)
	require.Equal(t, "s1", v)
	_, ok = sess.Jar.Get("rememberDevice")
	require.True(t, ok)

	require.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), sess.CreatedAt)
}

func TestSessionsHydrateDropsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}

	src := newTestSessions(st)
	require.NoError(t, src.Create(ctx, testSession("good")))
	require.NoError(t, src.Create(ctx, testSession("bad")))

	// Corrupt one sealed blob, as a rotated master key would.
	records := st.snapshot()
	for i := range records {
		if records[i].ID == "bad" {
			records[i].Sealed[0] ^= 0xFF
		}
	}
	require.NoError(t, st.ReplaceSessions(ctx, records))

	dst := newTestSessions(st)
	require.NoError(t, dst.Hydrate(ctx))
	require.Equal(t, 1, dst.Len())

	_, ok := dst.Get("good")
	require.True(t, ok)
	_, ok = dst.Get("bad")
	require.False(t, ok)
}

func TestSessionsDeleteFlushes(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	sessions := newTestSessions(st)

	require.NoError(t, sessions.Create(ctx, testSession("sess-1")))
	require.NoError(t, sessions.Delete(ctx, "sess-1"))

	require.Equal(t, 0, sessions.Len())
	require.Empty(t, st.snapshot())
}

func TestSessionsStopFlushes(t *testing.T) {
	st := &memStore{}
	sessions := newTestSessions(st)

	sessions.Start()
	require.NoError(t, sessions.Create(context.Background(), testSession("sess-1")))

	before := st.replaceCalls
	sessions.Stop()
	require.Greater(t, st.replaceCalls, before)
	require.Len(t, st.snapshot(), 1)
}

func TestSessionsFlushIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	sessions := newTestSessions(st)

	require.NoError(t, sessions.Create(ctx, testSession("sess-1")))
	require.NoError(t, sessions.Flush(ctx))
	require.NoError(t, sessions.Flush(ctx))

	// The snapshot is a replacement, not an append log.
	require.Len(t, st.snapshot(), 1)
}
