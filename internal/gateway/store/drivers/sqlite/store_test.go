package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func record(id string, at time.Time) store.SessionRecord {
	return store.SessionRecord{
		ID:              id,
		Sealed:          []byte("opaque-" + id),
		ProfileJSON:     `{"user":"Alice"}`,
		CreatedAt:       at,
		LastUsedAt:      at,
		LastRefreshedAt: at,
	}
}

func TestReplaceAndLoadSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	loaded, err := st.LoadSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.ReplaceSessions(ctx, []store.SessionRecord{
		record("sess-1", now),
		record("sess-2", now.Add(time.Minute)),
	}))

	loaded, err = st.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "sess-1", loaded[0].ID)
	require.Equal(t, []byte("opaque-sess-1"), loaded[0].Sealed)
	require.Equal(t, `{"user":"Alice"}`, loaded[0].ProfileJSON)
	require.True(t, loaded[0].CreatedAt.Equal(now))
}

func TestReplaceSessionsDiscardsPrevious(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, st.ReplaceSessions(ctx, []store.SessionRecord{
		record("old-1", now),
		record("old-2", now),
	}))

	// A later snapshot fully supersedes the earlier one.
	require.NoError(t, st.ReplaceSessions(ctx, []store.SessionRecord{
		record("new-1", now),
	}))

	loaded, err := st.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "new-1", loaded[0].ID)
}

func TestReplaceSessionsEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.ReplaceSessions(ctx, []store.SessionRecord{
		record("sess-1", time.Now().UTC()),
	}))
	require.NoError(t, st.ReplaceSessions(ctx, nil))

	loaded, err := st.LoadSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestPing(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Ping(context.Background()))
}
