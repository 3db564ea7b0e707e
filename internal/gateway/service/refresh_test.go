package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/stretchr/testify/require"
)

func TestRefreshSessionSwapsJar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	sess, _ := f.sessions.Get(result.SessionID)

	oldJar := sess.Jar
	oldRefreshedAt := sess.LastRefreshedAt

	// The portal hands out a different cookie on the re-login.
	f.portal.setLogin(func(w http.ResponseWriter, body map[string]any) {
		w.Header().Add("Set-Cookie", "portalSession=s2; path=/")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	f.clock.Advance(time.Hour)
	require.NoError(t, f.refresher.RefreshSession(ctx, sess))

	require.NotSame(t, oldJar, sess.Jar)
	v, ok := sess.Jar.Get("portalSession")
	require.True(t, ok)
	require.Equal(t, "s2", v)
	require.True(t, sess.LastRefreshedAt.After(oldRefreshedAt))

	// Identity is stable across refreshes.
	got, ok := f.sessions.Get(result.SessionID)
	require.True(t, ok)
	require.Same(t, sess, got)
	require.Equal(t, "alice", sess.Credentials.Username)
}

func TestRefreshAbortsOnSecondFactorDemand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	sess, _ := f.sessions.Get(result.SessionID)
	oldJar := sess.Jar

	f.portal.setLogin(func(w http.ResponseWriter, body map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code2falength": 6})
	})

	err = f.refresher.RefreshSession(ctx, sess)

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)

	// The old jar stays in place and the session survives.
	require.Same(t, oldJar, sess.Jar)
	_, ok := f.sessions.Get(result.SessionID)
	require.True(t, ok)
}

func TestRefreshKeepsJarOnRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	sess, _ := f.sessions.Get(result.SessionID)
	oldJar := sess.Jar

	f.portal.setLogin(func(w http.ResponseWriter, body map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "account locked"})
	})

	err = f.refresher.RefreshSession(ctx, sess)

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)
	require.Contains(t, refreshErr.Error(), "account locked")
	require.Same(t, oldJar, sess.Jar)
}

func TestRefreshAllSkipsFreshSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	sess, _ := f.sessions.Get(result.SessionID)
	baseline := f.portal.logins()

	// Just refreshed: the sweep leaves it alone.
	f.refresher.RefreshAll(ctx, false)
	require.Equal(t, baseline, f.portal.logins())

	// Past the interval it is due.
	f.clock.Advance(DefaultRefreshInterval + time.Minute)
	f.refresher.RefreshAll(ctx, false)
	require.Equal(t, baseline+1, f.portal.logins())
	require.Equal(t, f.clock.Now(), sess.LastRefreshedAt)
}

func TestRefreshAllForced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	baseline := f.portal.logins()

	f.refresher.RefreshAll(ctx, true)
	require.Equal(t, baseline+1, f.portal.logins())
}

func TestRefreshAllSurvivesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	second, err := f.gateway.Login(ctx, "bob", "hunter2")
	require.NoError(t, err)

	f.portal.setLogin(func(w http.ResponseWriter, body map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "maintenance"})
	})

	// Neither failure evicts anything or stops the sweep.
	f.refresher.RefreshAll(ctx, true)
	_, ok := f.sessions.Get(first.SessionID)
	require.True(t, ok)
	_, ok = f.sessions.Get(second.SessionID)
	require.True(t, ok)
}

func TestRestartRefreshesHydratedSessionsBeforeTraffic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.gateway.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	second, err := f.gateway.Login(ctx, "bob", "hunter2")
	require.NoError(t, err)

	baseline := f.portal.logins()
	f.clock.Advance(time.Hour)

	// A new process over the same snapshot: hydrate the table, then
	// force-refresh everything before serving traffic.
	restarted := newTestSessions(f.store)
	require.NoError(t, restarted.Hydrate(ctx))
	require.Equal(t, 2, restarted.Len())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := upstream.NewClient(f.portal.srv.URL)
	refresher := NewRefresher(restarted, client, f.clock, logger, 0)
	refresher.RefreshAll(ctx, true)

	// Both sessions re-logged into the portal.
	require.Equal(t, baseline+2, f.portal.logins())

	for _, id := range []string{first.SessionID, second.SessionID} {
		sess, ok := restarted.Get(id)
		require.True(t, ok)
		require.True(t, sess.CanRefresh())
		require.Equal(t, f.clock.Now(), sess.LastRefreshedAt)

		v, ok := sess.Jar.Get("portalSession")
		require.True(t, ok)
		require.Equal(t, "s1", v)
	}
}

func TestRefresherStartStop(t *testing.T) {
	f := newFixture(t)

	f.refresher.Start()
	f.refresher.TickNow()
	f.refresher.Stop()
}
