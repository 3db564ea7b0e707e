package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/domain"
	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/denkrupka/portalgate/pkg/clockx"
)

// DefaultRefreshInterval is the periodic sweep interval; a session is
// refreshed when its last refresh is older than this.
const DefaultRefreshInterval = 2 * time.Hour

// Refresher silently re-authenticates sessions with their stored
// credentials, either on demand after an authentication failure or on a
// periodic sweep. A refresh never handles a second factor: if the portal
// demands one, the refresh aborts and the old jar stays in place.
type Refresher struct {
	sessions *Sessions
	client   *upstream.Client
	clock    clockx.Clock
	logger   *slog.Logger

	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	tickCh   chan struct{}
}

// NewRefresher creates a refresher. A zero interval falls back to
// DefaultRefreshInterval.
func NewRefresher(sessions *Sessions, client *upstream.Client, clock clockx.Clock, logger *slog.Logger, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		sessions: sessions,
		client:   client,
		clock:    clock,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		tickCh:   make(chan struct{}, 1),
	}
}

// Start launches the periodic sweep worker.
func (r *Refresher) Start() {
	go r.run()
	r.logger.Info("refresh worker started", "interval", r.interval)
}

// Stop shuts the sweep worker down, waiting for an in-progress sweep.
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info("refresh worker stopped")
}

// TickNow schedules an immediate sweep without waiting for the timer.
func (r *Refresher) TickNow() {
	select {
	case r.tickCh <- struct{}{}:
	default: // a sweep is already queued
	}
}

func (r *Refresher) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(context.Background(), false)
		case <-r.tickCh:
			r.sweep(context.Background(), false)
		case <-r.stopCh:
			return
		}
	}
}

// RefreshAll refreshes every session with stored credentials. With force
// false, sessions refreshed within the interval are skipped. Used by the
// periodic sweep and, with force true, once at process start. Failures
// are logged, never raised: nobody is waiting on a sweep.
func (r *Refresher) RefreshAll(ctx context.Context, force bool) {
	r.sweep(ctx, force)
}

func (r *Refresher) sweep(ctx context.Context, force bool) {
	for _, sess := range r.sessions.All() {
		sess.Lock()
		due := sess.CanRefresh() &&
			(force || r.clock.Now().Sub(sess.LastRefreshedAt) > r.interval)
		if !due {
			sess.Unlock()
			continue
		}

		err := r.refreshLocked(ctx, sess)
		sess.Unlock()

		if err != nil {
			r.logger.Warn("background refresh failed",
				"session_id", sess.ID,
				"error", err,
			)
			continue
		}

		if err := r.sessions.Flush(ctx); err != nil {
			r.logger.Error("flush after refresh failed", "error", err)
		}
	}
}

// RefreshSession refreshes one session on demand, flushing the snapshot
// on success. The error, if any, is a *RefreshFailedError.
func (r *Refresher) RefreshSession(ctx context.Context, sess *domain.Session) error {
	sess.Lock()
	err := r.refreshLocked(ctx, sess)
	sess.Unlock()

	if err != nil {
		return err
	}
	return r.sessions.Flush(ctx)
}

// refreshLocked performs the actual refresh. The caller holds the
// session's single-writer lock, which is what keeps a sweep and a
// request-triggered refresh from interleaving on the same jar.
func (r *Refresher) refreshLocked(ctx context.Context, sess *domain.Session) error {
	// Work on a clone so a failed attempt leaves the live jar untouched.
	// The clone carries the remember-workstation cookie that lets the
	// portal skip the SMS prompt.
	jar := sess.Jar.Clone()

	reply, err := r.client.Login(ctx, jar, sess.Credentials.Username, sess.Credentials.Password)
	if err != nil {
		return &RefreshFailedError{Reason: "login call failed", Err: err}
	}

	switch {
	case reply.Succeeded():
		// Warm the session server-side the way a browser would; the
		// answer itself is not interesting here.
		if _, err := r.client.UserInfo(ctx, jar); err != nil {
			r.logger.Debug("user-info warm call failed", "session_id", sess.ID, "error", err)
		}

		sess.Jar = jar
		sess.LastRefreshedAt = r.clock.Now()
		r.logger.Info("session refreshed", "session_id", sess.ID)
		return nil

	case reply.NeedsSecondFactor():
		// Needs a live user; keep the old cookies and report failure.
		return &RefreshFailedError{Reason: "second factor required"}

	default:
		reason := reply.Message
		if reason == "" {
			reason = "login rejected"
		}
		return &RefreshFailedError{Reason: reason}
	}
}
