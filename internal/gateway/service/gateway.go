package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/denkrupka/portalgate/internal/gateway/domain"
	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/denkrupka/portalgate/pkg/clockx"
	"github.com/denkrupka/portalgate/pkg/cookiejar"
	"github.com/denkrupka/portalgate/pkg/cryptox"
)

// Gateway drives the portal login state machine and brokers proxied
// business calls over established sessions. All mutation of a session
// happens under that session's single-writer lock.
type Gateway struct {
	sessions   *Sessions
	challenges *ChallengeRegistry
	client     *upstream.Client
	refresher  *Refresher
	clock      clockx.Clock
	logger     *slog.Logger
}

// NewGateway wires the facade from its collaborators.
func NewGateway(
	sessions *Sessions,
	challenges *ChallengeRegistry,
	client *upstream.Client,
	refresher *Refresher,
	clock clockx.Clock,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		sessions:   sessions,
		challenges: challenges,
		client:     client,
		refresher:  refresher,
		clock:      clock,
		logger:     logger,
	}
}

// ChallengeInfo tells the caller a second factor is pending and how to
// answer it.
type ChallengeInfo struct {
	TempID      string
	CodeLength  int
	WaitSeconds int
	Message     string
}

// LoginResult is the outcome of a credentials attempt or a code
// submission. Exactly one of the two shapes is populated: an established
// session (Authenticated true) or a pending second factor.
type LoginResult struct {
	Authenticated bool
	SessionID     string
	Profile       domain.Profile

	SecondFactor *ChallengeInfo
}

// Login runs the first factor against the portal. The portal answers one
// of three ways: full success (a session is established immediately), a
// second-factor demand (the attempt is parked under a temp id), or a
// rejection, surfaced as *LoginFailedError. Transport failures come back
// as upstream errors.
func (g *Gateway) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	jar := cookiejar.New()

	// Hit the homepage first the way a browser would, so the login call
	// carries the portal's anti-forgery cookies.
	if err := g.client.Bootstrap(ctx, jar); err != nil {
		return nil, err
	}

	reply, err := g.client.Login(ctx, jar, username, password)
	if err != nil {
		return nil, err
	}

	creds := domain.Credentials{Username: username, Password: password}

	switch {
	case reply.Succeeded():
		return g.establishSession(ctx, creds, jar)

	case reply.NeedsSecondFactor():
		tempID := g.challenges.Add(&domain.PendingChallenge{
			Credentials: creds,
			Jar:         jar,
		})
		g.logger.Info("second factor required", "challenge_id", tempID, "code_length", reply.CodeLength)
		return &LoginResult{
			SecondFactor: &ChallengeInfo{
				TempID:      tempID,
				CodeLength:  reply.CodeLength,
				WaitSeconds: reply.WaitSeconds,
				Message:     reply.ChallengeHeader,
			},
		}, nil

	default:
		return nil, &LoginFailedError{Message: reply.Message}
	}
}

// SubmitCode answers a pending challenge with the SMS code. A wrong code
// comes back as *InvalidCodeError and leaves the challenge redeemable; a
// correct code consumes it and establishes the session. The verification
// asks the portal to remember the workstation, which is what lets later
// silent refreshes skip the SMS prompt.
func (g *Gateway) SubmitCode(ctx context.Context, tempID, code string) (*LoginResult, error) {
	ch, ok := g.challenges.Peek(tempID)
	if !ok {
		return nil, ErrChallengeNotFound
	}

	reply, err := g.client.VerifyCode(ctx, ch.Jar, code)
	if err != nil {
		return nil, err
	}

	if !reply.Succeeded() {
		return nil, &InvalidCodeError{Message: reply.Message}
	}

	// Only now is the temp id spent. Losing the race to a concurrent
	// submit on the same id is reported as expiry.
	ch, ok = g.challenges.Consume(tempID)
	if !ok {
		return nil, ErrChallengeNotFound
	}

	return g.establishSession(ctx, ch.Credentials, ch.Jar)
}

// Resend asks the portal to send a fresh SMS for a pending challenge.
// The challenge keeps its temp id and its original expiry. Returns the
// portal's updated wait hint.
func (g *Gateway) Resend(ctx context.Context, tempID string) (*ChallengeInfo, error) {
	ch, ok := g.challenges.Peek(tempID)
	if !ok {
		return nil, ErrChallengeNotFound
	}

	reply, err := g.client.ResendCode(ctx, ch.Jar)
	if err != nil {
		return nil, err
	}

	return &ChallengeInfo{
		TempID:      tempID,
		CodeLength:  reply.CodeLength,
		WaitSeconds: reply.WaitSeconds,
		Message:     reply.Message,
	}, nil
}

// Logout discards the session and flushes the snapshot. Unknown ids are
// reported, but there is nothing to revoke upstream.
func (g *Gateway) Logout(ctx context.Context, sessionID string) error {
	if _, ok := g.sessions.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	g.logger.Info("session logged out", "session_id", sessionID)
	return g.sessions.Delete(ctx, sessionID)
}

// SessionInfo returns the cached profile for an established session.
func (g *Gateway) SessionInfo(sessionID string) (*domain.Session, error) {
	sess, ok := g.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SessionCount reports the number of live sessions.
func (g *Gateway) SessionCount() int { return g.sessions.Len() }

// PendingChallengeCount reports the number of in-flight challenges.
func (g *Gateway) PendingChallengeCount() int { return g.challenges.Len() }

// Call proxies one business GET. With a session id the call runs over
// that session's jar; on a 401 or 403 the session is refreshed once and
// the call replayed once, and if the refresh or the replay fails, the
// original authentication failure is what the caller sees. The session
// lock is held across the whole request-refresh-replay span.
//
// An empty session id performs the call anonymously: no cookies, and no
// refresh to fall back on. The portal serves public data (catalog,
// search) this way.
func (g *Gateway) Call(ctx context.Context, sessionID, path string) (*upstream.Response, error) {
	if sessionID == "" {
		return g.client.Get(ctx, path, nil)
	}

	sess, ok := g.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.Lock()
	resp, err := g.client.Get(ctx, path, sess.Jar)

	refreshed := false
	if isAuthFailure(err) && sess.CanRefresh() {
		g.logger.Info("session rejected upstream, refreshing", "session_id", sess.ID)

		if rerr := g.refresher.refreshLocked(ctx, sess); rerr != nil {
			g.logger.Warn("refresh after rejection failed", "session_id", sess.ID, "error", rerr)
		} else {
			refreshed = true
			if retryResp, retryErr := g.client.Get(ctx, path, sess.Jar); retryErr == nil {
				resp, err = retryResp, nil
			}
			// A failed replay keeps the original rejection.
		}
	}

	sess.LastUsedAt = g.clock.Now()
	sess.Unlock()

	if refreshed {
		if ferr := g.sessions.Flush(ctx); ferr != nil {
			g.logger.Error("flush after refresh failed", "error", ferr)
		}
	}
	return resp, err
}

// establishSession turns an authenticated jar into a live session: fetch
// the profile, mint the opaque id, and register the session, flushing
// the snapshot before the id is handed out.
func (g *Gateway) establishSession(ctx context.Context, creds domain.Credentials, jar *cookiejar.Jar) (*LoginResult, error) {
	info, err := g.client.UserInfo(ctx, jar)
	if err != nil {
		// The login itself succeeded; a profile-less session is still
		// usable for proxied calls.
		g.logger.Warn("user-info fetch failed after login", "error", err)
	}

	now := g.clock.Now()
	sess := &domain.Session{
		ID:          cryptox.MustGenerateToken(cryptox.TokenSize128),
		Credentials: creds,
		Profile: domain.Profile{
			UserName:     info.User.Name,
			Email:        info.User.Email,
			CustomerName: info.CurrentCustomer.NameShort,
			CustomerID:   info.CurrentCustomer.IDEx,
			PriceTier:    info.PriceType.Name,
		},
		Jar:             jar,
		CreatedAt:       now,
		LastUsedAt:      now,
		LastRefreshedAt: now,
	}

	if err := g.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	g.logger.Info("session established", "session_id", sess.ID, "user", sess.Profile.UserName)
	return &LoginResult{
		Authenticated: true,
		SessionID:     sess.ID,
		Profile:       sess.Profile,
	}, nil
}

func isAuthFailure(err error) bool {
	var se *upstream.StatusError
	return errors.As(err, &se) && se.IsAuthFailure()
}
