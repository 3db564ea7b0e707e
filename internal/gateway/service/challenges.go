package service

import (
	"sync"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/domain"
	"github.com/denkrupka/portalgate/pkg/clockx"
	"github.com/denkrupka/portalgate/pkg/cryptox"
)

// DefaultChallengeTTL is how long a pending second-factor challenge stays
// redeemable after creation. A resend does not extend it.
const DefaultChallengeTTL = 10 * time.Minute

// ChallengeRegistry is the transient table of in-flight second-factor
// challenges keyed by temp id. Memory only: a restart discards pending
// challenges and callers restart their login. Expiry is a scheduled
// one-shot deletion per entry, not a check on access.
type ChallengeRegistry struct {
	mu      sync.Mutex
	entries map[string]*challengeEntry

	clock clockx.Clock
	ttl   time.Duration
}

type challengeEntry struct {
	challenge *domain.PendingChallenge
	expiry    clockx.Timer
}

// NewChallengeRegistry creates an empty registry. A zero ttl falls back
// to DefaultChallengeTTL.
func NewChallengeRegistry(clock clockx.Clock, ttl time.Duration) *ChallengeRegistry {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeRegistry{
		entries: make(map[string]*challengeEntry),
		clock:   clock,
		ttl:     ttl,
	}
}

// Add parks a challenge under a freshly minted temp id and schedules its
// deletion. Returns the temp id.
func (r *ChallengeRegistry) Add(ch *domain.PendingChallenge) string {
	tempID := cryptox.MustGenerateToken(cryptox.TokenSize96)

	ch.TempID = tempID
	ch.CreatedAt = r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[tempID] = &challengeEntry{
		challenge: ch,
		expiry:    r.clock.AfterFunc(r.ttl, func() { r.Remove(tempID) }),
	}
	return tempID
}

// Peek returns the live challenge for tempID without consuming it. Used
// by code submission (a wrong code keeps the challenge) and resend.
func (r *ChallengeRegistry) Peek(tempID string) (*domain.PendingChallenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[tempID]
	if !ok {
		return nil, false
	}
	return e.challenge, true
}

// Consume removes and returns the challenge for tempID. A temp id is
// consumed at most once; the second call reports absence.
func (r *ChallengeRegistry) Consume(tempID string) (*domain.PendingChallenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[tempID]
	if !ok {
		return nil, false
	}
	delete(r.entries, tempID)
	e.expiry.Stop()
	return e.challenge, true
}

// Remove discards the challenge for tempID, if still present.
func (r *ChallengeRegistry) Remove(tempID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[tempID]; ok {
		delete(r.entries, tempID)
		e.expiry.Stop()
	}
}

// Len reports the number of live challenges.
func (r *ChallengeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
