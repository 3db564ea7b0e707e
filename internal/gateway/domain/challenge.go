package domain

import (
	"time"

	"github.com/denkrupka/portalgate/pkg/cookiejar"
)

// PendingChallenge is an in-flight login that the portal has answered
// with an SMS code demand. It parks the pre-authenticated jar and the
// original credentials until the caller supplies the code or the
// challenge expires. Never persisted: a restart during the wait forces
// the caller to start the login over.
type PendingChallenge struct {
	// TempID is the opaque single-use handle the caller presents with
	// the code. Consumed exactly once on promotion, or discarded.
	TempID string

	Credentials Credentials
	Jar         *cookiejar.Jar

	CreatedAt time.Time
}
