package domain

import (
	"sync"
	"time"

	"github.com/denkrupka/portalgate/pkg/cookiejar"
)

// Profile holds the account fields cached from the portal's user-info
// endpoint when a session is established.
type Profile struct {
	UserName     string `json:"user"`
	Email        string `json:"email"`
	CustomerName string `json:"customer"`
	CustomerID   string `json:"customerId"`
	PriceTier    string `json:"priceType"`
}

// Credentials are the portal login credentials kept with a session so it
// can be silently re-authenticated. They are sealed before hitting disk.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is a fully authenticated portal identity. Exactly one cookie
// jar belongs to a session; a successful refresh swaps the jar wholesale.
//
// The embedded lock enforces a single-writer discipline per session: a
// live proxied call (including its refresh-and-retry) and a background
// refresh sweep may not use the jar at the same time.
type Session struct {
	mu sync.Mutex

	// ID is the opaque caller-facing session id, assigned once at
	// creation and never reused.
	ID string

	Credentials Credentials
	Profile     Profile
	Jar         *cookiejar.Jar

	CreatedAt       time.Time
	LastUsedAt      time.Time
	LastRefreshedAt time.Time
}

// Lock takes the session's single-writer lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's single-writer lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// CanRefresh reports whether the session carries the credentials needed
// for a silent re-login.
func (s *Session) CanRefresh() bool {
	return s.Credentials.Username != "" && s.Credentials.Password != ""
}
