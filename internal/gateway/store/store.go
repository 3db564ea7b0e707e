// Package store defines the durable snapshot interface for authenticated
// sessions. The live session table is in memory; the store only has to
// answer "load everything at start" and "replace everything on flush".
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("store: not found")

// SessionRecord is the persisted form of one session: credentials and
// cookies travel as an opaque sealed blob, profile fields and timestamps
// stay readable.
type SessionRecord struct {
	ID string

	// Sealed is the encrypted JSON payload carrying credentials and the
	// cookie name/value table. Only the hydration and flush paths ever
	// see the plaintext.
	Sealed []byte

	// ProfileJSON is the cached profile as plain JSON.
	ProfileJSON string

	CreatedAt       time.Time
	LastUsedAt      time.Time
	LastRefreshedAt time.Time
}

// Store is the snapshot storage for sessions. Concrete drivers (sqlite)
// implement this.
type Store interface {
	// LoadSessions returns every persisted session record.
	LoadSessions(ctx context.Context) ([]SessionRecord, error)

	// ReplaceSessions atomically replaces the entire persisted table
	// with the given records. The previous snapshot is discarded; this
	// is not an append-only log.
	ReplaceSessions(ctx context.Context, records []SessionRecord) error

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations() error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
