package sqlite

import (
	"context"
	"fmt"

	"github.com/denkrupka/portalgate/internal/gateway/store"
)

// LoadSessions returns every persisted session record, oldest first.
func (s *Store) LoadSessions(ctx context.Context) ([]store.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sealed, profile, created_at, last_used_at, last_refreshed_at
		FROM sessions
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []store.SessionRecord
	for rows.Next() {
		var rec store.SessionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Sealed,
			&rec.ProfileJSON,
			&rec.CreatedAt,
			&rec.LastUsedAt,
			&rec.LastRefreshedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReplaceSessions swaps the whole sessions table for the given records in
// one transaction. A crash mid-flush leaves the previous snapshot intact.
func (s *Store) ReplaceSessions(ctx context.Context, records []store.SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // safe after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, sealed, profile, created_at, last_used_at, last_refreshed_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID,
			rec.Sealed,
			rec.ProfileJSON,
			rec.CreatedAt,
			rec.LastUsedAt,
			rec.LastRefreshedAt,
		); err != nil {
			return fmt.Errorf("insert session %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}
