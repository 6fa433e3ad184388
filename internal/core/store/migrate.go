package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS submission_ledgers (
			client_key TEXT PRIMARY KEY,
			timestamps TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submission_ledgers_updated ON submission_ledgers(updated_at)`,
	},
	{
		`ALTER TABLE submission_ledgers ADD COLUMN entry_count INTEGER NOT NULL DEFAULT 0`,
	},
}

// SchemaVersion is the user_version a fully migrated database reports.
func SchemaVersion() int {
	return len(migrations)
}

// Migrate brings the schema up to SchemaVersion.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for version := current; version < len(migrations); version++ {
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store migration %d: %w", version+1, err)
		}
		for _, stmt := range migrations[version] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("store migration %d: %w", version+1, err)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store migration %d: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store migration %d: %w", version+1, err)
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
