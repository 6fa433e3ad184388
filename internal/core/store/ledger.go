package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/formguard/formguard/internal/core"
)

// GetLedger returns the stored JSON ledger for a key.
func (s *Store) GetLedger(ctx context.Context, key string) (string, bool, error) {
	if err := s.ready(); err != nil {
		return "", false, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("ledger key is required")
	}

	var raw string
	row := s.DB.QueryRowContext(ctx, `
		SELECT timestamps
		FROM submission_ledgers
		WHERE client_key = ?
	`, key)

	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetch ledger: %w", err)
	}

	return raw, true, nil
}

// PutLedger replaces the stored JSON ledger for a key.
func (s *Store) PutLedger(ctx context.Context, key, raw string) error {
	if err := s.ready(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("ledger key is required")
	}

	count := 0
	if ledger, err := core.DecodeLedger(raw); err == nil {
		count = len(ledger.Entries)
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO submission_ledgers (client_key, timestamps, updated_at, entry_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_key) DO UPDATE SET
			timestamps = excluded.timestamps,
			updated_at = excluded.updated_at,
			entry_count = excluded.entry_count
	`, key, raw, time.Now().UTC().Unix(), count)
	if err != nil {
		return fmt.Errorf("store ledger: %w", err)
	}

	return nil
}
