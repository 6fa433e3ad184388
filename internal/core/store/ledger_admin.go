package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/formguard/formguard/internal/core"
)

// LedgerEntry is one stored client ledger.
type LedgerEntry struct {
	Key       string
	Ledger    core.Ledger
	UpdatedAt time.Time
}

// Recent counts the entries still inside window.
func (e LedgerEntry) Recent(now time.Time, window time.Duration) int {
	return len(e.Ledger.Recent(now, window))
}

// LedgerQuery selects ledgers for the admin commands.
type LedgerQuery struct {
	All    bool
	Key    string
	Prefix string
}

func (q LedgerQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Key) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, or --prefix")
}

// Matches applies the query to a key in memory.
func (q LedgerQuery) Matches(key string) bool {
	if q.All {
		return true
	}
	if exact := strings.TrimSpace(q.Key); exact != "" {
		return key == exact
	}
	prefix := strings.TrimSpace(q.Prefix)
	return prefix != "" && strings.HasPrefix(key, prefix)
}

func (q LedgerQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if key := strings.TrimSpace(q.Key); key != "" {
		return "WHERE client_key = ?", []any{key}, nil
	}
	prefix := strings.TrimSpace(q.Prefix)
	if prefix == "" {
		return "", nil, errors.New("prefix is required")
	}
	return "WHERE client_key LIKE ?", []any{prefix + "%"}, nil
}

func (s *Store) ListLedgers(ctx context.Context, q LedgerQuery) ([]LedgerEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT client_key, timestamps, updated_at
		FROM submission_ledgers
		%s
		ORDER BY client_key
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []LedgerEntry{}
	for rows.Next() {
		var (
			key       string
			raw       string
			updatedAt int64
		)
		if err := rows.Scan(&key, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan ledgers: %w", err)
		}

		// Unreadable rows are listed empty, the same way the keeper loads them.
		ledger, _ := core.DecodeLedger(raw)
		entries = append(entries, LedgerEntry{
			Key:       key,
			Ledger:    ledger,
			UpdatedAt: time.Unix(updatedAt, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}

	return entries, nil
}

func (s *Store) CountLedgers(ctx context.Context, q LedgerQuery) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM submission_ledgers
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count ledgers: %w", err)
	}
	return count, nil
}

func (s *Store) ResetLedgers(ctx context.Context, q LedgerQuery) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM submission_ledgers
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset ledgers: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset ledgers: %w", err)
	}
	return affected, nil
}
