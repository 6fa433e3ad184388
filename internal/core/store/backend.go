package store

import (
	"context"
	"strings"
	"time"

	"github.com/formguard/formguard/internal/config"
	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/engine"
)

const (
	driverRedis  = "redis"
	driverMemory = "memory"
)

// Backend is a ledger store that also supports the admin commands.
type Backend interface {
	engine.LedgerStore
	ListLedgers(ctx context.Context, q LedgerQuery) ([]LedgerEntry, error)
	CountLedgers(ctx context.Context, q LedgerQuery) (int, error)
	ResetLedgers(ctx context.Context, q LedgerQuery) (int64, error)
	Health(ctx context.Context) error
	Driver() string
	Close() error
}

// OpenBackend opens the ledger backend selected by cfg.Driver. Redis keys
// expire after window; libsql tables are migrated before returning.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, window time.Duration) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case driverRedis:
		return OpenRedis(ctx, cfg.RedisURL, window)
	case driverMemory:
		return NewMemoryBackend(), nil
	default:
		db, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.DB.PingContext(ctx)
}

// MemoryBackend adapts engine.MemoryLedgerStore to Backend. Ledgers are lost
// when the process exits.
type MemoryBackend struct {
	*engine.MemoryLedgerStore
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{MemoryLedgerStore: engine.NewMemoryLedgerStore()}
}

func (m *MemoryBackend) ListLedgers(ctx context.Context, q LedgerQuery) ([]LedgerEntry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	entries := []LedgerEntry{}
	for _, key := range m.Keys("") {
		if !q.Matches(key) {
			continue
		}
		raw, found, _ := m.GetLedger(ctx, key)
		if !found {
			continue
		}
		ledger, _ := core.DecodeLedger(raw)
		entry := LedgerEntry{Key: key, Ledger: ledger}
		if n := len(ledger.Entries); n > 0 {
			entry.UpdatedAt = time.UnixMilli(ledger.Entries[n-1]).UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *MemoryBackend) CountLedgers(ctx context.Context, q LedgerQuery) (int, error) {
	entries, err := m.ListLedgers(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (m *MemoryBackend) ResetLedgers(ctx context.Context, q LedgerQuery) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	var removed int64
	for _, key := range m.Keys("") {
		if q.Matches(key) && m.Delete(key) {
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryBackend) Health(ctx context.Context) error { return nil }

func (m *MemoryBackend) Driver() string { return driverMemory }

func (m *MemoryBackend) Close() error { return nil }
