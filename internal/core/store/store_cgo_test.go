//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/formguard/formguard/internal/config"
	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/engine"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	store := openMemoryStore(t)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Health(context.Background()))

	// Migrations are idempotent.
	require.NoError(t, store.Migrate(context.Background()))

	version, err := store.schemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, SchemaVersion(), version)
}

func TestStoreLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	_, found, err := store.GetLedger(ctx, "contact_form_submissions:client")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:client", "[1,2]"))
	raw, found, err := store.GetLedger(ctx, "contact_form_submissions:client")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "[1,2]", raw)

	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:client", "[2,3,4]"))
	raw, _, err = store.GetLedger(ctx, "contact_form_submissions:client")
	require.NoError(t, err)
	require.Equal(t, "[2,3,4]", raw)

	var count int
	require.NoError(t, store.DB.QueryRowContext(ctx,
		"SELECT entry_count FROM submission_ledgers WHERE client_key = ?",
		"contact_form_submissions:client").Scan(&count))
	require.Equal(t, 3, count)

	_, _, err = store.GetLedger(ctx, "  ")
	require.Error(t, err)
}

func TestStoreLedgerAdmin(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:10.0.0.1", "[1000]"))
	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:10.0.0.2", "[1000,2000]"))
	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:192.168.0.1", "garbage"))

	entries, err := store.ListLedgers(ctx, LedgerQuery{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "contact_form_submissions:10.0.0.1", entries[0].Key)
	require.Empty(t, entries[2].Ledger.Entries)

	count, err := store.CountLedgers(ctx, LedgerQuery{Prefix: "contact_form_submissions:10."})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	removed, err := store.ResetLedgers(ctx, LedgerQuery{Key: "contact_form_submissions:10.0.0.2"})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = store.ListLedgers(ctx, LedgerQuery{})
	require.Error(t, err)
}

func TestKeeperOverLibsql(t *testing.T) {
	ctx := context.Background()
	keeper := engine.NewLedgerKeeper(openMemoryStore(t), nil)

	require.NoError(t, keeper.Update(ctx, "203.0.113.9", func(l *core.Ledger) bool {
		l.Entries = append(l.Entries, 42)
		return true
	}))
	require.Equal(t, []int64{42}, keeper.Load(ctx, "203.0.113.9").Entries)
}
