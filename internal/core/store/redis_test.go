package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/formguard/formguard/internal/config"
	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/engine"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisLedgerStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	store := NewRedisLedgerStore(client, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func TestRedisLedgerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	_, found, err := store.GetLedger(ctx, "contact_form_submissions:client")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:client", "[1,2]"))
	raw, found, err := store.GetLedger(ctx, "contact_form_submissions:client")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "[1,2]", raw)
	require.Equal(t, time.Hour, mr.TTL("contact_form_submissions:client"))
}

func TestRedisLedgerStoreExpires(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:client", "[1]"))
	mr.FastForward(61 * time.Minute)

	_, found, err := store.GetLedger(ctx, "contact_form_submissions:client")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisLedgerStoreAdmin(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	require.NoError(t, mr.Set("unrelated", "value"))
	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:10.0.0.1", "[1000]"))
	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:10.0.0.2", "[1000,2000]"))
	require.NoError(t, store.PutLedger(ctx, "contact_form_submissions:172.16.0.1", "[3000]"))

	entries, err := store.ListLedgers(ctx, LedgerQuery{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "contact_form_submissions:10.0.0.1", entries[0].Key)
	require.Equal(t, time.UnixMilli(2000).UTC(), entries[1].UpdatedAt)

	count, err := store.CountLedgers(ctx, LedgerQuery{Prefix: "contact_form_submissions:10."})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = store.CountLedgers(ctx, LedgerQuery{Key: "contact_form_submissions:missing"})
	require.NoError(t, err)
	require.Equal(t, 0, count)

	removed, err := store.ResetLedgers(ctx, LedgerQuery{Prefix: "contact_form_submissions:10."})
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	removed, err = store.ResetLedgers(ctx, LedgerQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.True(t, mr.Exists("unrelated"))
}

func TestRedisKeeperFailsOpenWhenServerGone(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)
	keeper := engine.NewLedgerKeeper(store, nil)

	require.NoError(t, keeper.Save(ctx, "client", core.Ledger{Entries: []int64{5}}))
	require.Equal(t, []int64{5}, keeper.Load(ctx, "client").Entries)

	mr.Close()
	require.Empty(t, keeper.Load(ctx, "client").Entries)
	require.Error(t, store.Health(ctx))
}

func TestOpenBackendRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	backend, err := OpenBackend(context.Background(), config.StoreConfig{
		Driver:   "redis",
		RedisURL: "redis://" + mr.Addr() + "/0",
	}, time.Hour)
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()

	require.Equal(t, "redis", backend.Driver())
	require.NoError(t, backend.Health(context.Background()))
}

func TestEscapeGlob(t *testing.T) {
	require.Equal(t, `a\*b\?c`, escapeGlob("a*b?c"))
	require.Equal(t, "contact_form_submissions:", escapeGlob("contact_form_submissions:"))
}
