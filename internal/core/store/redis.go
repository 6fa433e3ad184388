package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/engine"
)

const redisScanCount = 200

// RedisLedgerStore keeps ledgers as plain Redis strings that expire after the
// rate-limit window, so idle clients clean themselves up.
type RedisLedgerStore struct {
	client *redis.Client
	ttl    time.Duration
	scope  string
}

// OpenRedis connects to the Redis server at url and verifies it with PING.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*RedisLedgerStore, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisLedgerStore(client, ttl), nil
}

// NewRedisLedgerStore wraps an existing client.
func NewRedisLedgerStore(client *redis.Client, ttl time.Duration) *RedisLedgerStore {
	return &RedisLedgerStore{client: client, ttl: ttl, scope: engine.LedgerKeyPrefix}
}

// GetLedger implements engine.LedgerStore.
func (r *RedisLedgerStore) GetLedger(ctx context.Context, key string) (string, bool, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return raw, true, nil
}

// PutLedger implements engine.LedgerStore. The key's expiry restarts on every write.
func (r *RedisLedgerStore) PutLedger(ctx context.Context, key, raw string) error {
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

func (r *RedisLedgerStore) ListLedgers(ctx context.Context, q LedgerQuery) ([]LedgerEntry, error) {
	keys, err := r.keys(ctx, q)
	if err != nil {
		return nil, err
	}

	entries := make([]LedgerEntry, 0, len(keys))
	for _, key := range keys {
		raw, found, err := r.GetLedger(ctx, key)
		if err != nil {
			return nil, err
		}
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

func (r *RedisLedgerStore) CountLedgers(ctx context.Context, q LedgerQuery) (int, error) {
	keys, err := r.keys(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (r *RedisLedgerStore) ResetLedgers(ctx context.Context, q LedgerQuery) (int64, error) {
	keys, err := r.keys(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis DEL: %w", err)
	}
	return removed, nil
}

// Health checks if the Redis connection is healthy.
func (r *RedisLedgerStore) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisLedgerStore) Close() error {
	return r.client.Close()
}

// Driver returns "redis".
func (r *RedisLedgerStore) Driver() string {
	return driverRedis
}

func (r *RedisLedgerStore) keys(ctx context.Context, q LedgerQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(q.Key); key != "" && !q.All {
		n, err := r.client.Exists(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis EXISTS %s: %w", key, err)
		}
		if n == 0 {
			return []string{}, nil
		}
		return []string{key}, nil
	}

	// --all stays inside the ledger keyspace; the server may be shared.
	pattern := escapeGlob(r.scope) + "*"
	if !q.All {
		pattern = escapeGlob(strings.TrimSpace(q.Prefix)) + "*"
	}

	keys := []string{}
	iter := r.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis SCAN %s: %w", pattern, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
