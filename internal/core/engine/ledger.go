package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/formguard/formguard/internal/core"
)

// LedgerKeyPrefix is the fixed storage key the contact form has always used.
const LedgerKeyPrefix = "contact_form_submissions"

const maxClientKeyLength = 128

// LedgerStore is the key/value capability used to persist ledgers.
type LedgerStore interface {
	GetLedger(ctx context.Context, key string) (string, bool, error)
	PutLedger(ctx context.Context, key, raw string) error
}

// LedgerKeeper loads and saves per-client ledgers.
type LedgerKeeper struct {
	Store  LedgerStore
	Prefix string
	Logger *logging.Logger

	locks keyLocks
}

// NewLedgerKeeper returns a keeper backed by store.
func NewLedgerKeeper(store LedgerStore, logger *logging.Logger) *LedgerKeeper {
	return &LedgerKeeper{Store: store, Prefix: LedgerKeyPrefix, Logger: logger}
}

// Key returns the storage key for a client.
func (k *LedgerKeeper) Key(clientKey string) string {
	prefix := k.Prefix
	if prefix == "" {
		prefix = LedgerKeyPrefix
	}
	clientKey = SanitizeClientKey(clientKey)
	if clientKey == "" {
		return prefix
	}
	return prefix + ":" + clientKey
}

// Load returns the client's ledger. Missing, unreadable, or malformed data
// yields an empty ledger so the form keeps working.
func (k *LedgerKeeper) Load(ctx context.Context, clientKey string) core.Ledger {
	if k == nil || k.Store == nil {
		return core.Ledger{}
	}
	key := k.Key(clientKey)

	raw, found, err := k.Store.GetLedger(ctx, key)
	if err != nil {
		k.warn("Ledger read failed, treating as empty", key, err)
		return core.Ledger{}
	}
	if !found {
		return core.Ledger{}
	}

	ledger, err := core.DecodeLedger(raw)
	if err != nil {
		k.warn("Ledger data unreadable, treating as empty", key, err)
		return core.Ledger{}
	}
	return ledger
}

// Save writes the ledger for a client.
func (k *LedgerKeeper) Save(ctx context.Context, clientKey string, ledger core.Ledger) error {
	if k == nil || k.Store == nil {
		return nil
	}
	return k.Store.PutLedger(ctx, k.Key(clientKey), ledger.Encode())
}

// Update runs fn against the client's ledger while holding the client's lock
// and saves the ledger when fn reports a change. A failed save is logged and
// returned; the caller decides whether it matters.
func (k *LedgerKeeper) Update(ctx context.Context, clientKey string, fn func(*core.Ledger) bool) error {
	if k == nil {
		ledger := core.Ledger{}
		fn(&ledger)
		return nil
	}

	key := k.Key(clientKey)
	unlock := k.locks.lock(key)
	defer unlock()

	ledger := k.Load(ctx, clientKey)
	if !fn(&ledger) {
		return nil
	}
	if err := k.Save(ctx, clientKey, ledger); err != nil {
		k.warn("Ledger write failed", key, err)
		return err
	}
	return nil
}

func (k *LedgerKeeper) warn(msg, key string, err error) {
	if k.Logger == nil {
		return
	}
	k.Logger.Warn(msg, zap.String("key", key), zap.Error(err))
}

// SanitizeClientKey keeps letters, digits and ".:-_" and caps the length.
func SanitizeClientKey(clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	var b strings.Builder
	for _, r := range clientKey {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == ':', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= maxClientKeyLength {
			break
		}
	}
	return b.String()
}

// keyLocks hands out one mutex per key and drops it when unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (l *keyLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*keyLock)
	}
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
