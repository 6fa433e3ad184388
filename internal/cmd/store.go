package cmd

import (
	"context"
	"fmt"

	"github.com/formguard/formguard/internal/config"
	"github.com/formguard/formguard/internal/core/store"
)

// openBackend opens the configured ledger store. Ledger keys live as long as
// the submission window.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	backend, err := store.OpenBackend(ctx, cfg.Store, gatekeeperPolicy(cfg).Window)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger store: %w", cfg.Store.Driver, err)
	}
	return backend, nil
}
