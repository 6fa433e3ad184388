package cmd

import (
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/formguard/formguard/internal/config"
	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/engine"
	"github.com/formguard/formguard/internal/core/gatekeeper"
	"github.com/formguard/formguard/internal/core/relay"
	"github.com/formguard/formguard/internal/core/store"
	"github.com/formguard/formguard/internal/form"
)

func gatekeeperPolicy(cfg *config.Config) gatekeeper.Policy {
	return gatekeeper.Policy{
		MinFillTime:    cfg.Gatekeeper.MinFillTime,
		MaxSubmissions: cfg.Gatekeeper.MaxSubmissions,
		Window:         cfg.Gatekeeper.Window,
	}.Normalize()
}

func decoySeed(cfg *config.Config) core.DecoySeed {
	return core.DecoySeed{A: cfg.Contact.DecoySeedA, B: cfg.Contact.DecoySeedB}
}

// newRelayClient builds the relay client. A zero timeout leaves requests
// bounded only by the caller's context.
func newRelayClient(cfg *config.Config) *relay.Client {
	client := &relay.Client{BaseURL: cfg.Contact.RelayBaseURL}
	if cfg.Contact.RelayTimeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Contact.RelayTimeout}
	}
	if versionInfo.Version != "" {
		client.UserAgent = "formguard/" + versionInfo.Version
	}
	return client
}

func newFormDeps(cfg *config.Config, backend store.Backend, sender form.Sender, logger *logging.Logger, clock func() time.Time) *form.Deps {
	return &form.Deps{
		Gatekeeper:  gatekeeper.New(gatekeeperPolicy(cfg)),
		Keeper:      engine.NewLedgerKeeper(backend, logger),
		Relay:       sender,
		Seed:        decoySeed(cfg),
		Clock:       clock,
		Logger:      logger,
		StoreDriver: backend.Driver(),
	}
}
