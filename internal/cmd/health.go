package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/formguard/formguard/internal/errors"
	"github.com/formguard/formguard/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify that configuration loads, the ledger store answers and a relay is configured.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadConfig(cmd, ledgerFlagBindings)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration loaded")

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		backend, err := openBackend(ctx, cfg)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Ledger store unavailable", err)
			return
		}
		defer backend.Close() // nolint:errcheck // best-effort cleanup

		if err := backend.Health(ctx); err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Ledger store health check failed", err)
			return
		}
		logger.Info("✅ Ledger store reachable", zap.String("driver", backend.Driver()))

		if strings.TrimSpace(cfg.Contact.RelayBaseURL) == "" {
			logger.Warn("⚠️  Relay base URL not configured; accepted submissions cannot be sent")
		} else {
			logger.Info("✅ Relay configured", zap.String("endpoint", newRelayClient(cfg).Endpoint()))
		}

		logger.Info("✅ All health checks passed")
	},
}

func init() {
	healthCmd.Flags().String("store-driver", "libsql", "ledger store: libsql|redis|memory")
	rootCmd.AddCommand(healthCmd)
}
