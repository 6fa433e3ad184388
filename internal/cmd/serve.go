package cmd

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formguard/formguard/internal/appid"
	"github.com/formguard/formguard/internal/config"
	errwrap "github.com/formguard/formguard/internal/errors"
	"github.com/formguard/formguard/internal/form"
	"github.com/formguard/formguard/internal/metrics"
	"github.com/formguard/formguard/internal/observability"
	"github.com/formguard/formguard/internal/server"
	"github.com/formguard/formguard/internal/server/handlers"
)

var serveFlagBindings = map[string]string{
	"server.host":  "host",
	"server.port":  "port",
	"store.driver": "store-driver",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the contact form API",
	Long: `Start the HTTP server that hosts contact form sessions and forwards
accepted submissions to the mail relay.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload and validate configuration (restart to apply)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, serveFlagBindings)
	if err != nil {
		return err
	}

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()
	_, binaryName := appid.Names(identity)

	if err := observability.ConfigureServerLogger(observability.ServerLogOptions{
		Service:   binaryName,
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	}); err != nil {
		return err
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(binaryName, cfg.Metrics.Port, namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open ledger store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
		return errwrap.WrapStoreError(ctx, err, "ledger store unavailable")
	}

	if strings.TrimSpace(cfg.Contact.RelayBaseURL) == "" {
		logger.Warn("No relay base URL configured; accepted submissions will fail to send")
	}
	if cfg.Contact.DecoySeedA == "" && cfg.Contact.DecoySeedB == "" {
		logger.Warn("Decoy seeds are empty; the decoy check only catches bots that fill hidden fields")
	}

	deps := newFormDeps(cfg, backend, newRelayClient(cfg), logger, nil)
	registry := form.NewRegistry(deps, form.RegistryConfig{
		IdleTTL:       cfg.Sessions.IdleTTL,
		SweepInterval: cfg.Sessions.SweepInterval,
		MaxSessions:   cfg.Sessions.MaxSessions,
	})
	registry.Start(ctx)

	hm := handlers.InitHealthManager(versionInfo.Version)
	hm.RegisterChecker("ledger_store", handlers.CheckFunc(backend.Health))
	hm.RegisterOptional("relay_config", handlers.CheckFunc(func(context.Context) error {
		if strings.TrimSpace(cfg.Contact.RelayBaseURL) == "" {
			return errwrap.NewConfigInvalidError("relay base URL is not configured")
		}
		return nil
	}))
	hm.RegisterChecker("app_identity", handlers.CheckFunc(func(context.Context) error {
		if identity == nil || identity.BinaryName == "" || identity.EnvPrefix == "" {
			return errwrap.NewConfigInvalidError("app identity incomplete")
		}
		return nil
	}))
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", handlers.CheckFunc(func(context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return errwrap.NewInternalError("telemetry system not initialized")
			}
			return nil
		}))
	}

	handlers.SetAppIdentity(identity)
	handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

	srv := server.New(cfg.Server.Host, cfg.Server.Port, server.Options{
		Contact:           handlers.NewContactHandler(registry, cfg.Server.ClientIDHeader),
		Health:            hm,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	})

	logger.Info("Initializing server",
		zap.String("service", binaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store_driver", backend.Driver()),
		zap.Duration("min_fill_time", deps.Gatekeeper.Policy.MinFillTime),
		zap.Int("max_submissions", deps.Gatekeeper.Policy.MaxSubmissions),
		zap.Duration("window", deps.Gatekeeper.Policy.Window))

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: HTTP server, sessions, store, then logger.
	signals.OnShutdown(func(ctx context.Context) error {
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		if err := backend.Close(); err != nil {
			return errwrap.WrapStoreError(ctx, err, "ledger store close failed")
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		registry.Stop()
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		reloaded, err := config.Load(ctx)
		if err != nil {
			logger.Error("Config reload failed", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "config reload failed")
		}
		logger.Info("Configuration validated; restart to apply changes",
			zap.String("store_driver", reloaded.Store.Driver),
			zap.Int("max_submissions", reloaded.Gatekeeper.MaxSubmissions))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		registry.Stop()
		_ = backend.Close()
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("store-driver", "libsql", "ledger store: libsql|redis|memory")
}
