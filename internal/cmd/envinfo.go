package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formguard/formguard/internal/appid"
	"github.com/formguard/formguard/internal/config"
	"github.com/formguard/formguard/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		_, binaryName := appid.Names(GetAppIdentity())

		log.Info("=== FormGuard Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + binaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Server:")
		log.Info("  Host:           "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		log.Info(fmt.Sprintf("  Port:           %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		log.Info("  Client Header:  "+orUnset(cfg.Server.ClientIDHeader), zap.String("client_id_header", cfg.Server.ClientIDHeader))
		log.Info(fmt.Sprintf("  Trust Proxy:    %t", cfg.Server.TrustProxyHeaders), zap.Bool("trust_proxy_headers", cfg.Server.TrustProxyHeaders))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		log.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		log.Info("  Data Dir:       "+config.DefaultDataDir(), zap.String("data_dir", config.DefaultDataDir()))
		log.Info("")

		log.Info("Ledger Store:")
		log.Info("  Driver:         "+cfg.Store.Driver, zap.String("store_driver", cfg.Store.Driver))
		switch strings.ToLower(cfg.Store.Driver) {
		case "redis":
			log.Info("  Redis URL:      " + redactURL(cfg.Store.RedisURL))
		case "memory":
			log.Info("  (ledgers are not persisted)")
		default:
			if strings.TrimSpace(cfg.Store.URL) != "" {
				log.Info("  DB URL:         " + redactURL(cfg.Store.URL))
			} else {
				log.Info("  DB Path:        " + cfg.Store.Path)
			}
		}
		log.Info("")

		policy := gatekeeperPolicy(cfg)
		log.Info("Gatekeeper:")
		log.Info("  Min Fill Time:  "+policy.MinFillTime.String(), zap.Duration("min_fill_time", policy.MinFillTime))
		log.Info(fmt.Sprintf("  Max Submits:    %d per %s", policy.MaxSubmissions, policy.Window), zap.Int("max_submissions", policy.MaxSubmissions))
		log.Info(fmt.Sprintf("  Decoy Seeds:    %t", cfg.Contact.DecoySeedA != "" || cfg.Contact.DecoySeedB != ""))
		log.Info("")

		log.Info("Relay:")
		log.Info("  Endpoint:       "+orUnset(strings.TrimSpace(cfg.Contact.RelayBaseURL)), zap.String("relay_base_url", cfg.Contact.RelayBaseURL))
		log.Info("  Timeout:        " + cfg.Contact.RelayTimeout.String())
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func orUnset(value string) string {
	if value == "" {
		return "(unset)"
	}
	return value
}

// redactURL hides everything after the scheme when credentials are embedded.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || !strings.Contains(rest, "@") {
		return orUnset(raw)
	}
	_, host, _ := strings.Cut(rest, "@")
	return scheme + "://***@" + host
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
