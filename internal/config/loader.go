// Package config provides centralized configuration management for formguard.
// Values are layered in this order, later layers winning:
// Layer 1: built-in defaults
// Layer 2: user config file (explicit path, else XDG discovery via app identity)
// Layer 3: environment variables and runtime overrides
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/formguard/formguard/internal/appid"
)

var (
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
	configFile  string
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Legacy environment names read by the Next.js contact form.
const (
	LegacyDecoySeedAEnv = "NEXT_PUBLIC_EMAIL_EXTRA_ONE"
	LegacyDecoySeedBEnv = "NEXT_PUBLIC_EMAIL_EXTRA_TWO"
	LegacyRelayURLEnv   = "NEXT_PUBLIC_API_URL"
)

// SetConfigFile pins the user config file instead of XDG discovery.
// An empty path restores discovery.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = strings.TrimSpace(path)
}

// Load builds the configuration from every layer.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	merged := defaults()

	userFile, err := readUserConfig()
	if err != nil {
		return nil, err
	}
	mergeMaps(merged, userFile)

	legacyOverrides, err := gfconfig.LoadEnvOverrides(getLegacyEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy environment overrides: %w", err)
	}
	mergeMaps(merged, legacyOverrides)

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	mergeMaps(merged, envOverrides)

	for _, overrides := range runtimeOverrides {
		mergeMaps(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)

	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", "libsql", "memory":
	case "redis":
		if strings.TrimSpace(c.Store.RedisURL) == "" {
			return errors.New("store.redis_url is required when store.driver is redis")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if c.Gatekeeper.MaxSubmissions < 0 {
		return errors.New("gatekeeper.max_submissions must not be negative")
	}
	if c.Sessions.MaxSessions < 0 {
		return errors.New("sessions.max_sessions must not be negative")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":                "localhost",
			"port":                8080,
			"read_timeout":        "30s",
			"write_timeout":       "30s",
			"idle_timeout":        "120s",
			"shutdown_timeout":    "10s",
			"client_id_header":    "X-Client-ID",
			"trust_proxy_headers": false,
		},
		"store": map[string]any{
			"driver":     "libsql",
			"path":       "",
			"url":        "",
			"auth_token": "",
			"redis_url":  "",
		},
		"contact": map[string]any{
			"decoy_seed_a":   "",
			"decoy_seed_b":   "",
			"relay_base_url": "",
			"relay_timeout":  "0s",
		},
		"gatekeeper": map[string]any{
			"min_fill_time":   "3s",
			"max_submissions": 3,
			"window":          "1h",
		},
		"sessions": map[string]any{
			"idle_ttl":       "30m",
			"sweep_interval": "1m",
			"max_sessions":   10000,
		},
		"logging": map[string]any{
			"level":   "info",
			"profile": "structured",
		},
		"metrics": map[string]any{
			"enabled": true,
			"port":    9090,
		},
		"health": map[string]any{
			"enabled": true,
		},
		"debug": map[string]any{
			"enabled":       false,
			"pprof_enabled": false,
		},
	}
}

// readUserConfig loads the first user config file that exists.
func readUserConfig() (map[string]any, error) {
	configMu.RLock()
	explicit := configFile
	configMu.RUnlock()

	if explicit != "" {
		values, err := readYAMLFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", explicit, err)
		}
		return values, nil
	}

	for _, path := range getUserConfigPaths() {
		values, err := readYAMLFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return values, nil
	}
	return map[string]any{}, nil
}

func readYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from XDG discovery or the --config flag
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// mergeMaps deep-merges src into dst; nested maps merge, other values replace.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		if !srcIsMap {
			dst[key] = value
			continue
		}
		dstMap, dstIsMap := dst[key].(map[string]any)
		if !dstIsMap {
			dstMap = map[string]any{}
			dst[key] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}

// getUserConfigPaths returns the list of user config file paths to check
func getUserConfigPaths() []string {
	configName, binaryName := appid.Names(appIdentity)

	legacyNames := []string{}
	if binaryName != configName {
		legacyNames = append(legacyNames, binaryName)
	}

	return gfconfig.GetAppConfigPaths(configName, legacyNames...)
}

// getLegacyEnvSpecs maps the web form's original variable names.
func getLegacyEnvSpecs() []EnvVarSpec {
	return []EnvVarSpec{
		{Name: LegacyDecoySeedAEnv, Path: []string{"contact", "decoy_seed_a"}, Type: EnvString},
		{Name: LegacyDecoySeedBEnv, Path: []string{"contact", "decoy_seed_b"}, Type: EnvString},
		{Name: LegacyRelayURLEnv, Path: []string{"contact", "relay_base_url"}, Type: EnvString},
	}
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := appid.EnvPrefix(appIdentity)

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "CLIENT_ID_HEADER", Path: []string{"server", "client_id_header"}, Type: EnvString},
		{Name: prefix + "TRUST_PROXY_HEADERS", Path: []string{"server", "trust_proxy_headers"}, Type: EnvBool},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},
		{Name: prefix + "REDIS_URL", Path: []string{"store", "redis_url"}, Type: EnvString},

		// Contact form
		{Name: prefix + "DECOY_SEED_A", Path: []string{"contact", "decoy_seed_a"}, Type: EnvString},
		{Name: prefix + "DECOY_SEED_B", Path: []string{"contact", "decoy_seed_b"}, Type: EnvString},
		{Name: prefix + "RELAY_BASE_URL", Path: []string{"contact", "relay_base_url"}, Type: EnvString},
		{Name: prefix + "RELAY_TIMEOUT", Path: []string{"contact", "relay_timeout"}, Type: EnvString},

		{Name: prefix + "MIN_FILL_TIME", Path: []string{"gatekeeper", "min_fill_time"}, Type: EnvString},
		{Name: prefix + "MAX_SUBMISSIONS", Path: []string{"gatekeeper", "max_submissions"}, Type: EnvInt},
		{Name: prefix + "SUBMISSION_WINDOW", Path: []string{"gatekeeper", "window"}, Type: EnvString},

		{Name: prefix + "SESSION_IDLE_TTL", Path: []string{"sessions", "idle_ttl"}, Type: EnvString},
		{Name: prefix + "SESSION_MAX", Path: []string{"sessions", "max_sessions"}, Type: EnvInt},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appid.Names(appIdentity)
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appid.Names(appIdentity)
	return gfconfig.GetAppDataDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the ledger database file.
func DefaultStorePath() string {
	_, binaryName := appid.Names(appIdentity)
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
