package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points XDG discovery at empty temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	SetConfigFile("")
	t.Cleanup(func() { SetConfigFile("") })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "X-Client-ID", cfg.Server.ClientIDHeader)

		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("formguard"), "formguard.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)

		assert.Equal(t, "", cfg.Contact.RelayBaseURL)
		assert.Equal(t, time.Duration(0), cfg.Contact.RelayTimeout)

		assert.Equal(t, 3*time.Second, cfg.Gatekeeper.MinFillTime)
		assert.Equal(t, 3, cfg.Gatekeeper.MaxSubmissions)
		assert.Equal(t, time.Hour, cfg.Gatekeeper.Window)

		assert.Equal(t, 30*time.Minute, cfg.Sessions.IdleTTL)
		assert.Equal(t, 10000, cfg.Sessions.MaxSessions)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"contact": map[string]any{
				"relay_base_url": "https://relay.example",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "https://relay.example", cfg.Contact.RelayBaseURL)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("FORMGUARD_PORT", "3000")
		t.Setenv("FORMGUARD_LOG_LEVEL", "warn")
		t.Setenv("FORMGUARD_METRICS_ENABLED", "false")
		t.Setenv("FORMGUARD_MAX_SUBMISSIONS", "5")
		t.Setenv("FORMGUARD_SUBMISSION_WINDOW", "30m")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 5, cfg.Gatekeeper.MaxSubmissions)
		assert.Equal(t, 30*time.Minute, cfg.Gatekeeper.Window)
	})

	t.Run("LegacyEnvNames", func(t *testing.T) {
		isolate(t)
		t.Setenv(LegacyDecoySeedAEnv, "seed-one")
		t.Setenv(LegacyDecoySeedBEnv, "seed-two")
		t.Setenv(LegacyRelayURLEnv, "https://legacy.example")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "seed-one", cfg.Contact.DecoySeedA)
		assert.Equal(t, "seed-two", cfg.Contact.DecoySeedB)
		assert.Equal(t, "https://legacy.example", cfg.Contact.RelayBaseURL)

		t.Setenv("FORMGUARD_RELAY_BASE_URL", "https://current.example")
		cfg, err = Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "https://current.example", cfg.Contact.RelayBaseURL)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("FORMGUARD_PORT", "4000")

		cfg, err := Load(ctx, map[string]any{
			"server": map[string]any{"port": 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("ExplicitFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "formguard.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
contact:
  decoy_seed_a: from-file
  relay_timeout: 15s
store:
  driver: memory
`), 0o600))
		SetConfigFile(path)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, "from-file", cfg.Contact.DecoySeedA)
		assert.Equal(t, 15*time.Second, cfg.Contact.RelayTimeout)
		assert.Equal(t, "memory", cfg.Store.Driver)

		t.Setenv("FORMGUARD_PORT", "7171")
		cfg, err = Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7171, cfg.Server.Port)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := Load(ctx)
		require.Error(t, err)
	})

	t.Run("DiscoveredFile", func(t *testing.T) {
		isolate(t)
		dir := gfconfig.GetAppConfigDir("formguard")
		require.NotEmpty(t, dir)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 6060\n"), 0o600))

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6060, cfg.Server.Port)
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "redis"}}
	require.Error(t, cfg.Validate())

	cfg.Store.RedisURL = "redis://localhost:6379/0"
	require.NoError(t, cfg.Validate())

	cfg.Store.Driver = "postgres"
	require.Error(t, cfg.Validate())

	cfg = &Config{Gatekeeper: GatekeeperConfig{MaxSubmissions: -1}}
	require.Error(t, cfg.Validate())
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
}

func TestEnvSpecs(t *testing.T) {
	isolate(t)
	_, err := Load(context.Background())
	require.NoError(t, err)

	envVarNames := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["FORMGUARD_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["FORMGUARD_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["FORMGUARD_DB_PATH"], "DB_PATH env var must be mapped")
	assert.True(t, envVarNames["FORMGUARD_RELAY_BASE_URL"], "RELAY_BASE_URL env var must be mapped")
	assert.True(t, envVarNames["FORMGUARD_REDIS_URL"], "REDIS_URL env var must be mapped")
}

func TestMergeMaps(t *testing.T) {
	dst := map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
		"debug":  true,
	}
	mergeMaps(dst, map[string]any{
		"server": map[string]any{"port": 9000},
		"debug":  false,
		"extra":  map[string]any{"a": 1},
	})

	assert.Equal(t, map[string]any{
		"server": map[string]any{"host": "localhost", "port": 9000},
		"debug":  false,
		"extra":  map[string]any{"a": 1},
	}, dst)
}

func TestDefaultStorePathUnderDataDir(t *testing.T) {
	isolate(t)

	dataDir := DefaultDataDir()
	require.NotEmpty(t, dataDir)
	assert.Equal(t, filepath.Join(dataDir, "formguard.db"), DefaultStorePath())
}
