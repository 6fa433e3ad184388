package config

import (
	"time"
)

// Config is the complete application configuration, merged from:
// Layer 1: built-in defaults
// Layer 2: user config file (~/.config/formguard/config.yaml)
// Layer 3: environment variables and runtime overrides
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Contact    ContactConfig    `mapstructure:"contact"`
	Gatekeeper GatekeeperConfig `mapstructure:"gatekeeper"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Debug      DebugConfig      `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// ClientIDHeader names the request header that identifies a client for
	// submission rate limiting. The remote address is used when it is absent.
	ClientIDHeader string `mapstructure:"client_id_header"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For or X-Real-IP.
	// Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

// StoreConfig selects where submission ledgers live.
//
// Driver is one of libsql (default), redis or memory.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
	RedisURL  string `mapstructure:"redis_url"`
}

// ContactConfig holds the values the contact form is rendered and forwarded with.
type ContactConfig struct {
	DecoySeedA   string        `mapstructure:"decoy_seed_a"`
	DecoySeedB   string        `mapstructure:"decoy_seed_b"`
	RelayBaseURL string        `mapstructure:"relay_base_url"`
	RelayTimeout time.Duration `mapstructure:"relay_timeout"`
}

// GatekeeperConfig overrides the submission thresholds. Zero keeps the default.
type GatekeeperConfig struct {
	MinFillTime    time.Duration `mapstructure:"min_fill_time"`
	MaxSubmissions int           `mapstructure:"max_submissions"`
	Window         time.Duration `mapstructure:"window"`
}

// SessionsConfig bounds the in-memory form sessions kept by the server.
type SessionsConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxSessions   int           `mapstructure:"max_sessions"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
