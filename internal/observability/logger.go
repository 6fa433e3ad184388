package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used for CLI commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger is used by serve (STRUCTURED profile unless configured otherwise)
	ServerLogger *logging.Logger
)

// Logger returns the server logger once serving, else the CLI logger.
// It is nil before either is initialized.
func Logger() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}

// InitCLILogger initializes the CLI logger with SIMPLE profile
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// ServerLogOptions selects how the server logger is built.
type ServerLogOptions struct {
	Service   string
	Level     string
	Profile   string // "structured" (default) or "simple"
	Namespace string
}

// ConfigureServerLogger builds ServerLogger from opts.
func ConfigureServerLogger(opts ServerLogOptions) error {
	logger, err := logging.New(serverLoggerConfig(opts))
	if err != nil {
		return fmt.Errorf("server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

// InitServerLogger builds a structured server logger and exits on failure.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	opts := ServerLogOptions{Service: serviceName, Level: logLevel}
	if len(namespace) > 0 {
		opts.Namespace = namespace[0]
	}
	if err := ConfigureServerLogger(opts); err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
}

func serverLoggerConfig(opts ServerLogOptions) *logging.LoggerConfig {
	static := map[string]any{}
	if opts.Namespace != "" {
		static["namespace"] = opts.Namespace
	}

	cfg := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(opts.Level),
		Service:      opts.Service,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{{
			Type:    "console",
			Format:  "json",
			Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
		}},
		EnableCaller:     true,
		EnableStacktrace: true,
	}

	if strings.EqualFold(strings.TrimSpace(opts.Profile), "simple") {
		cfg.Profile = logging.ProfileSimple
		cfg.Middleware = nil
		cfg.Sinks[0].Format = "console"
		cfg.EnableCaller = false
		cfg.EnableStacktrace = false
	}
	return cfg
}

var logLevels = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// parseLogLevel maps a config level to a logging severity; unknown levels are INFO.
func parseLogLevel(level string) string {
	if sev, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return sev
	}
	return "INFO"
}

// fatal reports a logger initialization failure on stderr and exits.
func fatal(exitCode foundry.ExitCode, msg string, err error) {
	line := "FATAL: " + msg
	if err != nil {
		line += ": " + err.Error()
	}

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s (exit code: %d)\n", line, exitCode)
		os.Exit(int(exitCode))
	}
	fmt.Fprintln(os.Stderr, line)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
