package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// fallbackMetricsPort is reported when an ephemeral exporter address
// cannot be parsed.
const fallbackMetricsPort = 9090

var (
	// TelemetrySystem receives gatekeeper, relay and HTTP metrics. Nil
	// means metrics are off and recorders are no-ops.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves TelemetrySystem in Prometheus text format.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free one) and
// installs TelemetrySystem. Metric names are prefixed with namespace, or
// with serviceName when no namespace is given.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}
	port = max(port, 0)

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	metricsPort = port
	if bound, err := portOf(exporter.GetAddr()); err == nil {
		metricsPort = bound
	} else if port == 0 {
		metricsPort = fallbackMetricsPort
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// DisableTelemetry installs a disabled global telemetry system so CLI
// commands never emit metrics. Serving replaces it through InitMetrics.
func DisableTelemetry() {
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false})
	if err != nil {
		return
	}
	telemetry.SetGlobalSystem(sys)
}

// GetMetricsPort returns the port the exporter bound, or 0 before InitMetrics.
func GetMetricsPort() int {
	return metricsPort
}

func portOf(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
