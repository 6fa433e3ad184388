package metrics

import (
	"time"

	"github.com/formguard/formguard/internal/observability"
)

// Application metric names. The Prometheus exporter adds the namespace prefix.
var (
	VerdictsTotal = "verdicts_total"

	RelayRequestsTotal   = "relay_requests_total"
	RelayRequestDuration = "relay_request_duration_ms"

	LedgerWriteErrorsTotal = "ledger_write_errors_total"

	ActiveSessions       = "active_sessions"
	SessionsExpiredTotal = "sessions_expired_total"

	HealthCheckTotal    = "health_check_total"
	HealthCheckDuration = "health_check_duration_ms"

	ServerStartTime = "server_start_time_seconds"
)

// Relay outcome labels.
const (
	RelaySuccess   = "success"
	RelayRejected  = "rejected"
	RelayTransport = "transport_error"
)

// RecordVerdict counts one gatekeeper decision. Accepted submissions use
// stage "none".
func RecordVerdict(stage, outcome string) {
	if stage == "" {
		stage = "none"
	}
	count(VerdictsTotal, map[string]string{"stage": stage, "outcome": outcome})
}

// RecordRelay counts one relay call and its latency.
func RecordRelay(result string, duration time.Duration) {
	labels := map[string]string{"result": result}
	count(RelayRequestsTotal, labels)
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(RelayRequestDuration, duration, labels)
	}
}

// RecordLedgerWriteError counts a ledger that could not be persisted.
func RecordLedgerWriteError(driver string) {
	count(LedgerWriteErrorsTotal, map[string]string{"driver": driver})
}

// SetActiveSessions sets the number of open form sessions.
func SetActiveSessions(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ActiveSessions,
			float64(count),
			nil,
		)
	}
}

// RecordSessionsExpired counts sessions dropped by the idle sweeper.
func RecordSessionsExpired(count int) {
	if count <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SessionsExpiredTotal,
			float64(count),
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
