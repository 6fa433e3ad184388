package metrics

import (
	"strconv"

	"github.com/formguard/formguard/internal/observability"
)

// Error metric names.
const (
	ErrorsTotal      = "errors_total"
	PanicsTotal      = "panics_total"
	ErrorsByEndpoint = "errors_by_endpoint"
)

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}

// RecordError counts an error envelope written to a client. Spam rejections
// are counted here too, under SPAM_REJECTED and RATE_LIMITED.
func RecordError(errorCode string, httpStatus int) {
	count(ErrorsTotal, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a handler panic caught by the recovery middleware.
func RecordPanic() {
	count(PanicsTotal, nil)
}

// RecordErrorByEndpoint counts an error envelope by request path.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	count(ErrorsByEndpoint, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
