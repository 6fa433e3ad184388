package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formguard/formguard/internal/metrics"
	"github.com/formguard/formguard/internal/observability"
)

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusFromCode(CodeSpamRejected))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatusFromCode(CodeRateLimited))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromCode(CodeExternalService))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeUnavailable))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromCode(CodeInvalidInput))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) HTTPErrorDetail {
	t.Helper()
	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestRespondWithSpamRejection(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact/sessions/x/submit", nil)

	RespondWithError(rec, req, NewSpamRejectedError("Please take your time filling out the form.", "timing"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, CodeSpamRejected, body.Code)
	assert.Equal(t, "timing", body.Details["stage"])
	assert.NotEmpty(t, body.RequestID)
}

func TestRespondHidesWrappedCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithError(rec, req, WrapInternal(req.Context(), stderrors.New("dsn secret leaked"), "ledger unavailable"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dsn secret")
	assert.Equal(t, "ledger unavailable", decode(t, rec).Message)
}

func TestRespondWithPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("boom"))

	body := decode(t, rec)
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "unexpected error", body.Message)
}

func TestSpamRejectedWithoutStage(t *testing.T) {
	envelope := NewSpamRejectedError("Something went wrong.", "")
	assert.Empty(t, envelope.Details)

	limited := NewRateLimitedError("Too many submissions.")
	assert.Equal(t, "rate_limit", limited.Details["stage"])
}

func endpointLabels(t *testing.T, collector *telemetrytesting.FakeCollector) map[string]int {
	t.Helper()
	labels := map[string]int{}
	for _, m := range collector.GetMetricsByName(metrics.ErrorsByEndpoint) {
		labels[m.Tags["endpoint"]]++
	}
	return labels
}

func TestErrorEndpointLabelIgnoresSessionID(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)
	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	r := chi.NewRouter()
	r.Post("/api/v1/contact/sessions/{id}/submit", func(w http.ResponseWriter, req *http.Request) {
		RespondWithError(w, req, NewNotFoundError("Form session not found"))
	})

	for i := 0; i < 3; i++ {
		path := "/api/v1/contact/sessions/" + uuid.NewString() + "/submit"
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
	assert.Equal(t, map[string]int{"/api/v1/contact/sessions/{id}/submit": 3}, endpointLabels(t, collector))

	// Unrouted requests fall back to a coarse bucket.
	for i := 0; i < 2; i++ {
		path := "/api/v1/contact/sessions/" + uuid.NewString()
		RespondWithError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil), NewNotFoundError("nope"))
	}
	assert.Equal(t, 2, endpointLabels(t, collector)["/api/v1/contact/*"])
	assert.Len(t, endpointLabels(t, collector), 2)
}
