package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formguard/formguard/internal/core/engine"
	"github.com/formguard/formguard/internal/core/gatekeeper"
	apperrors "github.com/formguard/formguard/internal/errors"
	"github.com/formguard/formguard/internal/form"
	"github.com/formguard/formguard/internal/server/handlers"
)

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != apperrors.CodeNotFound {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
	if body.Error.RequestID == "" {
		t.Fatal("expected request id on error response")
	}
}

func TestContactRoutesMountedUnderPrefix(t *testing.T) {
	deps := &form.Deps{
		Gatekeeper: gatekeeper.New(gatekeeper.DefaultPolicy),
		Keeper:     engine.NewLedgerKeeper(engine.NewMemoryLedgerStore(), nil),
	}
	registry := form.NewRegistry(deps, form.RegistryConfig{})
	srv := New("127.0.0.1", 0, Options{Contact: handlers.NewContactHandler(registry, "")})

	req := httptest.NewRequest(http.MethodPost, ContactAPIPrefix+"/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one open session, got %d", registry.Len())
	}
}

func TestContactRoutesAbsentWithoutHandler(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	req := httptest.NewRequest(http.MethodPost, ContactAPIPrefix+"/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWrongMethodIsRejected(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	req := httptest.NewRequest(http.MethodPost, "/version", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestMetricsUnavailableWithoutExporter(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})
	if err := srv.Shutdown(t.Context()); err != nil {
		t.Fatalf("expected nil shutdown before start, got %v", err)
	}
}
