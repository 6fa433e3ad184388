package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/formguard/formguard/internal/errors"
	"github.com/formguard/formguard/internal/metrics"
)

// Check results.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	StatusTimeout   = "timeout"
)

const (
	aggregateTimeout = 5 * time.Second
	readyTimeout     = 5 * time.Second
	startupTimeout   = 3 * time.Second
)

// HealthResponse is the aggregate /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live, ready and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is a component the probes can check.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

type registeredCheck struct {
	name     string
	checker  HealthChecker
	optional bool
}

// HealthManager runs registered checks for the health endpoints. A failing
// required check makes the service unhealthy; a failing optional check only
// degrades it.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]registeredCheck
	version string
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]registeredCheck),
		version: version,
	}
}

// RegisterChecker registers a required check.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(registeredCheck{name: name, checker: checker})
}

// RegisterOptional registers a check whose failure reports degraded.
func (hm *HealthManager) RegisterOptional(name string, checker HealthChecker) {
	hm.register(registeredCheck{name: name, checker: checker, optional: true})
}

func (hm *HealthManager) register(check registeredCheck) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[check.name] = check
}

func (hm *HealthManager) snapshot() []registeredCheck {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	out := make([]registeredCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		out = append(out, check)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// runHealthChecks runs checks in name order. Checks not started before ctx
// ends are reported as timed out.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	checks := hm.snapshot()
	results := make(map[string]string, len(checks))
	for _, check := range checks {
		if ctx.Err() != nil {
			results[check.name] = StatusTimeout
			continue
		}
		started := time.Now()
		err := check.checker.CheckHealth(ctx)
		metrics.RecordHealthCheck(check.name, err == nil, time.Since(started))
		switch {
		case err == nil:
			results[check.name] = StatusHealthy
		case check.optional:
			results[check.name] = StatusDegraded
		default:
			results[check.name] = StatusUnhealthy
		}
	}
	return results
}

func (hm *HealthManager) determineOverallStatus(results map[string]string) string {
	overall := StatusHealthy
	for _, status := range results {
		switch status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			overall = StatusDegraded
		}
	}
	return overall
}

func (hm *HealthManager) evaluate(r *http.Request, timeout time.Duration) (string, map[string]string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	results := hm.runHealthChecks(ctx)
	return hm.determineOverallStatus(results), results
}

// HealthHandler serves the aggregate check with per-check results.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, results := hm.evaluate(r, aggregateTimeout)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthEnvelope("aggregate health check failed", "", status, results))
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
	})
}

// LivenessHandler reports whether the process is running. It runs no checks
// so a failing store never gets the process restarted.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProbeResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

// ReadinessHandler reports whether the ledger store and relay are usable.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "ready", readyTimeout)
}

// StartupHandler reports whether initialization completed.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "startup", startupTimeout)
}

func (hm *HealthManager) probe(w http.ResponseWriter, r *http.Request, name string, timeout time.Duration) {
	status, results := hm.evaluate(r, timeout)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthEnvelope(name+" probe failed", name, status, results))
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

// healthEnvelope builds a 503 envelope listing check results in the details
// and the failing check names in the log context.
func healthEnvelope(message, probe, status string, results map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status}
	if len(results) > 0 {
		details["checks"] = results
	}
	if probe != "" {
		details["probe"] = probe
	}
	envelope := apperrors.NewUnavailableError(message).WithDetails(details)

	var failing []string
	for name, result := range results {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) == 0 {
		return envelope
	}
	sort.Strings(failing)
	if withContext, err := envelope.WithContext(map[string]interface{}{"unhealthy_checks": failing}); err == nil {
		return withContext
	}
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager replaces the manager behind the package-level handlers.
func InitHealthManager(version string) *HealthManager {
	globalHealthManager = NewHealthManager(version)
	return globalHealthManager
}

func GetHealthManager() *HealthManager {
	return globalHealthManager
}

// withGlobal serves probe through the global manager, or 503 before
// InitHealthManager.
func withGlobal(probe string, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hm := globalHealthManager
		if hm == nil {
			respondWithError(w, r, healthEnvelope("health manager not initialized", probe, "unknown", nil))
			return
		}
		serve(hm, w, r)
	}
}

var (
	HealthHandler    = withGlobal("aggregate", (*HealthManager).HealthHandler)
	LivenessHandler  = withGlobal("live", (*HealthManager).LivenessHandler)
	ReadinessHandler = withGlobal("ready", (*HealthManager).ReadinessHandler)
	StartupHandler   = withGlobal("startup", (*HealthManager).StartupHandler)
)
