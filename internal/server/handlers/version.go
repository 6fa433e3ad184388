package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

// BuildInfo is the build metadata injected by main.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

var (
	buildMu     sync.RWMutex
	buildInfo   = BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
	appIdentity *appidentity.Identity
)

// SetVersionInfo records the build metadata served by /version.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	buildInfo = BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// SetAppIdentity records the identity whose binary name /version reports.
func SetAppIdentity(identity *appidentity.Identity) {
	buildMu.Lock()
	defer buildMu.Unlock()
	appIdentity = identity
}

// VersionResponse is the /version payload.
type VersionResponse struct {
	Service      ServiceInfo       `json:"service"`
	Build        BuildInfo         `json:"build"`
	Dependencies map[string]string `json:"dependencies"`
	Runtime      RuntimeInfo       `json:"runtime"`
}

// ServiceInfo names the running binary.
type ServiceInfo struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// RuntimeInfo describes the Go runtime.
type RuntimeInfo struct {
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

func currentService() ServiceInfo {
	buildMu.RLock()
	identity := appIdentity
	buildMu.RUnlock()

	if identity != nil && identity.BinaryName != "" {
		return ServiceInfo{Name: identity.BinaryName, Namespace: identity.TelemetryNamespace()}
	}
	if len(os.Args) > 0 && os.Args[0] != "" {
		return ServiceInfo{Name: filepath.Base(os.Args[0])}
	}
	return ServiceInfo{Name: "unknown"}
}

// VersionHandler reports build, dependency and runtime versions.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	buildMu.RLock()
	build := buildInfo
	buildMu.RUnlock()

	deps := crucible.GetVersion()
	writeJSON(w, http.StatusOK, VersionResponse{
		Service: currentService(),
		Build:   build,
		Dependencies: map[string]string{
			"gofulmen": deps.Gofulmen,
			"crucible": deps.Crucible,
		},
		Runtime: RuntimeInfo{
			GoVersion:     runtime.Version(),
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
