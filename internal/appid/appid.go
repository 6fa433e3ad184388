package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/formguard/formguard/internal/assets/appidentity"
)

// FallbackName is used when the identity leaves a name field blank.
const FallbackName = "formguard"

func init() {
	// An explicit identity path still wins; the embedded copy only covers
	// binaries running outside a checkout.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get returns the process app identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvPrefix returns the identity's environment prefix with a trailing underscore.
func EnvPrefix(identity *appidentity.Identity) string {
	prefix := "FORMGUARD_"
	if identity != nil && strings.TrimSpace(identity.EnvPrefix) != "" {
		prefix = strings.TrimSpace(identity.EnvPrefix)
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// Names returns the config and binary names, falling back to FallbackName.
func Names(identity *appidentity.Identity) (configName, binaryName string) {
	configName, binaryName = FallbackName, FallbackName
	if identity == nil {
		return configName, binaryName
	}
	if name := strings.TrimSpace(identity.BinaryName); name != "" {
		binaryName = name
		configName = name
	}
	if name := strings.TrimSpace(identity.ConfigName); name != "" {
		configName = name
	}
	return configName, binaryName
}
