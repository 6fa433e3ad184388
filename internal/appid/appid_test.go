package appid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/require"

	appidentityassets "github.com/formguard/formguard/internal/assets/appidentity"
)

func resetIdentity(t *testing.T) {
	t.Helper()

	// gofulmen caches the identity and the embedded registration per process.
	appidentity.Reset()
	require.NoError(t, appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML))
	t.Cleanup(func() { appidentity.Reset() })
}

func TestGetFallsBackToEmbeddedIdentity(t *testing.T) {
	resetIdentity(t)
	t.Setenv(appidentity.EnvIdentityPath, "")

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	require.NoError(t, os.Chdir(t.TempDir()))

	identity, err := Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "formguard", identity.BinaryName)
	require.Equal(t, "FORMGUARD_", identity.EnvPrefix)
}

func TestGetHonorsExplicitPath(t *testing.T) {
	resetIdentity(t)
	t.Setenv(appidentity.EnvIdentityPath, filepath.Join(t.TempDir(), "missing-app.yaml"))

	_, err := Get(context.Background())
	require.Error(t, err)

	var notFound *appidentity.NotFoundError
	require.True(t, errors.As(err, &notFound), "expected NotFoundError, got %T", err)
}

func TestEnvPrefix(t *testing.T) {
	require.Equal(t, "FORMGUARD_", EnvPrefix(nil))
	require.Equal(t, "ACME_", EnvPrefix(&appidentity.Identity{EnvPrefix: "ACME"}))
	require.Equal(t, "ACME_", EnvPrefix(&appidentity.Identity{EnvPrefix: "ACME_"}))
}

func TestNames(t *testing.T) {
	configName, binaryName := Names(nil)
	require.Equal(t, FallbackName, configName)
	require.Equal(t, FallbackName, binaryName)

	configName, binaryName = Names(&appidentity.Identity{BinaryName: "fg"})
	require.Equal(t, "fg", configName)
	require.Equal(t, "fg", binaryName)

	configName, binaryName = Names(&appidentity.Identity{BinaryName: "fg", ConfigName: "formguard"})
	require.Equal(t, "formguard", configName)
	require.Equal(t, "fg", binaryName)
}
