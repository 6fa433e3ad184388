package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formguard/formguard/internal/appid"
)

func TestAppIdentityDrivesCommandNames(t *testing.T) {
	identity, err := appid.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)

	assert.Equal(t, "formguard", identity.BinaryName)
	assert.Equal(t, "FORMGUARD_", identity.EnvPrefix)
	assert.Equal(t, "FORMGUARD_", appid.EnvPrefix(identity))

	configName, binaryName := appid.Names(identity)
	assert.Equal(t, "formguard", configName)
	assert.Equal(t, "formguard", binaryName)
}
