package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
identity:
  region: us-east-1
  userPoolId: us-east-1_sample
  audience: client-one
  adminGroup: admin
server:
  listenAddr: ":8081"
log:
  level: warn
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Identity.Region)
	assert.Equal(t, "us-east-1_sample", cfg.Identity.UserPoolID)
	assert.Equal(t, ":8081", cfg.Server.ListenAddr)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Defaults survive the overlay.
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NotZero(t, cfg.Identity.KeyFetchTimeout)
}

func TestLoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("identity: ["))
	require.Error(t, err)
}

func TestLoadFromReader_FailsValidation(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("identity:\n  region: us-east-1\n"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1_sample", cfg.Identity.UserPoolID)
}

func TestLoadFile_NotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("AUTHGATE_TEST_POOL", "us-east-1_env")

	yaml := `
identity:
  region: ${AUTHGATE_TEST_REGION:-us-east-1}
  userPoolId: ${AUTHGATE_TEST_POOL}
  audience: client-one
  adminGroup: admin
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Identity.Region)
	assert.Equal(t, "us-east-1_env", cfg.Identity.UserPoolID)
}

func TestSubstituteEnvVars_EscapedDollar(t *testing.T) {
	t.Parallel()

	out := substituteEnvVars("value: $$literal")
	assert.Equal(t, "value: $literal", out)
}
