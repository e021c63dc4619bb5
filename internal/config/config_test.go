package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"EC2FLEET_REGION",
	"AWS_REGION",
	"EC2FLEET_ENVIRONMENT_FILE",
	"EC2FLEET_SECRETS_REGIONS_FILE",
	"EC2FLEET_CONSUL_ADDR",
	"EC2FLEET_CONSUL_SCHEME",
	"EC2FLEET_CONSUL_TLS_VERIFY",
	"EC2FLEET_CONSUL_TOKEN",
	"EC2FLEET_METADATA_ENDPOINT",
	"EC2FLEET_METADATA_ATTEMPTS",
	"EC2FLEET_METADATA_TIMEOUT",
	"EC2FLEET_METADATA_BACKOFF",
	"EC2FLEET_BACKOFF_MAX_ATTEMPTS",
	"EC2FLEET_BACKOFF_UNIT",
	"EC2FLEET_HEARTBEAT_INTERVAL",
	"EC2FLEET_HEARTBEAT_MAX",
}

// clearEnv blanks every variable Load reads. Empty values are treated as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, Default(), cfg)
	assert.Empty(t, cfg.RegionOverride)
	assert.Equal(t, 9, cfg.Backoff.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Backoff.Unit)
	assert.Equal(t, 3, cfg.Metadata.Attempts)
	assert.Equal(t, time.Hour, cfg.Lifecycle.HeartbeatInterval)
	assert.Equal(t, 24, cfg.Lifecycle.MaxHeartbeats)
	assert.Equal(t, "localhost:8501", cfg.Consul.Address)
	assert.False(t, cfg.Consul.TLSVerify)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("EC2FLEET_REGION", "eu-west-1")
	t.Setenv("EC2FLEET_CONSUL_ADDR", "consul.internal:8500")
	t.Setenv("EC2FLEET_CONSUL_SCHEME", "http")
	t.Setenv("EC2FLEET_CONSUL_TLS_VERIFY", "true")
	t.Setenv("EC2FLEET_METADATA_ATTEMPTS", "5")
	t.Setenv("EC2FLEET_METADATA_TIMEOUT", "250ms")
	t.Setenv("EC2FLEET_BACKOFF_MAX_ATTEMPTS", "4")
	t.Setenv("EC2FLEET_BACKOFF_UNIT", "10ms")
	t.Setenv("EC2FLEET_HEARTBEAT_INTERVAL", "30m")

	cfg := Load()

	assert.Equal(t, "eu-west-1", cfg.RegionOverride)
	assert.Equal(t, "consul.internal:8500", cfg.Consul.Address)
	assert.Equal(t, "http", cfg.Consul.Scheme)
	assert.True(t, cfg.Consul.TLSVerify)
	assert.Equal(t, 5, cfg.Metadata.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Metadata.BaseTimeout)
	assert.Equal(t, 4, cfg.Backoff.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Backoff.Unit)
	assert.Equal(t, 30*time.Minute, cfg.Lifecycle.HeartbeatInterval)
}

func TestLoad_RegionOverridePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		ec2fleet string
		aws      string
		want     string
	}{
		{"none", "", "", ""},
		{"aws only", "", "us-west-2", "us-west-2"},
		{"ec2fleet wins", "eu-west-1", "us-west-2", "eu-west-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("EC2FLEET_REGION", tt.ec2fleet)
			t.Setenv("AWS_REGION", tt.aws)

			assert.Equal(t, tt.want, Load().RegionOverride)
		})
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("EC2FLEET_METADATA_ATTEMPTS", "many")
	t.Setenv("EC2FLEET_BACKOFF_UNIT", "soon")
	t.Setenv("EC2FLEET_CONSUL_TLS_VERIFY", "maybe")

	cfg := Load()

	assert.Equal(t, 3, cfg.Metadata.Attempts)
	assert.Equal(t, time.Second, cfg.Backoff.Unit)
	assert.False(t, cfg.Consul.TLSVerify)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ec2fleet.env")
	require.NoError(t, os.WriteFile(path, []byte("EC2FLEET_BACKOFF_MAX_ATTEMPTS=2\n"), 0o600))

	// godotenv only fills variables that are not present at all.
	require.NoError(t, os.Unsetenv("EC2FLEET_BACKOFF_MAX_ATTEMPTS"))
	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, 2, Load().Backoff.MaxAttempts)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	t.Parallel()

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestReadEnvironmentOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "environment")
	blank := filepath.Join(dir, "blank")
	require.NoError(t, os.WriteFile(present, []byte("staging\n"), 0o600))
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o600))

	env, ok, err := ReadEnvironmentOverride(present)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "staging", env)

	_, ok, err = ReadEnvironmentOverride(blank)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ReadEnvironmentOverride(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}
