package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load builds the configuration from environment variables.
// Unset or invalid variables fall back to the defaults of [Default].
func Load() *Config {
	d := Default()
	return &Config{
		RegionOverride:     regionOverride(),
		EnvironmentFile:    envOr("EC2FLEET_ENVIRONMENT_FILE", d.EnvironmentFile, asString),
		SecretsRegionsFile: envOr("EC2FLEET_SECRETS_REGIONS_FILE", d.SecretsRegionsFile, asString),
		Consul: Consul{
			Address:   envOr("EC2FLEET_CONSUL_ADDR", d.Consul.Address, asString),
			Scheme:    envOr("EC2FLEET_CONSUL_SCHEME", d.Consul.Scheme, asString),
			TLSVerify: envOr("EC2FLEET_CONSUL_TLS_VERIFY", d.Consul.TLSVerify, strconv.ParseBool),
			Token:     os.Getenv("EC2FLEET_CONSUL_TOKEN"),
		},
		Metadata: Metadata{
			Endpoint:    os.Getenv("EC2FLEET_METADATA_ENDPOINT"),
			Attempts:    envOr("EC2FLEET_METADATA_ATTEMPTS", d.Metadata.Attempts, strconv.Atoi),
			BaseTimeout: envOr("EC2FLEET_METADATA_TIMEOUT", d.Metadata.BaseTimeout, time.ParseDuration),
			BackoffUnit: envOr("EC2FLEET_METADATA_BACKOFF", d.Metadata.BackoffUnit, time.ParseDuration),
		},
		Backoff: Backoff{
			MaxAttempts: envOr("EC2FLEET_BACKOFF_MAX_ATTEMPTS", d.Backoff.MaxAttempts, strconv.Atoi),
			Unit:        envOr("EC2FLEET_BACKOFF_UNIT", d.Backoff.Unit, time.ParseDuration),
		},
		Lifecycle: Lifecycle{
			HeartbeatInterval: envOr("EC2FLEET_HEARTBEAT_INTERVAL", d.Lifecycle.HeartbeatInterval, time.ParseDuration),
			MaxHeartbeats:     envOr("EC2FLEET_HEARTBEAT_MAX", d.Lifecycle.MaxHeartbeats, strconv.Atoi),
		},
	}
}

// LoadEnvFile seeds the process environment from a dotenv file.
// A missing file is not an error. Variables already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ReadEnvironmentOverride returns the environment name stored in path.
// The boolean is false when the file does not exist or is blank.
func ReadEnvironmentOverride(path string) (string, bool, error) {
	if path == "" {
		return "", false, nil
	}
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read environment file: %w", err)
	}
	env := strings.TrimSpace(string(data))
	return env, env != "", nil
}

func regionOverride() string {
	if r := os.Getenv("EC2FLEET_REGION"); r != "" {
		return r
	}
	return os.Getenv("AWS_REGION")
}

// envOr parses envVar with parse. Unset or unparsable values yield
// defaultVal.
func envOr[T any](envVar string, defaultVal T, parse func(string) (T, error)) T {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultVal
	}
	v, err := parse(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

func asString(s string) (string, error) {
	return s, nil
}
