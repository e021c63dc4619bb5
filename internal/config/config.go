package config

import (
	"time"
)

// Default file locations.
const (
	DefaultEnvFile            = "/etc/ec2fleet/ec2fleet.env"
	DefaultEnvironmentFile    = "/etc/ec2fleet/environment"
	DefaultSecretsRegionsFile = "/etc/ec2fleet/secrets-regions.yaml"
)

// Config holds runtime settings shared by every fleet component.
type Config struct {
	// RegionOverride, when set, wins over the metadata-derived region.
	RegionOverride string

	EnvironmentFile    string
	SecretsRegionsFile string

	Consul    Consul
	Metadata  Metadata
	Backoff   Backoff
	Lifecycle Lifecycle
}

// Consul holds registry connection settings.
type Consul struct {
	Address   string
	Scheme    string
	TLSVerify bool
	Token     string
}

// Metadata holds instance metadata retry settings.
type Metadata struct {
	Endpoint    string
	Attempts    int
	BaseTimeout time.Duration // multiplied by the attempt number
	BackoffUnit time.Duration // multiplied by the attempt number
}

// Backoff holds the API retry budget.
type Backoff struct {
	MaxAttempts int
	Unit        time.Duration // one (attempt)² step
}

// Lifecycle holds keep-alive heartbeat settings.
type Lifecycle struct {
	HeartbeatInterval time.Duration
	MaxHeartbeats     int
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		EnvironmentFile:    DefaultEnvironmentFile,
		SecretsRegionsFile: DefaultSecretsRegionsFile,
		Consul: Consul{
			Address: "localhost:8501",
			Scheme:  "https",
		},
		Metadata: Metadata{
			Attempts:    3,
			BaseTimeout: time.Second,
			BackoffUnit: time.Second,
		},
		Backoff: Backoff{
			MaxAttempts: 9,
			Unit:        time.Second,
		},
		Lifecycle: Lifecycle{
			HeartbeatInterval: time.Hour,
			MaxHeartbeats:     24,
		},
	}
}
