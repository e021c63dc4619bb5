// Package config loads ec2fleet runtime configuration.
//
// Settings come from environment variables (optionally seeded from a dotenv
// file) with defaults matching production instances. Two optional files
// alter behavior at runtime:
//
//   - the environment override file, whose content replaces the mi:env tag
//     lookup for the local instance
//   - the secrets region map (YAML), which chooses the primary and failover
//     regions used for SSM parameter reads
//
// Environment Variables:
//   - EC2FLEET_REGION / AWS_REGION: region override, bypasses metadata
//   - EC2FLEET_ENVIRONMENT_FILE (default: /etc/ec2fleet/environment)
//   - EC2FLEET_SECRETS_REGIONS_FILE (default: /etc/ec2fleet/secrets-regions.yaml)
//   - EC2FLEET_CONSUL_ADDR (default: localhost:8501)
//   - EC2FLEET_CONSUL_SCHEME (default: https)
//   - EC2FLEET_CONSUL_TLS_VERIFY (default: false)
//   - EC2FLEET_METADATA_ENDPOINT (default: SDK default, 169.254.169.254)
//   - EC2FLEET_METADATA_ATTEMPTS (default: 3)
//   - EC2FLEET_METADATA_TIMEOUT (default: 1s, multiplied by attempt number)
//   - EC2FLEET_METADATA_BACKOFF (default: 1s, multiplied by attempt number)
//   - EC2FLEET_BACKOFF_MAX_ATTEMPTS (default: 9)
//   - EC2FLEET_BACKOFF_UNIT (default: 1s)
//   - EC2FLEET_HEARTBEAT_INTERVAL (default: 1h)
//   - EC2FLEET_HEARTBEAT_MAX (default: 24)
package config
