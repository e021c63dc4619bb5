package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFailoverRegions are tried in order for the secondary secrets client.
var DefaultFailoverRegions = []string{"us-east-1", "us-west-2"}

// RegionPair names the primary and failover region for one client pair.
type RegionPair struct {
	Primary  string `yaml:"primary"`
	Failover string `yaml:"failover"`
}

// SecretsRegions maps an instance's region to the regions used for
// parameter reads.
//
// Example file:
//
//	failover: [us-east-1, us-west-2]
//	regions:
//	  eu-west-1:
//	    primary: eu-west-1
//	    failover: us-east-1
type SecretsRegions struct {
	Failover []string              `yaml:"failover"`
	Regions  map[string]RegionPair `yaml:"regions"`
}

// DefaultSecretsRegions returns the built-in region map.
func DefaultSecretsRegions() *SecretsRegions {
	return &SecretsRegions{Failover: DefaultFailoverRegions}
}

// LoadSecretsRegions reads a region map from path.
// A missing file yields [DefaultSecretsRegions].
func LoadSecretsRegions(path string) (*SecretsRegions, error) {
	if path == "" {
		return DefaultSecretsRegions(), nil
	}
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSecretsRegions(), nil
		}
		return nil, fmt.Errorf("failed to read secrets regions file: %w", err)
	}

	var sr SecretsRegions
	if err := yaml.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse secrets regions file %s: %w", path, err)
	}
	if len(sr.Failover) == 0 {
		sr.Failover = DefaultFailoverRegions
	}
	return &sr, nil
}

// For resolves the region pair for an instance running in region.
// Blank fields in an explicit entry fall back to the defaults.
func (s *SecretsRegions) For(region string) RegionPair {
	pair := s.Regions[region]
	if pair.Primary == "" {
		pair.Primary = region
	}
	if pair.Failover == "" {
		for _, r := range s.Failover {
			if r != pair.Primary {
				pair.Failover = r
				break
			}
		}
	}
	return pair
}
