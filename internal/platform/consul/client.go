package consul

import (
	"context"
	"encoding/json"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"

	"github.com/imamik/ec2fleet/internal/config"
)

// NodeMetaAvailabilityZone is the node meta key holding the instance zone.
const NodeMetaAvailabilityZone = "availability_zone"

// Client reads the service catalog and KV store.
type Client struct {
	api *consulapi.Client
}

// NewClient creates a client from cfg.
func NewClient(cfg config.Consul) (*Client, error) {
	c := consulapi.DefaultConfig()
	if cfg.Address != "" {
		c.Address = cfg.Address
	}
	if cfg.Scheme != "" {
		c.Scheme = cfg.Scheme
	}
	if cfg.Token != "" {
		c.Token = cfg.Token
	}
	c.TLSConfig.InsecureSkipVerify = !cfg.TLSVerify

	api, err := consulapi.NewClient(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &Client{api: api}, nil
}

// ServiceQuery scopes a health query.
type ServiceQuery struct {
	Datacenter       string
	AvailabilityZone string
}

// HealthyService returns the passing instances of service.
func (c *Client) HealthyService(ctx context.Context, service string, q ServiceQuery) ([]*consulapi.ServiceEntry, error) {
	opts := &consulapi.QueryOptions{
		Datacenter: q.Datacenter,
		AllowStale: true,
		UseCache:   true,
	}
	if q.AvailabilityZone != "" {
		opts.NodeMeta = map[string]string{NodeMetaAvailabilityZone: q.AvailabilityZone}
	}

	entries, _, err := c.api.Health().Service(service, "", true, opts.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to query service %s: %w", service, err)
	}
	return entries, nil
}

// Get returns the value under key, JSON-decoded when possible and the raw
// string otherwise. A missing key yields (nil, false, nil).
func (c *Client) Get(ctx context.Context, key string) (any, bool, error) {
	pair, _, err := c.api.KV().Get(key, (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if pair == nil {
		return nil, false, nil
	}
	return DecodeValue(pair.Value), true, nil
}

// DecodeValue parses raw as JSON, falling back to the raw string.
func DecodeValue(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
