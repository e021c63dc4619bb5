package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/identity"
	"github.com/imamik/ec2fleet/internal/inventory"
	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/platform/metadata"
	"github.com/imamik/ec2fleet/internal/util/lazy"
	"github.com/imamik/ec2fleet/internal/util/retry"
	"github.com/imamik/ec2fleet/internal/util/tags"
)

// Self is the local instance metadata the catalog needs.
type Self interface {
	InstanceID(ctx context.Context) (string, error)
	AvailabilityZone(ctx context.Context) (string, error)
	Region(ctx context.Context) (string, error)
}

// Environment resolves the local deployment environment.
type Environment interface {
	Environment(ctx context.Context) (string, error)
}

// FilterMode selects how a catalog load is filtered.
type FilterMode int

const (
	// FilterDefault admits running instances in the local environment.
	FilterDefault FilterMode = iota
	// FilterNone loads every instance in the region.
	FilterNone
	// FilterCustom pushes caller-supplied filters down to the API.
	FilterCustom
)

// Filter describes one catalog load.
type Filter struct {
	Mode    FilterMode
	Filters []ec2types.Filter
}

// DefaultFilter is the running-in-my-environment filter.
var DefaultFilter = Filter{Mode: FilterDefault}

// NoFilter loads every instance.
var NoFilter = Filter{Mode: FilterNone}

// CustomFilter pushes filters down to DescribeInstances.
func CustomFilter(filters []ec2types.Filter) Filter {
	return Filter{Mode: FilterCustom, Filters: filters}
}

// key identifies the filter in the cache.
func (f Filter) key() string {
	switch f.Mode {
	case FilterDefault:
		return "default"
	case FilterNone:
		return "all"
	}
	parts := make([]string, 0, len(f.Filters))
	for _, flt := range f.Filters {
		name := ""
		if flt.Name != nil {
			name = *flt.Name
		}
		values := slices.Clone(flt.Values)
		slices.Sort(values)
		parts = append(parts, name+"="+strings.Join(values, "|"))
	}
	slices.Sort(parts)
	return "custom:" + strings.Join(parts, ";")
}

// Catalog answers role queries against EC2.
type Catalog struct {
	clients awsapi.Provider
	exec    *retry.Executor
	self    Self
	env     Environment
	logger  logr.Logger

	instances lazy.Loader[string, []inventory.Record]
	addresses lazy.Loader[string, []ec2types.Address]
}

// New creates a catalog.
func New(clients awsapi.Provider, exec *retry.Executor, self Self, env Environment, logger logr.Logger) *Catalog {
	return &Catalog{
		clients: clients,
		exec:    exec,
		self:    self,
		env:     env,
		logger:  logger,
	}
}

// All returns every instance in region admitted by f. Successful loads are
// memoized per (region, filter).
func (c *Catalog) All(ctx context.Context, region string, f Filter) ([]inventory.Record, error) {
	if region == "" {
		r, err := c.self.Region(ctx)
		if err != nil {
			return nil, err
		}
		region = r
	}
	return c.instances.Get(region+"/"+f.key(), func() ([]inventory.Record, error) {
		return c.load(ctx, region, f)
	})
}

func (c *Catalog) load(ctx context.Context, region string, f Filter) ([]inventory.Record, error) {
	var filters []ec2types.Filter
	switch f.Mode {
	case FilterDefault:
		env, err := c.env.Environment(ctx)
		if err != nil {
			return nil, err
		}
		filters = tags.NewFilterBuilder().Running().Environment(env).Build()
	case FilterCustom:
		filters = f.Filters
	}

	svc, err := c.clients.For(ctx, region)
	if err != nil {
		return nil, err
	}

	records, err := retry.Do(ctx, c.exec, func(ctx context.Context) ([]inventory.Record, error) {
		var out []inventory.Record
		p := ec2.NewDescribeInstancesPaginator(svc.EC2, &ec2.DescribeInstancesInput{Filters: filters})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, res := range page.Reservations {
				for _, inst := range res.Instances {
					out = append(out, inventory.FromEC2(inst))
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instances in %s: %w", region, err)
	}
	c.logger.V(1).Info("loaded instance catalog", "region", region, "filter", f.key(), "count", len(records))
	return records, nil
}

// Instances returns the instances matching q from the default catalog.
func (c *Catalog) Instances(ctx context.Context, q inventory.Query) ([]inventory.Record, error) {
	all, err := c.All(ctx, q.Region, DefaultFilter)
	if err != nil {
		return nil, err
	}
	return inventory.Match(all, q), nil
}

// OrderedByAZ returns matches in the local zone first, each partition shuffled.
func (c *Catalog) OrderedByAZ(ctx context.Context, q inventory.Query) ([]inventory.Record, error) {
	matches, err := c.Instances(ctx, q)
	if err != nil {
		return nil, err
	}
	az, err := c.self.AvailabilityZone(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.OrderByAZ(matches, az), nil
}

// PrivateIPs returns the private addresses of the instances matching q.
func (c *Catalog) PrivateIPs(ctx context.Context, q inventory.Query) ([]string, error) {
	matches, err := c.Instances(ctx, q)
	if err != nil {
		return nil, err
	}
	return inventory.PrivateIPs(matches), nil
}

// Me returns the catalog record of the local instance. It returns nil with
// no error when the instance is absent or not running inside EC2 or an
// environment.
func (c *Catalog) Me(ctx context.Context) (*inventory.Record, error) {
	id, err := c.self.InstanceID(ctx)
	if err != nil {
		if errors.Is(err, metadata.ErrEC2Required) {
			return nil, nil
		}
		return nil, err
	}
	all, err := c.All(ctx, "", DefaultFilter)
	if err != nil {
		if errors.Is(err, identity.ErrNoEnvironmentTag) || errors.Is(err, metadata.ErrEC2Required) {
			return nil, nil
		}
		return nil, err
	}
	for i := range all {
		if all[i].InstanceID == id {
			r := all[i]
			return &r, nil
		}
	}
	return nil, nil
}

// Endpoint is a host/port pair.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RedisByRole returns the instances of role as endpoints on port, shuffled.
func (c *Catalog) RedisByRole(ctx context.Context, role string, port int) ([]Endpoint, error) {
	ips, err := c.PrivateIPs(ctx, inventory.Query{Role: role})
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(ips), func(i, j int) { ips[i], ips[j] = ips[j], ips[i] })
	out := make([]Endpoint, 0, len(ips))
	for _, ip := range ips {
		out = append(out, Endpoint{Host: ip, Port: port})
	}
	return out, nil
}

// StatsdHost returns a random statsd instance in the local zone, or "".
func (c *Catalog) StatsdHost(ctx context.Context) (string, error) {
	az, err := c.self.AvailabilityZone(ctx)
	if err != nil {
		return "", err
	}
	ips, err := c.PrivateIPs(ctx, inventory.Query{Role: "statsd", AvailabilityZone: az})
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", nil
	}
	return ips[rand.IntN(len(ips))], nil
}
