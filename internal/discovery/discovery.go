// Package discovery routes role queries to the EC2 catalog or the Consul
// service registry and normalizes both into inventory records.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/hashicorp/go-set/v2"

	"github.com/imamik/ec2fleet/internal/inventory"
	"github.com/imamik/ec2fleet/internal/platform/consul"
	"github.com/imamik/ec2fleet/internal/util/tags"
)

var (
	// ErrInvalidDiscoveryType means the query named an unknown strategy.
	ErrInvalidDiscoveryType = errors.New("invalid discovery type")

	// ErrRoleNameRequired means a registry query had no role.
	ErrRoleNameRequired = errors.New("role name is required")

	// ErrRoleNameInvalid means a role contains characters the registry rejects.
	ErrRoleNameInvalid = errors.New("role name is invalid")
)

var validRole = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Node meta keys written by the registry agent on native nodes.
const (
	metaInstanceID     = "instance_id"
	metaRoles          = "mi_roles"
	metaExternalSource = "external-source"
)

// Catalog is the EC2 discovery source.
type Catalog interface {
	Instances(ctx context.Context, q inventory.Query) ([]inventory.Record, error)
}

// Registry is the service registry discovery source.
type Registry interface {
	HealthyService(ctx context.Context, service string, q consul.ServiceQuery) ([]*consulapi.ServiceEntry, error)
}

// Self is the local instance metadata the router needs.
type Self interface {
	AvailabilityZone(ctx context.Context) (string, error)
	Datacenter(ctx context.Context) (string, error)
}

// Router answers role queries from exactly one source per call.
type Router struct {
	catalog  Catalog
	registry Registry
	self     Self
	logger   logr.Logger
}

// NewRouter creates a router. registry may be nil when Consul is not used.
func NewRouter(catalog Catalog, registry Registry, self Self, logger logr.Logger) *Router {
	return &Router{catalog: catalog, registry: registry, self: self, logger: logger}
}

// Instances returns the records matching q from the source q.Strategy names.
// An empty strategy selects the catalog.
func (r *Router) Instances(ctx context.Context, q inventory.Query) ([]inventory.Record, error) {
	switch q.Strategy {
	case "", inventory.StrategyCatalog:
		return r.catalog.Instances(ctx, q)
	case inventory.StrategyRegistry:
		return r.registryInstances(ctx, q)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDiscoveryType, q.Strategy)
	}
}

// OrderedByAZ returns matches in the local zone first, each partition
// shuffled.
func (r *Router) OrderedByAZ(ctx context.Context, q inventory.Query) ([]inventory.Record, error) {
	records, err := r.Instances(ctx, q)
	if err != nil {
		return nil, err
	}
	az, err := r.self.AvailabilityZone(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.OrderByAZ(records, az), nil
}

func (r *Router) registryInstances(ctx context.Context, q inventory.Query) ([]inventory.Record, error) {
	roles := q.RoleSet().Slice()
	if len(roles) == 0 {
		return nil, ErrRoleNameRequired
	}
	slices.Sort(roles)
	for _, role := range roles {
		if !validRole.MatchString(role) {
			return nil, fmt.Errorf("%w: %q", ErrRoleNameInvalid, role)
		}
	}
	if r.registry == nil {
		return nil, fmt.Errorf("%w: registry is not configured", ErrInvalidDiscoveryType)
	}

	dc, err := r.self.Datacenter(ctx)
	if err != nil {
		return nil, err
	}

	seen := set.New[string](0)
	var out []inventory.Record
	for _, role := range roles {
		entries, err := r.registry.HealthyService(ctx, ServiceName(role), consul.ServiceQuery{
			Datacenter:       dc,
			AvailabilityZone: q.AvailabilityZone,
		})
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			rec, native := Normalize(e, role)
			// Zone scoping is done by the registry query.
			if native && !q.MatchesRoles(rec.Roles()) {
				continue
			}
			key := rec.InstanceID + "/" + rec.PrivateIPAddress
			if !seen.Insert(key) {
				continue
			}
			out = append(out, rec)
		}
	}
	r.logger.V(1).Info("registry discovery", "roles", roles, "datacenter", dc, "count", len(out))
	return out, nil
}

// ServiceName converts a role into a registry service name.
func ServiceName(role string) string {
	return strings.ReplaceAll(role, "_", "-")
}

// Normalize converts a registry entry into a record. The boolean reports
// whether the entry came from a native (agent-registered) node.
//
// Nodes synced from an external orchestrator carry no instance id; their
// address comes from the service block and their role is the queried one.
func Normalize(e *consulapi.ServiceEntry, role string) (inventory.Record, bool) {
	var nodeMeta map[string]string
	if e.Node != nil {
		nodeMeta = e.Node.Meta
	}

	if _, synced := nodeMeta[metaExternalSource]; synced || nodeMeta[metaInstanceID] == "" {
		rec := inventory.Record{
			AvailabilityZone: nodeMeta[consul.NodeMetaAvailabilityZone],
			Tags:             []inventory.Tag{{Key: tags.KeyRoles, Value: role}},
		}
		if e.Service != nil {
			rec.PrivateIPAddress = e.Service.Address
			rec.Tags = append(rec.Tags, inventory.Tag{Key: tags.KeyName, Value: e.Service.ID})
		}
		if rec.PrivateIPAddress == "" && e.Node != nil {
			rec.PrivateIPAddress = e.Node.Address
		}
		return rec, false
	}

	rec := inventory.Record{
		InstanceID:       nodeMeta[metaInstanceID],
		PrivateIPAddress: e.Node.Address,
		AvailabilityZone: nodeMeta[consul.NodeMetaAvailabilityZone],
		Tags: []inventory.Tag{
			{Key: tags.KeyRoles, Value: nodeMeta[metaRoles]},
			{Key: tags.KeyName, Value: e.Node.Node},
		},
	}
	return rec, true
}
