package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ec2fleet/internal/inventory"
	"github.com/imamik/ec2fleet/internal/platform/consul"
	fleettest "github.com/imamik/ec2fleet/internal/testing"
)

type fakeCatalog struct {
	records []inventory.Record
	queries []inventory.Query
}

func (f *fakeCatalog) Instances(_ context.Context, q inventory.Query) ([]inventory.Record, error) {
	f.queries = append(f.queries, q)
	return inventory.Match(f.records, q), nil
}

type registryCall struct {
	service string
	query   consul.ServiceQuery
}

type fakeRegistry struct {
	services map[string][]*consulapi.ServiceEntry
	calls    []registryCall
	err      error
}

func (f *fakeRegistry) HealthyService(_ context.Context, service string, q consul.ServiceQuery) ([]*consulapi.ServiceEntry, error) {
	f.calls = append(f.calls, registryCall{service: service, query: q})
	if f.err != nil {
		return nil, f.err
	}
	return f.services[service], nil
}

func nativeEntry(node, ip, id, az, roles string) *consulapi.ServiceEntry {
	return &consulapi.ServiceEntry{
		Node: &consulapi.Node{
			Node:    node,
			Address: ip,
			Meta: map[string]string{
				"availability_zone": az,
				"instance_id":       id,
				"mi_roles":          roles,
			},
		},
		Service: &consulapi.AgentService{ID: "svc", Service: "svc", Port: 80},
	}
}

func syncedEntry(serviceID, ip string) *consulapi.ServiceEntry {
	return &consulapi.ServiceEntry{
		Node: &consulapi.Node{
			Node:    "k8s-sync",
			Address: "127.0.0.1",
			Meta:    map[string]string{"external-source": "kubernetes"},
		},
		Service: &consulapi.AgentService{ID: serviceID, Service: "app", Address: ip, Port: 8080},
	}
}

func newRouter(cat Catalog, reg Registry) *Router {
	return NewRouter(cat, reg, fleettest.DefaultSelf(), logr.Discard())
}

func TestRouter_CatalogStrategy(t *testing.T) {
	t.Parallel()
	cat := &fakeCatalog{records: []inventory.Record{
		{InstanceID: "i-1", Tags: []inventory.Tag{{Key: "mi:roles", Value: "app"}}},
	}}
	reg := &fakeRegistry{}
	r := newRouter(cat, reg)

	for _, s := range []inventory.Strategy{"", inventory.StrategyCatalog} {
		got, err := r.Instances(context.Background(), inventory.Query{Role: "app", Strategy: s})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Len(t, cat.queries, 2)
	assert.Empty(t, reg.calls)
}

func TestRouter_InvalidStrategy(t *testing.T) {
	t.Parallel()
	r := newRouter(&fakeCatalog{}, &fakeRegistry{})

	_, err := r.Instances(context.Background(), inventory.Query{Role: "app", Strategy: "dns"})
	assert.ErrorIs(t, err, ErrInvalidDiscoveryType)
}

func TestRouter_RegistryValidation(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{}
	r := newRouter(&fakeCatalog{}, reg)

	tests := []struct {
		name string
		role string
		want error
	}{
		{"empty", "", ErrRoleNameRequired},
		{"blank list", " , ", ErrRoleNameRequired},
		{"dot", "app.web", ErrRoleNameInvalid},
		{"space inside", "app web", ErrRoleNameInvalid},
		{"slash", "app/web", ErrRoleNameInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Instances(context.Background(), inventory.Query{Role: tt.role, Strategy: inventory.StrategyRegistry})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, reg.calls)
}

func TestRouter_RegistryNotConfigured(t *testing.T) {
	t.Parallel()
	r := newRouter(&fakeCatalog{}, nil)

	_, err := r.Instances(context.Background(), inventory.Query{Role: "app", Strategy: inventory.StrategyRegistry})
	assert.ErrorIs(t, err, ErrInvalidDiscoveryType)
}

func TestRouter_RegistryQuery(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{services: map[string][]*consulapi.ServiceEntry{
		"app-db-replica": {
			nativeEntry("ip-10-0-0-1", "10.0.0.1", "i-1", "us-east-1a", "app,app_db_replica"),
			nativeEntry("ip-10-0-0-2", "10.0.0.2", "i-2", "us-east-1b", "app_db_replica,decommissioned"),
		},
	}}
	r := newRouter(&fakeCatalog{}, reg)

	got, err := r.Instances(context.Background(), inventory.Query{
		Role:             "app_db_replica",
		Strategy:         inventory.StrategyRegistry,
		AvailabilityZone: "us-east-1a",
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "i-1", got[0].InstanceID)
	assert.Equal(t, "10.0.0.1", got[0].PrivateIPAddress)
	assert.Equal(t, "us-east-1a", got[0].AvailabilityZone)
	assert.Equal(t, []registryCall{{
		service: "app-db-replica",
		query:   consul.ServiceQuery{Datacenter: "iad", AvailabilityZone: "us-east-1a"},
	}}, reg.calls)
}

func TestRouter_RegistryMultiRoleDedup(t *testing.T) {
	t.Parallel()
	shared := nativeEntry("ip-10-0-0-1", "10.0.0.1", "i-1", "us-east-1a", "app,worker")
	reg := &fakeRegistry{services: map[string][]*consulapi.ServiceEntry{
		"app":    {shared},
		"worker": {shared, nativeEntry("ip-10-0-0-3", "10.0.0.3", "i-3", "us-east-1c", "worker")},
	}}
	r := newRouter(&fakeCatalog{}, reg)

	got, err := r.Instances(context.Background(), inventory.Query{Role: "worker, app", Strategy: inventory.StrategyRegistry})
	require.NoError(t, err)

	ids := []string{}
	for _, rec := range got {
		ids = append(ids, rec.InstanceID)
	}
	assert.Equal(t, []string{"i-1", "i-3"}, ids)
	assert.Len(t, reg.calls, 2)
}

func TestRouter_RegistryExclusions(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{services: map[string][]*consulapi.ServiceEntry{
		"app": {
			nativeEntry("a", "10.0.0.1", "i-1", "us-east-1a", "app"),
			nativeEntry("b", "10.0.0.2", "i-2", "us-east-1a", "app,canary"),
			syncedEntry("app-7f9c", "10.1.0.9"),
		},
	}}
	r := newRouter(&fakeCatalog{}, reg)

	got, err := r.Instances(context.Background(), inventory.Query{
		Role:         "app",
		ExcludeRoles: []string{"canary"},
		Strategy:     inventory.StrategyRegistry,
	})
	require.NoError(t, err)

	ips := inventory.PrivateIPs(got)
	assert.Equal(t, []string{"10.0.0.1", "10.1.0.9"}, ips)
}

func TestRouter_RegistryExactMatch(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{services: map[string][]*consulapi.ServiceEntry{
		"app": {
			nativeEntry("a", "10.0.0.1", "i-1", "us-east-1a", "app"),
			nativeEntry("b", "10.0.0.2", "i-2", "us-east-1a", "app,db"),
			nativeEntry("c", "10.0.0.3", "i-3", "us-east-1b", "app,decommissioned"),
		},
	}}
	r := newRouter(&fakeCatalog{}, reg)

	t.Run("single role", func(t *testing.T) {
		got, err := r.Instances(context.Background(), inventory.Query{
			Role:       "app",
			ExactMatch: true,
			Strategy:   inventory.StrategyRegistry,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1"}, inventory.PrivateIPs(got))
	})

	t.Run("decommissioned not excluded", func(t *testing.T) {
		got, err := r.Instances(context.Background(), inventory.Query{
			Role:       "decommissioned,app",
			ExactMatch: true,
			Strategy:   inventory.StrategyRegistry,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.3"}, inventory.PrivateIPs(got))
	})
}

func TestRouter_RegistryError(t *testing.T) {
	t.Parallel()
	boom := errors.New("consul down")
	r := newRouter(&fakeCatalog{}, &fakeRegistry{err: boom})

	_, err := r.Instances(context.Background(), inventory.Query{Role: "app", Strategy: inventory.StrategyRegistry})
	assert.ErrorIs(t, err, boom)
}

func TestRouter_OrderedByAZ(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{services: map[string][]*consulapi.ServiceEntry{
		"app": {
			nativeEntry("b", "10.0.0.2", "i-2", "us-east-1b", "app"),
			nativeEntry("a", "10.0.0.1", "i-1", "us-east-1a", "app"),
		},
	}}
	r := newRouter(&fakeCatalog{}, reg)

	for i := 0; i < 10; i++ {
		got, err := r.OrderedByAZ(context.Background(), inventory.Query{Role: "app", Strategy: inventory.StrategyRegistry})
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, inventory.PrivateIPs(got))
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("native", func(t *testing.T) {
		rec, native := Normalize(nativeEntry("ip-10-0-0-1", "10.0.0.1", "i-1", "us-east-1a", "app,web"), "app")
		assert.True(t, native)
		assert.Equal(t, "i-1", rec.InstanceID)
		assert.Equal(t, "10.0.0.1", rec.PrivateIPAddress)
		assert.Equal(t, "us-east-1a", rec.AvailabilityZone)
		roles, _ := rec.Tag("mi:roles")
		assert.Equal(t, "app,web", roles)
	})

	t.Run("synced", func(t *testing.T) {
		rec, native := Normalize(syncedEntry("app-7f9c", "10.1.0.9"), "app_web")
		assert.False(t, native)
		assert.Empty(t, rec.InstanceID)
		assert.Equal(t, "10.1.0.9", rec.PrivateIPAddress)
		roles, _ := rec.Tag("mi:roles")
		assert.Equal(t, "app_web", roles)
		name, _ := rec.Tag("Name")
		assert.Equal(t, "app-7f9c", name)
	})

	t.Run("synced without service address", func(t *testing.T) {
		e := syncedEntry("app-1", "")
		rec, _ := Normalize(e, "app")
		assert.Equal(t, "127.0.0.1", rec.PrivateIPAddress)
	})
}

func TestServiceName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "app-db-replica", ServiceName("app_db_replica"))
	assert.Equal(t, "web", ServiceName("web"))
}
