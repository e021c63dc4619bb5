package consul

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ec2fleet/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c, err := NewClient(config.Consul{Address: u.Host, Scheme: "http"})
	require.NoError(t, err)
	return c
}

func TestClient_HealthyService(t *testing.T) {
	t.Parallel()
	var got url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health/service/app-db-replica", r.URL.Path)
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"Node": map[string]any{
				"Node":       "ip-10-0-0-1",
				"Address":    "10.0.0.1",
				"Datacenter": "iad",
				"Meta": map[string]string{
					"availability_zone": "us-east-1a",
					"instance_id":       "i-1",
					"mi_roles":          "app_db_replica",
				},
			},
			"Service": map[string]any{"ID": "app-db-replica", "Service": "app-db-replica", "Port": 6379},
		}})
	}))

	entries, err := c.HealthyService(context.Background(), "app-db-replica", ServiceQuery{
		Datacenter:       "iad",
		AvailabilityZone: "us-east-1a",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1", entries[0].Node.Address)
	assert.Equal(t, "i-1", entries[0].Node.Meta["instance_id"])
	assert.Equal(t, 6379, entries[0].Service.Port)

	assert.Equal(t, "iad", got.Get("dc"))
	assert.True(t, got.Has("passing"))
	assert.True(t, got.Has("stale"))
	assert.True(t, got.Has("cached"))
	assert.Equal(t, "availability_zone:us-east-1a", got.Get("node-meta"))
}

func TestClient_HealthyServiceError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no leader", http.StatusInternalServerError)
	}))

	_, err := c.HealthyService(context.Background(), "app", ServiceQuery{})
	assert.Error(t, err)
}

func kvHandler(values map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/v1/kv/")
		v, ok := values[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"Key":   key,
			"Value": base64.StdEncoding.EncodeToString([]byte(v)),
		}})
	})
}

func TestClient_Get(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, kvHandler(map[string]string{
		"service/app/config": `{"workers":4,"queues":["a","b"]}`,
		"service/app/banner": "hello world",
	}))
	ctx := context.Background()

	v, ok, err := c.Get(ctx, "service/app/config")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"workers": float64(4), "queues": []any{"a", "b"}}, v)

	v, ok, err = c.Get(ctx, "service/app/banner")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello world", v)

	v, ok, err = c.Get(ctx, "service/app/missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestDecodeValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float64(3), DecodeValue([]byte("3")))
	assert.Equal(t, true, DecodeValue([]byte("true")))
	assert.Equal(t, "not json", DecodeValue([]byte("not json")))
	assert.Equal(t, "", DecodeValue([]byte("")))
}
