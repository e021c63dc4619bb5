package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ec2fleet/internal/config"
)

const (
	tokenHeader    = "X-Aws-Ec2-Metadata-Token"
	tokenTTLHeader = "X-Aws-Ec2-Metadata-Token-Ttl-Seconds"
)

type fakeIMDS struct {
	values map[string]string
	delay  map[string]time.Duration
	gets   atomic.Int32
}

func (f *fakeIMDS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut && r.URL.Path == "/latest/api/token" {
		w.Header().Set(tokenTTLHeader, r.Header.Get(tokenTTLHeader))
		_, _ = w.Write([]byte("test-token"))
		return
	}
	if r.Header.Get(tokenHeader) != "test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	n := f.gets.Add(1)
	if d, ok := f.delay[r.URL.Path]; ok && n == 1 {
		time.Sleep(d)
	}
	val, ok := f.values[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(val))
}

func testConfig() config.Metadata {
	return config.Metadata{
		Attempts:    3,
		BaseTimeout: 100 * time.Millisecond,
		BackoffUnit: time.Millisecond,
	}
}

func newTestSource(t *testing.T, f *fakeIMDS, opts ...Option) *Source {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(NewClient(srv.URL), testConfig(), opts...)
}

func TestSource_Get(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{
		"/latest/meta-data/instance-id":                 "i-0abc",
		"/latest/meta-data/placement/availability-zone": "us-east-1a",
		"/latest/meta-data/local-ipv4":                  "10.0.1.5\n",
		"/latest/meta-data/instance-type":               "m5.large",
	}}
	s := newTestSource(t, f)
	ctx := context.Background()

	id, err := s.InstanceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "i-0abc", id)

	ip, err := s.PrivateIPv4(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.5", ip)

	it, err := s.InstanceType(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m5.large", it)

	region, err := s.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", region)

	dc, err := s.Datacenter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "iad", dc)
}

func TestSource_Memoizes(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{"/latest/meta-data/instance-id": "i-0abc"}}
	s := newTestSource(t, f)

	for i := 0; i < 3; i++ {
		id, err := s.InstanceID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "i-0abc", id)
	}
	assert.Equal(t, int32(1), f.gets.Load())
}

func TestSource_MemoizesFailure(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{}}
	s := newTestSource(t, f)

	_, err1 := s.InstanceID(context.Background())
	_, err2 := s.InstanceID(context.Background())

	require.Error(t, err1)
	assert.Equal(t, err1, err2)
	assert.Equal(t, int32(1), f.gets.Load())
}

func TestSource_RegionOverride(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{
		"/latest/meta-data/placement/availability-zone": "us-east-1a",
	}}
	s := newTestSource(t, f, WithRegionOverride("eu-west-1"))

	region, err := s.Region(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", region)
	assert.Zero(t, f.gets.Load())
}

func TestSource_EmptyValue(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{"/latest/meta-data/instance-id": "  "}}
	s := newTestSource(t, f)

	_, err := s.InstanceID(context.Background())
	assert.ErrorIs(t, err, ErrEC2Required)
	assert.NotErrorIs(t, err, ErrMetadataTimeout)
}

func TestSource_RetriesTimeout(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{
		values: map[string]string{"/latest/meta-data/instance-id": "i-slow"},
		delay:  map[string]time.Duration{"/latest/meta-data/instance-id": 150 * time.Millisecond},
	}
	s := newTestSource(t, f)

	id, err := s.InstanceID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "i-slow", id)
	assert.GreaterOrEqual(t, f.gets.Load(), int32(2))
}

func TestSource_Unreachable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	s := New(NewClient(endpoint), testConfig())
	_, err := s.InstanceID(context.Background())

	assert.ErrorIs(t, err, ErrMetadataTimeout)
	assert.ErrorIs(t, err, ErrEC2Required)
}

func TestSource_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{}}
	s := newTestSource(t, f)

	_, err := s.Get(context.Background(), "public-ipv4")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMetadataTimeout)
	assert.Equal(t, int32(1), f.gets.Load())
}

func TestSource_IdentityDocument(t *testing.T) {
	t.Parallel()
	f := &fakeIMDS{values: map[string]string{
		"/latest/dynamic/instance-identity/document": `{"accountId":"123456789012","region":"us-west-2","instanceId":"i-0abc","availabilityZone":"us-west-2b"}`,
	}}
	s := newTestSource(t, f)

	doc, err := s.IdentityDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456789012", doc.AccountID)
	assert.Equal(t, "us-west-2", doc.Region)
	assert.Equal(t, "us-west-2b", doc.AvailabilityZone)
}

func TestParseIdentityDocument_Malformed(t *testing.T) {
	t.Parallel()
	doc := ParseIdentityDocument("{not json")

	assert.Equal(t, Unknown, doc.AccountID)
	assert.Equal(t, Unknown, doc.InstanceID)
	assert.Equal(t, Unknown, doc.Region)
}

func TestRegionFromAZ(t *testing.T) {
	t.Parallel()
	tests := []struct {
		az   string
		want string
	}{
		{"us-east-1a", "us-east-1"},
		{"eu-west-1c", "eu-west-1"},
		{"us-west-2-lax-1a", "us-west-2-lax-1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RegionFromAZ(tt.az), tt.az)
	}
}

func TestDatacenterMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "iad", DatacenterFor("us-east-1"))
	assert.Equal(t, "rld", DatacenterFor("us-west-2"))
	assert.Equal(t, "dub", DatacenterFor("eu-west-1"))
	assert.Equal(t, "ord", DatacenterFor("us-east-2"))
	assert.Empty(t, DatacenterFor("ap-south-1"))
	assert.Equal(t, "us-east-2", RegionFor(strings.ToUpper("ord")))
	assert.Empty(t, RegionFor("xyz"))
}
