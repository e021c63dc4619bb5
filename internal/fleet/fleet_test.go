package fleet

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ec2fleet/internal/catalog"
	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/discovery"
	"github.com/imamik/ec2fleet/internal/inventory"
	fleettest "github.com/imamik/ec2fleet/internal/testing"
)

// fakeIMDS serves fixed metadata values.
type fakeIMDS map[string]string

func (f fakeIMDS) GetMetadata(_ context.Context, in *imds.GetMetadataInput, _ ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader(f[in.Path]))}, nil
}

func (f fakeIMDS) GetDynamicData(_ context.Context, in *imds.GetDynamicDataInput, _ ...func(*imds.Options)) (*imds.GetDynamicDataOutput, error) {
	return &imds.GetDynamicDataOutput{Content: io.NopCloser(strings.NewReader(f[in.Path]))}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.EnvironmentFile = filepath.Join(dir, "environment")
	cfg.SecretsRegionsFile = filepath.Join(dir, "secrets-regions.yaml")
	cfg.Backoff.Unit = 0
	return cfg
}

func newTestFleet(t *testing.T, svc *fleettest.Services, opts ...Option) *Fleet {
	t.Helper()
	meta := fakeIMDS{
		"instance-id":                 "i-self",
		"placement/availability-zone": "us-east-1a",
		"local-ipv4":                  "10.0.0.10",
	}
	base := []Option{
		WithClients(fleettest.NewProvider(svc.Set("us-east-1"))),
		WithMetadataClient(meta),
	}
	f, err := New(testConfig(t), append(base, opts...)...)
	require.NoError(t, err)
	return f
}

func TestNew(t *testing.T) {
	t.Parallel()
	f := newTestFleet(t, fleettest.NewServices())

	assert.NotNil(t, f.Metadata)
	assert.NotNil(t, f.Executor)
	assert.NotNil(t, f.Identity)
	assert.NotNil(t, f.Catalog)
	assert.NotNil(t, f.Consul)
	assert.NotNil(t, f.Discovery)
	assert.NotNil(t, f.Notify)
	assert.NotNil(t, f.Lifecycle)
	assert.NotNil(t, f.Secrets)
	assert.NotNil(t, f.DNS)
	assert.NotNil(t, f.Cache)

	region, err := f.Metadata.Region(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", region)
}

func TestNew_InvalidSecretsRegions(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.SecretsRegionsFile = t.TempDir()

	_, err := New(cfg, WithMetadataClient(fakeIMDS{}))
	assert.Error(t, err)
}

func TestFleet_ThrottleAlertsPublishToSNS(t *testing.T) {
	t.Parallel()
	svc := fleettest.NewServices()
	svc.EC2.On("DescribeInstances", mock.Anything, mock.Anything).
		Return(nil, fleettest.Throttled(ec2.ServiceID)).Once()
	svc.EC2.On("DescribeInstances", mock.Anything, mock.Anything).
		Return(fleettest.Reservations(fleettest.Instance("i-1", "us-east-1a", "10.0.0.1", "mi:roles", "web")), nil).Once()
	svc.SNS.On("ListTopics", mock.Anything, mock.Anything).Return(&sns.ListTopicsOutput{
		Topics: []snstypes.Topic{{TopicArn: aws.String("arn:aws:sns:us-east-1:1:slack-aws-alerts")}},
	}, nil)
	svc.SNS.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.Subject) == "API Throttled (i-self, us-east-1)"
	})).Return(&sns.PublishOutput{}, nil).Once()
	f := newTestFleet(t, svc)

	records, err := f.Catalog.All(context.Background(), "us-east-1", catalog.NoFilter)

	require.NoError(t, err)
	assert.Len(t, records, 1)
	svc.SNS.AssertExpectations(t)
}

func TestFleet_WithoutRegistry(t *testing.T) {
	t.Parallel()
	f := newTestFleet(t, fleettest.NewServices(), WithoutRegistry())

	assert.Nil(t, f.Consul)
	_, err := f.Discovery.Instances(context.Background(), inventory.Query{Role: "web", Strategy: inventory.StrategyRegistry})
	assert.ErrorIs(t, err, discovery.ErrInvalidDiscoveryType)
}

func TestFleet_RegisterMetrics(t *testing.T) {
	t.Parallel()
	f := newTestFleet(t, fleettest.NewServices())
	reg := prometheus.NewRegistry()

	require.NoError(t, f.RegisterMetrics(reg))
	assert.Error(t, f.RegisterMetrics(reg))
}

func TestFleet_Storage(t *testing.T) {
	t.Parallel()
	f := newTestFleet(t, fleettest.NewServices())

	client, err := f.Storage(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}
