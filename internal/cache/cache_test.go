package cache

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	ectypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	fleettest "github.com/imamik/ec2fleet/internal/testing"
)

func member(id, az, role, addr string) ectypes.NodeGroupMember {
	return ectypes.NodeGroupMember{
		CacheClusterId:            aws.String(id),
		PreferredAvailabilityZone: aws.String(az),
		CurrentRole:               aws.String(role),
		ReadEndpoint:              &ectypes.Endpoint{Address: aws.String(addr), Port: aws.Int32(6379)},
	}
}

func group(members ...ectypes.NodeGroupMember) *elasticache.DescribeReplicationGroupsOutput {
	return &elasticache.DescribeReplicationGroupsOutput{
		ReplicationGroups: []ectypes.ReplicationGroup{{
			ReplicationGroupId: aws.String("sessions"),
			NodeGroups: []ectypes.NodeGroup{{
				NodeGroupId:      aws.String("0001"),
				PrimaryEndpoint:  &ectypes.Endpoint{Address: aws.String("sessions.primary"), Port: aws.Int32(6379)},
				NodeGroupMembers: members,
			}},
		}},
	}
}

func newGroups(svc *fleettest.Services, az string) *Groups {
	self := fleettest.DefaultSelf()
	self.AZ = az
	return New(fleettest.NewProvider(svc.Set("us-east-1")), self, fleettest.NewExecutor(nil), logr.Discard())
}

func TestGroups_Endpoints(t *testing.T) {
	t.Parallel()
	svc := fleettest.NewServices()
	svc.ElastiCache.On("DescribeReplicationGroups", mock.Anything, &elasticache.DescribeReplicationGroupsInput{
		ReplicationGroupId: aws.String("sessions"),
	}).Return(group(
		member("sessions-001", "us-east-1a", "primary", "sessions-001.read"),
		member("sessions-002", "us-east-1a", "replica", "sessions-002.read"),
		member("sessions-003", "us-east-1b", "replica", "sessions-003.read"),
	), nil).Once()
	g := newGroups(svc, "us-east-1a")
	ctx := context.Background()

	primary, err := g.Primary(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, "sessions.primary", primary)

	replicas, err := g.Replicas(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions-002.read", "sessions-003.read"}, replicas)

	local, err := g.ReplicaInMyAZ(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, "sessions-002.read", local)

	svc.ElastiCache.AssertExpectations(t)
}

func TestGroups_ReplicaInMyAZFallsBackToAnyMember(t *testing.T) {
	t.Parallel()
	svc := fleettest.NewServices()
	svc.ElastiCache.On("DescribeReplicationGroups", mock.Anything, mock.Anything).Return(group(
		member("sessions-001", "us-east-1c", "primary", "sessions-001.read"),
		member("sessions-002", "us-east-1b", "replica", "sessions-002.read"),
	), nil)

	got, err := newGroups(svc, "us-east-1c").ReplicaInMyAZ(context.Background(), "sessions")
	require.NoError(t, err)
	assert.Equal(t, "sessions-001.read", got)
}

func TestGroups_ReplicaInMyAZNoMember(t *testing.T) {
	t.Parallel()
	svc := fleettest.NewServices()
	svc.ElastiCache.On("DescribeReplicationGroups", mock.Anything, mock.Anything).Return(group(
		member("sessions-001", "us-east-1b", "primary", "sessions-001.read"),
	), nil)

	_, err := newGroups(svc, "us-east-1d").ReplicaInMyAZ(context.Background(), "sessions")
	assert.ErrorIs(t, err, ErrNoMemberInZone)
}

func TestGroups_NotFound(t *testing.T) {
	t.Parallel()
	svc := fleettest.NewServices()
	svc.ElastiCache.On("DescribeReplicationGroups", mock.Anything, mock.Anything).
		Return(&elasticache.DescribeReplicationGroupsOutput{}, nil).Once()
	g := newGroups(svc, "us-east-1a")

	_, err := g.Primary(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrReplicationGroupNotFound)

	_, err = g.Replicas(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrReplicationGroupNotFound)
	svc.ElastiCache.AssertNumberOfCalls(t, "DescribeReplicationGroups", 1)
}

func TestGroups_NoNodeGroup(t *testing.T) {
	t.Parallel()
	svc := fleettest.NewServices()
	svc.ElastiCache.On("DescribeReplicationGroups", mock.Anything, mock.Anything).
		Return(&elasticache.DescribeReplicationGroupsOutput{
			ReplicationGroups: []ectypes.ReplicationGroup{{ReplicationGroupId: aws.String("empty")}},
		}, nil)

	_, err := newGroups(svc, "us-east-1a").Members(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrNoNodeGroup)
}
