// Package cache resolves ElastiCache replication group endpoints.
//
// Only the first node group of a replication group is consulted, which
// matches cluster-mode-disabled Redis.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	ectypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/lazy"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// RoleReplica is the current role of a read replica member.
const RoleReplica = "replica"

var (
	// ErrReplicationGroupNotFound means the describe call returned no group.
	ErrReplicationGroupNotFound = errors.New("replication group not found")

	// ErrNoNodeGroup means the group has no node groups.
	ErrNoNodeGroup = errors.New("replication group has no node groups")

	// ErrNoMemberInZone means no member is placed in the local zone.
	ErrNoMemberInZone = errors.New("no replication group member in availability zone")
)

// Self supplies the local placement.
type Self interface {
	AvailabilityZone(ctx context.Context) (string, error)
	Region(ctx context.Context) (string, error)
}

// Groups looks up replication groups in the local region.
type Groups struct {
	clients awsapi.Provider
	self    Self
	exec    *retry.Executor
	logger  logr.Logger

	groups lazy.Loader[string, *ectypes.ReplicationGroup]
}

// New creates a replication group reader.
func New(clients awsapi.Provider, self Self, exec *retry.Executor, logger logr.Logger) *Groups {
	return &Groups{clients: clients, self: self, exec: exec, logger: logger}
}

// ReplicationGroup describes the group named id, loaded once per id.
func (g *Groups) ReplicationGroup(ctx context.Context, id string) (*ectypes.ReplicationGroup, error) {
	return g.groups.Get(id, func() (*ectypes.ReplicationGroup, error) {
		region, err := g.self.Region(ctx)
		if err != nil {
			return nil, err
		}
		svc, err := g.clients.For(ctx, region)
		if err != nil {
			return nil, err
		}
		out, err := retry.Do(ctx, g.exec, func(ctx context.Context) (*elasticache.DescribeReplicationGroupsOutput, error) {
			return svc.ElastiCache.DescribeReplicationGroups(ctx, &elasticache.DescribeReplicationGroupsInput{
				ReplicationGroupId: aws.String(id),
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe replication group %s: %w", id, err)
		}
		if len(out.ReplicationGroups) == 0 {
			return nil, fmt.Errorf("%s: %w", id, ErrReplicationGroupNotFound)
		}
		return &out.ReplicationGroups[0], nil
	})
}

// Members returns the members of the group's first node group.
func (g *Groups) Members(ctx context.Context, id string) ([]ectypes.NodeGroupMember, error) {
	ng, err := g.nodeGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return ng.NodeGroupMembers, nil
}

// Primary returns the primary endpoint address.
func (g *Groups) Primary(ctx context.Context, id string) (string, error) {
	ng, err := g.nodeGroup(ctx, id)
	if err != nil {
		return "", err
	}
	if ng.PrimaryEndpoint == nil {
		return "", fmt.Errorf("%s has no primary endpoint", id)
	}
	return aws.ToString(ng.PrimaryEndpoint.Address), nil
}

// Replicas returns the read endpoint address of every replica member.
func (g *Groups) Replicas(ctx context.Context, id string) ([]string, error) {
	members, err := g.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range members {
		if aws.ToString(m.CurrentRole) == RoleReplica {
			out = append(out, readAddress(m))
		}
	}
	return out, nil
}

// ReplicaInMyAZ returns the read endpoint of a replica in the local zone.
// When the zone holds no replica, any member in the zone is used.
func (g *Groups) ReplicaInMyAZ(ctx context.Context, id string) (string, error) {
	az, err := g.self.AvailabilityZone(ctx)
	if err != nil {
		return "", err
	}
	members, err := g.Members(ctx, id)
	if err != nil {
		return "", err
	}

	var local []ectypes.NodeGroupMember
	for _, m := range members {
		if aws.ToString(m.PreferredAvailabilityZone) == az {
			local = append(local, m)
		}
	}
	for _, m := range local {
		if aws.ToString(m.CurrentRole) == RoleReplica {
			return readAddress(m), nil
		}
	}
	if len(local) == 0 {
		return "", fmt.Errorf("%s in %s: %w", id, az, ErrNoMemberInZone)
	}
	g.logger.V(1).Info("no replica in zone, using member", "group", id, "zone", az, "member", aws.ToString(local[0].CacheClusterId))
	return readAddress(local[0]), nil
}

func (g *Groups) nodeGroup(ctx context.Context, id string) (ectypes.NodeGroup, error) {
	rg, err := g.ReplicationGroup(ctx, id)
	if err != nil {
		return ectypes.NodeGroup{}, err
	}
	if len(rg.NodeGroups) == 0 {
		return ectypes.NodeGroup{}, fmt.Errorf("%s: %w", id, ErrNoNodeGroup)
	}
	return rg.NodeGroups[0], nil
}

func readAddress(m ectypes.NodeGroupMember) string {
	if m.ReadEndpoint == nil {
		return ""
	}
	return aws.ToString(m.ReadEndpoint.Address)
}
