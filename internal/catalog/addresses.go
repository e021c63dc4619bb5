package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/ec2fleet/internal/util/retry"
	"github.com/imamik/ec2fleet/internal/util/tags"
)

// ErrNoElasticIP means no unassigned address carries the requested role.
var ErrNoElasticIP = errors.New("no available elastic ip for role")

// ElasticIPs returns every address in the local region, loaded once.
func (c *Catalog) ElasticIPs(ctx context.Context) ([]ec2types.Address, error) {
	region, err := c.self.Region(ctx)
	if err != nil {
		return nil, err
	}
	return c.addresses.Get(region, func() ([]ec2types.Address, error) {
		svc, err := c.clients.For(ctx, region)
		if err != nil {
			return nil, err
		}
		out, err := retry.Do(ctx, c.exec, func(ctx context.Context) (*ec2.DescribeAddressesOutput, error) {
			return svc.EC2.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe addresses: %w", err)
		}
		return out.Addresses, nil
	})
}

// UnassignedElasticIPs returns addresses with no association.
func (c *Catalog) UnassignedElasticIPs(ctx context.Context) ([]ec2types.Address, error) {
	all, err := c.ElasticIPs(ctx)
	if err != nil {
		return nil, err
	}
	var out []ec2types.Address
	for _, a := range all {
		if a.AssociationId == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// AvailableElasticIPs returns unassigned addresses whose mi:roles tag is role.
func (c *Catalog) AvailableElasticIPs(ctx context.Context, role string) ([]ec2types.Address, error) {
	unassigned, err := c.UnassignedElasticIPs(ctx)
	if err != nil {
		return nil, err
	}
	var out []ec2types.Address
	for _, a := range unassigned {
		for _, t := range a.Tags {
			if aws.ToString(t.Key) == tags.KeyRoles && aws.ToString(t.Value) == role {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

// AssignElasticIP associates a random available address of role with the
// local instance and returns its allocation id.
func (c *Catalog) AssignElasticIP(ctx context.Context, role string) (string, error) {
	available, err := c.AvailableElasticIPs(ctx, role)
	if err != nil {
		return "", err
	}
	if len(available) == 0 {
		return "", fmt.Errorf("%w %q", ErrNoElasticIP, role)
	}
	pick := available[rand.IntN(len(available))]

	id, err := c.self.InstanceID(ctx)
	if err != nil {
		return "", err
	}
	region, err := c.self.Region(ctx)
	if err != nil {
		return "", err
	}
	svc, err := c.clients.For(ctx, region)
	if err != nil {
		return "", err
	}

	allocationID := aws.ToString(pick.AllocationId)
	err = c.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.EC2.AssociateAddress(ctx, &ec2.AssociateAddressInput{
			InstanceId:   aws.String(id),
			AllocationId: aws.String(allocationID),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to associate %s: %w", allocationID, err)
	}
	c.logger.Info("associated elastic ip", "allocation", allocationID, "ip", aws.ToString(pick.PublicIp), "role", role)
	return allocationID, nil
}
