// Package identity resolves who the local instance is: its id, zone,
// region, account and deployment environment.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/lazy"
	"github.com/imamik/ec2fleet/internal/util/retry"
	"github.com/imamik/ec2fleet/internal/util/tags"
)

// ErrNoEnvironmentTag means the local instance carries no mi:env tag.
var ErrNoEnvironmentTag = errors.New("instance has no environment tag")

// Self is the metadata the resolver needs about the local instance.
type Self interface {
	InstanceID(ctx context.Context) (string, error)
	AvailabilityZone(ctx context.Context) (string, error)
	Region(ctx context.Context) (string, error)
	PrivateIPv4(ctx context.Context) (string, error)
}

// NodeIdentity describes the local instance.
type NodeIdentity struct {
	InstanceID       string `json:"instance_id"`
	AvailabilityZone string `json:"availability_zone"`
	Region           string `json:"region"`
	PrivateIPv4      string `json:"private_ipv4"`
	AccountID        string `json:"account_id"`
	Environment      string `json:"environment"`
}

// Resolver resolves and memoizes identity fields that need AWS calls.
type Resolver struct {
	self    Self
	clients awsapi.Provider
	exec    *retry.Executor
	envFile string
	logger  logr.Logger

	env     lazy.Value[string]
	account lazy.Value[string]
	tags    lazy.Value[map[string]string]
}

// NewResolver creates a resolver. envFile names the environment override file.
func NewResolver(self Self, clients awsapi.Provider, exec *retry.Executor, envFile string, logger logr.Logger) *Resolver {
	return &Resolver{
		self:    self,
		clients: clients,
		exec:    exec,
		envFile: envFile,
		logger:  logger,
	}
}

// Environment returns the deployment environment. The override file wins;
// otherwise the instance's mi:env tag is read.
func (r *Resolver) Environment(ctx context.Context) (string, error) {
	return r.env.Get(func() (string, error) {
		if env, ok, err := config.ReadEnvironmentOverride(r.envFile); err != nil {
			return "", err
		} else if ok {
			r.logger.V(1).Info("using environment override", "file", r.envFile, "environment", env)
			return env, nil
		}

		t, err := r.Tags(ctx)
		if err != nil {
			return "", err
		}
		env, ok := t[tags.KeyEnvironment]
		if !ok || env == "" {
			return "", ErrNoEnvironmentTag
		}
		return env, nil
	})
}

// Tags returns the tags on the local instance.
func (r *Resolver) Tags(ctx context.Context) (map[string]string, error) {
	return r.tags.Get(func() (map[string]string, error) {
		id, err := r.self.InstanceID(ctx)
		if err != nil {
			return nil, err
		}
		svc, err := r.regionClients(ctx)
		if err != nil {
			return nil, err
		}

		filters := tags.NewFilterBuilder().ResourceID(id).Build()
		return retry.Do(ctx, r.exec, func(ctx context.Context) (map[string]string, error) {
			out := make(map[string]string)
			p := ec2.NewDescribeTagsPaginator(svc.EC2, &ec2.DescribeTagsInput{Filters: filters})
			for p.HasMorePages() {
				page, err := p.NextPage(ctx)
				if err != nil {
					return nil, err
				}
				for _, t := range page.Tags {
					out[aws.ToString(t.Key)] = aws.ToString(t.Value)
				}
			}
			return out, nil
		}, retry.Quiet())
	})
}

// AccountID returns the AWS account of the current credentials.
func (r *Resolver) AccountID(ctx context.Context) (string, error) {
	return r.account.Get(func() (string, error) {
		svc, err := r.regionClients(ctx)
		if err != nil {
			return "", err
		}
		out, err := retry.Do(ctx, r.exec, func(ctx context.Context) (*sts.GetCallerIdentityOutput, error) {
			return svc.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		})
		if err != nil {
			return "", fmt.Errorf("failed to get caller identity: %w", err)
		}
		return aws.ToString(out.Account), nil
	})
}

// Identity resolves every field. It fails on the first unresolvable one.
func (r *Resolver) Identity(ctx context.Context) (NodeIdentity, error) {
	var id NodeIdentity
	var err error
	if id.InstanceID, err = r.self.InstanceID(ctx); err != nil {
		return NodeIdentity{}, err
	}
	if id.AvailabilityZone, err = r.self.AvailabilityZone(ctx); err != nil {
		return NodeIdentity{}, err
	}
	if id.Region, err = r.self.Region(ctx); err != nil {
		return NodeIdentity{}, err
	}
	if id.PrivateIPv4, err = r.self.PrivateIPv4(ctx); err != nil {
		return NodeIdentity{}, err
	}
	if id.AccountID, err = r.AccountID(ctx); err != nil {
		return NodeIdentity{}, err
	}
	if id.Environment, err = r.Environment(ctx); err != nil {
		return NodeIdentity{}, err
	}
	return id, nil
}

func (r *Resolver) regionClients(ctx context.Context) (*awsapi.ServiceSet, error) {
	region, err := r.self.Region(ctx)
	if err != nil {
		return nil, err
	}
	return r.clients.For(ctx, region)
}
