// Package secrets reads SSM Parameter Store values laid out as
// /<environment>/<role>/<attribute>.
//
// Reads go to the instance's own region first. When every attempt there is
// throttled, a short run against a failover region follows.
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// Self supplies the local region.
type Self interface {
	Region(ctx context.Context) (string, error)
}

// Environment supplies the default deployment environment.
type Environment interface {
	Environment(ctx context.Context) (string, error)
}

// Client reads secrets with primary/failover region clients.
type Client struct {
	clients awsapi.Provider
	self    Self
	env     Environment
	exec    *retry.Executor
	regions *config.SecretsRegions
	logger  logr.Logger
}

// New creates a secrets client. A nil regions map uses the defaults.
func New(clients awsapi.Provider, self Self, env Environment, exec *retry.Executor, regions *config.SecretsRegions, logger logr.Logger) *Client {
	if regions == nil {
		regions = config.DefaultSecretsRegions()
	}
	return &Client{clients: clients, self: self, env: env, exec: exec, regions: regions, logger: logger}
}

// Path joins the parameter path for env, role and an optional attribute.
func Path(env, role, attribute string) string {
	p := "/" + env + "/" + role
	if attribute != "" {
		p += "/" + attribute
	}
	return p
}

// GetSecret returns the decrypted value of /env/role/attribute. An empty env
// means the local environment. A missing parameter returns ("", false, nil).
func (c *Client) GetSecret(ctx context.Context, env, role, attribute string) (string, bool, error) {
	env, err := c.environment(ctx, env)
	if err != nil {
		return "", false, err
	}
	primary, failover, err := c.pair(ctx)
	if err != nil {
		return "", false, err
	}

	name := Path(env, role, attribute)
	value, err := retry.DoWithFallback(ctx, c.exec, primary, failover,
		func(ctx context.Context, client awsapi.SSMAPI) (*string, error) {
			out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
				Name:           aws.String(name),
				WithDecryption: aws.Bool(true),
			})
			if err != nil {
				return nil, err
			}
			if out.Parameter == nil {
				return aws.String(""), nil
			}
			return aws.String(aws.ToString(out.Parameter.Value)), nil
		},
		retry.Expect(retry.ExpectCode(awsapi.CodeParameterNotFound)),
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to get parameter %s: %w", name, err)
	}
	if value == nil {
		c.logger.V(1).Info("parameter not found", "name", name)
		return "", false, nil
	}
	return *value, true, nil
}

// GetRoleSecrets returns every decrypted parameter under /env/role, keyed by
// the name with that prefix stripped. An empty env means the local environment.
func (c *Client) GetRoleSecrets(ctx context.Context, env, role string) (map[string]string, error) {
	env, err := c.environment(ctx, env)
	if err != nil {
		return nil, err
	}
	primary, failover, err := c.pair(ctx)
	if err != nil {
		return nil, err
	}

	path := Path(env, role, "")
	secrets, err := retry.DoWithFallback(ctx, c.exec, primary, failover,
		func(ctx context.Context, client awsapi.SSMAPI) (map[string]string, error) {
			return byPath(ctx, client, path)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters under %s: %w", path, err)
	}
	return secrets, nil
}

func byPath(ctx context.Context, client awsapi.SSMAPI, path string) (map[string]string, error) {
	out := make(map[string]string)
	p := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, param := range page.Parameters {
			name := strings.TrimPrefix(aws.ToString(param.Name), path+"/")
			out[name] = aws.ToString(param.Value)
		}
	}
	return out, nil
}

func (c *Client) environment(ctx context.Context, env string) (string, error) {
	if env != "" {
		return env, nil
	}
	return c.env.Environment(ctx)
}

// pair returns the primary and failover SSM clients for the local region.
func (c *Client) pair(ctx context.Context) (awsapi.SSMAPI, awsapi.SSMAPI, error) {
	region, err := c.self.Region(ctx)
	if err != nil {
		return nil, nil, err
	}
	regions := c.regions.For(region)

	primary, err := c.clients.For(ctx, regions.Primary)
	if err != nil {
		return nil, nil, err
	}
	if regions.Failover == "" {
		return primary.SSM, primary.SSM, nil
	}
	failover, err := c.clients.For(ctx, regions.Failover)
	if err != nil {
		return nil, nil, err
	}
	return primary.SSM, failover.SSM, nil
}
