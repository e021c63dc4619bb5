package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/imamik/ec2fleet/internal/util/lazy"
)

// GlobalRegion hosts the Route 53 and S3 clients.
const GlobalRegion = "us-east-1"

// Regional builds SDK clients per region and memoizes them for the process.
type Regional struct {
	endpoint    string
	accessKey   string
	secretKey   string
	loadOptions []func(*config.LoadOptions) error
	sets        lazy.Map[string, *ServiceSet]
}

// RegionalOption configures a Regional provider.
type RegionalOption func(*Regional)

// WithEndpoint points every service at a single base URL, for local stacks.
func WithEndpoint(url string) RegionalOption {
	return func(r *Regional) {
		r.endpoint = url
	}
}

// WithStaticCredentials bypasses the default credential chain.
func WithStaticCredentials(accessKey, secretKey string) RegionalOption {
	return func(r *Regional) {
		r.accessKey = accessKey
		r.secretKey = secretKey
	}
}

// WithLoadOptions appends SDK config load options.
func WithLoadOptions(opts ...func(*config.LoadOptions) error) RegionalOption {
	return func(r *Regional) {
		r.loadOptions = append(r.loadOptions, opts...)
	}
}

// NewRegional creates a provider using the SDK default configuration chain.
func NewRegional(opts ...RegionalOption) *Regional {
	r := &Regional{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// For returns the memoized clients for region.
func (r *Regional) For(ctx context.Context, region string) (*ServiceSet, error) {
	if region == "" {
		return nil, fmt.Errorf("region is required")
	}
	return r.sets.Get(region, func() (*ServiceSet, error) {
		return r.build(ctx, region)
	})
}

func (r *Regional) build(ctx context.Context, region string) (*ServiceSet, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		// The retry executor owns throttling backoff.
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if r.accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(r.accessKey, r.secretKey, "")))
	}
	opts = append(opts, r.loadOptions...)

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for %s: %w", region, err)
	}

	var base *string
	if r.endpoint != "" {
		base = aws.String(r.endpoint)
	}

	return &ServiceSet{
		Region: region,
		EC2: ec2.NewFromConfig(cfg, func(o *ec2.Options) {
			o.BaseEndpoint = base
		}),
		AutoScaling: autoscaling.NewFromConfig(cfg, func(o *autoscaling.Options) {
			o.BaseEndpoint = base
		}),
		SSM: ssm.NewFromConfig(cfg, func(o *ssm.Options) {
			o.BaseEndpoint = base
		}),
		SNS: sns.NewFromConfig(cfg, func(o *sns.Options) {
			o.BaseEndpoint = base
		}),
		Route53: route53.NewFromConfig(cfg, func(o *route53.Options) {
			o.BaseEndpoint = base
		}),
		ElastiCache: elasticache.NewFromConfig(cfg, func(o *elasticache.Options) {
			o.BaseEndpoint = base
		}),
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = base
			o.UsePathStyle = base != nil
		}),
		STS: sts.NewFromConfig(cfg, func(o *sts.Options) {
			o.BaseEndpoint = base
		}),
	}, nil
}
