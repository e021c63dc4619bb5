// Package fleet assembles every component into one client for scripts and
// daemons running on an EC2 instance.
//
// Construction does no I/O beyond reading local config files. Metadata,
// identity and catalog lookups happen on first use and are memoized for the
// life of the Fleet.
package fleet

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/ec2fleet/internal/cache"
	"github.com/imamik/ec2fleet/internal/catalog"
	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/discovery"
	"github.com/imamik/ec2fleet/internal/dns"
	"github.com/imamik/ec2fleet/internal/identity"
	"github.com/imamik/ec2fleet/internal/lifecycle"
	"github.com/imamik/ec2fleet/internal/notify"
	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/platform/consul"
	"github.com/imamik/ec2fleet/internal/platform/metadata"
	"github.com/imamik/ec2fleet/internal/platform/s3"
	"github.com/imamik/ec2fleet/internal/secrets"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// Fleet is the assembled client.
type Fleet struct {
	Config    *config.Config
	Metadata  *metadata.Source
	Clients   awsapi.Provider
	Executor  *retry.Executor
	Metrics   *retry.Metrics
	Identity  *identity.Resolver
	Catalog   *catalog.Catalog
	Consul    *consul.Client
	Discovery *discovery.Router
	Notify    *notify.Sink
	Lifecycle *lifecycle.Ops
	Secrets   *secrets.Client
	DNS       *dns.Zones
	Cache     *cache.Groups

	logger logr.Logger
}

type options struct {
	logger     logr.Logger
	clients    awsapi.Provider
	imds       metadata.Client
	throttles  *awsapi.ThrottleTable
	execOpts   []retry.Option
	noRegistry bool
}

// Option is a functional option for Fleet construction.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClients replaces the per-region AWS client provider.
func WithClients(p awsapi.Provider) Option {
	return func(o *options) {
		o.clients = p
	}
}

// WithMetadataClient replaces the IMDS client.
func WithMetadataClient(c metadata.Client) Option {
	return func(o *options) {
		o.imds = c
	}
}

// WithThrottleTable replaces the throttling code table.
func WithThrottleTable(t *awsapi.ThrottleTable) Option {
	return func(o *options) {
		o.throttles = t
	}
}

// WithExecutorOptions appends options to the retry executor.
func WithExecutorOptions(opts ...retry.Option) Option {
	return func(o *options) {
		o.execOpts = append(o.execOpts, opts...)
	}
}

// WithoutRegistry disables Consul; registry queries fail with
// discovery.ErrInvalidDiscoveryType.
func WithoutRegistry() Option {
	return func(o *options) {
		o.noRegistry = true
	}
}

// New assembles a Fleet from cfg.
func New(cfg *config.Config, opts ...Option) (*Fleet, error) {
	o := options{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clients == nil {
		o.clients = awsapi.NewRegional()
	}
	if o.imds == nil {
		o.imds = metadata.NewClient(cfg.Metadata.Endpoint)
	}
	if o.throttles == nil {
		o.throttles = awsapi.DefaultThrottleTable()
	}

	regions, err := config.LoadSecretsRegions(cfg.SecretsRegionsFile)
	if err != nil {
		return nil, err
	}

	f := &Fleet{
		Config:  cfg,
		Clients: o.clients,
		Metrics: retry.NewMetrics(),
		logger:  o.logger,
	}

	var metaOpts []metadata.Option
	metaOpts = append(metaOpts, metadata.WithLogger(o.logger.WithName("metadata")))
	if cfg.RegionOverride != "" {
		metaOpts = append(metaOpts, metadata.WithRegionOverride(cfg.RegionOverride))
	}
	f.Metadata = metadata.New(o.imds, cfg.Metadata, metaOpts...)

	// The sink and the executor reference each other.
	f.Notify = notify.NewSink(f.Clients, f.Metadata, nil, o.logger.WithName("notify"))
	execOpts := append([]retry.Option{
		retry.WithAlerter(f.Notify),
		retry.WithLogger(o.logger.WithName("retry")),
		retry.WithMetrics(f.Metrics),
		retry.WithMaxAttempts(cfg.Backoff.MaxAttempts),
		retry.WithUnit(cfg.Backoff.Unit),
	}, o.execOpts...)
	f.Executor = retry.New(o.throttles, execOpts...)
	f.Notify.SetExecutor(f.Executor)

	f.Identity = identity.NewResolver(f.Metadata, f.Clients, f.Executor, cfg.EnvironmentFile, o.logger.WithName("identity"))
	f.Catalog = catalog.New(f.Clients, f.Executor, f.Metadata, f.Identity, o.logger.WithName("catalog"))

	var registry discovery.Registry
	if !o.noRegistry {
		if f.Consul, err = consul.NewClient(cfg.Consul); err != nil {
			return nil, err
		}
		registry = f.Consul
	}
	f.Discovery = discovery.NewRouter(f.Catalog, registry, f.Metadata, o.logger.WithName("discovery"))

	f.Lifecycle = lifecycle.New(f.Clients, f.Metadata, f.Executor, cfg.Lifecycle, o.logger.WithName("lifecycle"))
	f.Secrets = secrets.New(f.Clients, f.Metadata, f.Identity, f.Executor, regions, o.logger.WithName("secrets"))
	f.DNS = dns.New(f.Clients, f.Executor, o.logger.WithName("dns"))
	f.Cache = cache.New(f.Clients, f.Metadata, f.Executor, o.logger.WithName("cache"))

	return f, nil
}

// Storage returns an S3 client. Buckets are read through the global region.
func (f *Fleet) Storage(ctx context.Context) (*s3.Client, error) {
	svc, err := f.Clients.For(ctx, awsapi.GlobalRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return s3.NewClient(svc.S3, f.Executor), nil
}

// Self resolves every identity field of the local instance.
func (f *Fleet) Self(ctx context.Context) (identity.NodeIdentity, error) {
	return f.Identity.Identity(ctx)
}

// RegisterMetrics registers the executor counters on reg.
func (f *Fleet) RegisterMetrics(reg prometheus.Registerer) error {
	return f.Metrics.Register(reg)
}
