package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/util/lazy"
)

var (
	// ErrEC2Required means the process is not running on an EC2 instance.
	ErrEC2Required = errors.New("can only be used within EC2")

	// ErrMetadataTimeout means the metadata endpoint did not answer within
	// the retry budget.
	ErrMetadataTimeout = fmt.Errorf("metadata endpoint unreachable: %w", ErrEC2Required)
)

// Unknown is reported for identity document fields that could not be parsed.
const Unknown = "unknown"

// Client is the subset of the IMDS client used by Source.
type Client interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
	GetDynamicData(ctx context.Context, params *imds.GetDynamicDataInput, optFns ...func(*imds.Options)) (*imds.GetDynamicDataOutput, error)
}

// NewClient creates an IMDS client with SDK retries disabled.
// An empty endpoint uses the SDK default (169.254.169.254).
func NewClient(endpoint string) *imds.Client {
	return imds.New(imds.Options{
		Endpoint:              endpoint,
		Retryer:               aws.NopRetryer{},
		DisableDefaultTimeout: true,
	})
}

// Source resolves and memoizes instance metadata.
type Source struct {
	client         Client
	attempts       int
	baseTimeout    time.Duration
	backoffUnit    time.Duration
	regionOverride string
	logger         logr.Logger

	meta    lazy.Map[string, string]
	dynamic lazy.Map[string, string]
}

// Option is a functional option for Source configuration.
type Option func(*Source)

// WithRegionOverride makes Region return region without querying metadata.
func WithRegionOverride(region string) Option {
	return func(s *Source) {
		s.regionOverride = region
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// New creates a Source backed by client.
func New(client Client, cfg config.Metadata, opts ...Option) *Source {
	s := &Source{
		client:      client,
		attempts:    cfg.Attempts,
		baseTimeout: cfg.BaseTimeout,
		backoffUnit: cfg.BackoffUnit,
		logger:      logr.Discard(),
	}
	if s.attempts <= 0 {
		s.attempts = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the meta-data value stored under key, e.g. "instance-id".
func (s *Source) Get(ctx context.Context, key string) (string, error) {
	return s.meta.Get(key, func() (string, error) {
		return s.fetch(ctx, key, func(ctx context.Context) (io.ReadCloser, error) {
			out, err := s.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: key})
			if err != nil {
				return nil, err
			}
			return out.Content, nil
		})
	})
}

// Dynamic returns the dynamic data value stored under key.
func (s *Source) Dynamic(ctx context.Context, key string) (string, error) {
	return s.dynamic.Get(key, func() (string, error) {
		return s.fetch(ctx, key, func(ctx context.Context) (io.ReadCloser, error) {
			out, err := s.client.GetDynamicData(ctx, &imds.GetDynamicDataInput{Path: key})
			if err != nil {
				return nil, err
			}
			return out.Content, nil
		})
	})
}

// InstanceID returns the local instance id.
func (s *Source) InstanceID(ctx context.Context) (string, error) {
	return s.Get(ctx, "instance-id")
}

// AvailabilityZone returns the local availability zone.
func (s *Source) AvailabilityZone(ctx context.Context) (string, error) {
	return s.Get(ctx, "placement/availability-zone")
}

// PrivateIPv4 returns the primary private address.
func (s *Source) PrivateIPv4(ctx context.Context) (string, error) {
	return s.Get(ctx, "local-ipv4")
}

// InstanceType returns the instance type, e.g. "m5.large".
func (s *Source) InstanceType(ctx context.Context) (string, error) {
	return s.Get(ctx, "instance-type")
}

// Region returns the override if set, else the availability zone without
// its trailing zone letter.
func (s *Source) Region(ctx context.Context) (string, error) {
	if s.regionOverride != "" {
		return s.regionOverride, nil
	}
	az, err := s.AvailabilityZone(ctx)
	if err != nil {
		return "", err
	}
	return RegionFromAZ(az), nil
}

// Datacenter returns the short datacenter code of the local region.
func (s *Source) Datacenter(ctx context.Context) (string, error) {
	region, err := s.Region(ctx)
	if err != nil {
		return "", err
	}
	return DatacenterFor(region), nil
}

// IdentityDocument is the parsed instance identity document.
type IdentityDocument struct {
	AccountID        string `json:"accountId"`
	Region           string `json:"region"`
	AvailabilityZone string `json:"availabilityZone"`
	InstanceID       string `json:"instanceId"`
	InstanceType     string `json:"instanceType"`
	ImageID          string `json:"imageId"`
	PrivateIP        string `json:"privateIp"`
	Architecture     string `json:"architecture"`
}

// IdentityDocument returns the parsed identity document. A malformed
// document yields every field set to [Unknown].
func (s *Source) IdentityDocument(ctx context.Context) (IdentityDocument, error) {
	raw, err := s.Dynamic(ctx, "instance-identity/document")
	if err != nil {
		return IdentityDocument{}, err
	}
	return ParseIdentityDocument(raw), nil
}

// ParseIdentityDocument decodes raw, falling back to [Unknown] fields.
func ParseIdentityDocument(raw string) IdentityDocument {
	var doc IdentityDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return IdentityDocument{
			AccountID:        Unknown,
			Region:           Unknown,
			AvailabilityZone: Unknown,
			InstanceID:       Unknown,
			InstanceType:     Unknown,
			ImageID:          Unknown,
			PrivateIP:        Unknown,
			Architecture:     Unknown,
		}
	}
	return doc
}

func (s *Source) fetch(ctx context.Context, key string, get func(ctx context.Context) (io.ReadCloser, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		val, err := s.fetchOnce(ctx, attempt, get)
		if err == nil {
			if val == "" {
				return "", fmt.Errorf("empty metadata value for %s: %w", key, ErrEC2Required)
			}
			return val, nil
		}
		if !isTimeout(err) {
			return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
		}

		lastErr = err
		s.logger.V(1).Info("metadata request timed out", "key", key, "attempt", attempt)
		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrMetadataTimeout, ctx.Err())
		case <-time.After(time.Duration(attempt) * s.backoffUnit):
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrMetadataTimeout, key, s.attempts, lastErr)
}

func (s *Source) fetchOnce(ctx context.Context, attempt int, get func(ctx context.Context) (io.ReadCloser, error)) (string, error) {
	if s.baseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(attempt)*s.baseTimeout)
		defer cancel()
	}

	body, err := get(ctx)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// isTimeout reports whether err is a timeout or connection failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sendErr *smithyhttp.RequestSendError
	return errors.As(err, &sendErr)
}
