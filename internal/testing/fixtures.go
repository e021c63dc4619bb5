package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// Services holds one mock per AWS service.
type Services struct {
	EC2         *MockEC2
	AutoScaling *MockAutoScaling
	SSM         *MockSSM
	SNS         *MockSNS
	Route53     *MockRoute53
	ElastiCache *MockElastiCache
	S3          *MockS3
	STS         *MockSTS
}

// NewServices creates a fresh set of mocks.
func NewServices() *Services {
	return &Services{
		EC2:         &MockEC2{},
		AutoScaling: &MockAutoScaling{},
		SSM:         &MockSSM{},
		SNS:         &MockSNS{},
		Route53:     &MockRoute53{},
		ElastiCache: &MockElastiCache{},
		S3:          &MockS3{},
		STS:         &MockSTS{},
	}
}

// Set exposes the mocks as the client set for region.
func (s *Services) Set(region string) *awsapi.ServiceSet {
	return &awsapi.ServiceSet{
		Region:      region,
		EC2:         s.EC2,
		AutoScaling: s.AutoScaling,
		SSM:         s.SSM,
		SNS:         s.SNS,
		Route53:     s.Route53,
		ElastiCache: s.ElastiCache,
		S3:          s.S3,
		STS:         s.STS,
	}
}

// Provider serves fixed client sets by region.
type Provider struct {
	mu    sync.Mutex
	sets  map[string]*awsapi.ServiceSet
	calls map[string]int
}

// NewProvider creates a provider from client sets.
func NewProvider(sets ...*awsapi.ServiceSet) *Provider {
	p := &Provider{sets: make(map[string]*awsapi.ServiceSet), calls: make(map[string]int)}
	for _, s := range sets {
		p.sets[s.Region] = s
	}
	return p
}

// For returns the set registered for region.
func (p *Provider) For(_ context.Context, region string) (*awsapi.ServiceSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[region]++
	s, ok := p.sets[region]
	if !ok {
		return nil, fmt.Errorf("no clients for region %q", region)
	}
	return s, nil
}

// Calls returns how often region was requested.
func (p *Provider) Calls(region string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[region]
}

// Self is a fixed local identity. A non-nil Err is returned by every method.
type Self struct {
	ID         string
	AZ         string
	RegionName string
	IP         string
	DC         string
	Err        error
}

// InstanceID returns the configured id.
func (s Self) InstanceID(context.Context) (string, error) { return s.ID, s.Err }

// AvailabilityZone returns the configured zone.
func (s Self) AvailabilityZone(context.Context) (string, error) { return s.AZ, s.Err }

// Region returns the configured region.
func (s Self) Region(context.Context) (string, error) { return s.RegionName, s.Err }

// PrivateIPv4 returns the configured address.
func (s Self) PrivateIPv4(context.Context) (string, error) { return s.IP, s.Err }

// Datacenter returns the configured datacenter code.
func (s Self) Datacenter(context.Context) (string, error) { return s.DC, s.Err }

// DefaultSelf is an instance in us-east-1a.
func DefaultSelf() Self {
	return Self{ID: "i-self", AZ: "us-east-1a", RegionName: "us-east-1", IP: "10.0.0.10", DC: "iad"}
}

// Environment is a fixed environment resolver.
type Environment struct {
	Name string
	Err  error
}

// Environment returns the configured name.
func (e Environment) Environment(context.Context) (string, error) { return e.Name, e.Err }

// Instance builds a running EC2 instance. tagKV alternates keys and values.
func Instance(id, az, ip string, tagKV ...string) ec2types.Instance {
	inst := ec2types.Instance{
		InstanceId:       aws.String(id),
		PrivateIpAddress: aws.String(ip),
		Placement:        &ec2types.Placement{AvailabilityZone: aws.String(az)},
		State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
	}
	for i := 0; i+1 < len(tagKV); i += 2 {
		inst.Tags = append(inst.Tags, ec2types.Tag{Key: aws.String(tagKV[i]), Value: aws.String(tagKV[i+1])})
	}
	return inst
}

// Reservations wraps instances in a single-page DescribeInstances response.
func Reservations(instances ...ec2types.Instance) *ec2.DescribeInstancesOutput {
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: instances}},
	}
}

// APIError builds an operation error as returned by the SDK.
func APIError(service, code string) error {
	return &smithy.OperationError{
		ServiceID:     service,
		OperationName: "Test",
		Err:           &smithy.GenericAPIError{Code: code, Message: code + " from mock"},
	}
}

// Throttled builds the rate-limit error of service.
func Throttled(service string) error {
	switch service {
	case ec2.ServiceID:
		return APIError(service, "RequestLimitExceeded")
	default:
		return APIError(service, "Throttling")
	}
}

// AlertRecorder captures executor alerts.
type AlertRecorder struct {
	mu       sync.Mutex
	Subjects []string
	Messages []string
}

// Alert records the alert.
func (r *AlertRecorder) Alert(_ context.Context, subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Subjects = append(r.Subjects, subject)
	r.Messages = append(r.Messages, message)
	return nil
}

// Count returns the number of recorded alerts.
func (r *AlertRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Subjects)
}

// NewExecutor creates an executor that never sleeps and alerts into alerts.
func NewExecutor(alerts *AlertRecorder) *retry.Executor {
	opts := []retry.Option{
		retry.WithUnit(0),
		retry.WithJitter(func(int) int { return 0 }),
	}
	if alerts != nil {
		opts = append(opts, retry.WithAlerter(alerts))
	}
	return retry.New(awsapi.DefaultThrottleTable(), opts...)
}
