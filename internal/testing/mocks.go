package testing

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/mock"

	"github.com/imamik/ec2fleet/internal/platform/awsapi"
)

var (
	_ awsapi.EC2API         = (*MockEC2)(nil)
	_ awsapi.AutoScalingAPI = (*MockAutoScaling)(nil)
	_ awsapi.SSMAPI         = (*MockSSM)(nil)
	_ awsapi.SNSAPI         = (*MockSNS)(nil)
	_ awsapi.Route53API     = (*MockRoute53)(nil)
	_ awsapi.ElastiCacheAPI = (*MockElastiCache)(nil)
	_ awsapi.S3API          = (*MockS3)(nil)
	_ awsapi.STSAPI         = (*MockSTS)(nil)
)

// MockEC2 is a mock of the EC2 client.
type MockEC2 struct {
	mock.Mock
}

// DescribeInstances records the call and returns the configured response.
func (m *MockEC2) DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeInstancesOutput), args.Error(1)
}

// DescribeTags records the call and returns the configured response.
func (m *MockEC2) DescribeTags(ctx context.Context, in *ec2.DescribeTagsInput, _ ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeTagsOutput), args.Error(1)
}

// DescribeAddresses records the call and returns the configured response.
func (m *MockEC2) DescribeAddresses(ctx context.Context, in *ec2.DescribeAddressesInput, _ ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeAddressesOutput), args.Error(1)
}

// AssociateAddress records the call and returns the configured response.
func (m *MockEC2) AssociateAddress(ctx context.Context, in *ec2.AssociateAddressInput, _ ...func(*ec2.Options)) (*ec2.AssociateAddressOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.AssociateAddressOutput), args.Error(1)
}

// CreateTags records the call and returns the configured response.
func (m *MockEC2) CreateTags(ctx context.Context, in *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.CreateTagsOutput), args.Error(1)
}

// DeleteTags records the call and returns the configured response.
func (m *MockEC2) DeleteTags(ctx context.Context, in *ec2.DeleteTagsInput, _ ...func(*ec2.Options)) (*ec2.DeleteTagsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DeleteTagsOutput), args.Error(1)
}

// MockAutoScaling is a mock of the Auto Scaling client.
type MockAutoScaling struct {
	mock.Mock
}

// SetInstanceHealth records the call and returns the configured response.
func (m *MockAutoScaling) SetInstanceHealth(ctx context.Context, in *autoscaling.SetInstanceHealthInput, _ ...func(*autoscaling.Options)) (*autoscaling.SetInstanceHealthOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*autoscaling.SetInstanceHealthOutput), args.Error(1)
}

// CompleteLifecycleAction records the call and returns the configured response.
func (m *MockAutoScaling) CompleteLifecycleAction(ctx context.Context, in *autoscaling.CompleteLifecycleActionInput, _ ...func(*autoscaling.Options)) (*autoscaling.CompleteLifecycleActionOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*autoscaling.CompleteLifecycleActionOutput), args.Error(1)
}

// RecordLifecycleActionHeartbeat records the call and returns the configured response.
func (m *MockAutoScaling) RecordLifecycleActionHeartbeat(ctx context.Context, in *autoscaling.RecordLifecycleActionHeartbeatInput, _ ...func(*autoscaling.Options)) (*autoscaling.RecordLifecycleActionHeartbeatOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*autoscaling.RecordLifecycleActionHeartbeatOutput), args.Error(1)
}

// MockSSM is a mock of the SSM client.
type MockSSM struct {
	mock.Mock
}

// GetParameter records the call and returns the configured response.
func (m *MockSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

// GetParametersByPath records the call and returns the configured response.
func (m *MockSSM) GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParametersByPathOutput), args.Error(1)
}

// MockSNS is a mock of the SNS client.
type MockSNS struct {
	mock.Mock
}

// ListTopics records the call and returns the configured response.
func (m *MockSNS) ListTopics(ctx context.Context, in *sns.ListTopicsInput, _ ...func(*sns.Options)) (*sns.ListTopicsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.ListTopicsOutput), args.Error(1)
}

// Publish records the call and returns the configured response.
func (m *MockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

// MockRoute53 is a mock of the Route 53 client.
type MockRoute53 struct {
	mock.Mock
}

// ListResourceRecordSets records the call and returns the configured response.
func (m *MockRoute53) ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*route53.ListResourceRecordSetsOutput), args.Error(1)
}

// MockElastiCache is a mock of the ElastiCache client.
type MockElastiCache struct {
	mock.Mock
}

// DescribeReplicationGroups records the call and returns the configured response.
func (m *MockElastiCache) DescribeReplicationGroups(ctx context.Context, in *elasticache.DescribeReplicationGroupsInput, _ ...func(*elasticache.Options)) (*elasticache.DescribeReplicationGroupsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticache.DescribeReplicationGroupsOutput), args.Error(1)
}

// MockS3 is a mock of the S3 client.
type MockS3 struct {
	mock.Mock
}

// ListObjectsV2 records the call and returns the configured response.
func (m *MockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

// GetObject records the call and returns the configured response.
func (m *MockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

// MockSTS is a mock of the STS client.
type MockSTS struct {
	mock.Mock
}

// GetCallerIdentity records the call and returns the configured response.
func (m *MockSTS) GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.GetCallerIdentityOutput), args.Error(1)
}
