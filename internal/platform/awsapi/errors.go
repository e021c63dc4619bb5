package awsapi

import (
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-set/v2"
)

// AnyService registers codes that count as throttling for every service.
const AnyService = "*"

// Common provider error codes.
const (
	CodeParameterNotFound = "ParameterNotFound"
	CodeInvalidInstanceID = "InvalidInstanceID.NotFound"
)

// ThrottleTable maps (service, error code) pairs to "retryable".
// The service is the SDK service ID reported on the operation error.
type ThrottleTable struct {
	mu    sync.RWMutex
	codes map[string]*set.Set[string]
}

// NewThrottleTable creates an empty table.
func NewThrottleTable() *ThrottleTable {
	return &ThrottleTable{codes: make(map[string]*set.Set[string])}
}

// DefaultThrottleTable returns the rate-limit codes of every integrated service.
func DefaultThrottleTable() *ThrottleTable {
	t := NewThrottleTable()
	t.Register(AnyService, "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException")
	t.Register(ec2.ServiceID, "RequestLimitExceeded")
	t.Register(autoscaling.ServiceID, "Throttling")
	t.Register(route53.ServiceID, "Throttling", "PriorRequestNotComplete")
	t.Register(ssm.ServiceID, "ThrottlingException", "TooManyUpdates")
	t.Register(sns.ServiceID, "Throttling", "ThrottledException")
	t.Register(elasticache.ServiceID, "Throttling")
	t.Register(s3.ServiceID, "SlowDown")
	t.Register(sts.ServiceID, "Throttling")
	return t
}

// Register marks codes as throttling for service.
func (t *ThrottleTable) Register(service string, codes ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.codes[service]
	if !ok {
		s = set.New[string](len(codes))
		t.codes[service] = s
	}
	for _, c := range codes {
		s.Insert(c)
	}
}

// IsThrottle reports whether err carries a registered throttling code.
func (t *ThrottleTable) IsThrottle(err error) bool {
	code := ErrorCode(err)
	if code == "" {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.codes[AnyService]; ok && s.Contains(code) {
		return true
	}
	s, ok := t.codes[ServiceOf(err)]
	return ok && s.Contains(code)
}

// IsServiceError reports whether err came back from an AWS API.
func (t *ThrottleTable) IsServiceError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr)
}

// ErrorCode extracts the AWS error code, or "" for non-API errors.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// ServiceOf returns the SDK service ID of the failed operation, if known.
func ServiceOf(err error) string {
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return opErr.Service()
	}
	return ""
}
