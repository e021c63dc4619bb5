// Package notify publishes operator alerts to SNS topics.
//
// Topics are located by a fragment of their ARN (for example
// "slack-aws-alerts"). A missing topic is not an error: the alert is
// dropped and logged.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// Known topic fragments.
const (
	TopicSlack     = "slack-aws-alerts"
	TopicPagerDuty = "pagerduty"
)

// MaxSubjectLength is the SNS subject limit.
const MaxSubjectLength = 100

// Self is the local instance metadata included in every subject.
type Self interface {
	InstanceID(ctx context.Context) (string, error)
	Region(ctx context.Context) (string, error)
}

// Sink publishes notifications.
type Sink struct {
	clients awsapi.Provider
	self    Self
	exec    *retry.Executor
	logger  logr.Logger

	mu     sync.Mutex
	topics []string
	loaded bool
}

// NewSink creates a sink. exec may be nil until SetExecutor is called.
func NewSink(clients awsapi.Provider, self Self, exec *retry.Executor, logger logr.Logger) *Sink {
	return &Sink{clients: clients, self: self, exec: exec, logger: logger}
}

// SetExecutor sets the executor used by Notify.
func (s *Sink) SetExecutor(exec *retry.Executor) {
	s.exec = exec
}

// Topics lists every topic ARN in the local region, once per process.
func (s *Sink) Topics(ctx context.Context) ([]string, error) {
	if topics, ok := s.cached(); ok {
		return topics, nil
	}
	svc, err := s.regionClients(ctx)
	if err != nil {
		return nil, err
	}
	topics, err := retry.Do(ctx, s.exec, func(ctx context.Context) ([]string, error) {
		return listTopics(ctx, svc.SNS)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.topics, s.loaded = topics, true
	}
	return s.topics, nil
}

// ResolveTopic returns the first topic ARN containing fragment.
func (s *Sink) ResolveTopic(ctx context.Context, fragment string) (string, bool, error) {
	topics, err := s.Topics(ctx)
	if err != nil {
		return "", false, err
	}
	arn, ok := match(topics, fragment)
	return arn, ok, nil
}

// Notify publishes to the Slack alerts topic.
func (s *Sink) Notify(ctx context.Context, subject, message string) error {
	return s.NotifyTopic(ctx, TopicSlack, subject, message)
}

// Page publishes to the PagerDuty topic.
func (s *Sink) Page(ctx context.Context, subject, message string) error {
	return s.NotifyTopic(ctx, TopicPagerDuty, subject, message)
}

// NotifyTopic publishes to the topic matching fragment through the executor.
func (s *Sink) NotifyTopic(ctx context.Context, fragment, subject, message string) error {
	arn, ok, err := s.ResolveTopic(ctx, fragment)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Info("no topic found, dropping notification", "fragment", fragment, "subject", subject)
		return nil
	}
	svc, err := s.regionClients(ctx)
	if err != nil {
		return err
	}
	input := &sns.PublishInput{
		TopicArn: aws.String(arn),
		Subject:  aws.String(s.Subject(ctx, subject)),
		Message:  aws.String(message),
	}
	return s.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.SNS.Publish(ctx, input)
		return err
	})
}

// Alert publishes to the Slack alerts topic with a single unretried attempt.
// It implements retry.Alerter and never uses the executor.
func (s *Sink) Alert(ctx context.Context, subject, message string) error {
	svc, err := s.regionClients(ctx)
	if err != nil {
		return err
	}
	topics, ok := s.cached()
	if !ok {
		if topics, err = listTopics(ctx, svc.SNS); err != nil {
			return fmt.Errorf("failed to list topics: %w", err)
		}
	}
	arn, found := match(topics, TopicSlack)
	if !found {
		s.logger.Info("no alert topic found, dropping alert", "subject", subject)
		return nil
	}
	_, err = svc.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(arn),
		Subject:  aws.String(s.Subject(ctx, subject)),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

// Subject appends " (<instance id>, <region>)" to subject, truncating the
// caller text so the result fits MaxSubjectLength.
func (s *Sink) Subject(ctx context.Context, subject string) string {
	id, err := s.self.InstanceID(ctx)
	if err != nil {
		id = "unknown"
	}
	region, err := s.self.Region(ctx)
	if err != nil {
		region = "unknown"
	}
	return FormatSubject(subject, fmt.Sprintf(" (%s, %s)", id, region))
}

// FormatSubject truncates subject to leave room for suffix.
func FormatSubject(subject, suffix string) string {
	room := MaxSubjectLength - len([]rune(suffix))
	if room < 0 {
		room = 0
	}
	if r := []rune(subject); len(r) > room {
		subject = string(r[:room])
	}
	out := subject + suffix
	if r := []rune(out); len(r) > MaxSubjectLength {
		out = string(r[:MaxSubjectLength])
	}
	return out
}

func (s *Sink) cached() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topics, s.loaded
}

func (s *Sink) regionClients(ctx context.Context) (*awsapi.ServiceSet, error) {
	region, err := s.self.Region(ctx)
	if err != nil {
		return nil, err
	}
	return s.clients.For(ctx, region)
}

func listTopics(ctx context.Context, client awsapi.SNSAPI) ([]string, error) {
	var topics []string
	p := sns.NewListTopicsPaginator(client, &sns.ListTopicsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range page.Topics {
			topics = append(topics, aws.ToString(t.TopicArn))
		}
	}
	return topics, nil
}

func match(topics []string, fragment string) (string, bool) {
	for _, arn := range topics {
		if strings.Contains(arn, fragment) {
			return arn, true
		}
	}
	return "", false
}
