package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/retry"
	"github.com/imamik/ec2fleet/internal/util/tags"
)

// Auto Scaling values sent by this package.
const (
	HealthUnhealthy = "Unhealthy"
	ResultContinue  = "CONTINUE"
)

// ErrLifecycleTarget means a hook names neither or both of token and instance id.
var ErrLifecycleTarget = errors.New("exactly one of lifecycle token or instance id is required")

// Self is the local instance metadata lifecycle operations act on.
type Self interface {
	InstanceID(ctx context.Context) (string, error)
	Region(ctx context.Context) (string, error)
}

// LifecycleHook identifies a pending lifecycle action.
type LifecycleHook struct {
	HookName   string
	GroupName  string
	Token      string
	InstanceID string
}

// Validate checks that exactly one of Token and InstanceID is set.
func (h LifecycleHook) Validate() error {
	if (h.Token == "") == (h.InstanceID == "") {
		return fmt.Errorf("hook %q in group %q: %w", h.HookName, h.GroupName, ErrLifecycleTarget)
	}
	return nil
}

// Ops runs lifecycle operations for the local instance.
type Ops struct {
	clients awsapi.Provider
	self    Self
	exec    *retry.Executor
	cfg     config.Lifecycle
	logger  logr.Logger
}

// New creates lifecycle operations for the local instance.
func New(clients awsapi.Provider, self Self, exec *retry.Executor, cfg config.Lifecycle, logger logr.Logger) *Ops {
	return &Ops{clients: clients, self: self, exec: exec, cfg: cfg, logger: logger}
}

// MarkUnhealthy flags the local instance unhealthy, ignoring the grace period.
func (o *Ops) MarkUnhealthy(ctx context.Context) error {
	id, svc, err := o.target(ctx)
	if err != nil {
		return err
	}
	o.logger.Info("marking instance unhealthy", "instance", id)
	err = o.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.AutoScaling.SetInstanceHealth(ctx, &autoscaling.SetInstanceHealthInput{
			InstanceId:               aws.String(id),
			HealthStatus:             aws.String(HealthUnhealthy),
			ShouldRespectGracePeriod: aws.Bool(false),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set health of %s: %w", id, err)
	}
	return nil
}

// Roles reads the current mi:roles tag of the local instance from EC2.
func (o *Ops) Roles(ctx context.Context) (string, error) {
	id, svc, err := o.target(ctx)
	if err != nil {
		return "", err
	}
	return o.currentRoles(ctx, svc, id)
}

// AddRoleTag adds role to the local instance's mi:roles tag, keeping the
// roles already present.
func (o *Ops) AddRoleTag(ctx context.Context, role string) error {
	id, svc, err := o.target(ctx)
	if err != nil {
		return err
	}
	current, err := o.currentRoles(ctx, svc, id)
	if err != nil {
		return err
	}
	roles := tags.ParseRoles(current)
	added := tags.ParseRoles(role)
	if added.Size() == 0 {
		return fmt.Errorf("role must not be empty")
	}
	if tags.HasRoles(roles, added) {
		o.logger.V(1).Info("role already tagged", "instance", id, "role", role)
		return nil
	}
	for _, r := range added.Slice() {
		roles.Insert(r)
	}
	return o.writeRoles(ctx, svc, id, tags.JoinRoles(roles))
}

// DeleteRoleTag removes role from the local instance's mi:roles tag. The tag
// is deleted once no role remains.
func (o *Ops) DeleteRoleTag(ctx context.Context, role string) error {
	id, svc, err := o.target(ctx)
	if err != nil {
		return err
	}
	current, err := o.currentRoles(ctx, svc, id)
	if err != nil {
		return err
	}
	roles := tags.ParseRoles(current)
	removed := tags.ParseRoles(role)
	if !tags.AnyRole(roles, removed) {
		o.logger.V(1).Info("role not tagged", "instance", id, "role", role)
		return nil
	}
	for _, r := range removed.Slice() {
		roles.Remove(r)
	}
	if roles.Size() > 0 {
		return o.writeRoles(ctx, svc, id, tags.JoinRoles(roles))
	}

	o.logger.Info("deleting role tag", "instance", id)
	err = o.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.EC2.DeleteTags(ctx, &ec2.DeleteTagsInput{
			Resources: []string{id},
			Tags:      []ec2types.Tag{{Key: aws.String(tags.KeyRoles)}},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete role tag on %s: %w", id, err)
	}
	return nil
}

// CompleteLifecycleAction completes hook with result CONTINUE.
func (o *Ops) CompleteLifecycleAction(ctx context.Context, hook LifecycleHook) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	svc, err := o.regionClients(ctx)
	if err != nil {
		return err
	}
	input := &autoscaling.CompleteLifecycleActionInput{
		LifecycleHookName:     aws.String(hook.HookName),
		AutoScalingGroupName:  aws.String(hook.GroupName),
		LifecycleActionResult: aws.String(ResultContinue),
	}
	if hook.Token != "" {
		input.LifecycleActionToken = aws.String(hook.Token)
	} else {
		input.InstanceId = aws.String(hook.InstanceID)
	}

	o.logger.Info("completing lifecycle action", "hook", hook.HookName, "group", hook.GroupName)
	err = o.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.AutoScaling.CompleteLifecycleAction(ctx, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to complete lifecycle action %s: %w", hook.HookName, err)
	}
	return nil
}

// RecordHeartbeat extends the timeout of hook.
func (o *Ops) RecordHeartbeat(ctx context.Context, hook LifecycleHook) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	svc, err := o.regionClients(ctx)
	if err != nil {
		return err
	}
	input := &autoscaling.RecordLifecycleActionHeartbeatInput{
		LifecycleHookName:    aws.String(hook.HookName),
		AutoScalingGroupName: aws.String(hook.GroupName),
	}
	if hook.Token != "" {
		input.LifecycleActionToken = aws.String(hook.Token)
	} else {
		input.InstanceId = aws.String(hook.InstanceID)
	}

	err = o.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.AutoScaling.RecordLifecycleActionHeartbeat(ctx, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record heartbeat for %s: %w", hook.HookName, err)
	}
	return nil
}

// KeepAlive records a heartbeat for hook every HeartbeatInterval, at most
// MaxHeartbeats times, then returns nil. It stops early on the first failed
// heartbeat or when ctx is done.
func (o *Ops) KeepAlive(ctx context.Context, hook LifecycleHook) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	for i := 1; i <= o.cfg.MaxHeartbeats; i++ {
		if err := o.RecordHeartbeat(ctx, hook); err != nil {
			return err
		}
		o.logger.V(1).Info("recorded lifecycle heartbeat", "hook", hook.HookName, "iteration", i, "max", o.cfg.MaxHeartbeats)
		if i == o.cfg.MaxHeartbeats {
			break
		}

		t := time.NewTimer(o.cfg.HeartbeatInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("keepalive stopped after %d heartbeats: %w", i, ctx.Err())
		case <-t.C:
		}
	}
	o.logger.Info("keepalive finished", "hook", hook.HookName, "heartbeats", o.cfg.MaxHeartbeats)
	return nil
}

func (o *Ops) currentRoles(ctx context.Context, svc *awsapi.ServiceSet, id string) (string, error) {
	filters := tags.NewFilterBuilder().ResourceID(id).With("key", tags.KeyRoles).Build()
	out, err := retry.Do(ctx, o.exec, func(ctx context.Context) (*ec2.DescribeTagsOutput, error) {
		return svc.EC2.DescribeTags(ctx, &ec2.DescribeTagsInput{Filters: filters})
	}, retry.Quiet())
	if err != nil {
		return "", fmt.Errorf("failed to read role tag of %s: %w", id, err)
	}
	for _, t := range out.Tags {
		if aws.ToString(t.Key) == tags.KeyRoles {
			return aws.ToString(t.Value), nil
		}
	}
	return "", nil
}

func (o *Ops) writeRoles(ctx context.Context, svc *awsapi.ServiceSet, id, value string) error {
	o.logger.Info("writing role tag", "instance", id, "roles", value)
	err := o.exec.Run(ctx, func(ctx context.Context) error {
		_, err := svc.EC2.CreateTags(ctx, &ec2.CreateTagsInput{
			Resources: []string{id},
			Tags:      []ec2types.Tag{{Key: aws.String(tags.KeyRoles), Value: aws.String(value)}},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to tag %s: %w", id, err)
	}
	return nil
}

func (o *Ops) target(ctx context.Context) (string, *awsapi.ServiceSet, error) {
	id, err := o.self.InstanceID(ctx)
	if err != nil {
		return "", nil, err
	}
	svc, err := o.regionClients(ctx)
	if err != nil {
		return "", nil, err
	}
	return id, svc, nil
}

func (o *Ops) regionClients(ctx context.Context) (*awsapi.ServiceSet, error) {
	region, err := o.self.Region(ctx)
	if err != nil {
		return nil, err
	}
	return o.clients.For(ctx, region)
}
