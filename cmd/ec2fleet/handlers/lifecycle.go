package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/ec2fleet/internal/lifecycle"
)

// Unhealthy marks the local instance unhealthy in its Auto Scaling group.
func Unhealthy(ctx context.Context, opts Options) error {
	return run(opts, func(s *session) error {
		return s.fleet.Lifecycle.MarkUnhealthy(ctx)
	})
}

// AddRole adds role to the local instance's role tag.
func AddRole(ctx context.Context, opts Options, role string) error {
	return run(opts, func(s *session) error {
		return s.fleet.Lifecycle.AddRoleTag(ctx, role)
	})
}

// RemoveRole removes role from the local instance's role tag.
func RemoveRole(ctx context.Context, opts Options, role string) error {
	return run(opts, func(s *session) error {
		return s.fleet.Lifecycle.DeleteRoleTag(ctx, role)
	})
}

// CompleteLifecycle completes a lifecycle action with CONTINUE.
func CompleteLifecycle(ctx context.Context, opts Options, hook lifecycle.LifecycleHook) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	return run(opts, func(s *session) error {
		return s.fleet.Lifecycle.CompleteLifecycleAction(ctx, hook)
	})
}

// Heartbeat records one lifecycle heartbeat.
func Heartbeat(ctx context.Context, opts Options, hook lifecycle.LifecycleHook) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	return run(opts, func(s *session) error {
		return s.fleet.Lifecycle.RecordHeartbeat(ctx, hook)
	})
}

// KeepAlive sends heartbeats until the limit is reached or ctx is done.
func KeepAlive(ctx context.Context, opts Options, hook lifecycle.LifecycleHook) error {
	if err := hook.Validate(); err != nil {
		return err
	}
	return run(opts, func(s *session) error {
		if err := s.fleet.Lifecycle.KeepAlive(ctx, hook); err != nil {
			return fmt.Errorf("keepalive for %s: %w", hook.HookName, err)
		}
		return nil
	})
}
