package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imamik/ec2fleet/cmd/ec2fleet/handlers"
	"github.com/imamik/ec2fleet/internal/lifecycle"
)

// Unhealthy returns the command for marking this instance unhealthy.
func Unhealthy() *cobra.Command {
	return &cobra.Command{
		Use:   "unhealthy",
		Short: "Mark this instance unhealthy in its Auto Scaling group",
		Long: `Mark this instance unhealthy, ignoring the health check grace period.
Auto Scaling will terminate and replace it.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Unhealthy(cmd.Context(), globals)
		},
	}
}

// Tag returns the command group for editing this instance's role tag.
func Tag() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Edit the mi:roles tag of this instance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <role>",
		Short: "Add a role, keeping existing roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.AddRole(cmd.Context(), globals, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <role>",
		Short: "Remove a role; the tag is deleted when none remain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.RemoveRole(cmd.Context(), globals, args[0])
		},
	})

	return cmd
}

// Lifecycle returns the command group for Auto Scaling lifecycle hooks.
func Lifecycle() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Complete or extend Auto Scaling lifecycle actions",
	}

	cmd.AddCommand(hookCommand("complete", "Complete a lifecycle action with CONTINUE", handlers.CompleteLifecycle))
	cmd.AddCommand(hookCommand("heartbeat", "Record one lifecycle heartbeat", handlers.Heartbeat))
	cmd.AddCommand(hookCommand("keepalive", "Record heartbeats hourly, up to 24 times", handlers.KeepAlive))

	return cmd
}

type hookHandler func(ctx context.Context, opts handlers.Options, hook lifecycle.LifecycleHook) error

func hookCommand(use, short string, handler hookHandler) *cobra.Command {
	var hook lifecycle.LifecycleHook

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handler(cmd.Context(), globals, hook)
		},
	}

	cmd.Flags().StringVar(&hook.HookName, "hook", "", "Lifecycle hook name")
	cmd.Flags().StringVar(&hook.GroupName, "group", "", "Auto Scaling group name")
	cmd.Flags().StringVar(&hook.Token, "token", "", "Lifecycle action token")
	cmd.Flags().StringVar(&hook.InstanceID, "instance-id", "", "Instance id (instead of --token)")
	_ = cmd.MarkFlagRequired("hook")
	_ = cmd.MarkFlagRequired("group")
	cmd.MarkFlagsMutuallyExclusive("token", "instance-id")
	cmd.MarkFlagsOneRequired("token", "instance-id")

	return cmd
}

// AssignIP returns the command for associating an Elastic IP.
func AssignIP() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-ip <role>",
		Short: "Associate a random unassigned Elastic IP tagged with role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.AssignIP(cmd.Context(), globals, args[0])
		},
	}
}
