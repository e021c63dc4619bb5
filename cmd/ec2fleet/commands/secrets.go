package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ec2fleet/cmd/ec2fleet/handlers"
	"github.com/imamik/ec2fleet/internal/notify"
)

// Secret returns the command for reading one parameter.
func Secret() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "secret <role> <attribute>",
		Short: "Print a decrypted parameter from /<env>/<role>/<attribute>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Secret(cmd.Context(), globals, env, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (default: this instance's environment)")

	return cmd
}

// Secrets returns the command for reading every parameter of a role.
func Secrets() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "secrets <role>",
		Short: "Print every decrypted parameter under /<env>/<role>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.RoleSecrets(cmd.Context(), globals, env, args[0])
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (default: this instance's environment)")

	return cmd
}

// Notify returns the command for publishing an SNS notification.
func Notify() *cobra.Command {
	var topic string
	var page bool

	cmd := &cobra.Command{
		Use:   "notify <subject> <message>",
		Short: "Publish a notification to an SNS topic",
		Long: `Publish a notification to the first SNS topic whose ARN contains --topic.

The subject is suffixed with "(<instance id>, <region>)" and truncated to
fit the 100 character SNS limit. A missing topic is logged, not an error.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page {
				topic = notify.TopicPagerDuty
			}
			return handlers.Notify(cmd.Context(), globals, topic, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&topic, "topic", notify.TopicSlack, "Topic ARN fragment")
	cmd.Flags().BoolVar(&page, "page", false, "Publish to the PagerDuty topic")

	return cmd
}
