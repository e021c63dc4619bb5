// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ec2fleet/cmd/ec2fleet/handlers"
)

// globals holds the persistent flags of the root command.
var globals handlers.Options

// Root returns the root command for the ec2fleet CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ec2fleet",
		Short:         "Discover peers and manage the local instance on EC2",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&globals.JSON, "json", false, "Output in JSON format")
	cmd.PersistentFlags().CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	cmd.PersistentFlags().StringVar(&globals.MetricsFile, "metrics-file", "", "Write backoff metrics to this node-exporter textfile")
	cmd.PersistentFlags().StringVar(&globals.EnvFile, "env-file", "", "Dotenv file to load (default: /etc/ec2fleet/ec2fleet.env)")

	// Discovery
	cmd.AddCommand(Discover())
	cmd.AddCommand(Me())

	// Secrets and notifications
	cmd.AddCommand(Secret())
	cmd.AddCommand(Secrets())
	cmd.AddCommand(Notify())

	// Lifecycle
	cmd.AddCommand(Unhealthy())
	cmd.AddCommand(Tag())
	cmd.AddCommand(Lifecycle())
	cmd.AddCommand(AssignIP())

	// Pass-throughs
	cmd.AddCommand(KV())
	cmd.AddCommand(Records())
	cmd.AddCommand(Cache())
	cmd.AddCommand(PrefixExists())

	cmd.AddCommand(Version())

	return cmd
}
