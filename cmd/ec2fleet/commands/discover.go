package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ec2fleet/cmd/ec2fleet/handlers"
	"github.com/imamik/ec2fleet/internal/inventory"
)

// Discover returns the command for listing instances by role.
func Discover() *cobra.Command {
	var d handlers.DiscoverOptions
	var strategy string

	cmd := &cobra.Command{
		Use:   "discover <role[,role...]>",
		Short: "List running instances serving a role",
		Long: `List running instances in the local environment whose mi:roles tag
matches the given roles.

Without --exact, an instance matches when it serves any queried role and
none of the excluded roles. Instances tagged "decommissioned" are always
excluded. With --exact, the instance's role set must equal the query.

The ec2 strategy queries EC2 directly. The consul strategy queries passing
services in the local Consul datacenter.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Query.Role = args[0]
			d.Query.Strategy = inventory.Strategy(strategy)
			return handlers.Discover(cmd.Context(), globals, d)
		},
	}

	cmd.Flags().StringSliceVar(&d.Query.ExcludeRoles, "exclude", nil, "Roles to exclude")
	cmd.Flags().BoolVar(&d.Query.ExactMatch, "exact", false, "Require the role set to match exactly")
	cmd.Flags().StringVar(&d.Query.AvailabilityZone, "az", "", "Only instances in this availability zone")
	cmd.Flags().StringVar(&d.Query.Region, "region", "", "Query this region (default: local region)")
	cmd.Flags().StringVar(&strategy, "strategy", string(inventory.StrategyCatalog), "Discovery source: ec2 or consul")
	cmd.Flags().BoolVar(&d.Ordered, "ordered", false, "List local-zone instances first")
	cmd.Flags().BoolVar(&d.IPsOnly, "ips", false, "Print private IP addresses only")

	return cmd
}

// Me returns the command for printing the local identity.
func Me() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Print the identity of this instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Me(cmd.Context(), globals)
		},
	}
}
