package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ec2fleet/cmd/ec2fleet/handlers"
)

// KV returns the command group for the Consul key/value store.
func KV() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Read the Consul key/value store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a value; JSON values are decoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.KVGet(cmd.Context(), globals, args[0])
		},
	})

	return cmd
}

// Records returns the command for listing Route 53 record sets.
func Records() *cobra.Command {
	return &cobra.Command{
		Use:   "records <zone-id> [name]",
		Short: "List Route 53 record sets of a hosted zone",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 2 {
				name = args[1]
			}
			return handlers.Records(cmd.Context(), globals, args[0], name)
		},
	}
}

// Cache returns the command for resolving ElastiCache endpoints.
func Cache() *cobra.Command {
	var which string

	cmd := &cobra.Command{
		Use:   "elasticache <replication-group>",
		Short: "Print ElastiCache replication group endpoints",
		Long: `Print endpoints of the first node group of a replication group.

  primary   the primary endpoint
  replicas  read endpoints of every replica
  local     a replica in this availability zone, or any member there
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Cache(cmd.Context(), globals, args[0], handlers.CacheEndpoint(which))
		},
	}

	cmd.Flags().StringVar(&which, "endpoint", string(handlers.CacheLocal), "primary, replicas or local")

	return cmd
}

// PrefixExists returns the command for testing an S3 prefix.
func PrefixExists() *cobra.Command {
	return &cobra.Command{
		Use:   "s3-exists <bucket> <prefix>",
		Short: "Exit non-zero unless an object in bucket starts with prefix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.PrefixExists(cmd.Context(), globals, args[0], args[1])
		},
	}
}
