package handlers

import (
	"context"
	"fmt"
)

// Me prints the identity of the local instance.
func Me(ctx context.Context, opts Options) error {
	return run(opts, func(s *session) error {
		id, err := s.fleet.Self(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve identity: %w", err)
		}
		if opts.JSON {
			return printJSON(id)
		}

		dc, err := s.fleet.Metadata.Datacenter(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, renderKeyValues("ec2fleet: "+id.InstanceID, map[string]string{
			"instance_id":       id.InstanceID,
			"availability_zone": id.AvailabilityZone,
			"region":            id.Region,
			"datacenter":        dc,
			"private_ipv4":      id.PrivateIPv4,
			"account_id":        id.AccountID,
			"environment":       id.Environment,
		}, isInteractiveTTY()))
		return nil
	})
}
