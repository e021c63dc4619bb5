package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/ec2fleet/internal/inventory"
)

// DiscoverOptions selects the instances to list.
type DiscoverOptions struct {
	Query   inventory.Query
	Ordered bool
	IPsOnly bool
}

// Discover lists instances serving a role.
func Discover(ctx context.Context, opts Options, d DiscoverOptions) error {
	return run(opts, func(s *session) error {
		var records []inventory.Record
		var err error
		if d.Ordered {
			records, err = s.fleet.Discovery.OrderedByAZ(ctx, d.Query)
		} else {
			records, err = s.fleet.Discovery.Instances(ctx, d.Query)
		}
		if err != nil {
			return fmt.Errorf("failed to discover %q: %w", d.Query.Role, err)
		}

		if d.IPsOnly {
			ips := inventory.PrivateIPs(records)
			if opts.JSON {
				return printJSON(ips)
			}
			fmt.Fprintln(stdout, strings.Join(ips, "\n"))
			return nil
		}
		if opts.JSON {
			if records == nil {
				records = []inventory.Record{}
			}
			return printJSON(records)
		}
		fmt.Fprint(stdout, renderRecords(records, isInteractiveTTY()))
		return nil
	})
}
