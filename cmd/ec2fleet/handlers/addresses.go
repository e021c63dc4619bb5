package handlers

import (
	"context"
	"fmt"
)

// AssignIP associates a random unassigned Elastic IP tagged with role.
func AssignIP(ctx context.Context, opts Options, role string) error {
	return run(opts, func(s *session) error {
		allocation, err := s.fleet.Catalog.AssignElasticIP(ctx, role)
		if err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(map[string]string{"allocation_id": allocation})
		}
		fmt.Fprintln(stdout, allocation)
		return nil
	})
}
