package handlers

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when a KV key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// KVGet prints a Consul KV value. JSON values are printed re-encoded.
func KVGet(ctx context.Context, opts Options, key string) error {
	return run(opts, func(s *session) error {
		if s.fleet.Consul == nil {
			return fmt.Errorf("consul is not configured")
		}
		value, ok, err := s.fleet.Consul.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		if str, isString := value.(string); isString && !opts.JSON {
			fmt.Fprintln(stdout, str)
			return nil
		}
		return printJSON(value)
	})
}
