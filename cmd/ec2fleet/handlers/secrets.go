package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/ec2fleet/internal/secrets"
)

// ErrSecretNotFound is returned when a parameter does not exist.
var ErrSecretNotFound = errors.New("secret not found")

// Secret prints a single decrypted parameter. An empty env means the local
// environment.
func Secret(ctx context.Context, opts Options, env, role, attribute string) error {
	return run(opts, func(s *session) error {
		value, ok, err := s.fleet.Secrets.GetSecret(ctx, env, role, attribute)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrSecretNotFound, secrets.Path(env, role, attribute))
		}
		if opts.JSON {
			return printJSON(map[string]string{attribute: value})
		}
		fmt.Fprintln(stdout, value)
		return nil
	})
}

// RoleSecrets prints every parameter of a role.
func RoleSecrets(ctx context.Context, opts Options, env, role string) error {
	return run(opts, func(s *session) error {
		values, err := s.fleet.Secrets.GetRoleSecrets(ctx, env, role)
		if err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(values)
		}
		fmt.Fprint(stdout, renderKeyValues("ec2fleet secrets: "+role, values, isInteractiveTTY()))
		return nil
	})
}
