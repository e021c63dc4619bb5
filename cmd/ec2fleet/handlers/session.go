// Package handlers implements the ec2fleet command actions.
package handlers

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/ec2fleet/internal/config"
	"github.com/imamik/ec2fleet/internal/fleet"
)

// Options are the global flags shared by every command.
type Options struct {
	JSON        bool
	Verbose     int
	MetricsFile string
	EnvFile     string
}

// openFleet builds the fleet client. Tests replace it.
var openFleet = func(cfg *config.Config, opts ...fleet.Option) (*fleet.Fleet, error) {
	return fleet.New(cfg, opts...)
}

// session is one command invocation.
type session struct {
	fleet    *fleet.Fleet
	registry *prometheus.Registry
	opts     Options
	logger   logr.Logger
}

func newSession(opts Options) (*session, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = config.DefaultEnvFile
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	logger := newLogger(opts.Verbose)
	f, err := openFleet(config.Load(), fleet.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	reg := prometheus.NewRegistry()
	if err := f.RegisterMetrics(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &session{fleet: f, registry: reg, opts: opts, logger: logger}, nil
}

// close writes the metrics textfile when requested.
func (s *session) close() {
	if s.opts.MetricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(s.opts.MetricsFile, s.registry); err != nil {
		s.logger.Error(err, "failed to write metrics file", "path", s.opts.MetricsFile)
	}
}

// run opens a session, calls fn and closes the session.
func run(opts Options, fn func(s *session) error) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}

// newLogger writes structured logs to stderr. Verbosity 0 logs Info and
// Error only.
func newLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}
