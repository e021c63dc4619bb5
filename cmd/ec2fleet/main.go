// Package main is the entry point for the ec2fleet CLI.
//
// ec2fleet runs on EC2 instances. It discovers peers by role tag or Consul
// service, manages the local instance's health, role tag and lifecycle
// hooks, reads SSM parameters and publishes SNS notifications.
//
// Commands: discover, me, secret, secrets, notify, unhealthy, tag,
// lifecycle, assign-ip, kv, records, elasticache, s3-exists.
//
// For detailed usage information, run:
//
//	ec2fleet --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/ec2fleet/cmd/ec2fleet/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
