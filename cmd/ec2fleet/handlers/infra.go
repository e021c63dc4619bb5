package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// ErrPrefixMissing is returned when no object matches a prefix.
var ErrPrefixMissing = errors.New("prefix not found")

// recordSet is the printed form of a Route 53 record set.
type recordSet struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	TTL    int64    `json:"ttl,omitempty"`
	Values []string `json:"values"`
}

// Records lists the record sets of a hosted zone, optionally only those
// named name.
func Records(ctx context.Context, opts Options, zoneID, name string) error {
	return run(opts, func(s *session) error {
		var sets []r53types.ResourceRecordSet
		var err error
		if name != "" {
			sets, err = s.fleet.DNS.Lookup(ctx, zoneID, name, "")
		} else {
			sets, err = s.fleet.DNS.ResourceRecordSets(ctx, zoneID)
		}
		if err != nil {
			return err
		}

		out := make([]recordSet, 0, len(sets))
		for _, rs := range sets {
			r := recordSet{Name: aws.ToString(rs.Name), Type: string(rs.Type), TTL: aws.ToInt64(rs.TTL)}
			for _, v := range rs.ResourceRecords {
				r.Values = append(r.Values, aws.ToString(v.Value))
			}
			if rs.AliasTarget != nil {
				r.Values = append(r.Values, "ALIAS "+aws.ToString(rs.AliasTarget.DNSName))
			}
			out = append(out, r)
		}
		if opts.JSON {
			return printJSON(out)
		}
		for _, r := range out {
			fmt.Fprintf(stdout, "%-40s %-6s %6d %v\n", r.Name, r.Type, r.TTL, r.Values)
		}
		return nil
	})
}

// CacheEndpoint selects which replication group endpoint to print.
type CacheEndpoint string

// Cache endpoint selectors.
const (
	CachePrimary  CacheEndpoint = "primary"
	CacheReplicas CacheEndpoint = "replicas"
	CacheLocal    CacheEndpoint = "local"
)

// Cache prints endpoints of an ElastiCache replication group.
func Cache(ctx context.Context, opts Options, group string, which CacheEndpoint) error {
	return run(opts, func(s *session) error {
		var addrs []string
		switch which {
		case CachePrimary:
			addr, err := s.fleet.Cache.Primary(ctx, group)
			if err != nil {
				return err
			}
			addrs = []string{addr}
		case CacheReplicas:
			var err error
			if addrs, err = s.fleet.Cache.Replicas(ctx, group); err != nil {
				return err
			}
		case CacheLocal:
			addr, err := s.fleet.Cache.ReplicaInMyAZ(ctx, group)
			if err != nil {
				return err
			}
			addrs = []string{addr}
		default:
			return fmt.Errorf("unknown endpoint %q (want primary, replicas or local)", which)
		}

		if opts.JSON {
			return printJSON(addrs)
		}
		for _, a := range addrs {
			fmt.Fprintln(stdout, a)
		}
		return nil
	})
}

// PrefixExists reports whether any object in bucket starts with prefix.
// It returns ErrPrefixMissing when none does so scripts can test the exit
// status.
func PrefixExists(ctx context.Context, opts Options, bucket, prefix string) error {
	return run(opts, func(s *session) error {
		store, err := s.fleet.Storage(ctx)
		if err != nil {
			return err
		}
		ok, err := store.DirectoryExists(ctx, bucket, prefix)
		if err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(map[string]bool{"exists": ok})
		}
		if !ok {
			return fmt.Errorf("%w: s3://%s/%s", ErrPrefixMissing, bucket, prefix)
		}
		fmt.Fprintf(stdout, "s3://%s/%s exists\n", bucket, prefix)
		return nil
	})
}
