// Package dns lists Route 53 record sets, memoized per hosted zone.
package dns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/go-logr/logr"

	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/lazy"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// Zones reads hosted zone contents. Route 53 is global; requests go to
// awsapi.GlobalRegion.
type Zones struct {
	clients awsapi.Provider
	exec    *retry.Executor
	logger  logr.Logger

	records lazy.Loader[string, []r53types.ResourceRecordSet]
}

// New creates a zone reader.
func New(clients awsapi.Provider, exec *retry.Executor, logger logr.Logger) *Zones {
	return &Zones{clients: clients, exec: exec, logger: logger}
}

// ResourceRecordSets returns every record set in zoneID, loaded once.
func (z *Zones) ResourceRecordSets(ctx context.Context, zoneID string) ([]r53types.ResourceRecordSet, error) {
	return z.records.Get(zoneID, func() ([]r53types.ResourceRecordSet, error) {
		svc, err := z.clients.For(ctx, awsapi.GlobalRegion)
		if err != nil {
			return nil, err
		}
		sets, err := retry.Do(ctx, z.exec, func(ctx context.Context) ([]r53types.ResourceRecordSet, error) {
			return listRecordSets(ctx, svc.Route53, zoneID)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list record sets of zone %s: %w", zoneID, err)
		}
		z.logger.V(1).Info("loaded record sets", "zone", zoneID, "count", len(sets))
		return sets, nil
	})
}

// Lookup returns the record sets named name, optionally restricted to type
// rtype. Names compare with the trailing dot Route 53 returns.
func (z *Zones) Lookup(ctx context.Context, zoneID, name string, rtype r53types.RRType) ([]r53types.ResourceRecordSet, error) {
	all, err := z.ResourceRecordSets(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	fqdn := name
	if fqdn == "" || fqdn[len(fqdn)-1] != '.' {
		fqdn += "."
	}
	var out []r53types.ResourceRecordSet
	for _, rs := range all {
		if aws.ToString(rs.Name) != fqdn {
			continue
		}
		if rtype != "" && rs.Type != rtype {
			continue
		}
		out = append(out, rs)
	}
	return out, nil
}

// listRecordSets pages with the Next* cursor fields; the SDK has no
// paginator for this operation.
func listRecordSets(ctx context.Context, client awsapi.Route53API, zoneID string) ([]r53types.ResourceRecordSet, error) {
	var sets []r53types.ResourceRecordSet
	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
	for {
		out, err := client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, err
		}
		sets = append(sets, out.ResourceRecordSets...)
		if !out.IsTruncated {
			return sets, nil
		}
		input = &route53.ListResourceRecordSetsInput{
			HostedZoneId:          aws.String(zoneID),
			StartRecordName:       out.NextRecordName,
			StartRecordType:       out.NextRecordType,
			StartRecordIdentifier: out.NextRecordIdentifier,
		}
	}
}
