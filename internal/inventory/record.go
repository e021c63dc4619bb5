package inventory

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/hashicorp/go-set/v2"

	"github.com/imamik/ec2fleet/internal/util/tags"
)

// Tag is one key/value pair on a record.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is an instance as seen by a discovery source.
// InstanceID and AvailabilityZone may be empty for registry-only nodes.
type Record struct {
	InstanceID       string `json:"instance_id,omitempty"`
	PrivateIPAddress string `json:"private_ip_address"`
	AvailabilityZone string `json:"availability_zone,omitempty"`
	Tags             []Tag  `json:"tags"`
}

// Tag returns the value of key.
func (r Record) Tag(key string) (string, bool) {
	for _, t := range r.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Roles returns the parsed role tag.
func (r Record) Roles() *set.Set[string] {
	v, _ := r.Tag(tags.KeyRoles)
	return tags.ParseRoles(v)
}

// FromEC2 converts an EC2 instance into a record, keeping tag order.
func FromEC2(inst ec2types.Instance) Record {
	rec := Record{
		InstanceID:       aws.ToString(inst.InstanceId),
		PrivateIPAddress: aws.ToString(inst.PrivateIpAddress),
	}
	if inst.Placement != nil {
		rec.AvailabilityZone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	for _, t := range inst.Tags {
		rec.Tags = append(rec.Tags, Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return rec
}

// PrivateIPs returns the private address of each record, skipping blanks.
func PrivateIPs(records []Record) []string {
	ips := make([]string, 0, len(records))
	for _, r := range records {
		if r.PrivateIPAddress != "" {
			ips = append(ips, r.PrivateIPAddress)
		}
	}
	return ips
}
