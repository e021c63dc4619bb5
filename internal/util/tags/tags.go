package tags

import (
	"slices"
	"strings"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/hashicorp/go-set/v2"
)

// Standard tag keys.
const (
	// KeyRoles holds the comma-separated roles an instance serves.
	KeyRoles = "mi:roles"

	// KeyEnvironment names the deployment environment (staging, production).
	KeyEnvironment = "mi:env"

	// KeyName is the conventional EC2 display name tag.
	KeyName = "Name"
)

// RoleDecommissioned marks an instance that must never be discovered.
const RoleDecommissioned = "decommissioned"

// InstanceStateRunning is the only state the default catalog filter admits.
const InstanceStateRunning = "running"

// ParseRoles splits a role tag value into a set of trimmed, non-empty names.
func ParseRoles(value string) *set.Set[string] {
	parts := strings.Split(value, ",")
	roles := set.New[string](len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles.Insert(p)
		}
	}
	return roles
}

// JoinRoles renders a role set back into a tag value, sorted for stable output.
func JoinRoles(roles *set.Set[string]) string {
	names := roles.Slice()
	slices.Sort(names)
	return strings.Join(names, ",")
}

// SameRoles reports whether both sets hold exactly the same roles.
func SameRoles(a, b *set.Set[string]) bool {
	return a.Equal(b)
}

// HasRoles reports whether roles contains every role in want.
func HasRoles(roles, want *set.Set[string]) bool {
	// Subset reports whether its argument is a subset of the receiver.
	return roles.Subset(want)
}

// AnyRole reports whether roles contains at least one of candidates.
func AnyRole(roles, candidates *set.Set[string]) bool {
	return !roles.Intersect(candidates).Empty()
}

// FilterBuilder provides a fluent interface for DescribeInstances filters.
type FilterBuilder struct {
	filters []ec2types.Filter
}

// NewFilterBuilder creates an empty filter builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// Running restricts results to running instances.
func (fb *FilterBuilder) Running() *FilterBuilder {
	return fb.With("instance-state-name", InstanceStateRunning)
}

// Environment restricts results to instances tagged with the environment.
func (fb *FilterBuilder) Environment(env string) *FilterBuilder {
	return fb.Tag(KeyEnvironment, env)
}

// Tag adds a tag:<key> filter. Values may use EC2 wildcards.
func (fb *FilterBuilder) Tag(key string, values ...string) *FilterBuilder {
	return fb.With("tag:"+key, values...)
}

// ResourceID restricts DescribeTags results to the given resources.
func (fb *FilterBuilder) ResourceID(ids ...string) *FilterBuilder {
	return fb.With("resource-id", ids...)
}

// With adds an arbitrary filter.
func (fb *FilterBuilder) With(name string, values ...string) *FilterBuilder {
	n := name
	fb.filters = append(fb.filters, ec2types.Filter{Name: &n, Values: slices.Clone(values)})
	return fb
}

// Build returns a copy of the accumulated filters.
func (fb *FilterBuilder) Build() []ec2types.Filter {
	out := make([]ec2types.Filter, len(fb.filters))
	for i, f := range fb.filters {
		out[i] = ec2types.Filter{Name: f.Name, Values: slices.Clone(f.Values)}
	}
	return out
}
