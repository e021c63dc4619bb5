package inventory

import (
	"math/rand/v2"
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/imamik/ec2fleet/internal/util/tags"
)

// Strategy selects the discovery source for a query.
type Strategy string

// Discovery strategies.
const (
	StrategyCatalog  Strategy = "ec2"
	StrategyRegistry Strategy = "consul"
)

// Query selects records by role.
type Query struct {
	// Role is a comma-separated list of role names.
	Role             string
	ExcludeRoles     []string
	ExactMatch       bool
	AvailabilityZone string
	// Region defaults to the local region when empty.
	Region   string
	Strategy Strategy
}

// RoleSet returns the queried roles.
func (q Query) RoleSet() *set.Set[string] {
	return tags.ParseRoles(q.Role)
}

// ExcludeSet returns the excluded roles plus "decommissioned".
func (q Query) ExcludeSet() *set.Set[string] {
	ex := tags.ParseRoles(strings.Join(q.ExcludeRoles, ","))
	ex.Insert(tags.RoleDecommissioned)
	return ex
}

// Matches reports whether r satisfies the role and zone constraints of q.
func (q Query) Matches(r Record) bool {
	if q.AvailabilityZone != "" && r.AvailabilityZone != q.AvailabilityZone {
		return false
	}
	return q.MatchesRoles(r.Roles())
}

// MatchesRoles applies the role constraints of q to roles. Exact mode
// requires the same set and skips exclusions.
func (q Query) MatchesRoles(roles *set.Set[string]) bool {
	want := q.RoleSet()
	if q.ExactMatch {
		return tags.SameRoles(roles, want)
	}
	return tags.AnyRole(roles, want) && !tags.AnyRole(roles, q.ExcludeSet())
}

// Match returns the records satisfying q, in input order.
func Match(records []Record, q Query) []Record {
	var out []Record
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// OrderByAZ returns records in zone first, then the rest. Each partition is
// shuffled independently so equal targets share load.
func OrderByAZ(records []Record, zone string) []Record {
	var local, remote []Record
	for _, r := range records {
		if zone != "" && r.AvailabilityZone == zone {
			local = append(local, r)
		} else {
			remote = append(remote, r)
		}
	}
	shuffle(local)
	shuffle(remote)
	return append(local, remote...)
}

func shuffle(records []Record) {
	rand.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
}
