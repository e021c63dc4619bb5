// Package inventory defines the instance record shape shared by every
// discovery source, and the role-matching rules applied to it.
//
// A record's role tag (mi:roles) is a comma-separated list. Non-exact
// queries match when the instance carries any queried role and none of the
// excluded roles; "decommissioned" is always excluded. Exact queries match
// only when the instance's role set equals the queried set.
package inventory
