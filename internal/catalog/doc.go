// Package catalog discovers EC2 instances by role tag.
//
// Instance lists are loaded once per (region, filter) pair and kept for the
// lifetime of the [Catalog]; there is no partial invalidation. The default
// filter admits running instances tagged with the local environment.
package catalog
