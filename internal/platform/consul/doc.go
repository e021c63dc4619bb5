// Package consul wraps the Consul HTTP API for service discovery and
// key/value reads.
//
// Health queries accept stale, cached answers so discovery keeps working
// while the cluster has no leader.
package consul
