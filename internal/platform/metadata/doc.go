// Package metadata resolves the identity of the local EC2 instance from the
// instance metadata service (IMDSv2).
//
// Every key is fetched at most once per [Source]; the first outcome, success
// or failure, is returned for the lifetime of the process. Lookups use a
// small retry loop of their own (the endpoint is link-local and never
// throttles), so they are not routed through the API backoff executor.
package metadata
