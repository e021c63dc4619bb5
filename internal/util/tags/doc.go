// Package tags defines the EC2 tag keys used across the fleet and the
// parsing rules for role tags.
//
// Role tags hold a comma-separated list of role names in a single tag value
// (for example "app, app_db_replica"). Parsing splits on commas and trims
// surrounding whitespace. A FilterBuilder assembles DescribeInstances
// filters from the same keys.
package tags
