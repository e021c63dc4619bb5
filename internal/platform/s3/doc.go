// Package s3 reads objects and prefixes from S3 buckets.
//
// Calls go through the retry executor. Bucket-level administration is out of
// scope; buckets are provisioned elsewhere.
package s3
