// Package awsapi holds the AWS service client surface used by ec2fleet.
//
// Each service is reached through a narrow interface ([EC2API], [SSMAPI],
// ...) that the SDK clients satisfy, so domain packages can be tested with
// mocks. [Regional] builds and memoizes one [ServiceSet] per region with SDK
// retries disabled; throttling is handled by the retry executor using the
// declarative [ThrottleTable].
package awsapi
