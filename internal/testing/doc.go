// Package testing provides mocks and fixtures shared by package tests.
//
// It centralizes common testing patterns to avoid duplication across test files:
//   - Mock* types: testify mocks of every AWS client interface
//   - Services: one mock per service, exposed as an awsapi.ServiceSet
//   - Provider: a region -> ServiceSet map satisfying awsapi.Provider
//   - Self: a fixed local instance identity
//   - Instance/APIError/Throttled: response and error builders
//
// Usage:
//
//	svc := testing.NewServices()
//	svc.EC2.On("DescribeInstances", mock.Anything, mock.Anything).
//	    Return(testing.Reservations(testing.Instance("i-1", "us-east-1a", "10.0.0.1", "mi:roles", "app")), nil)
//	provider := testing.NewProvider(svc.Set("us-east-1"))
package testing
