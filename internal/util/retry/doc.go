// Package retry runs AWS operations with throttling-aware backoff.
//
// An [Executor] retries an operation while a [Classifier] reports the error
// as throttling, sleeping (attempt)² plus a random jitter of up to ten units
// between attempts. Other API errors are alerted once and returned as a
// [*ServiceError]. Callers may list [ExpectedError] values that end the run
// successfully without a result, and [DoWithFallback] switches to a secondary
// client when the primary exhausts its budget.
//
// Every throttle sleep and terminal failure is reported to an [Alerter], so
// operators see sustained throttling in production.
package retry
