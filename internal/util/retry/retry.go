// Package retry provides utilities for retrying AWS operations with backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// DefaultMaxAttempts is the attempt budget for a run.
const DefaultMaxAttempts = 9

// fallbackAttempts is the budget for the secondary client in DoWithFallback.
const fallbackAttempts = 3

// maxJitter bounds the random part of each delay, in units.
const maxJitter = 10

// Classifier decides how a provider error is handled.
type Classifier interface {
	// IsThrottle reports whether err is a rate limit that should be retried.
	IsThrottle(err error) bool
	// IsServiceError reports whether err originated from a provider API.
	IsServiceError(err error) bool
}

// Alerter sends operator alerts.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

// AlerterFunc adapts a function to the Alerter interface.
type AlerterFunc func(ctx context.Context, subject, message string) error

// Alert calls f.
func (f AlerterFunc) Alert(ctx context.Context, subject, message string) error {
	return f(ctx, subject, message)
}

// Executor runs operations with throttling backoff.
type Executor struct {
	classifier  Classifier
	alerter     Alerter
	logger      logr.Logger
	metrics     *Metrics
	maxAttempts int
	unit        time.Duration
	jitter      func(n int) int
}

// Option is a functional option for executor configuration.
type Option func(*Executor)

// WithAlerter sets the alert sink.
func WithAlerter(a Alerter) Option {
	return func(e *Executor) {
		e.alerter = a
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithMaxAttempts sets the default attempt budget.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithUnit sets the length of one delay unit.
func WithUnit(d time.Duration) Option {
	return func(e *Executor) {
		e.unit = d
	}
}

// WithJitter replaces the random jitter source. fn returns a value in [0, n).
func WithJitter(fn func(n int) int) Option {
	return func(e *Executor) {
		e.jitter = fn
	}
}

// New creates an executor using classifier to recognise throttling.
func New(classifier Classifier, opts ...Option) *Executor {
	e := &Executor{
		classifier:  classifier,
		logger:      logr.Discard(),
		maxAttempts: DefaultMaxAttempts,
		unit:        time.Second,
		jitter:      rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type runConfig struct {
	attempts int
	quiet    bool
	expected []ExpectedError
}

// RunOption adjusts a single run.
type RunOption func(*runConfig)

// Attempts overrides the attempt budget for one run.
func Attempts(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// Quiet suppresses per-sleep throttle alerts. Exhaustion is still alerted.
func Quiet() RunOption {
	return func(c *runConfig) {
		c.quiet = true
	}
}

// Expect lists errors that end the run with no result and no alert.
func Expect(errs ...ExpectedError) RunOption {
	return func(c *runConfig) {
		c.expected = append(c.expected, errs...)
	}
}

// errExpected signals an expected error internally; callers see nil.
var errExpected = errors.New("expected error")

// Run executes op until it succeeds, fails terminally, or the budget is spent.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error, opts ...RunOption) error {
	err := e.run(ctx, op, opts...)
	if errors.Is(err, errExpected) {
		return nil
	}
	return err
}

// Do is Run for operations that return a value. An expected error yields the
// zero value and a nil error.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error), opts ...RunOption) (T, error) {
	var result T
	err := e.run(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts...)
	if errors.Is(err, errExpected) {
		var zero T
		return zero, nil
	}
	return result, err
}

// DoWithFallback runs op against primary with the full budget. If every
// attempt is throttled it makes one bounded run against secondary.
func DoWithFallback[C, T any](ctx context.Context, e *Executor, primary, secondary C, op func(ctx context.Context, client C) (T, error), opts ...RunOption) (T, error) {
	v, err := Do(ctx, e, func(ctx context.Context) (T, error) {
		return op(ctx, primary)
	}, opts...)
	if !errors.Is(err, ErrFailedWithBackoff) {
		return v, err
	}

	e.logger.Info("primary client exhausted, using fallback client")
	fallbackOpts := append(append([]RunOption{}, opts...), Attempts(fallbackAttempts))
	return Do(ctx, e, func(ctx context.Context) (T, error) {
		return op(ctx, secondary)
	}, fallbackOpts...)
}

func (e *Executor) run(ctx context.Context, op func(ctx context.Context) error, opts ...RunOption) error {
	cfg := runConfig{attempts: e.maxAttempts}
	for _, opt := range opts {
		opt(&cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			e.metrics.attempt(resultSuccess)
			e.metrics.outcome(outcomeSuccess)
			return nil
		}

		for _, x := range cfg.expected {
			if x.matches(err) {
				e.metrics.attempt(resultError)
				e.metrics.outcome(outcomeExpected)
				return errExpected
			}
		}

		if !e.classifier.IsThrottle(err) {
			e.metrics.attempt(resultError)
			return e.terminal(ctx, err)
		}

		e.metrics.attempt(resultThrottle)
		lastErr = err
		if attempt == cfg.attempts-1 {
			break
		}

		delay := e.delay(attempt)
		e.logger.Info("throttled by AWS, sleeping", "attempt", attempt+1, "delay", delay, "error", err.Error())
		if !cfg.quiet {
			e.alert(ctx, "API Throttled", fmt.Sprintf("Throttled by AWS, sleeping %s (attempt %d of %d).", delay, attempt+1, cfg.attempts))
		}
		if err := sleep(ctx, delay); err != nil {
			e.metrics.outcome(outcomeOther)
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt+1, err)
		}
	}

	e.metrics.outcome(outcomeExhausted)
	caller, _ := callSite()
	e.alert(ctx, "AWS API failed with backoff",
		fmt.Sprintf("Failed after %d attempts at %s: %v", cfg.attempts, caller, lastErr))
	return fmt.Errorf("%w after %d attempts: %w", ErrFailedWithBackoff, cfg.attempts, lastErr)
}

// terminal handles an error that will not be retried.
func (e *Executor) terminal(ctx context.Context, err error) error {
	if !e.classifier.IsServiceError(err) {
		e.metrics.outcome(outcomeOther)
		return err
	}

	e.metrics.outcome(outcomeService)
	caller, stack := callSite()
	serr := &ServiceError{Err: err, Caller: caller, Stack: stack}
	e.logger.Error(err, "unhandled AWS error", "caller", caller)
	e.alert(ctx, "Unhandled AWS error: "+errorKind(err),
		fmt.Sprintf("%v\n\nCaller: %s\nStack:\n  %s", err, caller, strings.Join(stack, "\n  ")))
	return serr
}

func (e *Executor) delay(attempt int) time.Duration {
	n := (attempt+1)*(attempt+1) + e.jitter(maxJitter)
	return time.Duration(n) * e.unit
}

func (e *Executor) alert(ctx context.Context, subject, message string) {
	if e.alerter == nil {
		return
	}
	e.metrics.alert()
	if err := e.alerter.Alert(ctx, subject, message); err != nil {
		e.logger.Error(err, "failed to send alert", "subject", subject)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errorKind names an error by provider code, falling back to its Go type.
func errorKind(err error) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return fmt.Sprintf("%T", err)
}
