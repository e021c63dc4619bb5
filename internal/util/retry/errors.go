package retry

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// ErrFailedWithBackoff is returned when every attempt was throttled.
var ErrFailedWithBackoff = errors.New("failed with backoff")

// ServiceError is an unrecognised provider error surfaced after alerting.
type ServiceError struct {
	Err    error
	Caller string
	Stack  []string
}

func (e *ServiceError) Error() string {
	if e.Caller == "" {
		return fmt.Sprintf("service error: %v", e.Err)
	}
	return fmt.Sprintf("service error at %s: %v", e.Caller, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ExpectedError describes an anticipated failure that ends a run with no
// result and no alert.
//
// The kind is matched by Code (the provider error code) or Target
// (errors.Is). When Patterns is non-empty the error message must also match
// at least one of them.
type ExpectedError struct {
	Code     string
	Target   error
	Patterns []*regexp.Regexp
}

// ExpectCode is shorthand for an ExpectedError matching a provider code.
func ExpectCode(code string, patterns ...string) ExpectedError {
	e := ExpectedError{Code: code}
	for _, p := range patterns {
		e.Patterns = append(e.Patterns, regexp.MustCompile(p))
	}
	return e
}

func (x ExpectedError) matches(err error) bool {
	if !x.kindMatches(err) {
		return false
	}
	if len(x.Patterns) == 0 {
		return true
	}
	msg := err.Error()
	for _, p := range x.Patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

func (x ExpectedError) kindMatches(err error) bool {
	if x.Target != nil && errors.Is(err, x.Target) {
		return true
	}
	if x.Code == "" {
		return false
	}
	var coded interface{ ErrorCode() string }
	return errors.As(err, &coded) && coded.ErrorCode() == x.Code
}

const (
	maxStackFrames = 5
	packagePrefix  = "github.com/imamik/ec2fleet/internal/util/retry."
)

// callSite returns the first frame outside this package plus a few frames
// above it.
func callSite() (string, []string) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var caller string
	var stack []string
	for {
		f, more := frames.Next()
		inPackage := strings.HasPrefix(f.Function, packagePrefix) && !strings.HasSuffix(f.File, "_test.go")
		if !inPackage {
			line := fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
			if caller == "" {
				caller = line
			}
			stack = append(stack, line)
			if len(stack) == maxStackFrames {
				break
			}
		}
		if !more {
			break
		}
	}
	return caller, stack
}
