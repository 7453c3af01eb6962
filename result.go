package tasty

import (
	"fmt"
	"time"
)

// FailureReason classifies why a test did not pass.
type FailureReason int

const (
	// FailureTest means the body returned an error or panicked.
	FailureTest FailureReason = iota
	// FailureTimeout means the body did not finish within the configured duration.
	FailureTimeout
	// FailureDependency means a shared resource this test depends on failed
	// to initialize; the body was never run.
	FailureDependency
	// FailureFinalizer means the test itself passed but releasing one of its
	// resources failed. A finalizer error never masks a real test failure.
	FailureFinalizer
)

// String returns the reason's human-readable tag.
func (r FailureReason) String() string {
	switch r {
	case FailureTest:
		return "failed"
	case FailureTimeout:
		return "timed out"
	case FailureDependency:
		return "dependency failed"
	case FailureFinalizer:
		return "finalizer failed"
	default:
		return fmt.Sprintf("FailureReason(%d)", int(r))
	}
}

// Failure describes why a test did not pass.
type Failure struct {
	Reason FailureReason
	// Err is the underlying error, when one exists.
	Err error
	// Timeout is the configured duration, set when Reason is FailureTimeout.
	Timeout time.Duration
}

// Result is the final outcome of one test. All failure modes, test errors,
// panics, timeouts, dependency failures and finalizer errors, converge to
// this one shape.
type Result struct {
	// Failure is nil when the test passed.
	Failure *Failure
	// Description is human-readable; empty for an undecorated pass.
	Description string
	// Duration covers the whole protocol for this test, acquire through release.
	Duration time.Duration
}

// OK reports whether the test passed.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Progress is a live progress report from a running test body.
type Progress struct {
	// Text is a short, free-form message.
	Text string
	// Percent is in [0,1]; zero when unknown.
	Percent float64
}

func testFailure(err error) Result {
	return Result{
		Failure:     &Failure{Reason: FailureTest, Err: err},
		Description: err.Error(),
	}
}

func dependencyFailure(err error) Result {
	return Result{
		Failure:     &Failure{Reason: FailureDependency, Err: err},
		Description: err.Error(),
	}
}

func finalizerFailure(err error) Result {
	return Result{
		Failure:     &Failure{Reason: FailureFinalizer, Err: err},
		Description: err.Error(),
	}
}

func timeoutFailure(t Timeout) Result {
	return Result{
		Failure:     &Failure{Reason: FailureTimeout, Timeout: t.Duration},
		Description: fmt.Sprintf("Timed out after %s", t.label()),
	}
}
