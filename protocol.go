package tasty

import (
	"context"
	"fmt"
	"time"

	"github.com/coot/tasty/internal/ctxlog"
)

// compiledTest is one leaf test ready to run: the body plus the acquire and
// release chains threaded through it by the compiler. Immutable after
// compilation; only the status cell and the shared cells it points at are
// mutated while the test runs.
type compiledTest struct {
	index int
	name  string
	run   Test

	// acquires is ordered by nesting depth, innermost resource first, so a
	// forward walk acquires deeper resources before their ancestors.
	// finalizers holds the matching entries in the same order; the release
	// phase walks it backwards, making the invoked release order the exact
	// reverse of the invoked acquire order.
	acquires   []*resourceCell
	finalizers []*finalizer

	timeout *Timeout
	cell    *StatusCell
}

// execute runs the full per-test protocol and is the only writer of the
// test's status cell. It never lets a panic or cancellation escape without
// first resolving the cell, so observers can always wait on Done.
func (t *compiledTest) execute(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("test", t.name, "index", t.index)
	start := time.Now()
	t.cell.setExecuting(Progress{})
	logger.Debug("Test started.")

	res := t.runProtocol(ctx)
	res.Duration = time.Since(start)
	t.cell.setDone(res)

	if res.OK() {
		logger.Debug("Test passed.", "duration", res.Duration)
	} else {
		logger.Debug("Test failed.", "reason", res.Failure.Reason.String(), "description", res.Description, "duration", res.Duration)
	}
}

func (t *compiledTest) runProtocol(ctx context.Context) (res Result) {
	// Last-resort conversion of internal panics into a resolved result; the
	// acquire, body and release actions each confine their own panics before
	// they can reach this frame.
	defer func() {
		if r := recover(); r != nil {
			res = testFailure(fmt.Errorf("internal error: %v", r))
		}
	}()

	// Phase 1: acquire dependencies, innermost first, stopping at the first
	// failure. A failed acquire is not retried.
	var depErr error
	for _, cell := range t.acquires {
		if err := cell.acquireOnce(ctx); err != nil {
			depErr = err
			break
		}
	}

	// Phase 2: the body, only if every dependency is up.
	if depErr != nil {
		res = dependencyFailure(depErr)
	} else {
		res = t.runBody(ctx)
	}

	// Phase 3: walk every finalizer in reverse acquire order, even after a
	// failure in phase 1 or 2, remembering only the first release error.
	// Each dependent decrements each of its finalizers exactly once,
	// acquired or not, so the countdowns stay balanced.
	var finErr error
	for i := len(t.finalizers) - 1; i >= 0; i-- {
		if err := t.finalizers[i].releaseLast(ctx); err != nil && finErr == nil {
			finErr = err
		}
	}

	// Phase 4: a finalizer error surfaces only when the test would otherwise
	// have been reported as passing.
	if res.OK() && finErr != nil {
		res = finalizerFailure(finErr)
	}
	return res
}

// runBody runs the test body as a nested goroutine raced against the
// configured timeout and the run context. The goroutine gets its own
// cancellable context; when the timeout fires or the run is cancelled the
// body is asked to stop and the result is decided without waiting for it.
func (t *compiledTest) runBody(ctx context.Context) Result {
	bodyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcome := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- fmt.Errorf("test panicked: %v", r)
			}
		}()
		outcome <- t.run(bodyCtx, t.reportProgress)
	}()

	var timeoutC <-chan time.Time
	if t.timeout != nil {
		timer := time.NewTimer(t.timeout.Duration)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case err := <-outcome:
		if err != nil {
			return testFailure(err)
		}
		return Result{}
	case <-timeoutC:
		cancel()
		return timeoutFailure(*t.timeout)
	case <-ctx.Done():
		cancel()
		return testFailure(fmt.Errorf("run cancelled: %w", ctx.Err()))
	}
}

func (t *compiledTest) reportProgress(p Progress) {
	t.cell.setExecuting(p)
}
