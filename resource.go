package tasty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coot/tasty/internal/ctxlog"
)

// ErrResourceNotCreated is returned by a Supplier invoked before its resource
// was successfully acquired. It indicates a bug in the caller, not a test
// outcome: suppliers are only valid inside a test body running under the
// resource's subtree.
var ErrResourceNotCreated = errors.New("resource is not created")

type resourceState int

const (
	resourceNotCreated resourceState = iota
	resourceFailed
	resourceCreated
)

// resourceCell is the shared, lazily-initialized handle to one resource.
// One cell exists per resource node per run; the value is type-erased so the
// compiler and protocol never see the concrete resource type. The state is
// mutated exactly once: the first acquire, successful or not, fixes it for
// the rest of the run.
type resourceCell struct {
	name    string
	acquire func(ctx context.Context) (any, error)

	mu    sync.Mutex
	state resourceState
	value any
	err   error
}

func newResourceCell(name string, spec ResourceSpec) *resourceCell {
	return &resourceCell{name: name, acquire: spec.Acquire}
}

// acquireOnce runs the acquire action on first call; concurrent callers block
// on the cell mutex until the first resolves and then observe the cached
// state. Cancellation during the acquire fixes the cell in a terminal failed
// state rather than leaving it undecided, so no dependent hangs forever.
func (c *resourceCell) acquireOnce(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case resourceCreated:
		return nil
	case resourceFailed:
		return c.err
	}

	logger := ctxlog.FromContext(ctx).With("resource", c.name)
	if err := ctx.Err(); err != nil {
		c.state = resourceFailed
		c.err = fmt.Errorf("resource %q: acquire cancelled: %w", c.name, err)
		logger.Debug("Resource acquire cancelled before start.", "error", err)
		return c.err
	}

	logger.Debug("Acquiring resource.")
	value, err := runAcquire(ctx, c.acquire)
	if err != nil {
		c.state = resourceFailed
		c.err = fmt.Errorf("resource %q failed to initialize: %w", c.name, err)
		logger.Debug("Resource acquire failed.", "error", err)
		return c.err
	}

	c.state = resourceCreated
	c.value = value
	logger.Debug("Resource created.")
	return nil
}

type acquired struct {
	value any
	err   error
}

// runAcquire races the acquire action against ctx so a stuck action cannot
// wedge the run: on cancellation the cell reaches a terminal failed state and
// the action's eventual outcome, if any, is discarded. Panics from the action
// are confined to an error return.
func runAcquire(ctx context.Context, acquire func(context.Context) (any, error)) (any, error) {
	outcome := make(chan acquired, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- acquired{err: fmt.Errorf("acquire panicked: %v", r)}
			}
		}()
		value, err := acquire(ctx)
		outcome <- acquired{value: value, err: err}
	}()

	select {
	case out := <-outcome:
		return out.value, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire cancelled: %w", ctx.Err())
	}
}

// peek returns the resource value. Callers must only use it after acquireOnce
// reported success; any other state is an internal-state error.
func (c *resourceCell) peek() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != resourceCreated {
		return nil, fmt.Errorf("resource %q: %w", c.name, ErrResourceNotCreated)
	}
	return c.value, nil
}

// supplier exposes the cell to test bodies as a Supplier.
func (c *resourceCell) supplier() Supplier {
	return c.peek
}

// finalizer pairs a cell's release action with a countdown of dependent
// tests still to finish. The decrement and the decision to release are one
// atomic step: exactly the caller that takes the countdown to zero runs the
// release action.
type finalizer struct {
	cell      *resourceCell
	release   func(value any) error
	remaining atomic.Int32
}

func newFinalizer(cell *resourceCell, spec ResourceSpec, dependents int) *finalizer {
	f := &finalizer{cell: cell, release: spec.Release}
	f.remaining.Store(int32(dependents))
	return f
}

// releaseLast decrements the countdown and, on reaching zero, releases the
// resource if it was created. Only the triggering caller can observe a
// release error; every other caller gets nil. A resource that was never
// created, or failed to create, is not released.
func (f *finalizer) releaseLast(ctx context.Context) error {
	if f.remaining.Add(-1) != 0 {
		return nil
	}

	f.cell.mu.Lock()
	state, value := f.cell.state, f.cell.value
	f.cell.mu.Unlock()
	if state != resourceCreated || f.release == nil {
		return nil
	}

	logger := ctxlog.FromContext(ctx).With("resource", f.cell.name)
	logger.Debug("Releasing resource.")
	if err := runRelease(f.release, value); err != nil {
		logger.Debug("Resource release failed.", "error", err)
		return fmt.Errorf("resource %q failed to release: %w", f.cell.name, err)
	}
	logger.Debug("Resource released.")
	return nil
}

// runRelease confines panics from the release action to an error return.
func runRelease(release func(any) error, value any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release panicked: %v", r)
		}
	}()
	return release(value)
}
