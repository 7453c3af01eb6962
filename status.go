package tasty

import (
	"context"
	"sync"
)

// StatusKind is the lifecycle phase of one test.
type StatusKind int

const (
	// NotStarted means no worker has picked the test up yet.
	NotStarted StatusKind = iota
	// Executing means the test is between its first acquire and its final
	// status write.
	Executing
	// Done means the test has its final Result. A cell reaches Done exactly
	// once and never leaves it.
	Done
)

// Status is a snapshot of one test's lifecycle.
type Status struct {
	Kind StatusKind
	// Progress is the latest progress report; meaningful while Executing.
	Progress Progress
	// Result is the final outcome; meaningful once Done.
	Result Result
}

// StatusCell tracks one test's Status. It has a single writer, the execution
// protocol instance for that test, and any number of concurrent readers.
type StatusCell struct {
	mu     sync.RWMutex
	status Status
	done   chan struct{}
}

func newStatusCell() *StatusCell {
	return &StatusCell{done: make(chan struct{})}
}

// Load returns the current status snapshot.
func (c *StatusCell) Load() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Done returns a channel closed when the cell reaches the Done state.
func (c *StatusCell) Done() <-chan struct{} {
	return c.done
}

// setExecuting moves the cell to Executing with the given progress. It is a
// no-op once the cell is Done, so a late progress report from a cancelled
// body cannot revert a final status.
func (c *StatusCell) setExecuting(p Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Kind == Done {
		return
	}
	c.status = Status{Kind: Executing, Progress: p}
}

// setDone records the final result. Only the first call takes effect.
func (c *StatusCell) setDone(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Kind == Done {
		return
	}
	c.status = Status{Kind: Done, Result: r}
	close(c.done)
}

// StatusMap maps each test's dense index, assigned in tree traversal order
// starting at 0, to its status cell. It is created by Launch, never shrinks,
// and stays valid for the lifetime of one run.
type StatusMap map[int]*StatusCell

// Wait blocks until every cell has reached Done, or until ctx is cancelled,
// in which case it returns ctx's error.
func (m StatusMap) Wait(ctx context.Context) error {
	for i := 0; i < len(m); i++ {
		select {
		case <-m[i].Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Failures returns the indices of tests that finished with a failure.
// Cells not yet Done are not counted.
func (m StatusMap) Failures() []int {
	var failed []int
	for i := 0; i < len(m); i++ {
		st := m[i].Load()
		if st.Kind == Done && !st.Result.OK() {
			failed = append(failed, i)
		}
	}
	return failed
}
