package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEveryActionRunsExactlyOnce(t *testing.T) {
	const n = 20
	runs := make([]atomic.Int32, n)
	actions := make([]Action, n)
	for i := range actions {
		i := i
		actions[i] = func(ctx context.Context) {
			runs[i].Add(1)
		}
	}

	Start(context.Background(), 4, actions).Wait()

	for i := range runs {
		require.EqualValues(t, 1, runs[i].Load(), "action %d", i)
	}
}

func TestConcurrencyIsBoundedByWorkerCount(t *testing.T) {
	const workers = 3
	var running, peak atomic.Int32

	actions := make([]Action, 12)
	for i := range actions {
		actions[i] = func(ctx context.Context) {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		}
	}

	Start(context.Background(), workers, actions).Wait()
	require.LessOrEqual(t, peak.Load(), int32(workers))
	require.Positive(t, peak.Load())
}

func TestNonPositiveWorkerCountFallsBackToOne(t *testing.T) {
	var runs atomic.Int32
	actions := []Action{
		func(ctx context.Context) { runs.Add(1) },
		func(ctx context.Context) { runs.Add(1) },
	}

	Start(context.Background(), 0, actions).Wait()
	require.EqualValues(t, 2, runs.Load())
}

func TestActionsStillRunAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs atomic.Int32
	actions := []Action{
		func(ctx context.Context) { runs.Add(1) },
		func(ctx context.Context) { runs.Add(1) },
		func(ctx context.Context) { runs.Add(1) },
	}

	// Actions own their cancellation behavior; the pool's job is only to get
	// each of them called so they can resolve their own state.
	Start(ctx, 2, actions).Wait()
	require.EqualValues(t, 3, runs.Load())
}

func TestWaitReturnsOnEmptyActionList(t *testing.T) {
	done := make(chan struct{})
	go func() {
		Start(context.Background(), 4, nil).Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return for an empty action list")
	}
}
