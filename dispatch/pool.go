// Package dispatch runs a flat list of actions across a bounded pool of
// worker goroutines. It guarantees only that every action runs exactly once
// with at most the configured number running concurrently; it imposes no
// ordering among actions and never inspects what they do.
package dispatch

import (
	"context"
	"sync"

	"github.com/coot/tasty/internal/ctxlog"
)

// Action is one unit of work. Actions are expected to handle cancellation of
// ctx themselves; the pool keeps draining the queue after cancellation so
// every action gets the chance to resolve its own state.
type Action func(ctx context.Context)

// Pool is a running dispatch of one action list.
type Pool struct {
	wg sync.WaitGroup
}

// Start launches workers goroutines over the given actions and returns
// immediately. A non-positive worker count falls back to a single worker.
func Start(ctx context.Context, workers int, actions []Action) *Pool {
	if workers < 1 {
		workers = 1
	}
	if workers > len(actions) {
		workers = len(actions)
	}

	p := &Pool{}
	p.wg.Add(len(actions))

	queue := make(chan Action, len(actions))
	for _, a := range actions {
		queue <- a
	}
	close(queue)

	for i := 0; i < workers; i++ {
		go p.worker(ctx, queue, i)
	}
	return p
}

// worker is the processing loop for a single concurrent worker.
func (p *Pool) worker(ctx context.Context, queue <-chan Action, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	logger.Debug("Worker started.")

	for a := range queue {
		a(ctx)
		p.wg.Done()
	}
	logger.Debug("Worker finished.")
}

// Wait blocks until every action has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
