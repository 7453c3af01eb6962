package tasty

import (
	"context"

	"github.com/coot/tasty/dispatch"
	"github.com/coot/tasty/internal/ctxlog"
)

// Launch compiles the tree and starts executing it with bounded parallelism.
// It returns the status map immediately; the run proceeds concurrently in the
// background and callers observe completion by watching the cells, typically
// via StatusMap.Wait. Cancelling ctx stops the run: in-flight and queued
// tests resolve their cells with a cancellation failure instead of hanging.
func Launch(ctx context.Context, opts Options, tree Tree) (StatusMap, error) {
	opts = opts.withDefaults()
	logger := ctxlog.FromContext(ctx)

	tests, statuses, err := compile(opts, tree)
	if err != nil {
		return nil, err
	}
	logger.Debug("Test tree compiled.", "tests", len(tests), "workers", opts.Workers)

	actions := make([]dispatch.Action, len(tests))
	for i, t := range tests {
		actions[i] = t.execute
	}
	dispatch.Start(ctx, opts.Workers, actions)
	return statuses, nil
}

// Run is Launch followed by waiting for every test to finish. It returns the
// completed status map; a cancelled ctx surfaces as its error.
func Run(ctx context.Context, opts Options, tree Tree) (StatusMap, error) {
	statuses, err := Launch(ctx, opts, tree)
	if err != nil {
		return nil, err
	}
	if err := statuses.Wait(ctx); err != nil {
		return statuses, err
	}
	return statuses, nil
}
