// Package console reports run results to a writer, one line per test in
// index order. It lives entirely outside the execution core: it only reads
// the tree for names and the status map for outcomes.
package console

import (
	"context"
	"fmt"
	"io"

	"github.com/coot/tasty"
	"github.com/coot/tasty/internal/ctxlog"
)

// Summary is the aggregate outcome of one reported run.
type Summary struct {
	Total    int
	Failures int
}

// OK reports whether every test passed.
func (s Summary) OK() bool {
	return s.Failures == 0
}

// Reporter streams results in test index order as cells reach Done.
type Reporter struct {
	out io.Writer
}

// New returns a reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Report launches the tree with the given options and streams its results,
// blocking until the run finishes or ctx is cancelled. Tests later in index
// order than a still-running test are reported only once their turn comes,
// which keeps the output stable regardless of scheduling.
func (r *Reporter) Report(ctx context.Context, opts tasty.Options, tree tasty.Tree) (Summary, error) {
	statuses, err := tasty.Launch(ctx, opts, tree)
	if err != nil {
		return Summary{}, err
	}
	return r.observe(ctx, tasty.Names(tree), statuses)
}

// observe waits on the given cells in index order and prints one line each.
func (r *Reporter) observe(ctx context.Context, names []string, statuses tasty.StatusMap) (Summary, error) {
	logger := ctxlog.FromContext(ctx)
	summary := Summary{Total: len(statuses)}

	for i := 0; i < len(statuses); i++ {
		cell := statuses[i]
		select {
		case <-cell.Done():
		case <-ctx.Done():
			return summary, ctx.Err()
		}

		st := cell.Load()
		name := fmt.Sprintf("test #%d", i)
		if i < len(names) {
			name = names[i]
		}

		if st.Result.OK() {
			fmt.Fprintf(r.out, "ok    %s (%s)\n", name, st.Result.Duration)
			continue
		}
		summary.Failures++
		logger.Debug("Reporting failed test.", "test", name, "reason", st.Result.Failure.Reason.String())
		fmt.Fprintf(r.out, "FAIL  %s (%s): %s: %s\n",
			name, st.Result.Duration, st.Result.Failure.Reason, st.Result.Description)
	}

	if summary.OK() {
		fmt.Fprintf(r.out, "\nall %d tests passed\n", summary.Total)
	} else {
		fmt.Fprintf(r.out, "\n%d of %d tests failed\n", summary.Failures, summary.Total)
	}
	return summary, nil
}
