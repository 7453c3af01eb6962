package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/coot/tasty"
	"github.com/coot/tasty/console"
	"github.com/coot/tasty/internal/cli"
	"github.com/coot/tasty/internal/ctxlog"
)

// main is the entrypoint for the demo suite runner.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse("tasty-demo", args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := cli.NewLogger(cfg, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	reporter := console.New(outW)
	summary, err := reporter.Report(ctx, cfg.Options(), demoTree())
	if err != nil {
		return err
	}
	if !summary.OK() {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("%d of %d tests failed", summary.Failures, summary.Total)}
	}
	return nil
}

// wordStore is the shared resource of the demo suite.
type wordStore struct {
	words []string
}

// demoTree builds a small suite: two independent leaves plus a group sharing
// one lazily-created store.
func demoTree() tasty.Tree {
	spec := tasty.ResourceSpec{
		Acquire: func(ctx context.Context) (any, error) {
			return &wordStore{words: []string{"compile", "launch", "observe"}}, nil
		},
		Release: func(value any) error {
			value.(*wordStore).words = nil
			return nil
		},
	}

	return tasty.TestGroup("demo",
		tasty.TestCase("addition", func(ctx context.Context, progress func(tasty.Progress)) error {
			if 2+2 != 4 {
				return fmt.Errorf("arithmetic is broken")
			}
			return nil
		}),
		tasty.WithResource("word store", spec, func(store tasty.Supplier) tasty.Tree {
			return tasty.TestGroup("store",
				tasty.TestCase("has words", func(ctx context.Context, progress func(tasty.Progress)) error {
					v, err := store()
					if err != nil {
						return err
					}
					if len(v.(*wordStore).words) == 0 {
						return fmt.Errorf("store is empty")
					}
					return nil
				}),
				tasty.TestCase("joins words", func(ctx context.Context, progress func(tasty.Progress)) error {
					v, err := store()
					if err != nil {
						return err
					}
					joined := strings.Join(v.(*wordStore).words, " ")
					if !strings.Contains(joined, "launch") {
						return fmt.Errorf("unexpected words %q", joined)
					}
					return nil
				}),
			)
		}),
	)
}
