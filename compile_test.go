package tasty

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func noopTest(ctx context.Context, progress func(Progress)) error { return nil }

func TestCompileAssignsDenseIndicesInTraversalOrder(t *testing.T) {
	tree := TestGroup("root",
		TestCase("a", noopTest),
		TestGroup("sub",
			TestCase("b", noopTest),
			TestCase("c", noopTest),
		),
		TestCase("d", noopTest),
	)

	tests, statuses, err := compile(Options{}, tree)
	require.NoError(t, err)
	require.Len(t, tests, 4)
	require.Len(t, statuses, 4)

	require.Equal(t, []string{"root/a", "root/sub/b", "root/sub/c", "root/d"}, Names(tree))
	for i, ct := range tests {
		require.Equal(t, i, ct.index)
		require.Equal(t, Names(tree)[i], ct.name)
		require.Same(t, statuses[i], ct.cell)
		require.Equal(t, NotStarted, statuses[i].Load().Kind)
	}
}

func TestCompileNeverInvokesResourceActions(t *testing.T) {
	var acquires, releases atomic.Int32
	spec := ResourceSpec{
		Acquire: func(ctx context.Context) (any, error) {
			acquires.Add(1)
			return 1, nil
		},
		Release: func(value any) error {
			releases.Add(1)
			return nil
		},
	}
	tree := WithResource("db", spec, func(db Supplier) Tree {
		return TestGroup("g", TestCase("a", noopTest), TestCase("b", noopTest))
	})

	_, _, err := compile(Options{}, tree)
	require.NoError(t, err)
	require.EqualValues(t, 0, acquires.Load())
	require.EqualValues(t, 0, releases.Load())
}

func TestCompileFinalizerCountdownEqualsSubtreeLeaves(t *testing.T) {
	spec := ResourceSpec{
		Acquire: func(ctx context.Context) (any, error) { return 1, nil },
		Release: func(value any) error { return nil },
	}
	tree := WithResource("db", spec, func(db Supplier) Tree {
		return TestGroup("g",
			TestCase("a", noopTest),
			TestGroup("nested", TestCase("b", noopTest)),
			TestCase("c", noopTest),
		)
	})

	tests, _, err := compile(Options{}, tree)
	require.NoError(t, err)
	require.Len(t, tests, 3)

	fin := tests[0].finalizers[0]
	for _, ct := range tests {
		require.Len(t, ct.acquires, 1)
		require.Same(t, fin, ct.finalizers[0], "all dependents share one finalizer entry")
	}
	require.EqualValues(t, 3, fin.remaining.Load())
}

func TestNestedResourceChainOrdering(t *testing.T) {
	var mu sync.Mutex
	var log []string
	record := func(event string) {
		mu.Lock()
		defer mu.Unlock()
		log = append(log, event)
	}
	specFor := func(name string) ResourceSpec {
		return ResourceSpec{
			Acquire: func(ctx context.Context) (any, error) {
				record("acquire " + name)
				return name, nil
			},
			Release: func(value any) error {
				record("release " + name)
				return nil
			},
		}
	}

	tree := WithResource("R1", specFor("R1"), func(r1 Supplier) Tree {
		return WithResource("R2", specFor("R2"), func(r2 Supplier) Tree {
			return TestCase("leaf", func(ctx context.Context, progress func(Progress)) error {
				record("body")
				return nil
			})
		})
	})

	tests, _, err := compile(Options{}, tree)
	require.NoError(t, err)
	require.Len(t, tests, 1)

	tests[0].execute(context.Background())
	require.True(t, tests[0].cell.Load().Result.OK())

	// Inner resources are acquired before their ancestors; the invoked
	// release order is the exact element-wise reverse.
	require.Equal(t, []string{
		"acquire R2",
		"acquire R1",
		"body",
		"release R1",
		"release R2",
	}, log)
}

func TestSupplierSeesValueOnlyDuringRun(t *testing.T) {
	spec := ResourceSpec{
		Acquire: func(ctx context.Context) (any, error) { return "ready", nil },
		Release: func(value any) error { return nil },
	}

	var outside Supplier
	tree := WithResource("db", spec, func(db Supplier) Tree {
		outside = db
		return TestCase("uses db", func(ctx context.Context, progress func(Progress)) error {
			v, err := db()
			if err != nil {
				return err
			}
			if v != "ready" {
				return fmt.Errorf("unexpected resource value %v", v)
			}
			return nil
		})
	})

	tests, _, err := compile(Options{}, tree)
	require.NoError(t, err)

	// Before the run the resource does not exist; fetching it is an
	// internal-state error, not a test outcome.
	_, err = outside()
	require.ErrorIs(t, err, ErrResourceNotCreated)

	tests[0].execute(context.Background())
	require.True(t, tests[0].cell.Load().Result.OK())
}

func TestCompileRejectsMalformedTrees(t *testing.T) {
	_, _, err := compile(Options{}, nil)
	require.Error(t, err)

	_, _, err = compile(Options{}, TestCase("empty", nil))
	require.ErrorContains(t, err, "empty")

	_, _, err = compile(Options{}, WithResource("db", ResourceSpec{}, func(Supplier) Tree {
		return TestCase("a", noopTest)
	}))
	require.ErrorContains(t, err, "acquire")

	spec := ResourceSpec{Acquire: func(ctx context.Context) (any, error) { return 1, nil }}
	_, _, err = compile(Options{}, WithResource("db", spec, nil))
	require.ErrorContains(t, err, "builder")
}
