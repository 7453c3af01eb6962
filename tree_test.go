package tasty

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTree(acquires *atomic.Int32) Tree {
	spec := ResourceSpec{
		Acquire: func(ctx context.Context) (any, error) {
			if acquires != nil {
				acquires.Add(1)
			}
			return 1, nil
		},
		Release: func(value any) error { return nil },
	}
	return TestGroup("suite",
		TestCase("standalone", noopTest),
		WithResource("db", spec, func(db Supplier) Tree {
			return TestGroup("db tests",
				TestCase("read", noopTest),
				TestCase("write", noopTest),
			)
		}),
	)
}

func TestNamesListsLeavesInTraversalOrder(t *testing.T) {
	require.Equal(t, []string{
		"suite/standalone",
		"suite/db tests/read",
		"suite/db tests/write",
	}, Names(sampleTree(nil)))
}

func TestNumTestsIsStructural(t *testing.T) {
	var acquires atomic.Int32
	tree := sampleTree(&acquires)

	require.Equal(t, 3, NumTests(tree))
	require.EqualValues(t, 0, acquires.Load(), "counting must not touch resources")

	require.Equal(t, 0, NumTests(TestGroup("empty")))
}

func TestFoldVisitsEveryShape(t *testing.T) {
	type visit struct {
		kind string
		name string
	}
	var visits []visit

	Fold(sampleTree(nil), Folder[struct{}]{
		Leaf: func(path []string, name string, _ Test) struct{} {
			visits = append(visits, visit{"leaf", name})
			return struct{}{}
		},
		Group: func(name string, _ []struct{}) struct{} {
			visits = append(visits, visit{"group", name})
			return struct{}{}
		},
		Resource: func(name string, _ ResourceSpec, build func(Supplier) struct{}) struct{} {
			visits = append(visits, visit{"resource", name})
			return build(func() (any, error) { return nil, ErrResourceNotCreated })
		},
	})

	require.Equal(t, []visit{
		{"leaf", "standalone"},
		{"resource", "db"},
		{"leaf", "read"},
		{"leaf", "write"},
		{"group", "db tests"},
		{"group", "suite"},
	}, visits)
}
