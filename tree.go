package tasty

import "context"

// Test is the body of a single leaf test. A nil return is a pass. The body
// must treat ctx cancellation as a request to stop; cancellation is
// best-effort and a body that ignores it only delays its own goroutine, not
// the rest of the run. The progress callback may be called at any time to
// update the test's live status; passing it a no-op observer is valid.
type Test func(ctx context.Context, progress func(Progress)) error

// Supplier fetches the value of a shared resource. It only succeeds after the
// resource has been acquired; calling it earlier, or after a failed acquire,
// returns ErrResourceNotCreated. Test bodies built under WithResource call it
// inside the body, never while the tree is being constructed.
type Supplier func() (any, error)

// ResourceSpec describes how to bring one shared resource up and down.
// Acquire runs at most once per run, on whichever test reaches it first;
// Release runs at most once, after the last dependent test has finished.
type ResourceSpec struct {
	Acquire func(ctx context.Context) (any, error)
	Release func(value any) error
}

// Tree is a hierarchical description of tests. The three shapes are built
// with TestCase, TestGroup and WithResource.
type Tree interface {
	isTree()
}

type leafNode struct {
	name string
	run  Test
}

type groupNode struct {
	name     string
	children []Tree
}

type resourceNode struct {
	name  string
	spec  ResourceSpec
	build func(Supplier) Tree
}

func (leafNode) isTree()     {}
func (groupNode) isTree()    {}
func (resourceNode) isTree() {}

// TestCase returns a leaf running a single test body.
func TestCase(name string, run Test) Tree {
	return leafNode{name: name, run: run}
}

// TestGroup returns an ordered collection of subtrees.
func TestGroup(name string, children ...Tree) Tree {
	return groupNode{name: name, children: children}
}

// WithResource introduces a shared resource for every test in the subtree
// that build returns. The name identifies the resource in failure
// descriptions and logs.
func WithResource(name string, spec ResourceSpec, build func(Supplier) Tree) Tree {
	return resourceNode{name: name, spec: spec, build: build}
}

// Folder holds one callback per tree shape for Fold.
type Folder[A any] struct {
	Leaf     func(path []string, name string, run Test) A
	Group    func(name string, children []A) A
	Resource func(name string, spec ResourceSpec, build func(Supplier) A) A
}

// Fold reduces a tree bottom-up. The Leaf callback receives the names of the
// enclosing groups, outermost first. Resource subtrees are reduced through a
// function of the supplier so the folder decides if and how the subtree is
// entered; structural folds pass a supplier that must not be invoked.
func Fold[A any](t Tree, f Folder[A]) A {
	return foldAt(t, f, nil)
}

func foldAt[A any](t Tree, f Folder[A], path []string) A {
	switch n := t.(type) {
	case leafNode:
		return f.Leaf(path, n.name, n.run)
	case groupNode:
		childPath := make([]string, len(path), len(path)+1)
		copy(childPath, path)
		childPath = append(childPath, n.name)
		children := make([]A, 0, len(n.children))
		for _, c := range n.children {
			children = append(children, foldAt(c, f, childPath))
		}
		return f.Group(n.name, children)
	case resourceNode:
		return f.Resource(n.name, n.spec, func(s Supplier) A {
			return foldAt(n.build(s), f, path)
		})
	default:
		panic("tasty: unknown tree node")
	}
}

// structuralSupplier stands in for a real resource while a tree is only being
// inspected, not run.
func structuralSupplier() (any, error) {
	return nil, ErrResourceNotCreated
}

// Names returns the full name of every leaf in traversal order, enclosing
// group names joined with "/". Index i of the result names the test with
// status index i after compilation.
func Names(t Tree) []string {
	return Fold(t, Folder[[]string]{
		Leaf: func(path []string, name string, _ Test) []string {
			full := name
			for i := len(path) - 1; i >= 0; i-- {
				full = path[i] + "/" + full
			}
			return []string{full}
		},
		Group: func(_ string, children [][]string) []string {
			var out []string
			for _, c := range children {
				out = append(out, c...)
			}
			return out
		},
		Resource: func(_ string, _ ResourceSpec, build func(Supplier) []string) []string {
			return build(structuralSupplier)
		},
	})
}

// NumTests returns the number of leaf tests in the tree. The count is purely
// structural; no acquire or release action is invoked.
func NumTests(t Tree) int {
	return Fold(t, Folder[int]{
		Leaf: func([]string, string, Test) int { return 1 },
		Group: func(_ string, children []int) int {
			total := 0
			for _, c := range children {
				total += c
			}
			return total
		},
		Resource: func(_ string, _ ResourceSpec, build func(Supplier) int) int {
			return build(structuralSupplier)
		},
	})
}
