package tasty

import (
	"errors"
	"fmt"
	"strings"
)

// compile walks the tree exactly once and flattens it into one compiledTest
// plus one status cell per leaf, indices assigned in traversal order. Resource
// nodes allocate their cell and finalizer here; acquire and release actions
// are never invoked during compilation.
func compile(opts Options, tree Tree) ([]*compiledTest, StatusMap, error) {
	c := &compiler{
		opts:     opts,
		statuses: make(StatusMap),
	}
	if err := c.walk(tree, nil); err != nil {
		return nil, nil, err
	}
	return c.tests, c.statuses, nil
}

type compiler struct {
	opts     Options
	tests    []*compiledTest
	statuses StatusMap
}

// walk compiles one subtree and returns, via c.tests, the leaves it emitted.
// path carries the enclosing group names for the leaf's full name.
func (c *compiler) walk(tree Tree, path []string) error {
	switch n := tree.(type) {
	case nil:
		return errors.New("nil test tree")

	case leafNode:
		if n.run == nil {
			return fmt.Errorf("test %q has no body", n.name)
		}
		cell := newStatusCell()
		index := len(c.tests)
		c.statuses[index] = cell
		c.tests = append(c.tests, &compiledTest{
			index:   index,
			name:    leafName(path, n.name),
			run:     n.run,
			timeout: c.opts.Timeout,
			cell:    cell,
		})
		return nil

	case groupNode:
		childPath := make([]string, len(path), len(path)+1)
		copy(childPath, path)
		childPath = append(childPath, n.name)
		for _, child := range n.children {
			if err := c.walk(child, childPath); err != nil {
				return err
			}
		}
		return nil

	case resourceNode:
		if n.spec.Acquire == nil {
			return fmt.Errorf("resource %q has no acquire action", n.name)
		}
		if n.build == nil {
			return fmt.Errorf("resource %q has no subtree builder", n.name)
		}

		cell := newResourceCell(n.name, n.spec)
		first := len(c.tests)
		if err := c.walk(n.build(cell.supplier()), path); err != nil {
			return err
		}
		produced := c.tests[first:]

		// The finalizer countdown equals the number of leaves in this
		// subtree; the count comes from the traversal itself, no second
		// pass and no action invocation.
		fin := newFinalizer(cell, n.spec, len(produced))
		for _, t := range produced {
			// Appending the outer resource behind the entries its subtree
			// already added keeps the acquire walk innermost-first, with
			// this node acquired last among its segment; the release phase
			// walks the same order backwards.
			t.acquires = append(t.acquires, cell)
			t.finalizers = append(t.finalizers, fin)
		}
		return nil

	default:
		return fmt.Errorf("unknown tree node %T", tree)
	}
}

func leafName(path []string, name string) string {
	if len(path) == 0 {
		return name
	}
	return strings.Join(path, "/") + "/" + name
}
