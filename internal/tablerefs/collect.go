package tablerefs

import (
	"github.com/roach88/virtualrow/internal/exprir"
)

// ReferenceSet is the ordered sequence of table names found in a tree.
// Duplicates are kept; order is visit order.
type ReferenceSet []string

// Unique returns the names with duplicates removed, keeping the first
// occurrence of each.
func (s ReferenceSet) Unique() []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, name := range s {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Contains reports whether name was referenced at least once.
func (s ReferenceSet) Contains(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

// Collector walks expression trees and collects table references.
//
// The zero value is ready to use and bounds recursion at
// exprir.DefaultMaxDepth. A Collector holds no state between calls and is
// safe for concurrent use.
type Collector struct {
	// MaxDepth bounds recursion. Zero means exprir.DefaultMaxDepth.
	MaxDepth int
}

// Collect walks root with a zero-value Collector.
func Collect(root exprir.Node) (ReferenceSet, error) {
	return Collector{}.Collect(root)
}

// Collect returns every table and alias name reachable from root.
//
// On a cycle or when MaxDepth is exceeded it returns a *TraversalError
// with code MALFORMED_TREE and no references.
func (c Collector) Collect(root exprir.Node) (ReferenceSet, error) {
	maxDepth := c.MaxDepth
	if maxDepth <= 0 {
		maxDepth = exprir.DefaultMaxDepth
	}

	w := &walker{
		maxDepth: maxDepth,
		refs:     ReferenceSet{},
		onPath:   make(map[exprir.Node]struct{}),
	}
	if err := w.visit(root, 0); err != nil {
		return nil, err
	}
	return w.refs, nil
}

// walker holds the state of one traversal.
type walker struct {
	maxDepth int
	refs     ReferenceSet
	onPath   map[exprir.Node]struct{}
}

// visit dispatches on the node kind. Kinds without table content are
// no-ops.
func (w *walker) visit(n exprir.Node, depth int) error {
	if n == nil {
		return nil
	}
	if exprir.IsNil(n) {
		return newNilNodeError(depth, n)
	}
	if depth > w.maxDepth {
		return newDepthError(depth, w.maxDepth, n)
	}
	if _, seen := w.onPath[n]; seen {
		return newCycleError(depth, n)
	}
	w.onPath[n] = struct{}{}
	defer delete(w.onPath, n)

	switch node := n.(type) {
	case *exprir.Table:
		w.refs = append(w.refs, node.Name)
	case *exprir.TableAlias:
		// The alias is what generated SQL refers to
		w.refs = append(w.refs, node.Name)
	case *exprir.Attribute:
		if node.Relation != nil {
			return w.visit(node.Relation, depth+1)
		}
	case *exprir.Unary:
		return w.visit(node.Expr, depth+1)
	case *exprir.Binary:
		if err := w.visit(node.Left, depth+1); err != nil {
			return err
		}
		return w.visit(node.Right, depth+1)
	default:
		// Literal, SQL, BindParam, NamedFunction
	}
	return nil
}
