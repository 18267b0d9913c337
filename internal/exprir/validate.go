package exprir

import (
	"fmt"
)

// DefaultMaxDepth bounds recursion for walkers over expression trees.
// Hand-built clauses nest a few dozen levels at most.
const DefaultMaxDepth = 4096

// ValidationResult contains the structural analysis of a tree.
type ValidationResult struct {
	// IsWellFormed is true when no warnings were recorded.
	IsWellFormed bool

	// Warnings lists each structural problem found, in visit order.
	Warnings []string
}

// Validate checks that a tree is structurally sound.
//
// Rules:
//  1. Operands of Unary and Binary nodes are non-nil
//  2. Tables, aliases, attributes and functions carry a name
//  3. Attributes have a relation; aliases wrap a table
//  4. The tree has no cycles and stays within DefaultMaxDepth
//
// Validate does not check SQL semantics (operator/operand compatibility,
// column existence). It is a pure function with no side effects.
func Validate(root Node) ValidationResult {
	v := &validator{
		warnings: []string{},
		onPath:   make(map[Node]struct{}),
	}
	if IsNil(root) {
		v.addWarning("nil root node")
	} else {
		v.validateNode(root, 0)
	}

	return ValidationResult{
		IsWellFormed: len(v.warnings) == 0,
		Warnings:     v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
	onPath   map[Node]struct{}
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateNode recursively validates a node and its children.
func (v *validator) validateNode(n Node, depth int) {
	if depth > DefaultMaxDepth {
		v.addWarning("tree deeper than %d levels", DefaultMaxDepth)
		return
	}
	if IsNil(n) {
		v.addWarning("nil %T node", n)
		return
	}
	if _, seen := v.onPath[n]; seen {
		v.addWarning("cycle through %T", n)
		return
	}
	v.onPath[n] = struct{}{}
	defer delete(v.onPath, n)

	switch node := n.(type) {
	case *Literal, *SQL, *BindParam:
		// Leaves carry arbitrary values
	case *Table:
		if node.Name == "" {
			v.addWarning("table with empty name")
		}
	case *TableAlias:
		if node.Name == "" {
			v.addWarning("table alias with empty name")
		}
		if IsNil(node.Relation) {
			v.addWarning("table alias %q has no underlying table", node.Name)
		} else {
			v.validateNode(node.Relation, depth+1)
		}
	case *Attribute:
		if node.Name == "" {
			v.addWarning("attribute with empty column name")
		}
		if IsNil(node.Relation) {
			v.addWarning("attribute %q has no relation", node.Name)
		} else {
			v.validateNode(node.Relation, depth+1)
		}
	case *NamedFunction:
		if node.Name == "" {
			v.addWarning("function call with empty name")
		}
		for i, arg := range node.Args {
			if arg == nil {
				v.addWarning("function %q argument %d is nil", node.Name, i)
				continue
			}
			v.validateNode(arg, depth+1)
		}
	case *Unary:
		if node.Expr == nil {
			v.addWarning("unary %s has nil operand", node.Op)
			return
		}
		v.validateNode(node.Expr, depth+1)
	case *Binary:
		if node.Left == nil {
			v.addWarning("binary %s has nil left operand", node.Op)
		} else {
			v.validateNode(node.Left, depth+1)
		}
		if node.Right == nil {
			v.addWarning("binary %s has nil right operand", node.Op)
		} else {
			v.validateNode(node.Right, depth+1)
		}
	default:
		v.addWarning("unknown node type: %T", n)
	}
}
