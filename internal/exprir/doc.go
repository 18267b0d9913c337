// Package exprir provides the expression tree used to build SQL query
// fragments programmatically.
//
// The tree sits between clause builders and SQL rendering:
//
//	[virtualrow.Row] → [exprir tree] → [querysql]
//	                                 → [tablerefs] (join planning)
//
// NODE KINDS:
//
//   - Literal: a value rendered inline
//   - SQL: raw SQL text, passed through untouched
//   - BindParam: a value rendered as a parameter placeholder
//   - Attribute: a column of a Table or TableAlias
//   - NamedFunction: name(args...)
//   - Unary: a single-operand operator (NOT, DESC, NULLS FIRST, grouping)
//   - Binary: a two-operand operator (comparison, arithmetic, AND/OR)
//   - Table and TableAlias: relations
//
// SEALED INTERFACES:
//
// Node and Relation are sealed using the marker method pattern. Only types
// in this package implement them, so consumers can write exhaustive type
// switches:
//
//	switch n := node.(type) {
//	case *Table:
//	case *TableAlias:
//	case *Attribute:
//	case *Unary:
//	case *Binary:
//	default:
//	    // leaf kinds
//	}
//
// Nodes are immutable after construction. Builders in this package always
// allocate a new parent and never modify their operands. A finished tree can
// be shared across goroutines for reading.
package exprir
