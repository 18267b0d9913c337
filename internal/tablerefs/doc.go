// Package tablerefs collects the table references of an expression tree.
//
// The collected ReferenceSet feeds join planning: every table or alias a
// clause mentions must be present in the FROM list of the final query.
//
// Collection follows relations, not values. Attributes lead to their table,
// unary and binary nodes lead to their operands, and every other node kind
// (literals, bind parameters, raw SQL, function calls) contributes nothing.
// Function arguments are not inspected.
//
// The set preserves encounter order and duplicates. Callers that need a set
// use ReferenceSet.Unique.
package tablerefs
