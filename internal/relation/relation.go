package relation

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/virtualrow/internal/catalog"
	"github.com/roach88/virtualrow/internal/exprir"
	"github.com/roach88/virtualrow/internal/tablerefs"
	"github.com/roach88/virtualrow/internal/virtualrow"
)

// Block builds one expression from a row bound to the relation's table.
type Block func(row *virtualrow.Row) (exprir.Node, error)

// ListBlock builds several expressions from a row bound to the relation's
// table.
type ListBlock func(row *virtualrow.Row) ([]exprir.Node, error)

// Clause names a part of a query.
type Clause string

const (
	ClauseSelect Clause = "select"
	ClauseWhere  Clause = "where"
	ClauseGroup  Clause = "group"
	ClauseHaving Clause = "having"
	ClauseOrder  Clause = "order"
)

// ClauseError reports a block that failed or returned a malformed tree.
type ClauseError struct {
	Clause   Clause
	Warnings []string
	Err      error
}

func (e *ClauseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s clause: %v", e.Clause, e.Err)
	}
	return fmt.Sprintf("%s clause: malformed expression: %s", e.Clause, strings.Join(e.Warnings, "; "))
}

func (e *ClauseError) Unwrap() error { return e.Err }

// AmbiguousJoinError reports two association paths that reach tables
// under the same name. Generated SQL could only join one of them.
type AmbiguousJoinError struct {
	Ref    string
	First  string
	Second string
}

func (e *AmbiguousJoinError) Error() string {
	return fmt.Sprintf("%s is reached through both %s and %s; declare an alias on one of the associations",
		e.Ref, e.First, e.Second)
}

// ErrNegative is returned by Limit and Offset for negative counts.
var ErrNegative = errors.New("count must not be negative")

// Relation is an immutable query over one catalog table. Every builder
// returns a new Relation; on error the receiver is returned unchanged.
//
// Each block receives a fresh virtualrow.Row, so resolutions never leak
// between clauses.
type Relation struct {
	schema  *catalog.Schema
	table   *catalog.Table
	selects []exprir.Node
	wheres  []exprir.Node
	groups  []exprir.Node
	havings []exprir.Node
	orders  []exprir.Node
	limit   int // -1 means none
	offset  int

	// paths maps each relation name reached by a block to the association
	// names walked from the base table. The base maps to an empty path.
	paths map[string][]string
}

// New starts a relation over the named table.
func New(schema *catalog.Schema, table string) (*Relation, error) {
	t, ok := schema.Table(table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return &Relation{
		schema: schema,
		table:  t,
		limit:  -1,
		paths:  map[string][]string{t.Name: {}},
	}, nil
}

// Schema returns the catalog the relation resolves against.
func (r *Relation) Schema() *catalog.Schema { return r.schema }

// Table returns the relation's base table.
func (r *Relation) Table() *catalog.Table { return r.table }

// Select appends the block's expressions to the selection.
func (r *Relation) Select(block ListBlock) (*Relation, error) {
	nodes, paths, err := r.evalList(ClauseSelect, block)
	if err != nil {
		return r, err
	}
	next := r.clone()
	next.paths = paths
	next.selects = append(next.selects, nodes...)
	return next, nil
}

// Reselect replaces the selection with the block's expressions.
func (r *Relation) Reselect(block ListBlock) (*Relation, error) {
	nodes, paths, err := r.evalList(ClauseSelect, block)
	if err != nil {
		return r, err
	}
	next := r.clone()
	next.paths = paths
	next.selects = nodes
	return next, nil
}

// Where adds a condition. Conditions are combined with AND.
func (r *Relation) Where(block Block) (*Relation, error) {
	node, paths, err := r.eval(ClauseWhere, block)
	if err != nil {
		return r, err
	}
	next := r.clone()
	next.paths = paths
	next.wheres = append(next.wheres, node)
	return next, nil
}

// Having adds a group condition. Conditions are combined with AND.
func (r *Relation) Having(block Block) (*Relation, error) {
	node, paths, err := r.eval(ClauseHaving, block)
	if err != nil {
		return r, err
	}
	next := r.clone()
	next.paths = paths
	next.havings = append(next.havings, node)
	return next, nil
}

// Group appends grouping expressions.
func (r *Relation) Group(block ListBlock) (*Relation, error) {
	nodes, paths, err := r.evalList(ClauseGroup, block)
	if err != nil {
		return r, err
	}
	next := r.clone()
	next.paths = paths
	next.groups = append(next.groups, nodes...)
	return next, nil
}

// Order appends ordering expressions.
func (r *Relation) Order(block ListBlock) (*Relation, error) {
	nodes, paths, err := r.evalList(ClauseOrder, block)
	if err != nil {
		return r, err
	}
	next := r.clone()
	next.paths = paths
	next.orders = append(next.orders, nodes...)
	return next, nil
}

// Limit caps the number of rows.
func (r *Relation) Limit(n int) (*Relation, error) {
	if n < 0 {
		return r, fmt.Errorf("limit %d: %w", n, ErrNegative)
	}
	next := r.clone()
	next.limit = n
	return next, nil
}

// Offset skips rows.
func (r *Relation) Offset(n int) (*Relation, error) {
	if n < 0 {
		return r, fmt.Errorf("offset %d: %w", n, ErrNegative)
	}
	next := r.clone()
	next.offset = n
	return next, nil
}

// Selects returns the selected expressions. Empty means every column.
func (r *Relation) Selects() []exprir.Node { return cloneNodes(r.selects) }

// Wheres returns the conditions in the order they were added.
func (r *Relation) Wheres() []exprir.Node { return cloneNodes(r.wheres) }

// Groups returns the grouping expressions.
func (r *Relation) Groups() []exprir.Node { return cloneNodes(r.groups) }

// Havings returns the group conditions in the order they were added.
func (r *Relation) Havings() []exprir.Node { return cloneNodes(r.havings) }

// Orders returns the ordering expressions.
func (r *Relation) Orders() []exprir.Node { return cloneNodes(r.orders) }

// LimitValue returns the limit and whether one is set.
func (r *Relation) LimitValue() (int, bool) { return r.limit, r.limit >= 0 }

// OffsetValue returns the number of skipped rows.
func (r *Relation) OffsetValue() int { return r.offset }

// JoinPaths returns, for every relation name a block reached through
// associations, the association names walked from the base table.
func (r *Relation) JoinPaths() map[string][]string { return clonePaths(r.paths) }

// References collects the tables referenced by every clause, in clause
// order: select, where, group, having, order. Duplicates are kept.
func (r *Relation) References() (tablerefs.ReferenceSet, error) {
	refs := tablerefs.ReferenceSet{}
	for _, clause := range [][]exprir.Node{r.selects, r.wheres, r.groups, r.havings, r.orders} {
		for _, node := range clause {
			found, err := tablerefs.Collect(node)
			if err != nil {
				return nil, fmt.Errorf("collect references: %w", err)
			}
			refs = append(refs, found...)
		}
	}
	return refs, nil
}

func (r *Relation) eval(clause Clause, block Block) (exprir.Node, map[string][]string, error) {
	row := virtualrow.New(r.table)
	node, err := block(row)
	if err != nil {
		return nil, nil, &ClauseError{Clause: clause, Err: err}
	}
	if err := checkNode(clause, node); err != nil {
		return nil, nil, err
	}
	paths, err := r.mergePaths(clause, row)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("clause built", "table", r.table.Name, "clause", clause)
	return node, paths, nil
}

func (r *Relation) evalList(clause Clause, block ListBlock) ([]exprir.Node, map[string][]string, error) {
	row := virtualrow.New(r.table)
	nodes, err := block(row)
	if err != nil {
		return nil, nil, &ClauseError{Clause: clause, Err: err}
	}
	if len(nodes) == 0 {
		return nil, nil, &ClauseError{Clause: clause, Warnings: []string{"block returned no expressions"}}
	}
	for _, node := range nodes {
		if err := checkNode(clause, node); err != nil {
			return nil, nil, err
		}
	}
	paths, err := r.mergePaths(clause, row)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("clause built", "table", r.table.Name, "clause", clause, "count", len(nodes))
	return cloneNodes(nodes), paths, nil
}

// mergePaths adds the associations row navigated to a copy of r's paths.
func (r *Relation) mergePaths(clause Clause, row *virtualrow.Row) (map[string][]string, error) {
	paths := clonePaths(r.paths)
	if err := r.walkPaths(paths, row, nil); err != nil {
		return nil, &ClauseError{Clause: clause, Err: err}
	}
	return paths, nil
}

func (r *Relation) walkPaths(paths map[string][]string, row *virtualrow.Row, prefix []string) error {
	for _, name := range row.Associations() {
		child, err := row.Association(name)
		if err != nil {
			return err
		}
		path := append(slices.Clip(prefix), name)
		ref := child.Relation().RelationName()
		if seen, ok := paths[ref]; ok {
			if !slices.Equal(seen, path) {
				return &AmbiguousJoinError{Ref: ref, First: r.describePath(seen), Second: r.describePath(path)}
			}
		} else {
			paths[ref] = path
		}
		if err := r.walkPaths(paths, child, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relation) describePath(path []string) string {
	return strings.Join(append([]string{r.table.Name}, path...), ".")
}

func checkNode(clause Clause, node exprir.Node) error {
	result := exprir.Validate(node)
	if !result.IsWellFormed {
		return &ClauseError{Clause: clause, Warnings: result.Warnings}
	}
	return nil
}

func (r *Relation) clone() *Relation {
	next := *r
	next.selects = cloneNodes(r.selects)
	next.wheres = cloneNodes(r.wheres)
	next.groups = cloneNodes(r.groups)
	next.havings = cloneNodes(r.havings)
	next.orders = cloneNodes(r.orders)
	next.paths = clonePaths(r.paths)
	return &next
}

func clonePaths(paths map[string][]string) map[string][]string {
	out := make(map[string][]string, len(paths))
	for ref, path := range paths {
		out[ref] = slices.Clone(path)
	}
	return out
}

func cloneNodes(nodes []exprir.Node) []exprir.Node {
	if nodes == nil {
		return nil
	}
	return append([]exprir.Node(nil), nodes...)
}
