package virtualrow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/virtualrow/internal/exprir"
)

// TableDescriptor is the catalog view a Row resolves against.
//
// Columns and associations share one namespace; a well-formed catalog never
// reports a name as both.
type TableDescriptor interface {
	// HasColumn reports whether the table has a column with this name.
	HasColumn(name string) bool

	// AssociatedWith reports whether the table declares an association
	// with this name.
	AssociatedWith(name string) bool

	// AssociatedTable returns the descriptor of the association's target.
	// Only called after AssociatedWith returned true.
	AssociatedTable(name string) TableDescriptor

	// ArelTable returns the relation node columns are qualified with.
	ArelTable() exprir.Relation
}

// NameCanonicalizer is implemented by descriptors that accept several
// spellings of one identifier. Rows resolve and cache by the canonical
// spelling so attributes always carry the catalog's column name.
type NameCanonicalizer interface {
	CanonicalName(name string) string
}

// Result is the outcome of resolving a name: exactly one of Node or Row is
// set.
type Result struct {
	Node exprir.Node
	Row  *Row
}

// IsRow reports whether the result is a nested Row (an association).
func (r Result) IsRow() bool { return r.Row != nil }

// Row resolves identifiers against one table.
//
// A Row caches every column and association it resolves, so repeated
// access to the same name yields the identical *exprir.Attribute or child
// *Row. Rows are not safe for concurrent use.
type Row struct {
	table     TableDescriptor
	functions *Functions
	cache     map[string]Result
	assocs    []string // associations in resolution order
}

// New creates a Row bound to table with its own function resolver.
func New(table TableDescriptor) *Row {
	return NewWithFunctions(table, NewFunctions())
}

// NewWithFunctions creates a Row that shares an existing function resolver.
func NewWithFunctions(table TableDescriptor, functions *Functions) *Row {
	return &Row{
		table:     table,
		functions: functions,
		cache:     make(map[string]Result),
	}
}

// Table returns the descriptor the row is bound to.
func (r *Row) Table() TableDescriptor { return r.table }

// Relation returns the relation node of the bound table.
func (r *Row) Relation() exprir.Relation { return r.table.ArelTable() }

// Resolve turns name into a node or a nested row.
//
// With arguments, name is always a function call, whatever the catalog
// says. Without arguments, columns win over associations; a name that is
// neither fails with an UNRESOLVED_IDENTIFIER *ResolveError.
func (r *Row) Resolve(name string, args ...any) (Result, error) {
	if len(args) > 0 {
		return Result{Node: r.functions.Resolve(name, args...)}, nil
	}

	name = r.canonical(name)
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}

	var res Result
	switch {
	case r.table.HasColumn(name):
		res = Result{Node: &exprir.Attribute{Relation: r.table.ArelTable(), Name: name}}
	case r.table.AssociatedWith(name):
		target := r.table.AssociatedTable(name)
		if target == nil {
			return Result{}, NewUnresolvedError(name, r.relationName())
		}
		res = Result{Row: NewWithFunctions(target, r.functions)}
	default:
		return Result{}, NewUnresolvedError(name, r.relationName())
	}

	slog.Debug("resolved identifier",
		"table", r.relationName(),
		"name", name,
		"association", res.IsRow())
	r.cache[name] = res
	if res.IsRow() {
		r.assocs = append(r.assocs, name)
	}
	return res, nil
}

// Associations returns the canonical names of the associations resolved
// on this row, in the order they were first resolved. Each name resolves
// to its cached child row.
func (r *Row) Associations() []string {
	return append([]string(nil), r.assocs...)
}

// Column resolves name and requires it to be a column.
func (r *Row) Column(name string) (*exprir.Attribute, error) {
	res, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	attr, ok := res.Node.(*exprir.Attribute)
	if !ok {
		return nil, fmt.Errorf("%q on %s is an association, not a column", name, r.relationName())
	}
	return attr, nil
}

// Association resolves name and requires it to be an association.
func (r *Row) Association(name string) (*Row, error) {
	res, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	if !res.IsRow() {
		return nil, fmt.Errorf("%q on %s is a column, not an association", name, r.relationName())
	}
	return res.Row, nil
}

// Call builds a function call. Unlike Resolve it accepts zero arguments:
// Call("now") yields now().
func (r *Row) Call(name string, args ...any) *exprir.NamedFunction {
	return r.functions.Resolve(name, args...)
}

// Path resolves a dotted path such as "comments.author.name": every
// segment but the last must be an association, the last must be a column.
func (r *Row) Path(path string) (*exprir.Attribute, error) {
	segments := strings.Split(path, ".")
	row := r
	for _, seg := range segments[:len(segments)-1] {
		next, err := row.Association(seg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		row = next
	}

	attr, err := row.Column(segments[len(segments)-1])
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	return attr, nil
}

// RespondsTo reports whether Resolve would succeed for name called with
// nargs arguments.
func (r *Row) RespondsTo(name string, nargs int) bool {
	if nargs > 0 {
		return true
	}
	name = r.canonical(name)
	if _, ok := r.cache[name]; ok {
		return true
	}
	return r.table.HasColumn(name) || r.table.AssociatedWith(name)
}

func (r *Row) canonical(name string) string {
	if c, ok := r.table.(NameCanonicalizer); ok {
		return c.CanonicalName(name)
	}
	return name
}

func (r *Row) relationName() string {
	if rel := r.table.ArelTable(); rel != nil {
		return rel.RelationName()
	}
	return ""
}
