package catalog

import (
	"fmt"

	"github.com/roach88/virtualrow/internal/exprir"
	"github.com/roach88/virtualrow/internal/virtualrow"
)

// AssociationKind is the direction of an association's foreign key.
type AssociationKind string

const (
	BelongsTo AssociationKind = "belongs_to"
	HasOne    AssociationKind = "has_one"
	HasMany   AssociationKind = "has_many"
)

// ValidAssociationKinds defines allowed association kinds.
var ValidAssociationKinds = map[AssociationKind]bool{
	BelongsTo: true,
	HasOne:    true,
	HasMany:   true,
}

// DefaultPrimaryKey is used when a table declares none.
const DefaultPrimaryKey = "id"

// TableDef declares one table.
type TableDef struct {
	Name         string           `yaml:"name"`
	PrimaryKey   string           `yaml:"primary_key,omitempty"`
	Columns      []Column         `yaml:"columns"`
	Associations []AssociationDef `yaml:"associations,omitempty"`
}

// Column is a column name with an optional type name.
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// AssociationDef declares a named relationship to another table.
type AssociationDef struct {
	Name       string          `yaml:"name"`
	Kind       AssociationKind `yaml:"kind"`
	Table      string          `yaml:"table"`
	ForeignKey string          `yaml:"foreign_key,omitempty"` // belongs_to defaults to <name>_id
	Alias      string          `yaml:"alias,omitempty"`
}

// SchemaError reports an invalid schema declaration.
type SchemaError struct {
	Table   string
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("table %s: %s: %s", e.Table, e.Field, e.Message)
	}
	return fmt.Sprintf("table %s: %s", e.Table, e.Message)
}

// Schema is a validated set of tables.
//
// A Schema is read-only after NewSchema returns and safe for concurrent use.
type Schema struct {
	tables map[string]*Table
	order  []string
}

// NewSchema builds and validates a schema from table declarations.
//
// Validation rules:
//  1. Table names are non-empty and unique
//  2. Column and association names are unique within a table, and never
//     both a column and an association
//  3. Every association has a valid kind and targets a declared table
//  4. Foreign keys exist on the table that holds them
func NewSchema(defs ...TableDef) (*Schema, error) {
	s := &Schema{tables: make(map[string]*Table, len(defs))}

	for _, def := range defs {
		t, err := newTable(s, def)
		if err != nil {
			return nil, err
		}
		if _, dup := s.tables[t.Name]; dup {
			return nil, &SchemaError{Table: t.Name, Message: "declared twice"}
		}
		s.tables[t.Name] = t
		s.order = append(s.order, t.Name)
	}

	for _, name := range s.order {
		if err := s.validateAssociations(s.tables[name]); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Table returns the table with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tables[normalizeName(name)]
	return t, ok
}

// Tables returns all tables in declaration order.
func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tables[name])
	}
	return out
}

func (s *Schema) validateAssociations(t *Table) error {
	for _, a := range t.Associations {
		field := "association " + a.Name
		if !ValidAssociationKinds[a.Kind] {
			return &SchemaError{Table: t.Name, Field: field, Message: fmt.Sprintf("invalid kind %q", a.Kind)}
		}
		target, ok := s.tables[a.Table]
		if !ok {
			return &SchemaError{Table: t.Name, Field: field, Message: fmt.Sprintf("unknown table %q", a.Table)}
		}

		holder := target
		if a.Kind == BelongsTo {
			holder = t
		}
		if _, ok := holder.columnIndex[a.ForeignKey]; !ok {
			return &SchemaError{
				Table:   t.Name,
				Field:   field,
				Message: fmt.Sprintf("foreign key %q is not a column of %s", a.ForeignKey, holder.Name),
			}
		}
	}
	return nil
}

// Association is a resolved association of a table.
type Association struct {
	Name       string
	Kind       AssociationKind
	Table      string
	ForeignKey string
	Alias      string
}

// Table describes one table of a Schema. It implements
// virtualrow.TableDescriptor.
type Table struct {
	Name         string
	PrimaryKey   string
	Columns      []Column
	Associations []Association

	schema      *Schema
	relation    exprir.Relation
	columnIndex map[string]int
	assocIndex  map[string]int
}

var _ virtualrow.TableDescriptor = (*Table)(nil)

func newTable(s *Schema, def TableDef) (*Table, error) {
	name := normalizeName(def.Name)
	if name == "" {
		return nil, &SchemaError{Table: "<unnamed>", Message: "table name is required"}
	}

	t := &Table{
		Name:        name,
		PrimaryKey:  normalizeName(def.PrimaryKey),
		schema:      s,
		relation:    exprir.NewTable(name),
		columnIndex: make(map[string]int, len(def.Columns)),
		assocIndex:  make(map[string]int, len(def.Associations)),
	}
	if t.PrimaryKey == "" {
		t.PrimaryKey = DefaultPrimaryKey
	}

	for _, c := range def.Columns {
		col := Column{Name: normalizeName(c.Name), Type: c.Type}
		if col.Name == "" {
			return nil, &SchemaError{Table: name, Field: "columns", Message: "column name is required"}
		}
		if _, dup := t.columnIndex[col.Name]; dup {
			return nil, &SchemaError{Table: name, Field: "column " + col.Name, Message: "declared twice"}
		}
		t.columnIndex[col.Name] = len(t.Columns)
		t.Columns = append(t.Columns, col)
	}

	for _, a := range def.Associations {
		assoc := Association{
			Name:       normalizeName(a.Name),
			Kind:       a.Kind,
			Table:      normalizeName(a.Table),
			ForeignKey: normalizeName(a.ForeignKey),
			Alias:      normalizeName(a.Alias),
		}
		if assoc.Name == "" {
			return nil, &SchemaError{Table: name, Field: "associations", Message: "association name is required"}
		}
		if assoc.Table == "" {
			assoc.Table = assoc.Name
		}
		if assoc.ForeignKey == "" && assoc.Kind == BelongsTo {
			assoc.ForeignKey = assoc.Name + "_id"
		}
		if _, clash := t.columnIndex[assoc.Name]; clash {
			return nil, &SchemaError{Table: name, Field: "association " + assoc.Name, Message: "name is already a column"}
		}
		if _, dup := t.assocIndex[assoc.Name]; dup {
			return nil, &SchemaError{Table: name, Field: "association " + assoc.Name, Message: "declared twice"}
		}
		t.assocIndex[assoc.Name] = len(t.Associations)
		t.Associations = append(t.Associations, assoc)
	}

	return t, nil
}

// CanonicalName returns the spelling under which the table stores name.
func (t *Table) CanonicalName(name string) string {
	return normalizeName(name)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columnIndex[normalizeName(name)]
	return ok
}

// AssociatedWith reports whether the table declares the named association.
func (t *Table) AssociatedWith(name string) bool {
	_, ok := t.assocIndex[normalizeName(name)]
	return ok
}

// Association returns the named association.
func (t *Table) Association(name string) (Association, bool) {
	i, ok := t.assocIndex[normalizeName(name)]
	if !ok {
		return Association{}, false
	}
	return t.Associations[i], true
}

// AssociatedTable returns the target of the named association, aliased
// when the association declares an alias. Returns nil for unknown names.
func (t *Table) AssociatedTable(name string) virtualrow.TableDescriptor {
	assoc, ok := t.Association(name)
	if !ok {
		return nil
	}
	target, ok := t.schema.tables[assoc.Table]
	if !ok {
		return nil
	}
	if assoc.Alias != "" {
		return target.As(assoc.Alias)
	}
	return target
}

// ArelTable returns the relation node that qualifies this table's columns.
func (t *Table) ArelTable() exprir.Relation {
	return t.relation
}

// RelationName returns the alias when the table is aliased, else its name.
func (t *Table) RelationName() string {
	return t.relation.RelationName()
}

// Aliased reports whether this descriptor is an aliased view of a table.
func (t *Table) Aliased() bool {
	_, ok := t.relation.(*exprir.TableAlias)
	return ok
}

// As returns a view of the table whose columns are qualified by alias.
// The view shares columns and associations with the original.
func (t *Table) As(alias string) *Table {
	view := *t
	base := exprir.NewTable(t.Name)
	view.relation = base.Alias(normalizeName(alias))
	return &view
}
