package catalog

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadError represents a schema declaration error with source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE reads and compiles a CUE schema file.
func LoadCUE(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return ParseCUE(data, path)
}

// ParseCUE compiles a CUE schema. Tables are declared under "table":
//
//	table: posts: {
//		primary_key: "id"
//		columns: {
//			id:    int
//			title: string
//		}
//		has_many: comments: {table: "comments", foreign_key: "post_id"}
//		belongs_to: author: {table: "users", alias: "authors"}
//	}
//
// Column values are CUE types; their kind becomes the column type name.
func ParseCUE(data []byte, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &LoadError{Field: "table", Message: "at least one table is required", Pos: v.Pos()}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []TableDef
	for iter.Next() {
		def, err := parseTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	schema, err := NewSchema(defs...)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

// parseTable extracts one table declaration.
func parseTable(name string, v cue.Value) (TableDef, error) {
	def := TableDef{Name: name}

	pkVal := v.LookupPath(cue.ParsePath("primary_key"))
	if pkVal.Exists() {
		pk, err := pkVal.String()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.PrimaryKey = pk
	}

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return def, &LoadError{
			Field:   fmt.Sprintf("table.%s.columns", name),
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	colIter, err := columnsVal.Fields()
	if err != nil {
		return def, formatCUEError(err)
	}
	for colIter.Next() {
		typeName, err := extractTypeName(colIter.Value())
		if err != nil {
			return def, err
		}
		def.Columns = append(def.Columns, Column{Name: colIter.Label(), Type: typeName})
	}

	for _, kind := range []AssociationKind{BelongsTo, HasOne, HasMany} {
		assocs, err := parseAssociations(v, kind)
		if err != nil {
			return def, err
		}
		def.Associations = append(def.Associations, assocs...)
	}

	return def, nil
}

// parseAssociations extracts the associations of one kind.
func parseAssociations(v cue.Value, kind AssociationKind) ([]AssociationDef, error) {
	kindVal := v.LookupPath(cue.ParsePath(string(kind)))
	if !kindVal.Exists() {
		return nil, nil
	}

	iter, err := kindVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var assocs []AssociationDef
	for iter.Next() {
		assoc := AssociationDef{Name: iter.Label(), Kind: kind}
		fields := map[string]*string{
			"table":       &assoc.Table,
			"foreign_key": &assoc.ForeignKey,
			"alias":       &assoc.Alias,
		}
		for field, dst := range fields {
			fv := iter.Value().LookupPath(cue.ParsePath(field))
			if !fv.Exists() {
				continue
			}
			s, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			*dst = s
		}
		assocs = append(assocs, assoc)
	}
	return assocs, nil
}

// extractTypeName converts a CUE column type to a type name.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.FloatKind, cue.NumberKind:
		return "float", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.BytesKind:
		return "bytes", nil
	default:
		return "", &LoadError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported column kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
