package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Introspect builds a schema from the tables of an existing SQLite database.
//
// The database is opened read-only. For every table:
//   - columns come from pragma_table_info; the first primary key column
//     becomes the table's primary key
//   - each single-column foreign key becomes a belongs_to association on the
//     referencing table, named after the column without its "_id" suffix
//   - the same foreign key becomes a has_many association on the referenced
//     table, named after the referencing table
//
// Derived names that collide with a column or an earlier association are
// skipped.
func Introspect(ctx context.Context, path string) (*Schema, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	names, err := queryTableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	defs := make([]TableDef, 0, len(names))
	index := make(map[string]int, len(names))
	for _, name := range names {
		def, err := queryTableDef(ctx, db, name)
		if err != nil {
			return nil, err
		}
		index[name] = len(defs)
		defs = append(defs, def)
	}

	for _, name := range names {
		fks, err := queryForeignKeys(ctx, db, name)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			target, ok := index[fk.table]
			if !ok {
				continue
			}
			owner := &defs[index[name]]

			assocName := strings.TrimSuffix(fk.column, "_id")
			if assocName == fk.column {
				assocName = fk.table
			}
			if !hasName(*owner, assocName) {
				owner.Associations = append(owner.Associations, AssociationDef{
					Name:       assocName,
					Kind:       BelongsTo,
					Table:      fk.table,
					ForeignKey: fk.column,
				})
			}

			inverse := &defs[target]
			if !hasName(*inverse, name) {
				inverse.Associations = append(inverse.Associations, AssociationDef{
					Name:       name,
					Kind:       HasMany,
					Table:      name,
					ForeignKey: fk.column,
				})
			}
		}
	}

	schema, err := NewSchema(defs...)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

type foreignKey struct {
	table  string
	column string
}

// readOnlyDSN builds a read-only SQLite URI for path. The path is made
// absolute and percent-escaped so '?', '#' and '%' stay part of the name.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

func queryTableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

func queryTableDef(ctx context.Context, db *sql.DB, table string) (TableDef, error) {
	def := TableDef{Name: table}

	rows, err := db.QueryContext(ctx, `SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return def, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	pkRank := 0
	for rows.Next() {
		var (
			name, typ string
			pk        int
		)
		if err := rows.Scan(&name, &typ, &pk); err != nil {
			return def, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		def.Columns = append(def.Columns, Column{Name: name, Type: strings.ToLower(typ)})
		if pk > 0 && (pkRank == 0 || pk < pkRank) {
			def.PrimaryKey = name
			pkRank = pk
		}
	}
	if err := rows.Err(); err != nil {
		return def, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	return def, nil
}

func queryForeignKeys(ctx context.Context, db *sql.DB, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, "table", "from" FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	// Composite keys have several rows with the same id; only single-column
	// keys map to associations.
	var (
		fks    []foreignKey
		counts = make(map[int]int)
		ids    []int
	)
	for rows.Next() {
		var (
			id          int
			target, col string
		)
		if err := rows.Scan(&id, &target, &col); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key of %s: %w", table, err)
		}
		if counts[id] == 0 {
			ids = append(ids, id)
			fks = append(fks, foreignKey{table: target, column: col})
		}
		counts[id]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}

	single := fks[:0]
	for i, id := range ids {
		if counts[id] == 1 {
			single = append(single, fks[i])
		}
	}
	return single, nil
}

func hasName(def TableDef, name string) bool {
	for _, c := range def.Columns {
		if c.Name == name {
			return true
		}
	}
	for _, a := range def.Associations {
		if a.Name == name {
			return true
		}
	}
	return false
}
