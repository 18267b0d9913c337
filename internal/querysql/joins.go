package querysql

import (
	"fmt"

	"github.com/roach88/virtualrow/internal/catalog"
)

// Join is one INNER JOIN needed to reach a referenced table.
type Join struct {
	// From is the reference name of the table that declares Association.
	From  string
	Owner *catalog.Table

	Association catalog.Association
	Target      *catalog.Table

	// Ref is the name the joined table is referred to by: the
	// association's alias, or the target table name.
	Ref string
}

// SQL renders the join clause.
//
// belongs_to joins on <target>.<pk> = <owner>.<fk>; has_one and has_many
// join on <target>.<fk> = <owner>.<pk>.
func (j Join) SQL() string {
	table := quoteIdent(j.Target.Name)
	if j.Ref != j.Target.Name {
		table += " AS " + quoteIdent(j.Ref)
	}

	var left, right string
	if j.Association.Kind == catalog.BelongsTo {
		left = quoteIdent(j.Ref) + "." + quoteIdent(j.Target.PrimaryKey)
		right = quoteIdent(j.From) + "." + quoteIdent(j.Association.ForeignKey)
	} else {
		left = quoteIdent(j.Ref) + "." + quoteIdent(j.Association.ForeignKey)
		right = quoteIdent(j.From) + "." + quoteIdent(j.Owner.PrimaryKey)
	}
	return fmt.Sprintf("INNER JOIN %s ON %s = %s", table, left, right)
}

// AmbiguousPathError reports a referenced name that more than one equally
// short association path reaches.
type AmbiguousPathError struct {
	Base string
	Ref  string
}

func (e *AmbiguousPathError) Error() string {
	return fmt.Sprintf("%s is reachable from %s through more than one association path; declare an alias on one of the associations",
		e.Ref, e.Base)
}

// PlanJoins returns the joins that make every name in refs reachable from
// base. refs are handled in order. A ref listed in paths is reached by
// walking those association names from base; any other ref is reached by
// the shortest association path, and a tie between two shortest paths is
// an *AmbiguousPathError. Tables already joined are not joined again.
func PlanJoins(schema *catalog.Schema, base *catalog.Table, refs []string, paths map[string][]string) ([]Join, error) {
	joined := map[string]Join{base.Name: {Ref: base.Name}}
	var joins []Join

	for _, ref := range refs {
		if _, ok := joined[ref]; ok {
			continue
		}

		var (
			path []Join
			err  error
		)
		if names, ok := paths[ref]; ok && len(names) > 0 {
			path, err = followPath(schema, base, names)
		} else {
			path, err = findPath(schema, base, ref)
		}
		if err != nil {
			return nil, err
		}

		for _, step := range path {
			if prev, ok := joined[step.Ref]; ok {
				if !sameStep(prev, step) {
					return nil, &AmbiguousPathError{Base: base.Name, Ref: step.Ref}
				}
				continue
			}
			joined[step.Ref] = step
			joins = append(joins, step)
		}
	}
	return joins, nil
}

func sameStep(a, b Join) bool {
	return a.From == b.From && a.Association.Name == b.Association.Name
}

// followPath builds the joins for a chain of association names.
func followPath(schema *catalog.Schema, base *catalog.Table, names []string) ([]Join, error) {
	owner, from := base, base.Name
	path := make([]Join, 0, len(names))
	for _, name := range names {
		assoc, ok := owner.Association(name)
		if !ok {
			return nil, fmt.Errorf("%s has no association %q", from, name)
		}
		target, ok := schema.Table(assoc.Table)
		if !ok {
			return nil, fmt.Errorf("association %s.%s targets unknown table %q", from, name, assoc.Table)
		}
		ref := refName(assoc)
		path = append(path, Join{
			From:        from,
			Owner:       owner,
			Association: assoc,
			Target:      target,
			Ref:         ref,
		})
		owner, from = target, ref
	}
	return path, nil
}

// findPath searches breadth-first over associations for ref, one level at
// a time so that two paths of equal length are both seen.
func findPath(schema *catalog.Schema, base *catalog.Table, ref string) ([]Join, error) {
	type state struct {
		table *catalog.Table
		ref   string
		path  []Join
	}

	level := []state{{table: base, ref: base.Name}}
	visited := map[string]bool{base.Name: true}
	// ambiguous marks names reached by two paths of equal length, and
	// every name reached through one of them.
	ambiguous := map[string]bool{}

	for len(level) > 0 {
		var (
			next    []state
			found   []Join
			reached = map[string]bool{}
		)

		for _, cur := range level {
			for _, assoc := range cur.table.Associations {
				target, ok := schema.Table(assoc.Table)
				if !ok {
					continue
				}
				name := refName(assoc)

				path := make([]Join, len(cur.path), len(cur.path)+1)
				copy(path, cur.path)
				path = append(path, Join{
					From:        cur.ref,
					Owner:       cur.table,
					Association: assoc,
					Target:      target,
					Ref:         name,
				})

				if name == ref {
					if found != nil || ambiguous[cur.ref] {
						return nil, &AmbiguousPathError{Base: base.Name, Ref: ref}
					}
					found = path
					continue
				}
				if visited[name] {
					if reached[name] {
						ambiguous[name] = true
					}
					continue
				}
				visited[name] = true
				reached[name] = true
				if ambiguous[cur.ref] {
					ambiguous[name] = true
				}
				next = append(next, state{table: target, ref: name, path: path})
			}
		}

		if found != nil {
			return found, nil
		}
		level = next
	}

	return nil, fmt.Errorf("no association path from %s to %s", base.Name, ref)
}

// refName is the name a joined association is referred to by.
func refName(assoc catalog.Association) string {
	if assoc.Alias != "" {
		return assoc.Alias
	}
	return assoc.Table
}
