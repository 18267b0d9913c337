// Package relation builds queries from block-style clauses.
//
// A Relation is bound to one catalog table. Each clause builder takes a
// block that receives a fresh virtualrow.Row and returns expression nodes:
//
//	rel, err := relation.New(schema, "issues")
//	rel, err = rel.Where(func(row *virtualrow.Row) (exprir.Node, error) {
//		resolved, err := row.Column("resolved_at")
//		if err != nil {
//			return nil, err
//		}
//		opened, err := row.Column("opened_at")
//		if err != nil {
//			return nil, err
//		}
//		return exprir.Gt(exprir.Minus(resolved, opened), row.Call("interval", 2)), nil
//	})
//
// A block that fails, or returns a tree exprir.Validate rejects, aborts the
// clause: the builder returns a *ClauseError and the receiver unchanged.
//
// References reports the tables the clauses touch, for join planning.
// Query documents (LoadQuery) describe the same clauses in YAML.
package relation
