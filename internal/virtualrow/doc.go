// Package virtualrow resolves identifiers against a table descriptor into
// expression tree nodes.
//
// A Row mirrors the shape of a relation. Resolving a column name yields an
// *exprir.Attribute qualified by the table (or its alias); resolving an
// association name yields a nested Row bound to the associated table;
// resolving any name with arguments yields a function call:
//
//	row := virtualrow.New(posts)
//	published, _ := row.Column("published_at")
//	order := exprir.NullsFirst(exprir.Desc(published))
//
//	author, _ := row.Path("comments.author.name")
//	lower := row.Call("lower", author) // lower("users"."name")
//
// Resolution is memoized per Row: the same name returns the same node or
// child Row for the lifetime of the Row. Rows are meant to live for one
// clause-building call and are not safe for concurrent use.
package virtualrow
