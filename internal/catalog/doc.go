// Package catalog provides schema metadata for virtual row resolution.
//
// A Schema holds tables, their columns and their associations. Each
// *Table implements virtualrow.TableDescriptor, so a Row can be bound to
// it directly:
//
//	schema, err := catalog.Load("blog.cue")
//	posts, _ := schema.Table("posts")
//	row := virtualrow.New(posts)
//
// # Sources
//
// Schemas can be declared in CUE (LoadCUE), in YAML (LoadYAML), or read
// from the tables and foreign keys of a SQLite database (Introspect). Load
// picks the source from the file extension.
//
// # Associations
//
//   - belongs_to: the owner holds foreign_key, pointing at the target's
//     primary key (comments.author_id -> users.id)
//   - has_one / has_many: the target holds foreign_key, pointing at the
//     owner's primary key (posts.id <- comments.post_id)
//
// An association may carry an alias. Rows resolved through it qualify
// their columns with the alias instead of the table name.
//
// # Names
//
// Table, column and association names are NFC-normalized on load and on
// lookup, so visually identical identifiers always match.
package catalog
