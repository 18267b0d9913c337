package virtualrow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/virtualrow/internal/exprir"
	"github.com/roach88/virtualrow/internal/tablerefs"
)

// fakeTable is an in-memory TableDescriptor that counts catalog lookups.
type fakeTable struct {
	relation     exprir.Relation
	columns      map[string]bool
	associations map[string]*fakeTable
	lookups      int
}

func newFakeTable(name string, columns ...string) *fakeTable {
	t := &fakeTable{
		relation:     exprir.NewTable(name),
		columns:      make(map[string]bool),
		associations: make(map[string]*fakeTable),
	}
	for _, c := range columns {
		t.columns[c] = true
	}
	return t
}

func (t *fakeTable) HasColumn(name string) bool {
	t.lookups++
	return t.columns[name]
}

func (t *fakeTable) AssociatedWith(name string) bool {
	t.lookups++
	_, ok := t.associations[name]
	return ok
}

func (t *fakeTable) AssociatedTable(name string) TableDescriptor {
	target, ok := t.associations[name]
	if !ok {
		return nil
	}
	return target
}

func (t *fakeTable) ArelTable() exprir.Relation { return t.relation }

// blogSchema wires posts -> comments -> author(users).
func blogSchema() (posts, comments, users *fakeTable) {
	users = newFakeTable("users", "id", "name")
	comments = newFakeTable("comments", "id", "body", "post_id", "author_id")
	comments.associations["author"] = users
	posts = newFakeTable("posts", "id", "title", "published_at")
	posts.associations["comments"] = comments
	return posts, comments, users
}

func TestResolve_Column(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	res, err := row.Resolve("title")
	require.NoError(t, err)
	require.False(t, res.IsRow())

	attr, ok := res.Node.(*exprir.Attribute)
	require.True(t, ok, "expected *exprir.Attribute, got %T", res.Node)
	assert.Equal(t, "title", attr.Name)
	assert.Same(t, posts.relation, attr.Relation)
}

func TestResolve_SameIdentityTwice(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	first, err := row.Resolve("title")
	require.NoError(t, err)
	second, err := row.Resolve("title")
	require.NoError(t, err)

	assert.Same(t, first.Node, second.Node, "cached column must be the identical node")

	firstRow, err := row.Resolve("comments")
	require.NoError(t, err)
	secondRow, err := row.Resolve("comments")
	require.NoError(t, err)

	assert.Same(t, firstRow.Row, secondRow.Row, "cached association must be the identical row")
}

func TestResolve_CacheAvoidsCatalogLookups(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	_, err := row.Resolve("title")
	require.NoError(t, err)
	after := posts.lookups

	for i := 0; i < 5; i++ {
		_, err := row.Resolve("title")
		require.NoError(t, err)
	}

	assert.Equal(t, after, posts.lookups, "cache hits must not query the catalog")
}

func TestResolve_AssociationChain(t *testing.T) {
	posts, comments, users := blogSchema()
	row := New(posts)

	res, err := row.Resolve("comments")
	require.NoError(t, err)
	require.True(t, res.IsRow())
	assert.Same(t, comments, res.Row.Table())

	authorRes, err := res.Row.Resolve("author")
	require.NoError(t, err)
	require.True(t, authorRes.IsRow())
	assert.Same(t, users, authorRes.Row.Table())

	name, err := authorRes.Row.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "users", name.Relation.RelationName())
}

// trimmingTable accepts names with surrounding whitespace.
type trimmingTable struct{ *fakeTable }

func (t trimmingTable) CanonicalName(name string) string { return strings.TrimSpace(name) }

func (t trimmingTable) HasColumn(name string) bool {
	return t.fakeTable.HasColumn(strings.TrimSpace(name))
}

func TestResolve_CanonicalNameKeysCache(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(trimmingTable{posts})

	title, err := row.Column("title")
	require.NoError(t, err)
	padded, err := row.Column("  title ")
	require.NoError(t, err)

	assert.Same(t, title, padded)
	assert.Equal(t, "title", padded.Name)
	assert.True(t, row.RespondsTo(" title", 0))
}

func TestResolve_ArgumentsAlwaysCallFunction(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)
	title, err := row.Column("title")
	require.NoError(t, err)

	// "title" is a column, but with arguments it is a function call
	res, err := row.Resolve("title", 1)
	require.NoError(t, err)
	fn, ok := res.Node.(*exprir.NamedFunction)
	require.True(t, ok)
	assert.Equal(t, "title", fn.Name)

	res, err = row.Resolve("lower", title)
	require.NoError(t, err)
	fn, ok = res.Node.(*exprir.NamedFunction)
	require.True(t, ok)
	assert.Equal(t, "lower", fn.Name)
	require.Len(t, fn.Args, 1)
	assert.Same(t, title, fn.Args[0], "attribute arguments are not bind-wrapped")

	res, err = row.Resolve("no_such_function", "x")
	require.NoError(t, err, "unknown names with arguments still resolve")
	assert.IsType(t, &exprir.NamedFunction{}, res.Node)
}

func TestResolve_PlainValueIsBound(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	res, err := row.Resolve("interval", 2)
	require.NoError(t, err)

	assert.Equal(t, &exprir.NamedFunction{
		Name: "interval",
		Args: []exprir.Node{&exprir.BindParam{Value: 2}},
	}, res.Node)
}

func TestResolve_Unresolved(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	_, err := row.Resolve("nope")

	require.Error(t, err)
	assert.True(t, IsUnresolvedIdentifier(err))
	assert.Contains(t, err.Error(), `"nope"`)
	assert.Contains(t, err.Error(), "table=posts")

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "nope", re.Identifier)
}

func TestResolve_UnresolvedIsNotCached(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	_, err := row.Resolve("late")
	require.Error(t, err)

	posts.columns["late"] = true
	res, err := row.Resolve("late")
	require.NoError(t, err)
	assert.IsType(t, &exprir.Attribute{}, res.Node)
}

func TestResolve_ColumnWinsOverAssociation(t *testing.T) {
	posts, _, _ := blogSchema()
	posts.columns["comments"] = true
	row := New(posts)

	res, err := row.Resolve("comments")
	require.NoError(t, err)
	assert.False(t, res.IsRow())
	assert.IsType(t, &exprir.Attribute{}, res.Node)
}

func TestResolve_AliasedAssociation(t *testing.T) {
	posts, _, users := blogSchema()
	editor := newFakeTable("users", "id", "name")
	editor.relation = users.relation.(*exprir.Table).Alias("editors")
	posts.associations["editor"] = editor
	row := New(posts)

	attr, err := row.Path("editor.name")
	require.NoError(t, err)

	refs, err := tablerefs.Collect(attr)
	require.NoError(t, err)
	assert.Equal(t, tablerefs.ReferenceSet{"editors"}, refs)
}

func TestColumnAndAssociationKinds(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	_, err := row.Column("comments")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is an association")

	_, err = row.Association("title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a column")

	_, err = row.Column("missing")
	assert.True(t, IsUnresolvedIdentifier(err))
}

func TestPath(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	attr, err := row.Path("comments.author.name")
	require.NoError(t, err)
	assert.Equal(t, "name", attr.Name)
	assert.Equal(t, "users", attr.Relation.RelationName())

	again, err := row.Path("comments.author.name")
	require.NoError(t, err)
	assert.Same(t, attr, again)

	plain, err := row.Path("title")
	require.NoError(t, err)
	assert.Equal(t, "posts", plain.Relation.RelationName())
}

func TestPath_Unresolved(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	_, err := row.Path("comments.editor.name")

	require.Error(t, err)
	assert.True(t, IsUnresolvedIdentifier(err), "wrapped error keeps its code")
	assert.Contains(t, err.Error(), "comments.editor.name")
}

func TestRespondsTo(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	assert.True(t, row.RespondsTo("title", 0))
	assert.True(t, row.RespondsTo("comments", 0))
	assert.True(t, row.RespondsTo("anything", 2))
	assert.False(t, row.RespondsTo("anything", 0))
}

func TestChildRowsShareFunctions(t *testing.T) {
	posts, _, _ := blogSchema()
	functions := NewFunctions()
	row := NewWithFunctions(posts, functions)

	child, err := row.Association("comments")
	require.NoError(t, err)
	child.Call("lower", "x")

	assert.True(t, functions.Defined("lower"))
}

func TestAssociations_ResolutionOrder(t *testing.T) {
	posts, _, _ := blogSchema()
	posts.associations["editor"] = newFakeTable("users", "id", "name")
	row := New(posts)

	assert.Empty(t, row.Associations())

	_, err := row.Path("editor.name")
	require.NoError(t, err)
	_, err = row.Path("comments.author.name")
	require.NoError(t, err)
	_, err = row.Column("title")
	require.NoError(t, err)
	_, err = row.Association("editor")
	require.NoError(t, err)

	assert.Equal(t, []string{"editor", "comments"}, row.Associations())

	comments, err := row.Association("comments")
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, comments.Associations())
}

func TestBuildTreeAndCollect(t *testing.T) {
	posts, _, _ := blogSchema()
	row := New(posts)

	published, err := row.Column("published_at")
	require.NoError(t, err)
	author, err := row.Path("comments.author.name")
	require.NoError(t, err)

	tree := exprir.And(
		exprir.Gt(published, row.Call("now")),
		exprir.Eq(row.Call("lower", author), "ada"),
		exprir.NotEq(author, nil),
	)

	refs, err := tablerefs.Collect(tree)
	require.NoError(t, err)
	assert.Equal(t, tablerefs.ReferenceSet{"posts", "users"}, refs)
}

func TestIsUnresolvedIdentifier_Wrapped(t *testing.T) {
	err := fmt.Errorf("build where: %w", NewUnresolvedError("x", "posts"))

	assert.True(t, IsUnresolvedIdentifier(err))
	assert.False(t, IsUnresolvedIdentifier(fmt.Errorf("plain")))
}
