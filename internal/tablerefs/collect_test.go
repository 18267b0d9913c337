package tablerefs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/virtualrow/internal/exprir"
)

func TestCollect_BinaryOfTables(t *testing.T) {
	tree := &exprir.Binary{
		Op:    exprir.OpAnd,
		Left:  exprir.NewTable("posts"),
		Right: exprir.NewTable("comments"),
	}

	refs, err := Collect(tree)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"posts", "comments"}, refs)
}

func TestCollect_AliasAtRoot(t *testing.T) {
	alias := exprir.NewTable("posts").Alias("p")

	refs, err := Collect(alias)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"p"}, refs, "alias name is reported, not the underlying table")
}

func TestCollect_LeavesOnly(t *testing.T) {
	testCases := []struct {
		name string
		tree exprir.Node
	}{
		{"literal", exprir.Lit(1)},
		{"bind param", &exprir.BindParam{Value: "x"}},
		{"raw sql", exprir.Raw("1 = 1")},
		{"literal and bind", &exprir.Binary{
			Op:    exprir.OpEq,
			Left:  exprir.Lit(1),
			Right: &exprir.BindParam{Value: 1},
		}},
		{"nil", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			refs, err := Collect(tc.tree)
			require.NoError(t, err)
			assert.Empty(t, refs)
			assert.NotNil(t, refs, "an empty set, not a nil one")
		})
	}
}

func TestCollect_AttributeFollowsRelation(t *testing.T) {
	posts := exprir.NewTable("posts")
	authors := exprir.NewTable("users").Alias("authors")

	tree := exprir.And(
		exprir.Eq(posts.Col("status"), "published"),
		exprir.Eq(authors.Col("name"), "ada"),
	)

	refs, err := Collect(tree)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"posts", "authors"}, refs)
}

func TestCollect_UnaryChain(t *testing.T) {
	posts := exprir.NewTable("posts")
	ordering := exprir.NullsFirst(exprir.Desc(posts.Col("published_at")))

	refs, err := Collect(ordering)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"posts"}, refs)
}

func TestCollect_DoesNotEnterFunctionArguments(t *testing.T) {
	posts := exprir.NewTable("posts")
	comments := exprir.NewTable("comments")

	tree := exprir.Eq(
		posts.Col("title"),
		exprir.Func("lower", comments.Col("body")),
	)

	refs, err := Collect(tree)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"posts"}, refs)
}

func TestCollect_PreservesDuplicatesAndOrder(t *testing.T) {
	posts := exprir.NewTable("posts")
	comments := exprir.NewTable("comments")

	tree := exprir.And(
		exprir.Eq(posts.Col("id"), comments.Col("post_id")),
		exprir.Gt(posts.Col("views"), 10),
	)

	refs, err := Collect(tree)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"posts", "comments", "posts"}, refs)
	assert.Equal(t, []string{"posts", "comments"}, refs.Unique())
	assert.True(t, refs.Contains("comments"))
	assert.False(t, refs.Contains("users"))
}

func TestCollect_SharedSubtreeCountedTwice(t *testing.T) {
	title := exprir.NewTable("posts").Col("title")
	tree := exprir.Eq(title, title)

	refs, err := Collect(tree)
	require.NoError(t, err)

	assert.Equal(t, ReferenceSet{"posts", "posts"}, refs)
}

func TestCollect_Cycle(t *testing.T) {
	loop := &exprir.Binary{Op: exprir.OpOr, Left: exprir.NewTable("posts")}
	loop.Right = &exprir.Unary{Op: exprir.OpNot, Expr: loop}

	refs, err := Collect(loop)

	require.Error(t, err)
	assert.True(t, IsMalformedTree(err))
	assert.Nil(t, refs, "no partial result on failure")
	assert.Contains(t, err.Error(), "MALFORMED_TREE")
}

func TestCollect_NilPointerIsMalformed(t *testing.T) {
	testCases := []struct {
		name string
		node exprir.Node
	}{
		{"root", (*exprir.Binary)(nil)},
		{"attribute relation", &exprir.Attribute{Name: "id", Relation: (*exprir.Table)(nil)}},
		{"binary operand", exprir.Eq(exprir.NewTable("posts").Col("id"), (*exprir.Unary)(nil))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				refs ReferenceSet
				err  error
			)
			require.NotPanics(t, func() { refs, err = Collect(tc.node) })

			require.Error(t, err)
			assert.True(t, IsMalformedTree(err))
			assert.Nil(t, refs)
		})
	}
}

func TestCollect_DepthBound(t *testing.T) {
	var n exprir.Node = exprir.NewTable("posts")
	for i := 0; i < 10; i++ {
		n = exprir.Not(n)
	}

	_, err := Collector{MaxDepth: 5}.Collect(n)
	require.Error(t, err)
	assert.True(t, IsMalformedTree(err))

	var te *TraversalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 6, te.Depth)

	refs, err := Collector{MaxDepth: 20}.Collect(n)
	require.NoError(t, err)
	assert.Equal(t, ReferenceSet{"posts"}, refs)
}

func TestIsMalformedTree_Wrapped(t *testing.T) {
	base := newCycleError(3, exprir.Raw("x"))
	wrapped := fmt.Errorf("compile where: %w", base)

	assert.True(t, IsMalformedTree(wrapped))
	assert.False(t, IsMalformedTree(fmt.Errorf("other")))
	assert.False(t, IsMalformedTree(nil))
}

func TestCollect_ConcurrentReaders(t *testing.T) {
	posts := exprir.NewTable("posts")
	tree := exprir.And(
		exprir.Eq(posts.Col("a"), 1),
		exprir.Eq(exprir.NewTable("comments").Col("b"), 2),
	)

	var wg sync.WaitGroup
	results := make([]ReferenceSet, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			refs, err := Collect(tree)
			if err == nil {
				results[i] = refs
			}
		}(i)
	}
	wg.Wait()

	for _, refs := range results {
		assert.Equal(t, ReferenceSet{"posts", "comments"}, refs)
	}
}
