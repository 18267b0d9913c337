package exprir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCol(t *testing.T) {
	posts := NewTable("posts")
	title := posts.Col("title")

	assert.Equal(t, "title", title.Name)
	assert.Same(t, posts, title.Relation, "attribute should reference the table itself")
	assert.Equal(t, "posts", title.Relation.RelationName())
}

func TestTableAliasCol(t *testing.T) {
	posts := NewTable("posts")
	p := posts.Alias("p")
	title := p.Col("title")

	assert.Equal(t, "p", p.Name)
	assert.Same(t, posts, p.Relation)
	assert.Equal(t, "p", title.Relation.RelationName(), "alias name qualifies the column")
}

func TestBind_PassesThroughNodes(t *testing.T) {
	title := NewTable("posts").Col("title")
	raw := Raw("NOW()")
	fn := Func("lower", title)

	testCases := []struct {
		name string
		in   any
	}{
		{"attribute", title},
		{"raw sql", raw},
		{"function", fn},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Same(t, tc.in, Bind(tc.in))
		})
	}
}

func TestBind_WrapsValues(t *testing.T) {
	testCases := []struct {
		name string
		in   any
	}{
		{"int", 2},
		{"string", "draft"},
		{"bool", true},
		{"nil", nil},
		{"slice", []int{1, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bp, ok := Bind(tc.in).(*BindParam)
			require.True(t, ok, "non-node value should be bind-wrapped")
			assert.Equal(t, tc.in, bp.Value)
		})
	}
}

func TestFunc(t *testing.T) {
	title := NewTable("posts").Col("title")
	fn := Func("coalesce", title, "untitled")

	assert.Equal(t, "coalesce", fn.Name)
	require.Len(t, fn.Args, 2)
	assert.Same(t, title, fn.Args[0])
	assert.Equal(t, &BindParam{Value: "untitled"}, fn.Args[1])
}

func TestFunc_NoArgs(t *testing.T) {
	fn := Func("now")

	assert.Equal(t, "now", fn.Name)
	assert.Empty(t, fn.Args)
}

func TestComparisonBuilders(t *testing.T) {
	col := NewTable("posts").Col("views")

	testCases := []struct {
		name string
		node *Binary
		op   BinaryOp
	}{
		{"eq", Eq(col, 1), OpEq},
		{"not eq", NotEq(col, 1), OpNotEq},
		{"gt", Gt(col, 1), OpGt},
		{"gte", Gte(col, 1), OpGte},
		{"lt", Lt(col, 1), OpLt},
		{"lte", Lte(col, 1), OpLte},
		{"like", Like(col, 1), OpLike},
		{"plus", Plus(col, 1), OpPlus},
		{"minus", Minus(col, 1), OpMinus},
		{"multiply", Multiply(col, 1), OpMultiply},
		{"divide", Divide(col, 1), OpDivide},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.op, tc.node.Op)
			assert.Same(t, col, tc.node.Left)
			assert.Equal(t, &BindParam{Value: 1}, tc.node.Right)
		})
	}
}

func TestArithmeticOps(t *testing.T) {
	assert.True(t, OpMinus.IsArithmetic())
	assert.True(t, OpDivide.IsArithmetic())
	assert.False(t, OpEq.IsArithmetic())
	assert.False(t, OpAnd.IsArithmetic())
}

func TestAnd_FoldsLeft(t *testing.T) {
	a := Raw("a")
	b := Raw("b")
	c := Raw("c")

	got := And(a, b, c)

	outer, ok := got.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, outer.Op)
	assert.Same(t, c, outer.Right)

	inner, ok := outer.Left.(*Binary)
	require.True(t, ok)
	assert.Same(t, a, inner.Left)
	assert.Same(t, b, inner.Right)
}

func TestAnd_Degenerate(t *testing.T) {
	a := Raw("a")

	assert.Nil(t, And())
	assert.Same(t, a, Or(a))
}

func TestUnaryBuilders(t *testing.T) {
	col := NewTable("posts").Col("published_at")

	ordering := NullsFirst(Desc(col))

	assert.Equal(t, OpNullsFirst, ordering.Op)
	inner, ok := ordering.Expr.(*Unary)
	require.True(t, ok)
	assert.Equal(t, OpDesc, inner.Op)
	assert.Same(t, col, inner.Expr)
}

func TestBuildersDoNotMutateOperands(t *testing.T) {
	resolved := NewTable("issues").Col("resolved_at")
	opened := NewTable("issues").Col("opened_at")

	diff := Minus(resolved, opened)
	_ = Gt(Grouping(diff), Func("interval", "2 days"))

	assert.Same(t, resolved, diff.Left)
	assert.Same(t, opened, diff.Right)
	assert.Equal(t, "resolved_at", resolved.Name)
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil((*Attribute)(nil)))
	assert.True(t, IsNil((*TableAlias)(nil)))
	assert.True(t, IsNil(Relation((*Table)(nil))))

	assert.False(t, IsNil(NewTable("posts")))
	assert.False(t, IsNil(Lit(nil)))
	assert.False(t, IsNil(&BindParam{}))
}
