package virtualrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/virtualrow/internal/exprir"
)

func TestFunctions_WrapsArguments(t *testing.T) {
	f := NewFunctions()
	title := exprir.NewTable("posts").Col("title")
	raw := exprir.Raw("CURRENT_DATE")
	inner := exprir.Func("now")

	fn := f.Resolve("coalesce", title, raw, inner, 7, "x")

	assert.Equal(t, "coalesce", fn.Name)
	require.Len(t, fn.Args, 5)
	assert.Same(t, title, fn.Args[0])
	assert.Same(t, raw, fn.Args[1])
	assert.Same(t, inner, fn.Args[2])
	assert.Equal(t, &exprir.BindParam{Value: 7}, fn.Args[3])
	assert.Equal(t, &exprir.BindParam{Value: "x"}, fn.Args[4])
}

func TestFunctions_ZeroArguments(t *testing.T) {
	f := NewFunctions()

	fn := f.Resolve("now")

	assert.Equal(t, "now", fn.Name)
	assert.Empty(t, fn.Args)
}

func TestFunctions_Memoized(t *testing.T) {
	f := NewFunctions()
	assert.False(t, f.Defined("interval"))

	first := f.Resolve("interval", 2)
	assert.True(t, f.Defined("interval"))

	second := f.Resolve("interval", 2)

	assert.Equal(t, first, second, "re-resolving is idempotent")
	assert.NotSame(t, first, second, "each call builds a fresh node")
	assert.Len(t, f.bound, 1)
}

func TestFunctions_DoesNotMutateArgs(t *testing.T) {
	f := NewFunctions()
	args := []any{1, "two", exprir.Raw("3")}
	snapshot := append([]any(nil), args...)

	f.Resolve("greatest", args...)

	assert.Equal(t, snapshot, args)
}

func TestFunctions_IndependentInstances(t *testing.T) {
	a := NewFunctions()
	b := NewFunctions()

	a.Resolve("lower", "x")

	assert.True(t, a.Defined("lower"))
	assert.False(t, b.Defined("lower"))
}
