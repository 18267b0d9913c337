package virtualrow

import (
	"github.com/roach88/virtualrow/internal/exprir"
)

// binder builds the call node for one function name.
type binder func(args []any) *exprir.NamedFunction

// Functions resolves function-like names into NamedFunction nodes.
//
// Any name is accepted; there is no catalog of known functions. Arguments
// that are already nodes (raw SQL, attributes, other expressions) are kept
// as they are, anything else becomes a bind parameter:
//
//	f := virtualrow.NewFunctions()
//	f.Resolve("interval", 2)      // interval(?)  with param 2
//	f.Resolve("lower", titleAttr) // lower("posts"."title")
//
// The binder for each name is built on first use and reused afterwards.
// Functions is not safe for concurrent use.
type Functions struct {
	bound map[string]binder
}

// NewFunctions creates an empty function resolver.
func NewFunctions() *Functions {
	return &Functions{bound: make(map[string]binder)}
}

// Resolve returns name(args...). It never fails and never modifies args.
func (f *Functions) Resolve(name string, args ...any) *exprir.NamedFunction {
	b, ok := f.bound[name]
	if !ok {
		b = bindFunction(name)
		f.bound[name] = b
	}
	return b(args)
}

// Defined reports whether name has been resolved on this instance before.
func (f *Functions) Defined(name string) bool {
	_, ok := f.bound[name]
	return ok
}

func bindFunction(name string) binder {
	return func(args []any) *exprir.NamedFunction {
		nodes := make([]exprir.Node, len(args))
		for i, arg := range args {
			nodes[i] = exprir.Bind(arg)
		}
		return &exprir.NamedFunction{Name: name, Args: nodes}
	}
}
