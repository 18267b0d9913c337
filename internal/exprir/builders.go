package exprir

// Bind turns an arbitrary operand into a Node.
//
// Values that already are nodes (raw SQL, attributes, any other node) pass
// through unchanged. Everything else becomes a BindParam carrying the
// original value.
func Bind(v any) Node {
	if n, ok := v.(Node); ok {
		return n
	}
	return &BindParam{Value: v}
}

// Raw wraps raw SQL text.
func Raw(text string) *SQL {
	return &SQL{Text: text}
}

// Lit wraps a value rendered inline.
func Lit(v any) *Literal {
	return &Literal{Value: v}
}

// Func builds a NamedFunction, binding non-node arguments.
func Func(name string, args ...any) *NamedFunction {
	nodes := make([]Node, len(args))
	for i, arg := range args {
		nodes[i] = Bind(arg)
	}
	return &NamedFunction{Name: name, Args: nodes}
}

func binary(op BinaryOp, left Node, right any) *Binary {
	return &Binary{Op: op, Left: left, Right: Bind(right)}
}

// Eq builds left = right.
func Eq(left Node, right any) *Binary { return binary(OpEq, left, right) }

// NotEq builds left != right.
func NotEq(left Node, right any) *Binary { return binary(OpNotEq, left, right) }

// Gt builds left > right.
func Gt(left Node, right any) *Binary { return binary(OpGt, left, right) }

// Gte builds left >= right.
func Gte(left Node, right any) *Binary { return binary(OpGte, left, right) }

// Lt builds left < right.
func Lt(left Node, right any) *Binary { return binary(OpLt, left, right) }

// Lte builds left <= right.
func Lte(left Node, right any) *Binary { return binary(OpLte, left, right) }

// Like builds left LIKE right.
func Like(left Node, right any) *Binary { return binary(OpLike, left, right) }

// Plus builds left + right.
func Plus(left Node, right any) *Binary { return binary(OpPlus, left, right) }

// Minus builds left - right.
func Minus(left Node, right any) *Binary { return binary(OpMinus, left, right) }

// Multiply builds left * right.
func Multiply(left Node, right any) *Binary { return binary(OpMultiply, left, right) }

// Divide builds left / right.
func Divide(left Node, right any) *Binary { return binary(OpDivide, left, right) }

// As builds "node AS alias". The alias is raw SQL text.
func As(node Node, alias string) *Binary {
	return &Binary{Op: OpAs, Left: node, Right: Raw(alias)}
}

// And folds nodes left to right: ((a AND b) AND c).
// A single node is returned unchanged; no nodes yields nil.
func And(nodes ...Node) Node { return fold(OpAnd, nodes) }

// Or folds nodes left to right: ((a OR b) OR c).
func Or(nodes ...Node) Node { return fold(OpOr, nodes) }

func fold(op BinaryOp, nodes []Node) Node {
	if len(nodes) == 0 {
		return nil
	}
	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = &Binary{Op: op, Left: acc, Right: n}
	}
	return acc
}

// Not builds NOT expr.
func Not(expr Node) *Unary { return &Unary{Op: OpNot, Expr: expr} }

// Asc builds an ascending ordering.
func Asc(expr Node) *Unary { return &Unary{Op: OpAsc, Expr: expr} }

// Desc builds a descending ordering.
func Desc(expr Node) *Unary { return &Unary{Op: OpDesc, Expr: expr} }

// NullsFirst places NULLs first in an ordering.
func NullsFirst(expr Node) *Unary { return &Unary{Op: OpNullsFirst, Expr: expr} }

// NullsLast places NULLs last in an ordering.
func NullsLast(expr Node) *Unary { return &Unary{Op: OpNullsLast, Expr: expr} }

// Grouping parenthesizes expr.
func Grouping(expr Node) *Unary { return &Unary{Op: OpGrouping, Expr: expr} }
