package relation

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/virtualrow/internal/catalog"
	"github.com/roach88/virtualrow/internal/exprir"
	"github.com/roach88/virtualrow/internal/virtualrow"
)

// Query is a declarative query document:
//
//	table: posts
//	select:
//	  - ref: title
//	  - {op: as, expr: {call: count, args: [{ref: comments.id}]}, alias: n}
//	where:
//	  - op: ">"
//	    left: {op: "-", left: {ref: resolved_at}, right: {ref: opened_at}}
//	    right: {call: interval, args: [{value: 2}]}
//	group: [{ref: id}]
//	order:
//	  - {op: nulls_first, expr: {op: desc, expr: {ref: published_at}}}
//	limit: 10
//
// Every clause entry is an Expr evaluated against a fresh row of the table.
type Query struct {
	Table  string `yaml:"table"`
	Select []Expr `yaml:"select,omitempty"`
	Where  []Expr `yaml:"where,omitempty"`
	Group  []Expr `yaml:"group,omitempty"`
	Having []Expr `yaml:"having,omitempty"`
	Order  []Expr `yaml:"order,omitempty"`
	Limit  *int   `yaml:"limit,omitempty"`
	Offset *int   `yaml:"offset,omitempty"`
}

// Expr is one expression of a query document. Exactly one of Ref, Call,
// Value, SQL or Op is set.
type Expr struct {
	// Ref is a column path resolved through the row: "title" or
	// "comments.author.name".
	Ref string `yaml:"ref,omitempty"`

	// Call is a function name applied to Args.
	Call     string `yaml:"call,omitempty"`
	Distinct bool   `yaml:"distinct,omitempty"`

	// Value becomes a bind parameter. An explicit null binds nil.
	Value yaml.Node `yaml:"value,omitempty"`

	// SQL is passed through verbatim.
	SQL string `yaml:"sql,omitempty"`

	// Op is an operator. Binary operators use Left and Right, unary
	// operators and "as" use Expr, "and"/"or" use Args.
	Op    string `yaml:"op,omitempty"`
	Left  *Expr  `yaml:"left,omitempty"`
	Right *Expr  `yaml:"right,omitempty"`
	Expr  *Expr  `yaml:"expr,omitempty"`
	Args  []Expr `yaml:"args,omitempty"`
	Alias string `yaml:"alias,omitempty"`
}

var binaryOps = map[string]exprir.BinaryOp{
	"=":    exprir.OpEq,
	"!=":   exprir.OpNotEq,
	">":    exprir.OpGt,
	">=":   exprir.OpGte,
	"<":    exprir.OpLt,
	"<=":   exprir.OpLte,
	"like": exprir.OpLike,
	"+":    exprir.OpPlus,
	"-":    exprir.OpMinus,
	"*":    exprir.OpMultiply,
	"/":    exprir.OpDivide,
}

var unaryOps = map[string]exprir.UnaryOp{
	"not":         exprir.OpNot,
	"asc":         exprir.OpAsc,
	"desc":        exprir.OpDesc,
	"nulls_first": exprir.OpNullsFirst,
	"nulls_last":  exprir.OpNullsLast,
	"grouping":    exprir.OpGrouping,
}

// LoadQuery reads and parses a query document.
func LoadQuery(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return ParseQuery(data)
}

// ParseQuery parses a query document. Unknown fields are rejected.
func ParseQuery(data []byte) (*Query, error) {
	var q Query
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&q); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if q.Table == "" {
		return nil, fmt.Errorf("invalid query: table is required")
	}
	return &q, nil
}

// Build evaluates the document against schema and returns the relation.
func (q *Query) Build(schema *catalog.Schema) (*Relation, error) {
	rel, err := New(schema, q.Table)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	if len(q.Select) > 0 {
		if rel, err = rel.Select(q.listBlock(q.Select)); err != nil {
			return nil, err
		}
	}
	for i := range q.Where {
		if rel, err = rel.Where(q.Where[i].Block()); err != nil {
			return nil, err
		}
	}
	if len(q.Group) > 0 {
		if rel, err = rel.Group(q.listBlock(q.Group)); err != nil {
			return nil, err
		}
	}
	for i := range q.Having {
		if rel, err = rel.Having(q.Having[i].Block()); err != nil {
			return nil, err
		}
	}
	if len(q.Order) > 0 {
		if rel, err = rel.Order(q.listBlock(q.Order)); err != nil {
			return nil, err
		}
	}
	if q.Limit != nil {
		if rel, err = rel.Limit(*q.Limit); err != nil {
			return nil, err
		}
	}
	if q.Offset != nil {
		if rel, err = rel.Offset(*q.Offset); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

func (q *Query) listBlock(exprs []Expr) ListBlock {
	return func(row *virtualrow.Row) ([]exprir.Node, error) {
		nodes := make([]exprir.Node, 0, len(exprs))
		for i := range exprs {
			node, err := exprs[i].Eval(row)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
		return nodes, nil
	}
}

// Block adapts the expression to a relation clause builder.
func (e *Expr) Block() Block {
	return e.Eval
}

// Eval builds the expression tree through row.
func (e *Expr) Eval(row *virtualrow.Row) (exprir.Node, error) {
	if err := e.checkKind(); err != nil {
		return nil, err
	}

	switch {
	case e.Ref != "":
		attr, err := row.Path(e.Ref)
		if err != nil {
			return nil, err
		}
		return attr, nil

	case e.Call != "":
		args, err := evalAll(row, e.Args)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", e.Call, err)
		}
		fn := row.Call(e.Call, args...)
		fn.Distinct = e.Distinct
		return fn, nil

	case e.hasValue():
		var v any
		if err := e.Value.Decode(&v); err != nil {
			return nil, fmt.Errorf("value at line %d: %w", e.Value.Line, err)
		}
		return &exprir.BindParam{Value: v}, nil

	case e.SQL != "":
		return exprir.Raw(e.SQL), nil

	default:
		return e.evalOp(row)
	}
}

func (e *Expr) evalOp(row *virtualrow.Row) (exprir.Node, error) {
	op := strings.ToLower(e.Op)

	if bop, ok := binaryOps[op]; ok {
		if e.Left == nil || e.Right == nil {
			return nil, fmt.Errorf("operator %q needs left and right", e.Op)
		}
		left, err := e.Left.Eval(row)
		if err != nil {
			return nil, err
		}
		right, err := e.Right.Eval(row)
		if err != nil {
			return nil, err
		}
		return &exprir.Binary{Op: bop, Left: left, Right: right}, nil
	}

	if uop, ok := unaryOps[op]; ok {
		if e.Expr == nil {
			return nil, fmt.Errorf("operator %q needs expr", e.Op)
		}
		inner, err := e.Expr.Eval(row)
		if err != nil {
			return nil, err
		}
		return &exprir.Unary{Op: uop, Expr: inner}, nil
	}

	switch op {
	case "and", "or":
		if len(e.Args) == 0 {
			return nil, fmt.Errorf("operator %q needs args", e.Op)
		}
		args, err := evalAll(row, e.Args)
		if err != nil {
			return nil, err
		}
		nodes := make([]exprir.Node, len(args))
		for i, a := range args {
			nodes[i] = a.(exprir.Node)
		}
		if op == "and" {
			return exprir.And(nodes...), nil
		}
		return exprir.Or(nodes...), nil

	case "as":
		if e.Expr == nil || e.Alias == "" {
			return nil, fmt.Errorf("operator %q needs expr and alias", e.Op)
		}
		inner, err := e.Expr.Eval(row)
		if err != nil {
			return nil, err
		}
		return exprir.As(inner, e.Alias), nil
	}

	return nil, fmt.Errorf("unknown operator %q", e.Op)
}

// checkKind enforces that exactly one of ref, call, value, sql and op is set.
func (e *Expr) checkKind() error {
	set := 0
	for _, present := range []bool{e.Ref != "", e.Call != "", e.hasValue(), e.SQL != "", e.Op != ""} {
		if present {
			set++
		}
	}
	switch set {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("expression needs one of ref, call, value, sql or op")
	default:
		return fmt.Errorf("expression sets more than one of ref, call, value, sql and op")
	}
}

func (e *Expr) hasValue() bool { return e.Value.Kind != 0 }

func evalAll(row *virtualrow.Row, exprs []Expr) ([]any, error) {
	out := make([]any, 0, len(exprs))
	for i := range exprs {
		node, err := exprs[i].Eval(row)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}
