package querysql

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/virtualrow/internal/exprir"
	"github.com/roach88/virtualrow/internal/relation"
)

// SQLCompiler renders expression trees and relations to parameterized SQL
// for SQLite.
//
// Bind parameters always become ? placeholders with their values returned
// in order. Literal values are inlined. Identifiers are double-quoted.
type SQLCompiler struct {
	// StableOrder appends the base table's primary key as a final ORDER BY
	// key, so results are deterministic. Ignored for grouped relations.
	StableOrder bool
}

// NewSQLCompiler creates a compiler with StableOrder enabled.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{StableOrder: true}
}

// CompileNode renders one expression tree. Returns (sql, params, error).
func (c *SQLCompiler) CompileNode(n exprir.Node) (string, []any, error) {
	if n == nil {
		return "", nil, fmt.Errorf("cannot compile nil node")
	}
	var b builder
	if err := b.node(n, 0); err != nil {
		return "", nil, err
	}
	return b.sql.String(), b.params, nil
}

// Compile renders a full SELECT statement for a relation, joining every
// table its clauses reference.
//
//	SELECT <select> FROM <base> [INNER JOIN ...] [WHERE ...] [GROUP BY ...]
//	[HAVING ...] [ORDER BY ...] [LIMIT n] [OFFSET m]
func (c *SQLCompiler) Compile(rel *relation.Relation) (string, []any, error) {
	if rel == nil {
		return "", nil, fmt.Errorf("cannot compile nil relation")
	}

	refs, err := rel.References()
	if err != nil {
		return "", nil, err
	}
	joins, err := PlanJoins(rel.Schema(), rel.Table(), refs.Unique(), rel.JoinPaths())
	if err != nil {
		return "", nil, fmt.Errorf("plan joins: %w", err)
	}

	base := rel.Table()
	var b builder

	b.write("SELECT ")
	if selects := rel.Selects(); len(selects) > 0 {
		if err := b.list(selects, ", "); err != nil {
			return "", nil, fmt.Errorf("compile select: %w", err)
		}
	} else {
		b.write(quoteIdent(base.Name) + ".*")
	}

	b.write(" FROM " + quoteIdent(base.Name))
	for _, j := range joins {
		b.write(" " + j.SQL())
	}

	if wheres := rel.Wheres(); len(wheres) > 0 {
		b.write(" WHERE ")
		if err := b.list(wheres, " AND "); err != nil {
			return "", nil, fmt.Errorf("compile where: %w", err)
		}
	}

	groups := rel.Groups()
	if len(groups) > 0 {
		b.write(" GROUP BY ")
		if err := b.list(groups, ", "); err != nil {
			return "", nil, fmt.Errorf("compile group: %w", err)
		}
	}

	if havings := rel.Havings(); len(havings) > 0 {
		b.write(" HAVING ")
		if err := b.list(havings, " AND "); err != nil {
			return "", nil, fmt.Errorf("compile having: %w", err)
		}
	}

	orders := rel.Orders()
	tiebreak := c.StableOrder && len(groups) == 0 && base.HasColumn(base.PrimaryKey)
	if len(orders) > 0 || tiebreak {
		b.write(" ORDER BY ")
		if err := b.list(orders, ", "); err != nil {
			return "", nil, fmt.Errorf("compile order: %w", err)
		}
		if tiebreak {
			if len(orders) > 0 {
				b.write(", ")
			}
			b.write(quoteIdent(base.Name) + "." + quoteIdent(base.PrimaryKey) + " ASC")
		}
	}

	if limit, ok := rel.LimitValue(); ok {
		b.write(" LIMIT " + strconv.Itoa(limit))
	}
	if offset := rel.OffsetValue(); offset > 0 {
		b.write(" OFFSET " + strconv.Itoa(offset))
	}

	return b.sql.String(), b.params, nil
}

// builder accumulates SQL text and parameters in textual order.
type builder struct {
	sql    strings.Builder
	params []any
}

func (b *builder) write(s string) { b.sql.WriteString(s) }

func (b *builder) list(nodes []exprir.Node, sep string) error {
	for i, n := range nodes {
		if i > 0 {
			b.write(sep)
		}
		if err := b.node(n, 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) node(n exprir.Node, depth int) error {
	if depth > exprir.DefaultMaxDepth {
		return fmt.Errorf("tree deeper than %d levels", exprir.DefaultMaxDepth)
	}
	if n != nil && exprir.IsNil(n) {
		return fmt.Errorf("cannot compile nil %T", n)
	}

	switch node := n.(type) {
	case *exprir.Literal:
		lit, err := formatLiteral(node.Value)
		if err != nil {
			return err
		}
		b.write(lit)
	case *exprir.SQL:
		b.write(node.Text)
	case *exprir.BindParam:
		b.write("?")
		b.params = append(b.params, node.Value)
	case *exprir.Attribute:
		if exprir.IsNil(node.Relation) {
			return fmt.Errorf("attribute %q has no relation", node.Name)
		}
		b.write(quoteIdent(node.Relation.RelationName()) + "." + quoteIdent(node.Name))
	case *exprir.Table:
		b.write(quoteIdent(node.Name))
	case *exprir.TableAlias:
		b.write(quoteIdent(node.Name))
	case *exprir.NamedFunction:
		return b.function(node, depth)
	case *exprir.Unary:
		return b.unary(node, depth)
	case *exprir.Binary:
		return b.binary(node, depth)
	case nil:
		return fmt.Errorf("cannot compile nil node")
	default:
		return fmt.Errorf("unsupported node type: %T", n)
	}
	return nil
}

func (b *builder) function(fn *exprir.NamedFunction, depth int) error {
	b.write(fn.Name + "(")
	if fn.Distinct {
		b.write("DISTINCT ")
	}
	for i, arg := range fn.Args {
		if i > 0 {
			b.write(", ")
		}
		if err := b.node(arg, depth+1); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	b.write(")")
	return nil
}

func (b *builder) unary(u *exprir.Unary, depth int) error {
	switch u.Op {
	case exprir.OpNot:
		b.write("NOT (")
		if err := b.node(u.Expr, depth+1); err != nil {
			return err
		}
		b.write(")")
	case exprir.OpGrouping:
		b.write("(")
		if err := b.node(u.Expr, depth+1); err != nil {
			return err
		}
		b.write(")")
	case exprir.OpAsc, exprir.OpDesc, exprir.OpNullsFirst, exprir.OpNullsLast:
		if err := b.node(u.Expr, depth+1); err != nil {
			return err
		}
		b.write(" " + string(u.Op))
	default:
		return fmt.Errorf("unsupported unary operator: %q", u.Op)
	}
	return nil
}

func (b *builder) binary(bin *exprir.Binary, depth int) error {
	switch {
	case bin.Op == exprir.OpAs:
		if err := b.node(bin.Left, depth+1); err != nil {
			return err
		}
		b.write(" AS ")
		if alias, ok := bin.Right.(*exprir.SQL); ok && alias != nil {
			b.write(quoteIdent(alias.Text))
			return nil
		}
		return b.node(bin.Right, depth+1)

	case (bin.Op == exprir.OpEq || bin.Op == exprir.OpNotEq) && isNull(bin.Right):
		if err := b.node(bin.Left, depth+1); err != nil {
			return err
		}
		if bin.Op == exprir.OpEq {
			b.write(" IS NULL")
		} else {
			b.write(" IS NOT NULL")
		}
		return nil

	case bin.Op == exprir.OpOr || bin.Op.IsArithmetic():
		b.write("(")
		if err := b.infix(bin, depth); err != nil {
			return err
		}
		b.write(")")
		return nil

	default:
		return b.infix(bin, depth)
	}
}

func (b *builder) infix(bin *exprir.Binary, depth int) error {
	if err := b.node(bin.Left, depth+1); err != nil {
		return err
	}
	b.write(" " + string(bin.Op) + " ")
	return b.node(bin.Right, depth+1)
}

// isNull reports whether n stands for SQL NULL.
func isNull(n exprir.Node) bool {
	switch node := n.(type) {
	case *exprir.BindParam:
		return node != nil && node.Value == nil
	case *exprir.Literal:
		return node != nil && node.Value == nil
	default:
		return false
	}
}

// formatLiteral inlines a literal value as SQL text.
func formatLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", fmt.Errorf("cannot inline non-finite float %v", val)
		}
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported literal type: %T", v)
	}
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
