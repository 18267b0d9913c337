package exprir

// Node represents any element of an expression tree.
//
// This is a sealed interface - only types in this package implement it.
// All node kinds are used by pointer so that identity survives being
// passed around (a resolver returning the same *Attribute twice returns
// the same node).
type Node interface {
	exprNode() // Marker method - seals interface to this package
}

// Relation is a Node that can own columns: a Table or a TableAlias.
type Relation interface {
	Node
	relationNode()

	// RelationName is the name generated SQL uses to qualify columns.
	// For a TableAlias this is the alias, not the underlying table.
	RelationName() string
}

// IsNil reports whether n is nil or a nil pointer of a node type.
func IsNil(n Node) bool {
	switch node := n.(type) {
	case nil:
		return true
	case *Literal:
		return node == nil
	case *SQL:
		return node == nil
	case *BindParam:
		return node == nil
	case *Attribute:
		return node == nil
	case *NamedFunction:
		return node == nil
	case *Unary:
		return node == nil
	case *Binary:
		return node == nil
	case *Table:
		return node == nil
	case *TableAlias:
		return node == nil
	}
	return false
}

// Literal is a value rendered inline in generated SQL.
type Literal struct {
	Value any
}

func (*Literal) exprNode() {}

// SQL is raw SQL text. It is never quoted or parameterized.
type SQL struct {
	Text string
}

func (*SQL) exprNode() {}

// BindParam is a value destined for a parameter placeholder.
//
// The value is carried as given; no type inference or conversion happens
// here.
type BindParam struct {
	Value any
}

func (*BindParam) exprNode() {}

// Attribute is a column reference qualified by its relation.
//
// Example:
//
//	posts := NewTable("posts")
//	posts.Col("title") // "posts"."title"
type Attribute struct {
	Relation Relation
	Name     string
}

func (*Attribute) exprNode() {}

// NamedFunction is a function call: Name(Args...).
//
// Args are kept in call order. Distinct renders as name(DISTINCT args).
type NamedFunction struct {
	Name     string
	Args     []Node
	Distinct bool
}

func (*NamedFunction) exprNode() {}

// UnaryOp identifies the operator of a Unary node.
type UnaryOp string

const (
	OpNot        UnaryOp = "NOT"
	OpAsc        UnaryOp = "ASC"
	OpDesc       UnaryOp = "DESC"
	OpNullsFirst UnaryOp = "NULLS FIRST"
	OpNullsLast  UnaryOp = "NULLS LAST"
	OpGrouping   UnaryOp = "()"
)

// Unary wraps a single operand.
type Unary struct {
	Op   UnaryOp
	Expr Node
}

func (*Unary) exprNode() {}

// BinaryOp identifies the operator of a Binary node.
type BinaryOp string

const (
	OpEq       BinaryOp = "="
	OpNotEq    BinaryOp = "!="
	OpGt       BinaryOp = ">"
	OpGte      BinaryOp = ">="
	OpLt       BinaryOp = "<"
	OpLte      BinaryOp = "<="
	OpLike     BinaryOp = "LIKE"
	OpPlus     BinaryOp = "+"
	OpMinus    BinaryOp = "-"
	OpMultiply BinaryOp = "*"
	OpDivide   BinaryOp = "/"
	OpAnd      BinaryOp = "AND"
	OpOr       BinaryOp = "OR"
	OpAs       BinaryOp = "AS"
)

// IsArithmetic reports whether op is one of + - * /.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpPlus, OpMinus, OpMultiply, OpDivide:
		return true
	}
	return false
}

// Binary combines two operands. Left is always evaluated (and visited)
// before Right.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (*Binary) exprNode() {}

// Table is a base table reference.
type Table struct {
	Name string
}

// NewTable creates a Table node.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

func (*Table) exprNode()     {}
func (*Table) relationNode() {}

// RelationName returns the table name.
func (t *Table) RelationName() string { return t.Name }

// Col creates an Attribute bound to this table.
func (t *Table) Col(name string) *Attribute {
	return &Attribute{Relation: t, Name: name}
}

// Alias creates a TableAlias over this table.
func (t *Table) Alias(name string) *TableAlias {
	return &TableAlias{Name: name, Relation: t}
}

// TableAlias is a table referenced under another name.
type TableAlias struct {
	Name     string
	Relation *Table
}

func (*TableAlias) exprNode()     {}
func (*TableAlias) relationNode() {}

// RelationName returns the alias name.
func (ta *TableAlias) RelationName() string { return ta.Name }

// Col creates an Attribute bound to this alias.
func (ta *TableAlias) Col(name string) *Attribute {
	return &Attribute{Relation: ta, Name: name}
}
