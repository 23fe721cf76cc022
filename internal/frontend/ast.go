package frontend

import "morselsql/internal/plangraph"

// SelectItem is one entry in a SELECT list: either the bare wildcard
// (Star true) or an expression with an optional alias.
type SelectItem struct {
	Star  bool
	Expr  Expr
	Alias string
}

// TableRef names a FROM/JOIN input: a relation name and optional alias.
type TableRef struct {
	Relation string
	Alias    string
}

// JoinClause chains one JOIN onto the statement's FROM.
type JoinClause struct {
	Kind  plangraph.JoinType
	Table TableRef
	On    Expr
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

// SelectStatement is the AST this front end produces for every
// statement it accepts; EXPLAIN/SHOW wrap one as their inner query.
type SelectStatement struct {
	Columns  []SelectItem
	From     TableRef
	Joins    []JoinClause
	Where    Expr
	GroupBy  []Expr
	OrderBy  []OrderItem
	Limit    *int64
	Distinct bool

	Explain     bool
	Show        string // "TABLES" or ""
	ShowColumns string // relation name for SHOW COLUMNS FROM <rel>
}

// Expr is the front end's own small expression tree, translated into
// *expr.Node by the binder once relation/column names are resolved
// against the catalog.
type Expr interface{ exprNode() }

type LiteralExpr struct {
	Raw interface{}
	// Kind distinguishes how Raw should be typed: "int", "float",
	// "string", "bool", "null".
	Kind string
}

type IdentifierExpr struct {
	Relation string
	Name     string
}

type WildcardExpr struct{ Relation string }

type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

type UnaryExpr struct {
	Op   string
	Expr Expr
}

type FunctionExpr struct {
	Name     string
	Args     []Expr
	Distinct bool
}

func (LiteralExpr) exprNode()    {}
func (IdentifierExpr) exprNode() {}
func (WildcardExpr) exprNode()   {}
func (BinaryExpr) exprNode()     {}
func (UnaryExpr) exprNode()      {}
func (FunctionExpr) exprNode()   {}
