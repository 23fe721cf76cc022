// Package expr implements the expression tree shared by the binder, the
// optimizer strategies, and the physical evaluator: a single tagged
// Node type carrying per-kind fields, in the same style as the
// optimizer's plan nodes.
package expr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"morselsql/internal/catalog"
	"morselsql/internal/types"
)

// NodeType is the closed set of expression node kinds.
type NodeType int

const (
	Unknown NodeType = iota
	Literal
	Identifier
	Wildcard
	And
	Or
	Not
	Xor
	ComparisonOperator
	BinaryOperator
	UnaryOperator
	Function
	Aggregator
	Nested
	ExpressionList
	Dnf
)

func (t NodeType) String() string {
	switch t {
	case Literal:
		return "Literal"
	case Identifier:
		return "Identifier"
	case Wildcard:
		return "Wildcard"
	case And:
		return "And"
	case Or:
		return "Or"
	case Not:
		return "Not"
	case Xor:
		return "Xor"
	case ComparisonOperator:
		return "ComparisonOperator"
	case BinaryOperator:
		return "BinaryOperator"
	case UnaryOperator:
		return "UnaryOperator"
	case Function:
		return "Function"
	case Aggregator:
		return "Aggregator"
	case Nested:
		return "Nested"
	case ExpressionList:
		return "ExpressionList"
	case Dnf:
		return "Dnf"
	default:
		return "Unknown"
	}
}

// Node is a single expression tree node. Only the fields relevant to
// NodeType are populated, mirroring the plan graph's per-kind pointer
// fields (each node "is" exactly one of these shapes, selected by Type).
type Node struct {
	Identity string
	Type     NodeType

	// Literal
	Value types.Value

	// Identifier: bound column, set by the binder once resolved.
	Name         string
	Relation     string
	SchemaColumn *catalog.SchemaColumn

	// And/Or/Not/Xor/Nested/UnaryOperator: operand(s).
	Left  *Node
	Right *Node

	// ComparisonOperator/BinaryOperator
	Op types.Operator

	// Function/Aggregator
	FunctionName string
	Args         []*Node
	Distinct     bool // Aggregator(DISTINCT arg)

	// ExpressionList/Dnf: flattened child set (conjuncts, disjuncts, list items).
	Items []*Node

	// ResolvedType is filled in by the binder/ConstantFolding once the
	// operator-result table can determine it; Unknown means untyped.
	ResolvedType types.OrsoType

	// Alias is the output column name this expression projects as, when
	// it appears directly in a SELECT list.
	Alias string
}

func newNode(t NodeType) *Node {
	return &Node{Identity: uuid.NewString(), Type: t}
}

func NewLiteral(v types.Value) *Node {
	n := newNode(Literal)
	n.Value = v
	n.ResolvedType = v.Type
	return n
}

func NewIdentifier(relation, name string) *Node {
	n := newNode(Identifier)
	n.Relation = relation
	n.Name = name
	return n
}

func NewWildcard(relation string) *Node {
	n := newNode(Wildcard)
	n.Relation = relation
	return n
}

func NewAnd(left, right *Node) *Node {
	n := newNode(And)
	n.Left, n.Right = left, right
	n.ResolvedType = types.Boolean
	return n
}

func NewOr(left, right *Node) *Node {
	n := newNode(Or)
	n.Left, n.Right = left, right
	n.ResolvedType = types.Boolean
	return n
}

func NewNot(operand *Node) *Node {
	n := newNode(Not)
	n.Left = operand
	n.ResolvedType = types.Boolean
	return n
}

func NewXor(left, right *Node) *Node {
	n := newNode(Xor)
	n.Left, n.Right = left, right
	n.ResolvedType = types.Boolean
	return n
}

func NewComparison(op types.Operator, left, right *Node) *Node {
	n := newNode(ComparisonOperator)
	n.Op, n.Left, n.Right = op, left, right
	n.ResolvedType = types.Boolean
	return n
}

func NewBinary(op types.Operator, left, right *Node) *Node {
	n := newNode(BinaryOperator)
	n.Op, n.Left, n.Right = op, left, right
	if left.ResolvedType != types.Unknown && right.ResolvedType != types.Unknown {
		if rt, ok := types.ResultType(left.ResolvedType, right.ResolvedType, op); ok {
			n.ResolvedType = rt
		}
	}
	return n
}

func NewFunction(name string, args ...*Node) *Node {
	n := newNode(Function)
	n.FunctionName = name
	n.Args = args
	return n
}

func NewAggregator(name string, distinct bool, arg *Node) *Node {
	n := newNode(Aggregator)
	n.FunctionName = name
	n.Distinct = distinct
	if arg != nil {
		n.Args = []*Node{arg}
	}
	return n
}

func NewNested(inner *Node) *Node {
	n := newNode(Nested)
	n.Left = inner
	n.ResolvedType = inner.ResolvedType
	return n
}

func NewExpressionList(items ...*Node) *Node {
	n := newNode(ExpressionList)
	n.Items = items
	return n
}

// NewDnf builds a disjunctive-normal-form node: a flat list of
// conjunction nodes (each itself a Node tree of Ands). No optimizer
// strategy builds one; SplitConjunctivePredicates splits Filters
// directly.
func NewDnf(conjuncts ...*Node) *Node {
	n := newNode(Dnf)
	n.Items = conjuncts
	return n
}

// IsDeterministic reports whether repeated evaluation of this
// expression (holding schema/row constant) always yields the same
// value. RANDOM()-family functions and their callers are not, which
// blocks ConstantFolding.
func (n *Node) IsDeterministic() bool {
	if n == nil {
		return true
	}
	if n.Type == Function && isNonDeterministic(n.FunctionName) {
		return false
	}
	if n.Left != nil && !n.Left.IsDeterministic() {
		return false
	}
	if n.Right != nil && !n.Right.IsDeterministic() {
		return false
	}
	for _, a := range n.Args {
		if !a.IsDeterministic() {
			return false
		}
	}
	for _, it := range n.Items {
		if !it.IsDeterministic() {
			return false
		}
	}
	return true
}

var nonDeterministicFunctions = map[string]bool{
	"RANDOM":        true,
	"RAND":          true,
	"NORMAL":        true,
	"RANDOM_STRING": true,
	"NOW":           true,
	"CURRENT_TIME":  true,
}

func isNonDeterministic(name string) bool {
	return nonDeterministicFunctions[strings.ToUpper(name)]
}

// IsConstant reports whether the expression contains no Identifier
// nodes and is deterministic, i.e. it can be folded to a single
// Literal by ConstantFolding.
func (n *Node) IsConstant() bool {
	if n == nil {
		return true
	}
	if n.Type == Identifier || n.Type == Wildcard {
		return false
	}
	if !n.IsDeterministic() {
		return false
	}
	if n.Left != nil && !n.Left.IsConstant() {
		return false
	}
	if n.Right != nil && !n.Right.IsConstant() {
		return false
	}
	for _, a := range n.Args {
		if !a.IsConstant() {
			return false
		}
	}
	for _, it := range n.Items {
		if !it.IsConstant() {
			return false
		}
	}
	return true
}

// Columns returns every SchemaColumn referenced transitively, used by
// ProjectionPushdown/PredicatePushdown to compute which columns a node
// needs from below.
func (n *Node) Columns() []*catalog.SchemaColumn {
	var out []*catalog.SchemaColumn
	n.walkColumns(&out)
	return out
}

func (n *Node) walkColumns(out *[]*catalog.SchemaColumn) {
	if n == nil {
		return
	}
	if n.Type == Identifier && n.SchemaColumn != nil {
		*out = append(*out, n.SchemaColumn)
	}
	n.Left.walkColumns(out)
	n.Right.walkColumns(out)
	for _, a := range n.Args {
		a.walkColumns(out)
	}
	for _, it := range n.Items {
		it.walkColumns(out)
	}
}

// Clone makes a deep structural copy with fresh identities. Outside its
// own recursion nothing in the repository calls it.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Identity = uuid.NewString()
	c.Left = n.Left.Clone()
	c.Right = n.Right.Clone()
	if n.Args != nil {
		c.Args = make([]*Node, len(n.Args))
		for i, a := range n.Args {
			c.Args[i] = a.Clone()
		}
	}
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = it.Clone()
		}
	}
	return &c
}

func (n *Node) String() string {
	return n.toString()
}

func (n *Node) toString() string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case Literal:
		return n.Value.String()
	case Identifier:
		if n.Relation != "" {
			return fmt.Sprintf("%s.%s", n.Relation, n.Name)
		}
		return n.Name
	case Wildcard:
		if n.Relation != "" {
			return n.Relation + ".*"
		}
		return "*"
	case And:
		return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
	case Or:
		return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
	case Not:
		return fmt.Sprintf("NOT (%s)", n.Left)
	case Xor:
		return fmt.Sprintf("(%s XOR %s)", n.Left, n.Right)
	case ComparisonOperator, BinaryOperator:
		return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
	case UnaryOperator:
		return fmt.Sprintf("%s(%s)", n.Op, n.Left)
	case Function:
		return fmt.Sprintf("%s(%s)", n.FunctionName, joinNodes(n.Args))
	case Aggregator:
		distinct := ""
		if n.Distinct {
			distinct = "DISTINCT "
		}
		return fmt.Sprintf("%s(%s%s)", n.FunctionName, distinct, joinNodes(n.Args))
	case Nested:
		return fmt.Sprintf("(%s)", n.Left)
	case ExpressionList:
		return joinNodes(n.Items)
	case Dnf:
		parts := make([]string, len(n.Items))
		for i, it := range n.Items {
			parts[i] = it.String()
		}
		return strings.Join(parts, " OR ")
	default:
		return "?"
	}
}

func joinNodes(nodes []*Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
