package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// BooleanSimplification rewrites boolean algebra into a cheaper
// equivalent shape: double negation cancels, NOT over an invertible
// comparison rewrites to the inverse comparison directly (dropping the
// NOT node entirely), and AND/OR short-circuit against literal
// TRUE/FALSE operands.
type BooleanSimplification struct{}

func NewBooleanSimplification() *BooleanSimplification { return &BooleanSimplification{} }

func (s *BooleanSimplification) Name() string { return "boolean_simplification" }

func (s *BooleanSimplification) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Predicate != nil {
		simplified := simplify(n.Predicate)
		if simplified != n.Predicate {
			n.Predicate = simplified
			ctx.Fire(s.Name())
		}
	}
	if n.JoinOn != nil {
		simplified := simplify(n.JoinOn)
		if simplified != n.JoinOn {
			n.JoinOn = simplified
			ctx.Fire(s.Name())
		}
	}
	return ctx
}

func (s *BooleanSimplification) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

func simplify(n *expr.Node) *expr.Node {
	if n == nil {
		return nil
	}
	switch n.Type {
	case expr.Not:
		inner := simplify(n.Left)
		if inner.Type == expr.Not {
			return inner.Left
		}
		if inner.Type == expr.ComparisonOperator {
			if inv, ok := types.InvertOperator(inner.Op); ok {
				return expr.NewComparison(inv, inner.Left, inner.Right)
			}
		}
		if inner == n.Left {
			return n
		}
		return expr.NewNot(inner)
	case expr.And:
		left, right := simplify(n.Left), simplify(n.Right)
		if isLiteralBool(left, false) || isLiteralBool(right, false) {
			return expr.NewLiteral(types.NewValue(false, types.Boolean))
		}
		if isLiteralBool(left, true) {
			return right
		}
		if isLiteralBool(right, true) {
			return left
		}
		if left == n.Left && right == n.Right {
			return n
		}
		return expr.NewAnd(left, right)
	case expr.Or:
		left, right := simplify(n.Left), simplify(n.Right)
		if isLiteralBool(left, true) || isLiteralBool(right, true) {
			return expr.NewLiteral(types.NewValue(true, types.Boolean))
		}
		if isLiteralBool(left, false) {
			return right
		}
		if isLiteralBool(right, false) {
			return left
		}
		if left == n.Left && right == n.Right {
			return n
		}
		return expr.NewOr(left, right)
	default:
		return n
	}
}

func isLiteralBool(n *expr.Node, want bool) bool {
	if n == nil || n.Type != expr.Literal || n.Value.IsNull() {
		return false
	}
	b, ok := n.Value.Raw.(bool)
	return ok && b == want
}
