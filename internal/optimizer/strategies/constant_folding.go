// Package strategies implements the fixed, ordered rule pipeline the
// cost-based optimizer runs: each file is one independent Strategy,
// following the same "small struct + pointer-receiver rewrite method"
// shape as the polarsignals-arcticdb logical-plan optimizer's
// PhysicalProjectionPushDown/FilterPushDown/DistinctPushDown rules.
package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// ConstantFolding collapses any expression subtree with no column
// references down to a single Literal, evaluating it once up front
// instead of once per row. It runs both first (to simplify the binder's
// raw output) and last (to clean up literals BooleanSimplification and
// PredicateRewrite introduce), the same stateless strategy value reused
// twice in the pipeline.
type ConstantFolding struct{}

func NewConstantFolding() *ConstantFolding { return &ConstantFolding{} }

func (s *ConstantFolding) Name() string { return "constant_folding" }

func (s *ConstantFolding) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	changed := false
	if n.Predicate != nil {
		folded := fold(n.Predicate)
		if folded != n.Predicate {
			n.Predicate = folded
			changed = true
		}
	}
	for i, p := range n.Projections {
		folded := fold(p)
		if folded != p {
			n.Projections[i] = folded
			changed = true
		}
	}
	if n.JoinOn != nil {
		folded := fold(n.JoinOn)
		if folded != n.JoinOn {
			n.JoinOn = folded
			changed = true
		}
	}
	if changed {
		ctx.Fire(s.Name())
	}
	return ctx
}

func (s *ConstantFolding) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// fold recursively replaces any constant (identifier-free,
// deterministic) subtree with its evaluated Literal. Non-constant nodes
// are returned unchanged but with their children individually folded,
// since "partially constant" subtrees (e.g. `price * 2 > qty`) still
// benefit from folding the constant half.
func fold(n *expr.Node) *expr.Node {
	if n == nil {
		return nil
	}
	if n.Type != expr.Literal && n.IsConstant() {
		v, err := expr.Eval(n, nil)
		if err == nil {
			return expr.NewLiteral(v)
		}
	}
	switch n.Type {
	case expr.And, expr.Or, expr.Xor, expr.ComparisonOperator, expr.BinaryOperator:
		left, right := fold(n.Left), fold(n.Right)
		if left == n.Left && right == n.Right {
			return n
		}
		clone := *n
		clone.Left, clone.Right = left, right
		return &clone
	case expr.Not, expr.Nested:
		inner := fold(n.Left)
		if inner == n.Left {
			return n
		}
		clone := *n
		clone.Left = inner
		return &clone
	case expr.Function:
		changed := false
		args := make([]*expr.Node, len(n.Args))
		for i, a := range n.Args {
			args[i] = fold(a)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return n
		}
		clone := *n
		clone.Args = args
		return &clone
	default:
		return n
	}
}
