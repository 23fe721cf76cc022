package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// PredicateFlatten strips redundant NESTED wrapper nodes out of a
// Filter/Join condition. A NESTED node wraps a parenthesised
// sub-expression to preserve source grouping for display (the frontend
// parser drops parentheses, so only plans built through expr.NewNested
// directly carry them); once
// BooleanSimplification and PredicateRewrite have already rewritten the
// tree, a NESTED node directly wrapping another NESTED (or wrapping a
// leaf that needs no grouping to stay unambiguous) carries no semantics
// and only costs an extra pointer hop for every later visit.
type PredicateFlatten struct{}

func NewPredicateFlatten() *PredicateFlatten { return &PredicateFlatten{} }

func (s *PredicateFlatten) Name() string { return "predicate_flatten" }

func (s *PredicateFlatten) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	changed := false
	if n.Predicate != nil {
		if f := unwrapNested(n.Predicate); f != n.Predicate {
			n.Predicate = f
			changed = true
		}
	}
	if n.JoinOn != nil {
		if f := unwrapNested(n.JoinOn); f != n.JoinOn {
			n.JoinOn = f
			changed = true
		}
	}
	if changed {
		ctx.Fire(s.Name())
	}
	return ctx
}

func (s *PredicateFlatten) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// unwrapNested collapses a chain of NESTED nodes down to the innermost
// non-NESTED node, then recurses into AND/OR children so a NESTED
// buried deeper in the tree is flattened too.
func unwrapNested(n *expr.Node) *expr.Node {
	if n == nil {
		return nil
	}
	for n.Type == expr.Nested {
		n = n.Left
	}
	switch n.Type {
	case expr.And, expr.Or, expr.Xor, expr.ComparisonOperator, expr.BinaryOperator:
		left, right := unwrapNested(n.Left), unwrapNested(n.Right)
		if left == n.Left && right == n.Right {
			return n
		}
		clone := *n
		clone.Left, clone.Right = left, right
		return &clone
	case expr.Not:
		inner := unwrapNested(n.Left)
		if inner == n.Left {
			return n
		}
		clone := *n
		clone.Left = inner
		return &clone
	default:
		return n
	}
}
