package strategies

import (
	"strings"

	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// PredicateRewrite turns LIKE/ILIKE comparisons that happen to contain
// no wildcard characters into plain equality, which is both cheaper to
// evaluate and opens the comparison up to the equality-keyed parts of
// PredicatePushdown and hash-join key extraction. Restricted to VARCHAR/
// BLOB operands per the textual operator family.
type PredicateRewrite struct{}

func NewPredicateRewrite() *PredicateRewrite { return &PredicateRewrite{} }

func (s *PredicateRewrite) Name() string { return "predicate_rewrite" }

func (s *PredicateRewrite) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Predicate == nil {
		return ctx
	}
	rewritten := rewrite(n.Predicate)
	if rewritten != n.Predicate {
		n.Predicate = rewritten
		ctx.Fire(s.Name())
	}
	return ctx
}

func (s *PredicateRewrite) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

func rewrite(n *expr.Node) *expr.Node {
	if n == nil {
		return nil
	}
	switch n.Type {
	case expr.And, expr.Or:
		left, right := rewrite(n.Left), rewrite(n.Right)
		if left == n.Left && right == n.Right {
			return n
		}
		clone := *n
		clone.Left, clone.Right = left, right
		return &clone
	case expr.Not:
		inner := rewrite(n.Left)
		if inner == n.Left {
			return n
		}
		clone := *n
		clone.Left = inner
		return &clone
	case expr.ComparisonOperator:
		if (n.Op == types.Like || n.Op == types.ILike) &&
			n.Right != nil && n.Right.Type == expr.Literal &&
			!types.IsNumeric(n.Right.Value.Type) {
			pattern, ok := n.Right.Value.Raw.(string)
			if ok && !strings.ContainsAny(pattern, "%_") {
				op := types.Eq
				if n.Op == types.ILike {
					// Case-insensitive equality has no dedicated operator;
					// IInStr's case-fold semantics is the closest existing
					// one, so rewrite to it on the whole (unsliced) string.
					op = types.IInStr
				}
				return expr.NewComparison(op, n.Left, n.Right)
			}
		}
		return n
	default:
		return n
	}
}
