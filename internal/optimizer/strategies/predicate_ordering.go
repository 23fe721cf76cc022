package strategies

import (
	"sort"

	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// PredicateOrdering reorders the top-level AND-conjuncts of a single
// Filter's condition cheapest-first, so the per-row evaluator short-
// circuits out of the AND chain before reaching a more expensive
// conjunct (a function call) when a cheaper one (a bare column compared
// to a literal) already failed. It runs once per Filter, after
// SplitConjunctivePredicates has turned every top-level AND into a chain
// of single-conjunct Filters and before the predicates move, so the only
// AND it sees at this point is one PredicateFlatten exposed by
// unwrapping a NESTED node.
type PredicateOrdering struct{}

func NewPredicateOrdering() *PredicateOrdering { return &PredicateOrdering{} }

func (s *PredicateOrdering) Name() string { return "predicate_ordering" }

func (s *PredicateOrdering) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Filter || n.Predicate == nil || n.Predicate.Type != expr.And {
		return ctx
	}
	conjuncts := flattenAnd(n.Predicate, nil)
	if len(conjuncts) < 2 {
		return ctx
	}
	ordered := append([]*expr.Node(nil), conjuncts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return predicateCost(ordered[i]) < predicateCost(ordered[j])
	})
	if sameOrder(conjuncts, ordered) {
		return ctx
	}
	rebuilt := ordered[0]
	for _, c := range ordered[1:] {
		rebuilt = expr.NewAnd(rebuilt, c)
	}
	n.Predicate = rebuilt
	ctx.Fire(s.Name())
	return ctx
}

func (s *PredicateOrdering) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// predicateCost ranks a conjunct by the kind of evaluation it costs:
// a bare column-vs-literal comparison is cheapest, any other comparison
// next, a function call most expensive (and most likely to dominate
// wall time if it runs on every row before a cheaper predicate could
// have already excluded it).
func predicateCost(n *expr.Node) int {
	switch n.Type {
	case expr.ComparisonOperator:
		if isColumnLiteralComparison(n) {
			return 0
		}
		return 1
	case expr.Function, expr.Aggregator:
		return 3
	default:
		return 2
	}
}

func isColumnLiteralComparison(n *expr.Node) bool {
	return isColumnOrLiteral(n.Left) && isColumnOrLiteral(n.Right) &&
		(n.Left.Type == expr.Identifier || n.Right.Type == expr.Identifier)
}

func isColumnOrLiteral(n *expr.Node) bool {
	return n != nil && (n.Type == expr.Identifier || n.Type == expr.Literal)
}

func sameOrder(a, b []*expr.Node) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
