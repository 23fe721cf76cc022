package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// SplitConjunctivePredicates breaks a Filter's top-level AND tree into a
// chain of single-conjunct Filter nodes. Splitting first means every
// later strategy - PredicateRewrite, PredicatePushdown - operates on one
// independent condition at a time, rather than needing to reason about
// partial pushability of a compound AND.
type SplitConjunctivePredicates struct{}

func NewSplitConjunctivePredicates() *SplitConjunctivePredicates {
	return &SplitConjunctivePredicates{}
}

func (s *SplitConjunctivePredicates) Name() string { return "split_conjunctive_predicates" }

func (s *SplitConjunctivePredicates) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Filter || n.Predicate == nil {
		return ctx
	}
	conjuncts := flattenAnd(n.Predicate, nil)
	if len(conjuncts) < 2 {
		return ctx
	}
	// Keep the first conjunct on this node, insert one new Filter node
	// per remaining conjunct directly above it.
	n.Predicate = conjuncts[0]
	cursor := nodeID
	for _, c := range conjuncts[1:] {
		newID := ctx.Graph.InsertNodeAfter(&plangraph.Node{Type: plangraph.Filter, Predicate: c}, cursor)
		cursor = newID
	}
	ctx.Fire(s.Name())
	return ctx
}

func flattenAnd(n *expr.Node, out []*expr.Node) []*expr.Node {
	if n.Type == expr.And {
		out = flattenAnd(n.Left, out)
		out = flattenAnd(n.Right, out)
		return out
	}
	return append(out, n)
}

func (s *SplitConjunctivePredicates) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}
