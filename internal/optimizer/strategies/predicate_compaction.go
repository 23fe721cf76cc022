package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// PredicateCompaction merges a chain of single-parent/single-child
// Filter nodes back into one Filter ANDing every conjunct, and drops
// any conjunct that is a structural duplicate of one already kept. A
// chain like this accumulates naturally: SplitConjunctivePredicates
// explodes one compound Filter into several, and PredicatePushdown
// relocates each independently, but two of them can still end up
// stacked directly on top of each other again (e.g. both pushed onto
// the same scan) - compaction collapses that back into a single
// operator so the executor evaluates one condition per row, not N.
type PredicateCompaction struct{}

func NewPredicateCompaction() *PredicateCompaction { return &PredicateCompaction{} }

func (s *PredicateCompaction) Name() string { return "predicate_compaction" }

func (s *PredicateCompaction) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Filter || n.Predicate == nil {
		return ctx
	}
	ins := ctx.Graph.IngoingEdges(nodeID)
	if len(ins) != 1 {
		return ctx
	}
	childID := ins[0].From
	child := ctx.Graph.Nodes[childID]
	if child.Type != plangraph.Filter || child.Predicate == nil {
		return ctx
	}
	// Only safe to merge straight through when the child has exactly
	// this one consumer - otherwise the child's result is shared by
	// something else and must stay a separate, unfiltered-by-us step.
	if len(ctx.Graph.OutgoingEdges(childID)) != 1 {
		return ctx
	}

	conjuncts := dedupeConjuncts(append(flattenAnd(n.Predicate, nil), flattenAnd(child.Predicate, nil)...))
	merged := conjuncts[0]
	for _, c := range conjuncts[1:] {
		merged = expr.NewAnd(merged, c)
	}
	n.Predicate = merged
	ctx.Graph.RemoveNode(childID, true)
	ctx.Fire(s.Name())
	return ctx
}

func (s *PredicateCompaction) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// dedupeConjuncts drops any conjunct whose rendered form exactly
// matches one already kept, preserving first-seen order.
func dedupeConjuncts(conjuncts []*expr.Node) []*expr.Node {
	seen := make(map[string]bool, len(conjuncts))
	out := make([]*expr.Node, 0, len(conjuncts))
	for _, c := range conjuncts {
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
