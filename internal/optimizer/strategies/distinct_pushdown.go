package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// DistinctPushdown folds a Distinct directly above an Unnest into the
// unnest itself (Unnest.distinct = true, dropping the Distinct node)
// when the distinct's identity set is exactly the unnested element's
// identity, since per-element dedup during unnesting produces the same
// result as a Distinct over just that column afterwards, cheaper because
// it never materialises the duplicate rows in the first place. It also
// removes a Distinct node that sits directly beneath another Distinct
// whose column set is identical to or a subset of its own - the inner
// one is provably redundant, since uniqueness over the outer's fewer
// columns is the stronger guarantee - and relocates a Distinct past a
// directly-beneath identity Project (a pure column rename/reorder with
// the same arity), since such a Project can never introduce or hide
// duplicate rows.
type DistinctPushdown struct{}

func NewDistinctPushdown() *DistinctPushdown { return &DistinctPushdown{} }

func (s *DistinctPushdown) Name() string { return "distinct_pushdown" }

func (s *DistinctPushdown) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Distinct {
		return ctx
	}
	ins := ctx.Graph.IngoingEdges(nodeID)
	if len(ins) != 1 {
		return ctx
	}
	childID := ins[0].From
	child := ctx.Graph.Nodes[childID]

	if child.Type == plangraph.Unnest && foldUnnestDistinct(n, child) {
		ctx.Graph.RemoveNode(nodeID, true)
		ctx.Fire(s.Name())
		return ctx
	}

	if child.Type == plangraph.Distinct && distinctSetCoveredBy(n.DistinctOn, child.DistinctOn) {
		ctx.Graph.RemoveNode(childID, true)
		ctx.Fire(s.Name())
		return ctx
	}

	if child.Type == plangraph.Project && isIdentityProjection(ctx.Graph, child, childID) {
		ctx.Graph.RemoveNode(nodeID, true)
		ctx.Graph.InsertNodeBefore(n, childID)
		ctx.Fire(s.Name())
	}
	return ctx
}

func (s *DistinctPushdown) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// distinctSetCoveredBy reports whether outer's column set is a subset
// of inner's - meaning outer's uniqueness guarantee is at least as
// strong, so inner is redundant. An empty outer set means "distinct
// over the whole row", which is never covered by a narrower inner set.
func distinctSetCoveredBy(outer, inner []*expr.Node) bool {
	if len(outer) == 0 || len(inner) == 0 {
		return false
	}
	innerCols := make(map[string]bool)
	for _, e := range inner {
		for _, c := range e.Columns() {
			innerCols[c.Identity] = true
		}
	}
	for _, e := range outer {
		for _, c := range e.Columns() {
			if !innerCols[c.Identity] {
				return false
			}
		}
	}
	return true
}

// foldUnnestDistinct reports whether distinctOn's identity set is
// exactly {unnest.UnnestElement.identity}, and if so marks the unnest
// to dedup its own output, per the rule spec section 4.2.7 names.
func foldUnnestDistinct(distinct *plangraph.Node, unnest *plangraph.Node) bool {
	if unnest.UnnestElement == nil {
		return false
	}
	required, ok := distinctIdentitySet(distinct.DistinctOn)
	if !ok || len(required) != 1 || !required[unnest.UnnestElement.Identity] {
		return false
	}
	unnest.UnnestDistinct = true
	return true
}

func distinctIdentitySet(on []*expr.Node) (map[string]bool, bool) {
	if len(on) == 0 {
		return nil, false
	}
	out := make(map[string]bool, len(on))
	for _, e := range on {
		if e.Type != expr.Identifier || e.SchemaColumn == nil {
			return nil, false
		}
		out[e.SchemaColumn.Identity] = true
	}
	return out, true
}

// isIdentityProjection reports whether every projection in the node is
// a bare column reference (no function/expression) and together they
// reselect every column reachable below it, so the node neither computes
// nor drops a column and cannot affect row uniqueness by itself.
func isIdentityProjection(g *plangraph.Graph, n *plangraph.Node, id string) bool {
	ins := g.IngoingEdges(id)
	if len(n.Projections) == 0 || len(ins) != 1 {
		return false
	}
	below := reachableColumns(g, ins[0].From)
	kept := make(map[string]bool, len(n.Projections))
	for _, p := range n.Projections {
		if p.Type != expr.Identifier || p.SchemaColumn == nil || !below[p.SchemaColumn.Identity] {
			return false
		}
		kept[p.SchemaColumn.Identity] = true
	}
	return len(kept) == len(below)
}
