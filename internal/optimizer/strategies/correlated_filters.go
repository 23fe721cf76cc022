package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// CorrelatedFilters infers a new filter on one join leg from a constant
// already known to hold on the other: given an equi-join key pair
// (left.col = right.col) and a Filter already pushed onto one leg of
// the form `leg.col = <literal>`, the same literal must also hold for
// the matching column on the other leg wherever the join actually
// produces a row, so pushing an equivalent filter there too can only
// shrink that leg's scan - it never changes the join's result. This is
// the "correlated-filter inference" rule spec.md section 1 names; it
// runs after JoinRewriter, once a join's ON condition and both legs'
// already-pushed filters have settled.
type CorrelatedFilters struct{}

func NewCorrelatedFilters() *CorrelatedFilters { return &CorrelatedFilters{} }

func (s *CorrelatedFilters) Name() string { return "correlated_filters" }

func (s *CorrelatedFilters) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Join || n.JoinOn == nil {
		return ctx
	}
	if n.JoinType != plangraph.JoinInner && n.JoinType != plangraph.JoinLeft && n.JoinType != plangraph.JoinRight {
		return ctx
	}
	legs := ctx.Graph.IngoingEdges(nodeID)
	if len(legs) != 2 {
		return ctx
	}
	var leftEdge, rightEdge plangraph.Edge
	for _, e := range legs {
		switch e.Leg {
		case plangraph.LegLeft:
			leftEdge = e
		case plangraph.LegRight:
			rightEdge = e
		}
	}
	if leftEdge.To == "" || rightEdge.To == "" {
		return ctx
	}

	fired := false
	for _, eq := range equalityPairs(n.JoinOn) {
		fired = s.propagate(ctx, eq.left, eq.right, leftEdge, rightEdge) || fired
		fired = s.propagate(ctx, eq.right, eq.left, rightEdge, leftEdge) || fired
	}
	if fired {
		ctx.Fire(s.Name())
	}
	return ctx
}

// propagate looks for an already-pushed `fromCol = literal` filter on
// fromEdge's subtree; if found, and toEdge's subtree has no filter on
// the matching column yet, it inserts one.
func (s *CorrelatedFilters) propagate(ctx *optimizer.Context, from, to *expr.Node, fromEdge, toEdge plangraph.Edge) bool {
	lit, ok := findEqualityLiteral(ctx.Graph, fromEdge.From, from.SchemaColumn.Identity)
	if !ok {
		return false
	}
	if hasEqualityFilter(ctx.Graph, toEdge.From, to.SchemaColumn.Identity) {
		return false
	}
	newFilter := &plangraph.Node{
		Type:      plangraph.Filter,
		Predicate: expr.NewComparison(types.Eq, cloneIdentifier(to), expr.NewLiteral(lit)),
	}
	ctx.Graph.InsertNodeAfter(newFilter, toEdge.From)
	return true
}

func (s *CorrelatedFilters) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

type keyPair struct{ left, right *expr.Node }

// equalityPairs returns the bare-identifier sides of every top-level
// AND-conjoined equality in a join condition, skipping comparisons
// where either side is not a bound column reference.
func equalityPairs(on *expr.Node) []keyPair {
	var out []keyPair
	for _, c := range flattenAnd(on, nil) {
		if c.Type != expr.ComparisonOperator || c.Op != types.Eq {
			continue
		}
		if c.Left == nil || c.Right == nil || c.Left.Type != expr.Identifier || c.Right.Type != expr.Identifier {
			continue
		}
		if c.Left.SchemaColumn == nil || c.Right.SchemaColumn == nil {
			continue
		}
		out = append(out, keyPair{left: c.Left, right: c.Right})
	}
	return out
}

// findEqualityLiteral searches the subtree rooted at id for a Filter of
// the shape `col = <literal>` where col's identity matches identity.
func findEqualityLiteral(g *plangraph.Graph, id, identity string) (types.Value, bool) {
	for _, nid := range g.DepthFirstSearchFlat(id) {
		n := g.Nodes[nid]
		if n.Type != plangraph.Filter || n.Predicate == nil {
			continue
		}
		if v, ok := matchEqualityLiteral(n.Predicate, identity); ok {
			return v, true
		}
	}
	return types.Value{}, false
}

func matchEqualityLiteral(p *expr.Node, identity string) (types.Value, bool) {
	if p.Type != expr.ComparisonOperator || p.Op != types.Eq {
		return types.Value{}, false
	}
	if p.Left != nil && p.Left.Type == expr.Identifier && p.Left.SchemaColumn != nil &&
		p.Left.SchemaColumn.Identity == identity && p.Right != nil && p.Right.Type == expr.Literal {
		return p.Right.Value, true
	}
	if p.Right != nil && p.Right.Type == expr.Identifier && p.Right.SchemaColumn != nil &&
		p.Right.SchemaColumn.Identity == identity && p.Left != nil && p.Left.Type == expr.Literal {
		return p.Left.Value, true
	}
	return types.Value{}, false
}

func hasEqualityFilter(g *plangraph.Graph, id, identity string) bool {
	for _, nid := range g.DepthFirstSearchFlat(id) {
		n := g.Nodes[nid]
		if n.Type != plangraph.Filter || n.Predicate == nil {
			continue
		}
		if _, ok := matchEqualityLiteral(n.Predicate, identity); ok {
			if cols := n.Predicate.Columns(); len(cols) > 0 {
				for _, c := range cols {
					if c.Identity == identity {
						return true
					}
				}
			}
		}
	}
	return false
}

func cloneIdentifier(n *expr.Node) *expr.Node {
	clone := expr.NewIdentifier(n.Relation, n.Name)
	clone.SchemaColumn = n.SchemaColumn
	clone.ResolvedType = n.ResolvedType
	return clone
}
