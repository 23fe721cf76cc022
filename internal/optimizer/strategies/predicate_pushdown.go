package strategies

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// PredicatePushdown moves a Filter node as close to its data source as
// the columns it references allow: through Project/Order/Limit/Offset
// nodes unconditionally (they never remove the columns a predicate
// needs, since ProjectionPushdown has not yet pruned them), through an
// Unnest that the predicate doesn't reference, onto whichever leg of a
// Join holds every column the predicate touches (provided the join type
// makes that leg's rows safe to filter before the join runs - pushing
// past an outer join's nullable side is unsound), and all the way into
// a Scan/FunctionDataset when the connector advertises
// CapPredicatePushable and accepts the predicate's operator/operand
// types. It stops at an Aggregate, Distinct, or Union boundary, and at
// an Unnest whose element column the predicate needs but that cannot be
// folded into the unnest itself.
//
// A single Visit call walks every hop the filter can legally cross in
// one relocation, not just the node directly beneath it: the optimizer
// drives exactly one depth-first pass per strategy (CostBasedOptimizer.
// Optimize), so a predicate separated from its destination by more than
// one pass-through node must still relocate within this one pass.
type PredicatePushdown struct{}

func NewPredicatePushdown() *PredicatePushdown { return &PredicatePushdown{} }

func (s *PredicatePushdown) Name() string { return "predicate_pushdown" }

var passThroughKinds = map[plangraph.StepType]bool{
	plangraph.Project: true,
	plangraph.Order:    true,
	plangraph.Limit:    true,
	plangraph.Offset:   true,
}

func (s *PredicatePushdown) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Filter {
		return ctx
	}
	ins := ctx.Graph.IngoingEdges(nodeID)
	if len(ins) != 1 {
		return ctx
	}

	cols := columnIdentities(n.Predicate.Columns())
	cur := ins[0].From

walk:
	for {
		child := ctx.Graph.Nodes[cur]

		switch {
		case passThroughKinds[child.Type]:
			next, ok := soleStep(ctx.Graph, cur)
			if !ok {
				break walk
			}
			cur = next

		case child.Type == plangraph.Unnest:
			if child.UnnestElement != nil && cols[child.UnnestElement.Identity] {
				if appendUnnestFilter(child, n.Predicate) {
					ctx.Graph.RemoveNode(nodeID, true)
					ctx.Fire(s.Name())
					return ctx
				}
				break walk
			}
			next, ok := soleStep(ctx.Graph, cur)
			if !ok {
				break walk
			}
			cur = next

		case child.Type == plangraph.Join:
			for _, legEdge := range ctx.Graph.IngoingEdges(cur) {
				if legEdge.Leg == plangraph.LegNone {
					continue
				}
				if !canPushPastJoin(child.JoinType, legEdge.Leg) {
					continue
				}
				legCols := reachableColumns(ctx.Graph, legEdge.From)
				if subsetOf(cols, legCols) {
					relocate(ctx.Graph, nodeID, legEdge.From)
					ctx.Fire(s.Name())
					return ctx
				}
			}
			break walk

		case child.Type == plangraph.Scan || child.Type == plangraph.FunctionDataset:
			if canPushIntoScan(child, n.Predicate, cols) {
				appendScanPredicate(child, n.Predicate)
				ctx.Graph.RemoveNode(nodeID, true)
				ctx.Fire(s.Name())
				return ctx
			}
			break walk

		default:
			break walk
		}
	}

	if cur != ins[0].From {
		relocate(ctx.Graph, nodeID, cur)
		ctx.Fire(s.Name())
	}
	return ctx
}

func (s *PredicatePushdown) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// soleStep advances past id only when id has exactly one consumer and
// exactly one input (so relocating the filter below id cannot skip over
// a fan-in/fan-out the single-pass walk didn't account for), returning
// that input's id.
func soleStep(g *plangraph.Graph, id string) (string, bool) {
	if len(g.OutgoingEdges(id)) != 1 {
		return "", false
	}
	ins := g.IngoingEdges(id)
	if len(ins) != 1 {
		return "", false
	}
	return ins[0].From, true
}

// canPushPastJoin reports whether a predicate touching only leg's
// columns may be relocated below the join (spec section 4.2.5: "pushing
// past an outer join is unsound" for the nullable side). INNER, CROSS,
// SEMI, and ANTI joins never null-extend either input, so both legs are
// safe. LEFT/RIGHT preserve one side and null-extend the other: only
// the preserved leg is safe. FULL null-extends both, so neither leg is
// safe - the filter must stay above the join.
func canPushPastJoin(joinType plangraph.JoinType, leg plangraph.Leg) bool {
	switch joinType {
	case plangraph.JoinLeft:
		return leg == plangraph.LegLeft
	case plangraph.JoinRight:
		return leg == plangraph.LegRight
	case plangraph.JoinFull:
		return false
	default:
		return true
	}
}

// relocate removes the filter node (healing its current position) and
// reinserts it directly above targetID, becoming targetID's new sole
// parent - the single graph edit that achieves an arbitrary-hop
// relocation, since targetID may be several nodes below the filter's
// original position.
func relocate(g *plangraph.Graph, filterID, targetID string) {
	filter := g.Nodes[filterID]
	g.RemoveNode(filterID, true)
	g.InsertNodeAfter(filter, targetID)
}

// canPushIntoScan reports whether predicate can be evaluated entirely
// by the scan: every column it touches must belong to the connector's
// own schema (nothing computed above the scan), and the connector must
// both advertise CapPredicatePushable and accept the predicate's
// operator over its operand types via CanPush.
func canPushIntoScan(scan *plangraph.Node, predicate *expr.Node, cols map[string]bool) bool {
	if scan.Connector == nil || !scan.Connector.Capabilities().Has(catalog.CapPredicatePushable) {
		return false
	}
	if len(cols) == 0 {
		return false
	}
	scanCols := columnIdentities(scan.Connector.Schema())
	if !subsetOf(cols, scanCols) {
		return false
	}
	if predicate.Type != expr.ComparisonOperator {
		return true
	}
	left, right := operandTypes(predicate)
	return scan.Connector.CanPush(predicate.Op, left, right)
}

func appendScanPredicate(scan *plangraph.Node, predicate *expr.Node) {
	scan.Predicates = append(scan.Predicates, predicate)
}

// appendUnnestFilter folds predicate into unnest.UnnestFilters when it
// is a direct equality/membership test against the unnested element
// (the only shape that can be evaluated per-element before the cross
// product is materialised; anything else - a function call, a
// comparison against another column - must stay a Filter above the
// unnest).
func appendUnnestFilter(unnest *plangraph.Node, predicate *expr.Node) bool {
	if !isUnnestElementFilter(predicate, unnest.UnnestElement) {
		return false
	}
	unnest.UnnestFilters = append(unnest.UnnestFilters, predicate)
	return true
}

func isUnnestElementFilter(predicate *expr.Node, element *catalog.SchemaColumn) bool {
	if predicate.Type != expr.ComparisonOperator || predicate.Op != types.Eq && predicate.Op != types.InList {
		return false
	}
	return referencesOnly(predicate.Left, element) && predicate.Right.IsConstant() ||
		referencesOnly(predicate.Right, element) && predicate.Left.IsConstant()
}

func referencesOnly(n *expr.Node, col *catalog.SchemaColumn) bool {
	return n.Type == expr.Identifier && n.SchemaColumn != nil && n.SchemaColumn.Identity == col.Identity
}

func operandTypes(n *expr.Node) (left, right types.OrsoType) {
	if n.Left != nil {
		left = n.Left.ResolvedType
	}
	if n.Right != nil {
		right = n.Right.ResolvedType
	}
	return left, right
}

func columnIdentities(cols []*catalog.SchemaColumn) map[string]bool {
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c.Identity] = true
	}
	return out
}

func subsetOf(needle, haystack map[string]bool) bool {
	if len(needle) == 0 {
		return false
	}
	for id := range needle {
		if !haystack[id] {
			return false
		}
	}
	return true
}

// reachableColumns collects every SchemaColumn available below id, by
// inspecting connector schemas at Scan/FunctionDataset nodes and
// projection lists encountered along the way.
func reachableColumns(g *plangraph.Graph, id string) map[string]bool {
	out := make(map[string]bool)
	for _, nid := range g.DepthFirstSearchFlat(id) {
		n := g.Nodes[nid]
		if n.Connector != nil {
			for _, c := range n.Connector.Schema() {
				out[c.Identity] = true
			}
		}
		for _, p := range n.Projections {
			for _, c := range p.Columns() {
				out[c.Identity] = true
			}
		}
		if n.UnnestElement != nil {
			out[n.UnnestElement.Identity] = true
		}
	}
	return out
}
