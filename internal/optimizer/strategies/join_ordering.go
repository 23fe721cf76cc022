package strategies

import (
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// JoinOrdering picks which leg of an INNER join builds the hash table
// and which one probes it: the smaller leg should build, since the
// build side is materialised in full before the first probe row can be
// answered. This is the scoped-down version of join ordering spec.md
// section 9's open question calls for - "currently only chooses
// nested-loop vs hash for small legs" in the source; here, with a
// single hash-join operator family rather than a separate nested-loop
// operator, the equivalent lever is which side that operator treats as
// build vs probe. A full join-order enumeration across more than two
// legs at once remains the declared future extension.
type JoinOrdering struct{}

func NewJoinOrdering() *JoinOrdering { return &JoinOrdering{} }

func (s *JoinOrdering) Name() string { return "join_ordering" }

func (s *JoinOrdering) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Join || n.JoinType != plangraph.JoinInner || n.JoinOn == nil {
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
		default:
			return ctx
		}
	}
	leftRows := estimatedRows(ctx.Graph, leftEdge.From)
	rightRows := estimatedRows(ctx.Graph, rightEdge.From)
	// The build side (right) should be the smaller leg; if the left leg
	// is strictly smaller, swap the leg labels so the smaller side ends
	// up being built instead of probed row-by-row.
	if leftRows < rightRows {
		ctx.Graph.RemoveEdge(leftEdge.From, nodeID)
		ctx.Graph.RemoveEdge(rightEdge.From, nodeID)
		ctx.Graph.AddEdge(leftEdge.From, nodeID, plangraph.LegRight)
		ctx.Graph.AddEdge(rightEdge.From, nodeID, plangraph.LegLeft)
		ctx.Fire(s.Name())
	}
	return ctx
}

func (s *JoinOrdering) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

// estimatedRows gives a cheap, pre-cost-model row estimate for a leg:
// the connector's materialised row count for a scan directly beneath
// it, or a conservative default for anything more complex (a join,
// aggregate, or filtered subtree, whose true selectivity this strategy
// does not attempt to model).
func estimatedRows(g *plangraph.Graph, id string) int64 {
	for _, nid := range g.DepthFirstSearchFlat(id) {
		n := g.Nodes[nid]
		if n.Connector == nil {
			continue
		}
		_, rows, err := n.Connector.ReadDataset()
		if err == nil {
			return int64(len(rows))
		}
	}
	return 1 << 30
}

