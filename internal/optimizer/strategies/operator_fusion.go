package strategies

import (
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// OperatorFusion fuses a Limit sitting directly above an Order into a
// single HeapSort node, replacing an O(n log n) full sort followed by a
// truncation with a top-K heap the executor never needs to materialise
// more than 2K+1 rows for.
type OperatorFusion struct{}

func NewOperatorFusion() *OperatorFusion { return &OperatorFusion{} }

func (s *OperatorFusion) Name() string { return "operator_fusion" }

func (s *OperatorFusion) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Limit {
		return ctx
	}
	ins := ctx.Graph.IngoingEdges(nodeID)
	if len(ins) != 1 {
		return ctx
	}
	orderID := ins[0].From
	order := ctx.Graph.Nodes[orderID]
	if order.Type != plangraph.Order {
		return ctx
	}
	if len(ctx.Graph.OutgoingEdges(orderID)) != 1 {
		// Order feeds something else too; fusing would change that
		// consumer's view of the data, so leave both nodes standing.
		return ctx
	}

	heapSort := &plangraph.Node{
		Type:    plangraph.HeapSort,
		OrderBy: order.OrderBy,
		Count:   n.Count,
	}
	consumers := ctx.Graph.OutgoingEdges(nodeID)
	sources := ctx.Graph.IngoingEdges(orderID)

	ctx.Graph.RemoveNode(nodeID, false)
	ctx.Graph.RemoveNode(orderID, false)

	id := ctx.Graph.AddNode(heapSort)
	for _, e := range sources {
		ctx.Graph.AddEdge(e.From, id, e.Leg)
	}
	for _, e := range consumers {
		ctx.Graph.AddEdge(id, e.To, e.Leg)
	}
	ctx.Fire(s.Name())
	return ctx
}

func (s *OperatorFusion) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}
