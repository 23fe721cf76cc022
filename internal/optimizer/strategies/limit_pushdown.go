package strategies

import (
	"morselsql/internal/catalog"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// LimitPushdown moves a Limit node down past a chain of directly-beneath,
// single-consumer Projects (row-count preserving) so fewer rows flow
// through whatever expensive work used to sit above it, terminating
// either at a Scan/FunctionDataset whose connector advertises
// CapLimitPushable - in which case the limit is absorbed into the scan
// itself and the Limit node is dropped - or at the first node the walk
// cannot safely cross. It does not push past Filter, Join, Aggregate,
// Distinct, or Order/HeapSort: each of those can change which rows
// survive to be counted against the limit, so pushing past them would
// truncate the wrong rows.
type LimitPushdown struct{}

func NewLimitPushdown() *LimitPushdown { return &LimitPushdown{} }

func (s *LimitPushdown) Name() string { return "limit_pushdown" }

func (s *LimitPushdown) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Limit {
		return ctx
	}
	ins := ctx.Graph.IngoingEdges(nodeID)
	if len(ins) != 1 {
		return ctx
	}
	cur := ins[0].From

	for {
		child := ctx.Graph.Nodes[cur]
		if child.Type != plangraph.Project {
			break
		}
		next, ok := soleStep(ctx.Graph, cur)
		if !ok {
			break
		}
		cur = next
	}

	scan := ctx.Graph.Nodes[cur]
	if (scan.Type == plangraph.Scan || scan.Type == plangraph.FunctionDataset) &&
		scan.Connector != nil && scan.Connector.Capabilities().Has(catalog.CapLimitPushable) {
		limit := n.Count
		if scan.ScanLimit == nil || *scan.ScanLimit > limit {
			scan.ScanLimit = &limit
		}
		ctx.Graph.RemoveNode(nodeID, true)
		ctx.Fire(s.Name())
		return ctx
	}

	if cur == ins[0].From {
		return ctx
	}
	ctx.Graph.RemoveNode(nodeID, true)
	ctx.Graph.InsertNodeAfter(n, cur)
	ctx.Fire(s.Name())
	return ctx
}

func (s *LimitPushdown) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}
