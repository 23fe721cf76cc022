package optimizer

import (
	"math"

	"morselsql/internal/plangraph"
)

// CostConfig carries the per-operation cost coefficients the model
// multiplies cardinalities by - generalized from the teacher's
// SeqPageCost/RandomPageCost/CPUTupleCost trio to the morsel engine's
// scan/hash/sort operators.
type CostConfig struct {
	RowReadCost   float64
	CPURowCost    float64
	HashBuildCost float64
	HashProbeCost float64
}

func DefaultCostConfig() CostConfig {
	return CostConfig{
		RowReadCost:   0.01,
		CPURowCost:    0.002,
		HashBuildCost: 0.004,
		HashProbeCost: 0.002,
	}
}

// CostModel estimates EstimatedRows/EstimatedCost for every node in a
// plan graph, walking children-before-parents the same way the
// teacher's CostModel.EstimateCost recursed into plan.Children.
type CostModel struct {
	config CostConfig
}

func NewCostModel(config CostConfig) *CostModel {
	return &CostModel{config: config}
}

// Annotate fills in EstimatedRows/EstimatedCost for every node reachable
// from the graph's exit point.
func (cm *CostModel) Annotate(g *plangraph.Graph) {
	root, err := g.SingleExitPoint()
	if err != nil {
		return
	}
	for _, id := range g.DepthFirstSearchFlat(root) {
		cm.annotateNode(g, id)
	}
}

func (cm *CostModel) annotateNode(g *plangraph.Graph, id string) {
	n := g.Nodes[id]
	children := g.IngoingEdges(id)

	switch n.Type {
	case plangraph.Scan, plangraph.FunctionDataset:
		rows := int64(1000)
		if n.Connector != nil {
			_, data, err := n.Connector.ReadDataset()
			if err == nil {
				rows = int64(len(data))
			}
		}
		n.EstimatedRows = rows
		n.EstimatedCost = float64(rows) * cm.config.RowReadCost

	case plangraph.Filter:
		child := g.Nodes[children[0].From]
		n.EstimatedRows = int64(float64(child.EstimatedRows) * selectivity(n))
		n.EstimatedCost = child.EstimatedCost + float64(child.EstimatedRows)*cm.config.CPURowCost

	case plangraph.Project, plangraph.Unnest:
		child := g.Nodes[children[0].From]
		n.EstimatedRows = child.EstimatedRows
		n.EstimatedCost = child.EstimatedCost + float64(child.EstimatedRows)*cm.config.CPURowCost*0.2

	case plangraph.Join:
		left, right := joinChildren(g, n, children)
		n.EstimatedRows = estimateJoinCardinality(left.EstimatedRows, right.EstimatedRows)
		build := float64(right.EstimatedRows) * cm.config.HashBuildCost
		probe := float64(left.EstimatedRows) * cm.config.HashProbeCost
		n.EstimatedCost = left.EstimatedCost + right.EstimatedCost + build + probe

	case plangraph.Aggregate, plangraph.AggregateAndGroup:
		child := g.Nodes[children[0].From]
		groups := int64(1)
		if len(n.GroupBy) > 0 {
			groups = estimateGroupCardinality(child.EstimatedRows, len(n.GroupBy))
		}
		n.EstimatedRows = groups
		n.EstimatedCost = child.EstimatedCost + float64(child.EstimatedRows)*cm.config.HashBuildCost

	case plangraph.Order, plangraph.HeapSort:
		child := g.Nodes[children[0].From]
		n.EstimatedRows = child.EstimatedRows
		n.EstimatedCost = child.EstimatedCost + sortCost(child.EstimatedRows, cm.config.CPURowCost)
		if n.Type == plangraph.HeapSort && n.Count > 0 && n.Count < n.EstimatedRows {
			n.EstimatedRows = n.Count
		}

	case plangraph.Limit:
		child := g.Nodes[children[0].From]
		n.EstimatedRows = n.Count
		if child.EstimatedRows < n.Count {
			n.EstimatedRows = child.EstimatedRows
		}
		n.EstimatedCost = child.EstimatedCost * 0.1

	case plangraph.Offset:
		child := g.Nodes[children[0].From]
		n.EstimatedRows = child.EstimatedRows - n.Count
		if n.EstimatedRows < 0 {
			n.EstimatedRows = 0
		}
		n.EstimatedCost = child.EstimatedCost

	case plangraph.Distinct:
		child := g.Nodes[children[0].From]
		n.EstimatedRows = estimateGroupCardinality(child.EstimatedRows, max(1, len(n.DistinctOn)))
		n.EstimatedCost = child.EstimatedCost + float64(child.EstimatedRows)*cm.config.HashBuildCost

	case plangraph.Union:
		var rows int64
		var cost float64
		for _, e := range children {
			c := g.Nodes[e.From]
			rows += c.EstimatedRows
			cost += c.EstimatedCost
		}
		n.EstimatedRows, n.EstimatedCost = rows, cost

	default:
		if len(children) > 0 {
			child := g.Nodes[children[0].From]
			n.EstimatedRows = child.EstimatedRows
			n.EstimatedCost = child.EstimatedCost
		}
	}
}

func joinChildren(g *plangraph.Graph, n *plangraph.Node, edges []plangraph.Edge) (*plangraph.Node, *plangraph.Node) {
	var left, right *plangraph.Node
	for _, e := range edges {
		switch e.Leg {
		case plangraph.LegLeft:
			left = g.Nodes[e.From]
		case plangraph.LegRight:
			right = g.Nodes[e.From]
		}
	}
	if left == nil && len(edges) > 0 {
		left = g.Nodes[edges[0].From]
	}
	if right == nil && len(edges) > 1 {
		right = g.Nodes[edges[1].From]
	}
	if left == nil {
		left = &plangraph.Node{}
	}
	if right == nil {
		right = &plangraph.Node{}
	}
	return left, right
}

// selectivity is a fixed heuristic: every predicate, whatever its
// shape, is assumed to pass a third of rows; no predicate means all rows.
func selectivity(n *plangraph.Node) float64 {
	if n.Predicate == nil {
		return 1.0
	}
	return 0.33
}

func sortCost(rows int64, cpuRowCost float64) float64 {
	if rows <= 1 {
		return 0
	}
	f := float64(rows)
	return f * math.Log2(f) * cpuRowCost
}

func estimateJoinCardinality(leftRows, rightRows int64) int64 {
	if leftRows == 0 || rightRows == 0 {
		return 0
	}
	maxRows := leftRows
	if rightRows > maxRows {
		maxRows = rightRows
	}
	result := float64(leftRows*rightRows) / float64(maxRows)
	if result < 1 {
		return 1
	}
	return int64(result)
}

func estimateGroupCardinality(inputRows int64, groupByColumns int) int64 {
	if groupByColumns == 0 {
		return 1
	}
	estimate := inputRows / int64(groupByColumns+1)
	if estimate < 1 {
		return 1
	}
	if estimate > inputRows {
		return inputRows
	}
	return estimate
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
