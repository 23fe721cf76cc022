// build.go turns a physical.Plan (the logical plangraph.Graph plus its
// per-node physical Decisions) into a tree of Operator values the
// Driver can pull from, one recursive call per logical node.
package exec

import (
	"morselsql/internal/engineerrors"
	"morselsql/internal/physical"
	"morselsql/internal/plangraph"
)

func singleChild(g *plangraph.Graph, id string) (string, error) {
	ins := g.IngoingEdges(id)
	if len(ins) != 1 {
		return "", engineerrors.InvalidInternalState("expected exactly one input edge")
	}
	return ins[0].From, nil
}

// Build constructs the operator tree rooted at the plan's single exit
// point.
func Build(plan *physical.Plan) (Operator, error) {
	root, err := plan.Graph.SingleExitPoint()
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.InvalidInternalStateError, err, "physical plan has no single exit point")
	}
	return buildNode(plan, root)
}

func buildNode(plan *physical.Plan, id string) (Operator, error) {
	g := plan.Graph
	n := g.Nodes[id]
	switch n.Type {
	case plangraph.Scan, plangraph.FunctionDataset:
		return NewScanOperator(n.Connector, plan.Decisions[id].ScanMode).
			WithPredicates(n.Predicates).
			WithLimit(n.ScanLimit), nil

	case plangraph.Filter:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewFilterOperator(child, n.Predicate), nil

	case plangraph.Project:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewProjectOperator(child, n.Projections), nil

	case plangraph.Unnest:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewUnnestOperatorWithOptions(child, n.UnnestColumn, n.UnnestAlias, n.UnnestElement, n.UnnestFilters, n.UnnestDistinct), nil

	case plangraph.Join:
		leftID, rightID, err := joinLegs(g, id)
		if err != nil {
			return nil, err
		}
		left, err := buildNode(plan, leftID)
		if err != nil {
			return nil, err
		}
		right, err := buildNode(plan, rightID)
		if err != nil {
			return nil, err
		}
		switch plan.Decisions[id].JoinAlgorithm {
		case physical.CartesianJoin:
			return NewCartesianJoinOperator(left, right), nil
		case physical.FilterJoin:
			return NewFilterJoinOperator(n.JoinType, left, right, n.JoinOn), nil
		case physical.OuterHashJoin:
			return NewOuterHashJoinOperator(n.JoinType, left, right, n.JoinOn), nil
		default:
			return NewHashJoinOperator(left, right, n.JoinOn), nil
		}

	case plangraph.Limit:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewLimitOperator(child, n.Count), nil

	case plangraph.Offset:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewOffsetOperator(child, n.Count), nil

	case plangraph.Order:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewOrderOperator(child, n.OrderBy), nil

	case plangraph.HeapSort:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewHeapSortOperator(child, n.OrderBy, n.Count), nil

	case plangraph.Distinct:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewDistinctOperator(child, n.DistinctOn), nil

	case plangraph.Union:
		ins := g.IngoingEdges(id)
		children := make([]Operator, len(ins))
		for i, e := range ins {
			c, err := buildNode(plan, e.From)
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		if n.UnionAll {
			return NewUnionAllOperator(children), nil
		}
		return NewUnionOperator(children), nil

	case plangraph.Aggregate:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewAggregateOperator(child, n.Aggregates), nil

	case plangraph.AggregateAndGroup:
		childID, err := singleChild(g, id)
		if err != nil {
			return nil, err
		}
		child, err := buildNode(plan, childID)
		if err != nil {
			return nil, err
		}
		return NewAggregateAndGroupOperator(child, n.GroupBy, n.Aggregates), nil

	default:
		return nil, engineerrors.InvalidInternalState("no physical operator for plan node type " + n.Type.String())
	}
}

func joinLegs(g *plangraph.Graph, id string) (left, right string, err error) {
	for _, e := range g.IngoingEdges(id) {
		switch e.Leg {
		case plangraph.LegLeft:
			left = e.From
		case plangraph.LegRight:
			right = e.From
		}
	}
	if left == "" || right == "" {
		return "", "", engineerrors.InvalidInternalState("join node missing a left or right leg")
	}
	return left, right, nil
}
