package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// RedundantOperations excises plan nodes that do no useful work once
// earlier strategies have run: a Filter whose predicate folded down to
// the literal TRUE, and a Project that duplicates the exact column list
// its own child Project already produces (left behind, for instance, by
// ProjectionPushdown inserting a narrowing Project right next to a
// Project the binder had already placed there).
type RedundantOperations struct{}

func NewRedundantOperations() *RedundantOperations { return &RedundantOperations{} }

func (s *RedundantOperations) Name() string { return "redundant_operations" }

func (s *RedundantOperations) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]

	if n.Type == plangraph.Filter && isLiteralTrue(n.Predicate) {
		ctx.Graph.RemoveNode(nodeID, true)
		ctx.Fire(s.Name())
		return ctx
	}

	if n.Type == plangraph.Project {
		ins := ctx.Graph.IngoingEdges(nodeID)
		if len(ins) == 1 {
			child := ctx.Graph.Nodes[ins[0].From]
			if child.Type == plangraph.Project && sameProjectionColumns(n.Projections, child.Projections) {
				ctx.Graph.RemoveNode(nodeID, true)
				ctx.Fire(s.Name())
			}
		}
	}
	return ctx
}

func (s *RedundantOperations) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

func isLiteralTrue(n *expr.Node) bool {
	if n == nil || n.Type != expr.Literal || n.Value.IsNull() {
		return false
	}
	b, ok := n.Value.Raw.(bool)
	return ok && b
}

func sameProjectionColumns(outer, inner []*expr.Node) bool {
	if len(outer) != len(inner) {
		return false
	}
	for i := range outer {
		if outer[i].Type != expr.Identifier || inner[i].Type != expr.Identifier {
			return false
		}
		if outer[i].SchemaColumn == nil || inner[i].SchemaColumn == nil {
			return false
		}
		if outer[i].SchemaColumn.Identity != inner[i].SchemaColumn.Identity {
			return false
		}
	}
	return true
}
