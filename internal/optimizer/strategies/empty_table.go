package strategies

import (
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// EmptyTable turns a Filter whose condition ConstantFolding has already
// reduced to the literal FALSE into a zero-row Limit, so nothing below
// it is pulled any further than the executor's Open call: evaluating a
// predicate that can never be true is pure waste once we know the
// answer at plan time. It runs late in the pipeline, after the rewrites
// most likely to expose a FALSE condition (BooleanSimplification,
// PredicateRewrite) and before the final ConstantFolding pass cleans up.
type EmptyTable struct{}

func NewEmptyTable() *EmptyTable { return &EmptyTable{} }

func (s *EmptyTable) Name() string { return "empty_table" }

func (s *EmptyTable) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	n := ctx.Graph.Nodes[nodeID]
	if n.Type != plangraph.Filter || !isLiteralFalse(n.Predicate) {
		return ctx
	}
	n.Type = plangraph.Limit
	n.Count = 0
	n.Predicate = nil
	ctx.Fire(s.Name())
	return ctx
}

func (s *EmptyTable) Complete(ctx *optimizer.Context) *plangraph.Graph {
	return ctx.Graph
}

func isLiteralFalse(n *expr.Node) bool {
	if n == nil || n.Type != expr.Literal || n.Value.IsNull() {
		return false
	}
	b, ok := n.Value.Raw.(bool)
	return ok && !b
}
