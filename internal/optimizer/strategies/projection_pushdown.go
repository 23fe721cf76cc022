package strategies

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

// ProjectionPushdown inserts a narrow Project directly above each Scan,
// restricted to the columns that expression anywhere in the plan
// actually references. Because SchemaColumn identities are minted once
// per bound column and never reused across relations, a single pass
// over every expression in the graph - rather than a per-edge backward
// dataflow analysis - is enough to assign each referenced column to
// exactly one scan's schema.
type ProjectionPushdown struct{}

func NewProjectionPushdown() *ProjectionPushdown { return &ProjectionPushdown{} }

func (s *ProjectionPushdown) Name() string { return "projection_pushdown" }

func (s *ProjectionPushdown) Visit(ctx *optimizer.Context, nodeID string) *optimizer.Context {
	// Collection happens once the whole graph has been seen; see Complete.
	return ctx
}

func (s *ProjectionPushdown) Complete(ctx *optimizer.Context) *plangraph.Graph {
	g := ctx.Graph
	used := make(map[string]*catalog.SchemaColumn)
	for _, n := range g.Nodes {
		collectUsed(n, used)
	}

	for id, n := range g.Nodes {
		if n.Type != plangraph.Scan && n.Type != plangraph.FunctionDataset {
			continue
		}
		if n.Connector == nil {
			continue
		}
		full := n.Connector.Schema()
		var needed []*catalog.SchemaColumn
		for _, c := range full {
			if used[c.Identity] != nil {
				needed = append(needed, c)
			}
		}
		if len(needed) == 0 || len(needed) == len(full) {
			continue
		}
		projections := make([]*expr.Node, len(needed))
		for i, c := range needed {
			ident := expr.NewIdentifier(c.Relation, c.Name)
			ident.SchemaColumn = c
			ident.ResolvedType = c.Type
			projections[i] = ident
		}
		g.InsertNodeAfter(&plangraph.Node{Type: plangraph.Project, Projections: projections}, id)
		ctx.Fire(s.Name())
	}
	return g
}

func collectUsed(n *plangraph.Node, out map[string]*catalog.SchemaColumn) {
	add := func(e *expr.Node) {
		for _, c := range e.Columns() {
			out[c.Identity] = c
		}
	}
	if n.Predicate != nil {
		add(n.Predicate)
	}
	if n.JoinOn != nil {
		add(n.JoinOn)
	}
	if n.UnnestColumn != nil {
		add(n.UnnestColumn)
	}
	for _, p := range n.Projections {
		add(p)
	}
	for _, g := range n.GroupBy {
		add(g)
	}
	for _, a := range n.Aggregates {
		add(a)
	}
	for _, o := range n.OrderBy {
		add(o.Expr)
	}
	for _, d := range n.DistinctOn {
		add(d)
	}
}
