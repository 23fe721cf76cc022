package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/types"
)

// ProjectOperator evaluates each projection expression against every
// row of its child's morsels, producing one output column per
// expression. Output schema is fixed once at construction so joins and
// unions above a Project can learn its shape without pulling data.
type ProjectOperator struct {
	child       Operator
	projections []*expr.Node
	outSchema   []*catalog.SchemaColumn
	ctx         *ExecContext
}

func NewProjectOperator(child Operator, projections []*expr.Node) *ProjectOperator {
	schema := make([]*catalog.SchemaColumn, len(projections))
	for i, p := range projections {
		schema[i] = mintProjectionSchema(p)
	}
	return &ProjectOperator{child: child, projections: projections, outSchema: schema}
}

func (p *ProjectOperator) OutputSchema() []*catalog.SchemaColumn { return p.outSchema }

func (p *ProjectOperator) Open(ctx *ExecContext) error {
	p.ctx = ctx
	return p.child.Open(ctx)
}

func (p *ProjectOperator) Next() (*morsel.Morsel, error) {
	m, err := p.child.Next()
	if err != nil {
		return nil, err
	}
	if m.IsEOS() {
		return morsel.EOS, nil
	}
	n := m.RowCount()
	cols := make([]*morsel.Column, len(p.projections))
	for i, expr := range p.projections {
		vals := make([]types.Value, n)
		for r := 0; r < n; r++ {
			v, err := evalRow(expr, m.Row(r))
			if err != nil {
				return nil, err
			}
			vals[r] = v
		}
		cols[i] = &morsel.Column{Schema: p.outSchema[i], Values: vals}
	}
	return morsel.New(cols), nil
}

func (p *ProjectOperator) Close() error { return p.child.Close() }
