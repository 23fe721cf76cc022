package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
)

// FilterOperator evaluates a predicate row by row against every morsel
// its child yields and passes through only the matching rows, gathered
// into a fresh morsel (NULL predicate results are treated as false,
// Kleene three-valued logic's usual SQL meaning for WHERE).
type FilterOperator struct {
	child     Operator
	predicate *expr.Node
	ctx       *ExecContext
}

func NewFilterOperator(child Operator, predicate *expr.Node) *FilterOperator {
	return &FilterOperator{child: child, predicate: predicate}
}

func (f *FilterOperator) OutputSchema() []*catalog.SchemaColumn { return f.child.OutputSchema() }

func (f *FilterOperator) Open(ctx *ExecContext) error {
	f.ctx = ctx
	return f.child.Open(ctx)
}

func (f *FilterOperator) Next() (*morsel.Morsel, error) {
	for {
		if f.ctx.Cancelled() {
			return morsel.EOS, nil
		}
		m, err := f.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			return morsel.EOS, nil
		}
		var keep []int
		for i := 0; i < m.RowCount(); i++ {
			v, err := expr.Eval(f.predicate, m.Row(i))
			if err != nil {
				return nil, err
			}
			if !v.IsNull() && v.Raw == true {
				keep = append(keep, i)
			}
		}
		f.ctx.Stats.AddRowsFiltered(int64(m.RowCount() - len(keep)))
		if len(keep) == 0 {
			continue
		}
		return gather(m, keep), nil
	}
}

func (f *FilterOperator) Close() error { return f.child.Close() }
