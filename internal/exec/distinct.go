package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
)

// DistinctOperator hashes each row's signature (or, if DistinctOn is
// set, just those columns) and emits only the first row seen for each
// signature, per spec section 4.4.
type DistinctOperator struct {
	child      Operator
	on         []*expr.Node
	seen       map[uint64]bool
	schema     []*catalog.SchemaColumn
	ctx        *ExecContext
}

func NewDistinctOperator(child Operator, on []*expr.Node) *DistinctOperator {
	return &DistinctOperator{child: child, on: on, seen: make(map[uint64]bool)}
}

func (d *DistinctOperator) OutputSchema() []*catalog.SchemaColumn { return d.child.OutputSchema() }

func (d *DistinctOperator) Open(ctx *ExecContext) error {
	d.ctx = ctx
	d.schema = d.child.OutputSchema()
	return d.child.Open(ctx)
}

func (d *DistinctOperator) rowHash(m *morsel.Morsel, r int) (uint64, error) {
	if len(d.on) == 0 {
		return rowSignature(m, r, d.schema), nil
	}
	hashes := make([]uint64, len(d.on))
	row := m.Row(r)
	for i, e := range d.on {
		v, err := expr.Eval(e, row)
		if err != nil {
			return 0, err
		}
		hashes[i] = hashValue(v)
	}
	return hashKeyTuple(hashes...), nil
}

func (d *DistinctOperator) Next() (*morsel.Morsel, error) {
	for {
		m, err := d.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			return morsel.EOS, nil
		}
		var keep []int
		for r := 0; r < m.RowCount(); r++ {
			h, err := d.rowHash(m, r)
			if err != nil {
				return nil, err
			}
			if d.seen[h] {
				continue
			}
			d.seen[h] = true
			keep = append(keep, r)
		}
		if len(keep) == 0 {
			continue
		}
		return gather(m, keep), nil
	}
}

func (d *DistinctOperator) Close() error { return d.child.Close() }
