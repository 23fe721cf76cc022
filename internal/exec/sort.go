package exec

import (
	"sort"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// compareRows orders two rows by terms, nulls last, direction-aware,
// per spec section 4.4's "nulls ordered last ascending (direction-aware)".
func compareRows(left, right expr.Row, terms []plangraph.OrderTerm) int {
	for _, t := range terms {
		lv, _ := evalRow(t.Expr, left)
		rv, _ := evalRow(t.Expr, right)
		c := compareTerm(lv, rv)
		if t.Direction == plangraph.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareTerm(l, r types.Value) int {
	if l.IsNull() && r.IsNull() {
		return 0
	}
	if l.IsNull() {
		return 1
	}
	if r.IsNull() {
		return -1
	}
	if types.IsNumeric(l.Type) && types.IsNumeric(r.Type) {
		lf, rf := toFloatValue(l), toFloatValue(r)
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}
	ls, rs := l.String(), r.String()
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	default:
		return 0
	}
}

// OrderOperator buffers its entire input and emits it once, stably
// sorted by the order-by term list.
type OrderOperator struct {
	child     Operator
	orderBy   []plangraph.OrderTerm
	ctx       *ExecContext
	sorted    *morsel.Morsel
	delivered bool
}

func NewOrderOperator(child Operator, orderBy []plangraph.OrderTerm) *OrderOperator {
	return &OrderOperator{child: child, orderBy: orderBy}
}

func (o *OrderOperator) OutputSchema() []*catalog.SchemaColumn { return o.child.OutputSchema() }

func (o *OrderOperator) Open(ctx *ExecContext) error {
	o.ctx = ctx
	return o.child.Open(ctx)
}

func (o *OrderOperator) Next() (*morsel.Morsel, error) {
	if o.delivered {
		return morsel.EOS, nil
	}
	var batches []*morsel.Morsel
	for {
		m, err := o.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			break
		}
		batches = append(batches, m)
	}
	whole := morsel.Concat(o.child.OutputSchema(), batches...)
	n := whole.RowCount()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return compareRows(whole.Row(idx[i]), whole.Row(idx[j]), o.orderBy) < 0
	})
	o.sorted = gather(whole, idx)
	o.delivered = true
	return o.sorted, nil
}

func (o *OrderOperator) Close() error { return o.child.Close() }

// HeapSortOperator fuses Order+Limit: it maintains only the current
// top-K rows, flushing (sorting and truncating) whenever the buffer
// grows past 2K+1, per spec section 4.4.
type HeapSortOperator struct {
	child     Operator
	orderBy   []plangraph.OrderTerm
	k         int
	ctx       *ExecContext
	buffer    *morsel.Morsel
	delivered bool
}

func NewHeapSortOperator(child Operator, orderBy []plangraph.OrderTerm, k int64) *HeapSortOperator {
	return &HeapSortOperator{child: child, orderBy: orderBy, k: int(k)}
}

func (h *HeapSortOperator) OutputSchema() []*catalog.SchemaColumn { return h.child.OutputSchema() }

func (h *HeapSortOperator) Open(ctx *ExecContext) error {
	h.ctx = ctx
	h.buffer = morsel.New(nil)
	return h.child.Open(ctx)
}

func (h *HeapSortOperator) flush(truncate int) {
	n := h.buffer.RowCount()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return compareRows(h.buffer.Row(idx[i]), h.buffer.Row(idx[j]), h.orderBy) < 0
	})
	if truncate > 0 && len(idx) > truncate {
		idx = idx[:truncate]
	}
	h.buffer = gather(h.buffer, idx)
}

func (h *HeapSortOperator) Next() (*morsel.Morsel, error) {
	if h.delivered {
		return morsel.EOS, nil
	}
	schema := h.child.OutputSchema()
	for {
		m, err := h.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			break
		}
		h.buffer = morsel.Concat(schema, h.buffer, m)
		if h.buffer.RowCount() > 2*h.k+1 {
			h.flush(h.k)
		}
	}
	h.flush(h.k)
	h.delivered = true
	return h.buffer, nil
}

func (h *HeapSortOperator) Close() error { return h.child.Close() }
