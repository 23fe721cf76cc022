package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/plangraph"
)

func identitySet(schema []*catalog.SchemaColumn) map[string]bool {
	out := make(map[string]bool, len(schema))
	for _, s := range schema {
		out[s.Identity] = true
	}
	return out
}

func subsetOfIdents(cols []*catalog.SchemaColumn, idents map[string]bool) bool {
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if !idents[c.Identity] {
			return false
		}
	}
	return true
}

// splitEqualityKeys walks the top-level AND-conjoined clauses of a join
// condition and, for every equality comparison whose two operands each
// resolve entirely within one leg's schema, records the pair as a hash
// key. Conditions that don't decompose this way (non-equality clauses,
// or an equality straddling both legs on one side) are left out of the
// key set; the join still verifies the full condition per candidate, so
// correctness never depends on every clause becoming a hash key.
func splitEqualityKeys(on *expr.Node, leftIdents, rightIdents map[string]bool) (leftKeys, rightKeys []*expr.Node) {
	var walk func(n *expr.Node)
	walk = func(n *expr.Node) {
		if n == nil {
			return
		}
		if n.Type == expr.And {
			walk(n.Left)
			walk(n.Right)
			return
		}
		if n.Type != expr.ComparisonOperator {
			return
		}
		lc, rc := n.Left.Columns(), n.Right.Columns()
		switch {
		case subsetOfIdents(lc, leftIdents) && subsetOfIdents(rc, rightIdents):
			leftKeys = append(leftKeys, n.Left)
			rightKeys = append(rightKeys, n.Right)
		case subsetOfIdents(lc, rightIdents) && subsetOfIdents(rc, leftIdents):
			leftKeys = append(leftKeys, n.Right)
			rightKeys = append(rightKeys, n.Left)
		}
	}
	walk(on)
	return leftKeys, rightKeys
}

// keyHash evaluates a key expression list against row, returning the
// combined hash and whether any key was NULL - a NULL key matches
// nothing, per spec section 4.4.
func keyHash(keys []*expr.Node, row expr.Row) (uint64, bool, error) {
	hashes := make([]uint64, len(keys))
	for i, k := range keys {
		v, err := expr.Eval(k, row)
		if err != nil {
			return 0, false, err
		}
		if v.IsNull() {
			return 0, true, nil
		}
		hashes[i] = hashValue(v)
	}
	return hashKeyTuple(hashes...), false, nil
}

func mergeRows(a, b expr.Row) expr.Row {
	out := make(expr.Row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func evalBool(e *expr.Node, row expr.Row) (bool, error) {
	v, err := expr.Eval(e, row)
	if err != nil {
		return false, err
	}
	b, ok := v.Raw.(bool)
	return !v.IsNull() && ok && b, nil
}

// HashJoinOperator implements the single- and multi-key inner hash join
// (physical.SingleKeyHashJoin/MultiKeyHashJoin): build an in-memory hash
// map over the right leg, stream the left leg probing it, per spec
// section 4.4.
type HashJoinOperator struct {
	left, right          Operator
	on                   *expr.Node
	outSchema            []*catalog.SchemaColumn
	leftKeys, rightKeys  []*expr.Node
	buildMorsel          *morsel.Morsel
	buckets              map[uint64][]int
	built                bool
	ctx                  *ExecContext
}

func NewHashJoinOperator(left, right Operator, on *expr.Node) *HashJoinOperator {
	leftIdents, rightIdents := identitySet(left.OutputSchema()), identitySet(right.OutputSchema())
	leftKeys, rightKeys := splitEqualityKeys(on, leftIdents, rightIdents)
	outSchema := append(append([]*catalog.SchemaColumn{}, left.OutputSchema()...), right.OutputSchema()...)
	return &HashJoinOperator{left: left, right: right, on: on, outSchema: outSchema, leftKeys: leftKeys, rightKeys: rightKeys}
}

func (h *HashJoinOperator) OutputSchema() []*catalog.SchemaColumn { return h.outSchema }

func (h *HashJoinOperator) Open(ctx *ExecContext) error {
	h.ctx = ctx
	if err := h.right.Open(ctx); err != nil {
		return err
	}
	return h.left.Open(ctx)
}

func (h *HashJoinOperator) buildIfNeeded() error {
	if h.built {
		return nil
	}
	var batches []*morsel.Morsel
	for {
		m, err := h.right.Next()
		if err != nil {
			return err
		}
		if m.IsEOS() {
			break
		}
		batches = append(batches, m)
	}
	h.buildMorsel = morsel.Concat(h.right.OutputSchema(), batches...)
	h.buckets = make(map[uint64][]int)
	for i := 0; i < h.buildMorsel.RowCount(); i++ {
		hv, isNull, err := keyHash(h.rightKeys, h.buildMorsel.Row(i))
		if err != nil {
			return err
		}
		if isNull {
			continue
		}
		h.buckets[hv] = append(h.buckets[hv], i)
	}
	h.built = true
	return nil
}

func (h *HashJoinOperator) Next() (*morsel.Morsel, error) {
	if err := h.buildIfNeeded(); err != nil {
		return nil, err
	}
	for {
		m, err := h.left.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			return morsel.EOS, nil
		}
		var leftIdx, rightIdx []int
		for r := 0; r < m.RowCount(); r++ {
			row := m.Row(r)
			hv, isNull, err := keyHash(h.leftKeys, row)
			if isNull || err != nil {
				if err != nil {
					return nil, err
				}
				continue
			}
			for _, bi := range h.buckets[hv] {
				merged := mergeRows(row, h.buildMorsel.Row(bi))
				ok, err := evalBool(h.on, merged)
				if err != nil {
					return nil, err
				}
				if ok {
					leftIdx = append(leftIdx, r)
					rightIdx = append(rightIdx, bi)
				}
			}
		}
		if len(leftIdx) == 0 {
			continue
		}
		return concatColumns(gather(m, leftIdx), gather(h.buildMorsel, rightIdx)), nil
	}
}

func (h *HashJoinOperator) Close() error {
	err1 := h.left.Close()
	err2 := h.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// OuterHashJoinOperator implements LEFT/RIGHT/FULL joins. It always
// builds a hash map over one leg (the one that may be safely
// materialised: right for LEFT, left for RIGHT, right for FULL) and
// streams the other, preserving unmatched rows from the streamed side
// with NULLs on the built side; FULL additionally tracks every build
// row that was ever matched and emits the leftovers once the stream is
// exhausted.
type OuterHashJoinOperator struct {
	joinType            plangraph.JoinType
	left, right         Operator
	on                  *expr.Node
	outSchema           []*catalog.SchemaColumn
	buildIsLeft         bool
	buildOp, probeOp    Operator
	buildKeys, probeKeys []*expr.Node

	built        bool
	buildMorsel  *morsel.Morsel
	buckets      map[uint64][]int
	matchedBuild map[int]bool

	probeDrained     bool
	finalPending     []int
	finalCursor      int
	ctx              *ExecContext
}

func NewOuterHashJoinOperator(joinType plangraph.JoinType, left, right Operator, on *expr.Node) *OuterHashJoinOperator {
	leftIdents, rightIdents := identitySet(left.OutputSchema()), identitySet(right.OutputSchema())
	leftKeys, rightKeys := splitEqualityKeys(on, leftIdents, rightIdents)
	outSchema := append(append([]*catalog.SchemaColumn{}, left.OutputSchema()...), right.OutputSchema()...)

	o := &OuterHashJoinOperator{joinType: joinType, left: left, right: right, on: on, outSchema: outSchema}
	if joinType == plangraph.JoinRight {
		o.buildIsLeft = true
		o.buildOp, o.probeOp = left, right
		o.buildKeys, o.probeKeys = leftKeys, rightKeys
	} else {
		o.buildIsLeft = false
		o.buildOp, o.probeOp = right, left
		o.buildKeys, o.probeKeys = rightKeys, leftKeys
	}
	if joinType == plangraph.JoinFull {
		o.matchedBuild = make(map[int]bool)
	}
	return o
}

func (o *OuterHashJoinOperator) OutputSchema() []*catalog.SchemaColumn { return o.outSchema }

func (o *OuterHashJoinOperator) Open(ctx *ExecContext) error {
	o.ctx = ctx
	if err := o.buildOp.Open(ctx); err != nil {
		return err
	}
	return o.probeOp.Open(ctx)
}

func (o *OuterHashJoinOperator) buildIfNeeded() error {
	if o.built {
		return nil
	}
	var batches []*morsel.Morsel
	for {
		m, err := o.buildOp.Next()
		if err != nil {
			return err
		}
		if m.IsEOS() {
			break
		}
		batches = append(batches, m)
	}
	o.buildMorsel = morsel.Concat(o.buildOp.OutputSchema(), batches...)
	o.buckets = make(map[uint64][]int)
	for i := 0; i < o.buildMorsel.RowCount(); i++ {
		hv, isNull, err := keyHash(o.buildKeys, o.buildMorsel.Row(i))
		if err != nil {
			return err
		}
		if isNull {
			continue
		}
		o.buckets[hv] = append(o.buckets[hv], i)
	}
	o.built = true
	return nil
}

func (o *OuterHashJoinOperator) order(buildPart, probePart *morsel.Morsel) *morsel.Morsel {
	if o.buildIsLeft {
		return concatColumns(buildPart, probePart)
	}
	return concatColumns(probePart, buildPart)
}

func (o *OuterHashJoinOperator) Next() (*morsel.Morsel, error) {
	if err := o.buildIfNeeded(); err != nil {
		return nil, err
	}
	for !o.probeDrained {
		m, err := o.probeOp.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			o.probeDrained = true
			break
		}
		var buildIdx, probeIdx []int
		var unmatchedProbe []int
		for r := 0; r < m.RowCount(); r++ {
			row := m.Row(r)
			hv, isNull, err := keyHash(o.probeKeys, row)
			matched := false
			if !isNull {
				if err != nil {
					return nil, err
				}
				for _, bi := range o.buckets[hv] {
					merged := mergeRows(row, o.buildMorsel.Row(bi))
					ok, err := evalBool(o.on, merged)
					if err != nil {
						return nil, err
					}
					if ok {
						matched = true
						buildIdx = append(buildIdx, bi)
						probeIdx = append(probeIdx, r)
						if o.matchedBuild != nil {
							o.matchedBuild[bi] = true
						}
					}
				}
			}
			if !matched {
				unmatchedProbe = append(unmatchedProbe, r)
			}
		}
		var out *morsel.Morsel
		if len(buildIdx) > 0 {
			out = o.order(gather(o.buildMorsel, buildIdx), gather(m, probeIdx))
		}
		if len(unmatchedProbe) > 0 {
			nulls := nullColumns(o.buildOp.OutputSchema(), len(unmatchedProbe))
			extra := o.order(nulls, gather(m, unmatchedProbe))
			if out == nil {
				out = extra
			} else {
				out = morsel.Concat(o.outSchema, out, extra)
			}
		}
		if out != nil {
			return out, nil
		}
	}
	// FULL join: emit every build row that was never matched, with the
	// probe side nulled, once the probe stream is exhausted.
	if o.matchedBuild != nil && o.finalPending == nil {
		for i := 0; i < o.buildMorsel.RowCount(); i++ {
			if !o.matchedBuild[i] {
				o.finalPending = append(o.finalPending, i)
			}
		}
	}
	if o.finalCursor < len(o.finalPending) {
		end := o.finalCursor + o.ctx.MorselSize
		if end > len(o.finalPending) {
			end = len(o.finalPending)
		}
		idx := o.finalPending[o.finalCursor:end]
		o.finalCursor = end
		nulls := nullColumns(o.probeOp.OutputSchema(), len(idx))
		return o.order(gather(o.buildMorsel, idx), nulls), nil
	}
	return morsel.EOS, nil
}

func (o *OuterHashJoinOperator) Close() error {
	err1 := o.left.Close()
	err2 := o.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// CartesianJoinOperator implements CROSS JOIN: every left row paired
// with every right row, no condition to evaluate.
type CartesianJoinOperator struct {
	left, right Operator
	outSchema   []*catalog.SchemaColumn
	rightAll    *morsel.Morsel
	built       bool
	ctx         *ExecContext
}

func NewCartesianJoinOperator(left, right Operator) *CartesianJoinOperator {
	outSchema := append(append([]*catalog.SchemaColumn{}, left.OutputSchema()...), right.OutputSchema()...)
	return &CartesianJoinOperator{left: left, right: right, outSchema: outSchema}
}

func (c *CartesianJoinOperator) OutputSchema() []*catalog.SchemaColumn { return c.outSchema }

func (c *CartesianJoinOperator) Open(ctx *ExecContext) error {
	c.ctx = ctx
	if err := c.right.Open(ctx); err != nil {
		return err
	}
	return c.left.Open(ctx)
}

func (c *CartesianJoinOperator) buildIfNeeded() error {
	if c.built {
		return nil
	}
	var batches []*morsel.Morsel
	for {
		m, err := c.right.Next()
		if err != nil {
			return err
		}
		if m.IsEOS() {
			break
		}
		batches = append(batches, m)
	}
	c.rightAll = morsel.Concat(c.right.OutputSchema(), batches...)
	c.built = true
	return nil
}

func (c *CartesianJoinOperator) Next() (*morsel.Morsel, error) {
	if err := c.buildIfNeeded(); err != nil {
		return nil, err
	}
	n := c.rightAll.RowCount()
	if n == 0 {
		return morsel.EOS, nil
	}
	m, err := c.left.Next()
	if err != nil {
		return nil, err
	}
	if m.IsEOS() {
		return morsel.EOS, nil
	}
	leftIdx := make([]int, 0, m.RowCount()*n)
	rightIdx := make([]int, 0, m.RowCount()*n)
	for r := 0; r < m.RowCount(); r++ {
		for j := 0; j < n; j++ {
			leftIdx = append(leftIdx, r)
			rightIdx = append(rightIdx, j)
		}
	}
	return concatColumns(gather(m, leftIdx), gather(c.rightAll, rightIdx)), nil
}

func (c *CartesianJoinOperator) Close() error {
	err1 := c.left.Close()
	err2 := c.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// FilterJoinOperator implements SEMI/ANTI joins: only the left row
// survives (no columns from the right leg appear in the output), kept
// when it has at least one match (SEMI) or none (ANTI).
type FilterJoinOperator struct {
	joinType    plangraph.JoinType
	left, right Operator
	on          *expr.Node
	leftKeys, rightKeys []*expr.Node
	buildMorsel *morsel.Morsel
	buckets     map[uint64][]int
	built       bool
	ctx         *ExecContext
}

func NewFilterJoinOperator(joinType plangraph.JoinType, left, right Operator, on *expr.Node) *FilterJoinOperator {
	leftIdents, rightIdents := identitySet(left.OutputSchema()), identitySet(right.OutputSchema())
	leftKeys, rightKeys := splitEqualityKeys(on, leftIdents, rightIdents)
	return &FilterJoinOperator{joinType: joinType, left: left, right: right, on: on, leftKeys: leftKeys, rightKeys: rightKeys}
}

func (f *FilterJoinOperator) OutputSchema() []*catalog.SchemaColumn { return f.left.OutputSchema() }

func (f *FilterJoinOperator) Open(ctx *ExecContext) error {
	f.ctx = ctx
	if err := f.right.Open(ctx); err != nil {
		return err
	}
	return f.left.Open(ctx)
}

func (f *FilterJoinOperator) buildIfNeeded() error {
	if f.built {
		return nil
	}
	var batches []*morsel.Morsel
	for {
		m, err := f.right.Next()
		if err != nil {
			return err
		}
		if m.IsEOS() {
			break
		}
		batches = append(batches, m)
	}
	f.buildMorsel = morsel.Concat(f.right.OutputSchema(), batches...)
	f.buckets = make(map[uint64][]int)
	for i := 0; i < f.buildMorsel.RowCount(); i++ {
		hv, isNull, err := keyHash(f.rightKeys, f.buildMorsel.Row(i))
		if err != nil {
			return err
		}
		if isNull {
			continue
		}
		f.buckets[hv] = append(f.buckets[hv], i)
	}
	f.built = true
	return nil
}

func (f *FilterJoinOperator) Next() (*morsel.Morsel, error) {
	if err := f.buildIfNeeded(); err != nil {
		return nil, err
	}
	for {
		m, err := f.left.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			return morsel.EOS, nil
		}
		var keep []int
		for r := 0; r < m.RowCount(); r++ {
			row := m.Row(r)
			hv, isNull, err := keyHash(f.leftKeys, row)
			hasMatch := false
			if !isNull {
				if err != nil {
					return nil, err
				}
				for _, bi := range f.buckets[hv] {
					ok, err := evalBool(f.on, mergeRows(row, f.buildMorsel.Row(bi)))
					if err != nil {
						return nil, err
					}
					if ok {
						hasMatch = true
						break
					}
				}
			}
			if (f.joinType == plangraph.JoinSemi) == hasMatch {
				keep = append(keep, r)
			}
		}
		if len(keep) == 0 {
			continue
		}
		return gather(m, keep), nil
	}
}

func (f *FilterJoinOperator) Close() error {
	err1 := f.left.Close()
	err2 := f.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
