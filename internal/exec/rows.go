package exec

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/types"
)

// gather builds a new morsel containing only rows idxs, in order, from
// m - the shape a Filter's predicate mask or a hash join's match list
// both need, since neither selection is a contiguous range.
func gather(m *morsel.Morsel, idxs []int) *morsel.Morsel {
	cols := make([]*morsel.Column, len(m.Columns))
	for i, c := range m.Columns {
		vals := make([]types.Value, len(idxs))
		for j, idx := range idxs {
			vals[j] = c.Values[idx]
		}
		cols[i] = &morsel.Column{Schema: c.Schema, Values: vals}
	}
	return morsel.New(cols)
}

// concatColumns horizontally joins two row-aligned morsels (same row
// count) into one wider morsel - what every join operator does once it
// has paired up a build row with a probe row.
func concatColumns(left, right *morsel.Morsel) *morsel.Morsel {
	cols := make([]*morsel.Column, 0, len(left.Columns)+len(right.Columns))
	cols = append(cols, left.Columns...)
	cols = append(cols, right.Columns...)
	return morsel.New(cols)
}

// nullColumns builds a morsel of n rows, all NULL, shaped to schema -
// the unmatched side of an outer join.
func nullColumns(schema []*catalog.SchemaColumn, n int) *morsel.Morsel {
	cols := make([]*morsel.Column, len(schema))
	for i, s := range schema {
		vals := make([]types.Value, n)
		for j := range vals {
			vals[j] = types.NewValue(nil, s.Type)
		}
		cols[i] = &morsel.Column{Schema: s, Values: vals}
	}
	return morsel.New(cols)
}

// hashValue hashes a scalar for distinct signatures and join keys. NULL
// hashes to the fixed sentinel 0, which no non-NULL value produces (every
// other hash has its low bit set). Every NULL gets the same sentinel, so
// Distinct and grouping treat NULLs as one value; join probing never sees
// it, because keyHash skips rows with a NULL key so they match nothing.
func hashValue(v types.Value) uint64 {
	if v.IsNull() {
		return 0
	}
	return xxh3.HashString(fmt.Sprintf("%T:%v", v.Raw, v.Raw)) | 1
}

// hashKeyTuple combines several key hashes with the stable combiner
// spec section 4.4 names for multi-column join/group keys.
func hashKeyTuple(hashes ...uint64) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis, just a fixed seed
	for _, x := range hashes {
		h = h*31 + x
	}
	return h
}

// rowSignature hashes an entire row (every column in schema order),
// the shape Distinct uses to dedupe whole rows.
func rowSignature(m *morsel.Morsel, row int, schema []*catalog.SchemaColumn) uint64 {
	hashes := make([]uint64, len(schema))
	for i, s := range schema {
		c, ok := m.Column(s.Identity)
		if !ok {
			continue
		}
		hashes[i] = hashValue(c.Values[row])
	}
	return hashKeyTuple(hashes...)
}

// mintProjectionSchema computes the output SchemaColumn for a single
// projected expression: an Identifier reuses its bound column's
// identity so downstream references keep resolving; anything else gets
// a freshly minted identity named by its alias (or its textual form, if
// the query supplied no alias).
func mintProjectionSchema(e *expr.Node) *catalog.SchemaColumn {
	if e.Type == expr.Identifier && e.SchemaColumn != nil {
		return e.SchemaColumn
	}
	name := e.Alias
	if name == "" {
		name = e.String()
	}
	t := e.ResolvedType
	return catalog.NewSchemaColumn("", name, t)
}

func evalRow(e *expr.Node, row expr.Row) (types.Value, error) {
	return expr.Eval(e, row)
}
