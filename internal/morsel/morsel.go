// Package morsel implements the engine's unit of data transfer: an
// immutable, columnar batch of rows bound to a fixed schema. Operators
// never mutate a morsel in place; every transformation produces a new
// one, the same copy-on-write discipline the teacher's executor applied
// to result sets.
package morsel

import (
	"morselsql/internal/catalog"
	"morselsql/internal/types"
)

// EOS is the sentinel a Next call returns once a leg of a pull-based
// operator tree is exhausted. It is a single shared value with no
// columns or schema; consumers test for it with IsEOS.
var EOS = &Morsel{eos: true}

// Column is one schema-bound vector of values, column-major so a filter
// or projection only touches the columns it needs.
type Column struct {
	Schema *catalog.SchemaColumn
	Values []types.Value
}

// Morsel is a small, immutable columnar batch - the pull-based
// engine's unit of work, sized to stay cache-resident rather than
// streamed row-at-a-time or materialised as one giant table.
type Morsel struct {
	Columns []*Column
	eos     bool
}

func New(columns []*Column) *Morsel {
	return &Morsel{Columns: columns}
}

// IsEOS reports whether this morsel is the end-of-stream sentinel.
func (m *Morsel) IsEOS() bool {
	return m == nil || m.eos
}

// RowCount returns the number of rows in the morsel (zero columns means
// zero rows, by convention, never panics on ragged columns since every
// producer is expected to emit equal-length columns).
func (m *Morsel) RowCount() int {
	if m.IsEOS() || len(m.Columns) == 0 {
		return 0
	}
	return len(m.Columns[0].Values)
}

// Column looks up a column by schema identity.
func (m *Morsel) Column(identity string) (*Column, bool) {
	for _, c := range m.Columns {
		if c.Schema.Identity == identity {
			return c, true
		}
	}
	return nil, false
}

// Row materialises row i as an expr.Row-compatible binding (identity ->
// value). Pull-based operators that evaluate expressions row-at-a-time
// use this; operators that only move whole columns around (Project,
// Limit) should slice Columns directly instead of paying this cost.
func (m *Morsel) Row(i int) map[string]types.Value {
	out := make(map[string]types.Value, len(m.Columns))
	for _, c := range m.Columns {
		out[c.Schema.Identity] = c.Values[i]
	}
	return out
}

// Slice returns a new Morsel containing rows [start, end) of m, sharing
// the underlying value slices (a read-only view, not a copy) - the
// shape Limit and the scan's pushed-down limit use.
func (m *Morsel) Slice(start, end int) *Morsel {
	cols := make([]*Column, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = &Column{Schema: c.Schema, Values: c.Values[start:end]}
	}
	return New(cols)
}

// Concat appends any number of morsels of identical schema into one, used when an
// operator needs to coalesce several small morsels (e.g. after a
// selective filter) before handing a reasonably sized batch upstream.
func Concat(schema []*catalog.SchemaColumn, batches ...*Morsel) *Morsel {
	cols := make([]*Column, len(schema))
	for i, s := range schema {
		cols[i] = &Column{Schema: s}
	}
	for _, b := range batches {
		if b.IsEOS() {
			continue
		}
		for i, s := range schema {
			c, ok := b.Column(s.Identity)
			if !ok {
				continue
			}
			cols[i].Values = append(cols[i].Values, c.Values...)
		}
	}
	return New(cols)
}
