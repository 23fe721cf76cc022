package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/physical"
	"morselsql/internal/types"
)

// ScanOperator reads an entire connector dataset once and replays it as
// a sequence of fixed-size morsels. Real connectors would stream; the
// virtual datasets this engine ships with are small enough that the
// distinction only shows up in how the read is scheduled: AsyncScan
// prepares every row on a background goroutine before Next is first
// called, SyncScan loads on Open and chunks lazily on demand.
//
// predicates and limit, when set, are what PredicatePushdown/
// LimitPushdown folded into the scan because the connector advertised
// the matching capability (spec section 4.2.5/4.2.8): predicates are
// evaluated against each row as it is read, and the scan stops early
// once limit rows have been emitted, so neither a Filter nor a Limit
// operator needs to sit above this scan at all.
type ScanOperator struct {
	connector  catalog.Connector
	mode       physical.ScanMode
	predicates []*expr.Node
	limit      *int64

	schema  []*catalog.SchemaColumn
	rows    [][]types.Value
	cursor  int
	emitted int64
	ready   chan struct{}
	readErr error
	ctx     *ExecContext
}

func NewScanOperator(connector catalog.Connector, mode physical.ScanMode) *ScanOperator {
	return &ScanOperator{connector: connector, mode: mode}
}

// WithPredicates attaches scan-level predicates pushed down by
// PredicatePushdown. Returns s so callers can chain it onto the
// constructor.
func (s *ScanOperator) WithPredicates(predicates []*expr.Node) *ScanOperator {
	s.predicates = predicates
	return s
}

// WithLimit attaches a scan-level row cap pushed down by LimitPushdown.
func (s *ScanOperator) WithLimit(limit *int64) *ScanOperator {
	s.limit = limit
	return s
}

func (s *ScanOperator) OutputSchema() []*catalog.SchemaColumn { return s.connector.Schema() }

func (s *ScanOperator) Open(ctx *ExecContext) error {
	s.ctx = ctx
	if s.mode == physical.AsyncScan {
		s.ready = make(chan struct{})
		go func() {
			s.load()
			close(s.ready)
		}()
		return nil
	}
	return s.load()
}

func (s *ScanOperator) load() error {
	schema, rows, err := s.connector.ReadDataset()
	if err != nil {
		s.readErr = err
		return err
	}
	s.schema = schema
	s.rows = rows
	return nil
}

// done reports whether the scan has already emitted every row the
// pushed-down limit allows.
func (s *ScanOperator) done() bool {
	return s.limit != nil && s.emitted >= *s.limit
}

// applyPredicates evaluates every pushed-down predicate against each
// row of m and gathers only the rows that satisfy all of them, the
// same three-valued-logic evaluation FilterOperator performs, just
// folded into the scan itself.
func (s *ScanOperator) applyPredicates(m *morsel.Morsel) (*morsel.Morsel, error) {
	if len(s.predicates) == 0 {
		return m, nil
	}
	var keep []int
	for i := 0; i < m.RowCount(); i++ {
		row := m.Row(i)
		match := true
		for _, p := range s.predicates {
			v, err := expr.Eval(p, row)
			if err != nil {
				return nil, err
			}
			if v.IsNull() || v.Raw != true {
				match = false
				break
			}
		}
		if match {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return m.Slice(0, 0), nil
	}
	return gather(m, keep), nil
}

// Next transposes the next MorselSize-sized slice of row-major data into
// a columnar morsel. Connector.ReadDataset already hands back typed
// scalars, so this is a pure reshape, no per-value conversion.
func (s *ScanOperator) Next() (*morsel.Morsel, error) {
	if s.mode == physical.AsyncScan {
		<-s.ready
	}
	if s.readErr != nil {
		return nil, s.readErr
	}
	for {
		if s.done() || s.ctx.Cancelled() || s.cursor >= len(s.rows) {
			return morsel.EOS, nil
		}
		end := s.cursor + s.ctx.MorselSize
		if end > len(s.rows) {
			end = len(s.rows)
		}
		batch := s.rows[s.cursor:end]
		s.cursor = end

		cols := make([]*morsel.Column, len(s.schema))
		for i, sc := range s.schema {
			vals := make([]types.Value, len(batch))
			for j, r := range batch {
				vals[j] = r[i]
			}
			cols[i] = &morsel.Column{Schema: sc, Values: vals}
		}

		m := morsel.New(cols)
		m, err := s.applyPredicates(m)
		if err != nil {
			return nil, err
		}
		if m.RowCount() == 0 {
			continue
		}
		if s.limit != nil && s.emitted+int64(m.RowCount()) > *s.limit {
			m = m.Slice(0, int(*s.limit-s.emitted))
		}
		s.emitted += int64(m.RowCount())
		s.ctx.Stats.AddRowsScanned(int64(m.RowCount()))
		s.ctx.Stats.AddMorselsRead(1)
		return m, nil
	}
}

func (s *ScanOperator) Close() error { return nil }
