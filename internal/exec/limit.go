package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/morsel"
)

// LimitOperator yields at most Count rows and then stops pulling from
// its child entirely (spec section 4.4, "short-circuiting downstream
// scans when possible").
type LimitOperator struct {
	child   Operator
	count   int64
	emitted int64
	done    bool
	ctx     *ExecContext
}

func NewLimitOperator(child Operator, count int64) *LimitOperator {
	return &LimitOperator{child: child, count: count}
}

func (l *LimitOperator) OutputSchema() []*catalog.SchemaColumn { return l.child.OutputSchema() }

func (l *LimitOperator) Open(ctx *ExecContext) error {
	l.ctx = ctx
	return l.child.Open(ctx)
}

func (l *LimitOperator) Next() (*morsel.Morsel, error) {
	if l.done || l.emitted >= l.count {
		l.done = true
		return morsel.EOS, nil
	}
	m, err := l.child.Next()
	if err != nil {
		return nil, err
	}
	if m.IsEOS() {
		l.done = true
		return morsel.EOS, nil
	}
	remaining := l.count - l.emitted
	if int64(m.RowCount()) > remaining {
		m = m.Slice(0, int(remaining))
		l.done = true
	}
	l.emitted += int64(m.RowCount())
	return m, nil
}

func (l *LimitOperator) Close() error { return l.child.Close() }

// OffsetOperator discards the first Count rows of its child's output,
// then passes everything else through unchanged.
type OffsetOperator struct {
	child   Operator
	count   int64
	skipped int64
	ctx     *ExecContext
}

func NewOffsetOperator(child Operator, count int64) *OffsetOperator {
	return &OffsetOperator{child: child, count: count}
}

func (o *OffsetOperator) OutputSchema() []*catalog.SchemaColumn { return o.child.OutputSchema() }

func (o *OffsetOperator) Open(ctx *ExecContext) error {
	o.ctx = ctx
	return o.child.Open(ctx)
}

func (o *OffsetOperator) Next() (*morsel.Morsel, error) {
	for {
		m, err := o.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			return morsel.EOS, nil
		}
		if o.skipped >= o.count {
			return m, nil
		}
		remainingSkip := o.count - o.skipped
		n := int64(m.RowCount())
		if remainingSkip >= n {
			o.skipped += n
			continue
		}
		o.skipped = o.count
		return m.Slice(int(remainingSkip), m.RowCount()), nil
	}
}

func (o *OffsetOperator) Close() error { return o.child.Close() }
