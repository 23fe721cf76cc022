package exec

import (
	"context"

	"morselsql/internal/catalog"
	"morselsql/internal/morsel"
)

// UnionAllOperator concatenates its inputs in order, with no
// deduplication. Its children are independent flow boundaries (spec
// section 4.4/5): nothing downstream of one leg depends on another, so
// Open drains every child concurrently through ExecContext.Pool,
// bounded to its configured worker count, and Next then replays the
// buffered morsels leg by leg in input order.
type UnionAllOperator struct {
	children []Operator
	buffers  [][]*morsel.Morsel
	bufIdx   int
	rowIdx   int
	ctx      *ExecContext
}

func NewUnionAllOperator(children []Operator) *UnionAllOperator {
	return &UnionAllOperator{children: children}
}

func (u *UnionAllOperator) OutputSchema() []*catalog.SchemaColumn {
	return u.children[0].OutputSchema()
}

func (u *UnionAllOperator) Open(ctx *ExecContext) error {
	u.ctx = ctx
	for _, c := range u.children {
		if err := c.Open(ctx); err != nil {
			return err
		}
	}

	u.buffers = make([][]*morsel.Morsel, len(u.children))
	jobs := make([]func(context.Context) error, len(u.children))
	for i, c := range u.children {
		i, c := i, c
		jobs[i] = func(jobCtx context.Context) error {
			for {
				select {
				case <-jobCtx.Done():
					return jobCtx.Err()
				default:
				}
				m, err := c.Next()
				if err != nil {
					return err
				}
				if m.IsEOS() {
					return nil
				}
				u.buffers[i] = append(u.buffers[i], m)
			}
		}
	}
	return ctx.Pool.Run(ctx.Ctx, jobs)
}

func (u *UnionAllOperator) Next() (*morsel.Morsel, error) {
	for u.bufIdx < len(u.buffers) {
		leg := u.buffers[u.bufIdx]
		if u.rowIdx >= len(leg) {
			u.bufIdx++
			u.rowIdx = 0
			continue
		}
		m := leg[u.rowIdx]
		u.rowIdx++
		return m, nil
	}
	return morsel.EOS, nil
}

func (u *UnionAllOperator) Close() error {
	var first error
	for _, c := range u.children {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewUnionOperator builds UNION (deduplicating) as Distinct wrapping a
// UnionAll of the inputs, per spec section 4.4 ("UNION deduplicates
// (wrapping Distinct)").
func NewUnionOperator(children []Operator) Operator {
	return NewDistinctOperator(NewUnionAllOperator(children), nil)
}
