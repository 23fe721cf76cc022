// Package exec implements the pull-based, morsel-columnar physical
// execution engine: one Operator per physical.Decision, wired together
// by Build into a tree the Driver pulls from one morsel at a time.
package exec

import (
	"context"

	"morselsql/internal/stats"
)

// DefaultMorselSize is the row count a Scan chunks its connector output
// into, small enough to stay cache-resident per spec section 4.4.
const DefaultMorselSize = 1024

// ExecContext is the per-query context threaded through every operator,
// replacing the teacher's global statistics singleton with a value
// carried explicitly from the driver down (spec section 9, "the
// query-statistics singleton becomes a per-query context struct").
type ExecContext struct {
	Ctx        context.Context
	Stats      *stats.QueryStatistics
	MorselSize int
	Pool       *WorkerPool
}

func NewExecContext(ctx context.Context, qstats *stats.QueryStatistics, morselSize, workers int) *ExecContext {
	if morselSize <= 0 {
		morselSize = DefaultMorselSize
	}
	return &ExecContext{Ctx: ctx, Stats: qstats, MorselSize: morselSize, Pool: NewWorkerPool(workers)}
}

// Cancelled reports whether the driver's cancel token has fired, the
// check the Driver, ScanOperator and FilterOperator make before doing
// more work.
func (c *ExecContext) Cancelled() bool {
	select {
	case <-c.Ctx.Done():
		return true
	default:
		return false
	}
}
