package exec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds the number of goroutines concurrently running the
// jobs handed to Run, per spec section 5's "worker pool bounded by N
// workers (default 4)". Its only caller is UnionAllOperator, which drains
// each union leg as one job; filter/project chains and scans run on the
// driver's goroutine.
type WorkerPool struct {
	n int
}

const DefaultWorkers = 4

func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = DefaultWorkers
	}
	return &WorkerPool{n: n}
}

// Run fans jobs out across at most p.n goroutines at a time and returns
// the first error, cancelling gctx for the rest - the same fail-fast
// contract the driver needs when one scan leg errors and the others
// must stop.
func (p *WorkerPool) Run(ctx context.Context, jobs []func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.n)
	for _, job := range jobs {
		job := job
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			return job(gctx)
		})
	}
	return g.Wait()
}
