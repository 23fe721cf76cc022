// Package stats implements per-query statistics collection: counters
// and timers the optimizer and executor update as they run, surfaced
// through the CLI's --stats flag.
package stats

import (
	"sync/atomic"
	"time"
)

// QueryStatistics accumulates counters for a single query's lifetime.
// Every field is an atomic int64 so concurrent exec goroutines (morsel-
// parallel scans, the worker pool) can update it without a lock, the
// same tradeoff the teacher's dispatcher made for its request counters.
type QueryStatistics struct {
	RowsScanned    int64
	RowsFiltered   int64
	RowsReturned   int64
	MorselsRead    int64
	BytesRead      int64

	optimizationCounters map[string]*int64

	parseTimeNs     int64
	bindTimeNs      int64
	optimizeTimeNs  int64
	executeTimeNs   int64
}

func New() *QueryStatistics {
	return &QueryStatistics{optimizationCounters: make(map[string]*int64)}
}

func (q *QueryStatistics) AddRowsScanned(n int64)  { atomic.AddInt64(&q.RowsScanned, n) }
func (q *QueryStatistics) AddRowsFiltered(n int64) { atomic.AddInt64(&q.RowsFiltered, n) }
func (q *QueryStatistics) AddRowsReturned(n int64) { atomic.AddInt64(&q.RowsReturned, n) }
func (q *QueryStatistics) AddMorselsRead(n int64)  { atomic.AddInt64(&q.MorselsRead, n) }
func (q *QueryStatistics) AddBytesRead(n int64)    { atomic.AddInt64(&q.BytesRead, n) }

// IncOptimization bumps the optimization_<name> counter, one per rule
// firing - e.g. "optimization_constant_folding" each time ConstantFolding
// actually rewrites a node.
func (q *QueryStatistics) IncOptimization(name string) {
	counter, ok := q.optimizationCounters["optimization_"+name]
	if !ok {
		var v int64
		counter = &v
		q.optimizationCounters["optimization_"+name] = counter
	}
	atomic.AddInt64(counter, 1)
}

func (q *QueryStatistics) OptimizationCounters() map[string]int64 {
	out := make(map[string]int64, len(q.optimizationCounters))
	for k, v := range q.optimizationCounters {
		out[k] = atomic.LoadInt64(v)
	}
	return out
}

// Timer is a started stopwatch; Stop records the elapsed duration into
// the supplied accumulator in nanoseconds.
type Timer struct {
	start time.Time
	dst   *int64
}

func (q *QueryStatistics) StartParse() Timer    { return Timer{start: time.Now(), dst: &q.parseTimeNs} }
func (q *QueryStatistics) StartBind() Timer     { return Timer{start: time.Now(), dst: &q.bindTimeNs} }
func (q *QueryStatistics) StartOptimize() Timer { return Timer{start: time.Now(), dst: &q.optimizeTimeNs} }
func (q *QueryStatistics) StartExecute() Timer  { return Timer{start: time.Now(), dst: &q.executeTimeNs} }

func (t Timer) Stop() {
	atomic.AddInt64(t.dst, int64(time.Since(t.start)))
}

// Seconds reports each phase's accumulated time in seconds, the unit
// the CLI's --stats output reports in even though the
// timers accumulate nanoseconds internally.
func (q *QueryStatistics) Seconds() (parse, bind, optimize, execute float64) {
	return time.Duration(atomic.LoadInt64(&q.parseTimeNs)).Seconds(),
		time.Duration(atomic.LoadInt64(&q.bindTimeNs)).Seconds(),
		time.Duration(atomic.LoadInt64(&q.optimizeTimeNs)).Seconds(),
		time.Duration(atomic.LoadInt64(&q.executeTimeNs)).Seconds()
}
