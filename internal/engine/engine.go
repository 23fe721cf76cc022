package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"morselsql/internal/catalog"
	"morselsql/internal/engineerrors"
	"morselsql/internal/exec"
	"morselsql/internal/morsel"
	"morselsql/internal/optimizer"
	"morselsql/internal/optimizer/strategies"
	"morselsql/internal/physical"
	"morselsql/internal/plangraph"
	"morselsql/internal/stats"
)

// Engine owns the catalog and the optimizer/executor pipeline; a
// bound plangraph.Graph goes in, a concatenated result morsel comes
// out. It does not parse or bind SQL itself - that seam is the Parser/
// Binder interfaces - but it is the thing a CLI or a Parser+Binder pair
// wires together.
type Engine struct {
	catalog     *catalog.Catalog
	optimizer   *optimizer.CostBasedOptimizer
	log         *logrus.Entry
	morselSize  int
	workers     int
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

func WithLogger(l logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		switch v := l.(type) {
		case *logrus.Entry:
			e.log = v
		case *logrus.Logger:
			e.log = logrus.NewEntry(v)
		default:
			e.log = logrus.NewEntry(logrus.StandardLogger())
		}
	}
}

func WithOptimizerConfig(cfg optimizer.Config) EngineOption {
	return func(e *Engine) {
		e.optimizer = optimizer.NewCostBasedOptimizer(cfg, optimizer.NewCostModel(optimizer.DefaultCostConfig()), e.log, strategies.DefaultPipeline()...)
	}
}

func WithMorselSize(n int) EngineOption {
	return func(e *Engine) { e.morselSize = n }
}

func WithWorkers(n int) EngineOption {
	return func(e *Engine) { e.workers = n }
}

func WithCatalog(cat *catalog.Catalog) EngineOption {
	return func(e *Engine) { e.catalog = cat }
}

// discardLogger is the default, a logger that writes nowhere - the
// engine always has one so Debug/Warn calls never nil-panic.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return logrus.NewEntry(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:    catalog.New(),
		log:        discardLogger(),
		morselSize: exec.DefaultMorselSize,
		workers:    exec.DefaultWorkers,
	}
	e.optimizer = optimizer.NewCostBasedOptimizer(optimizer.DefaultConfig(), optimizer.NewCostModel(optimizer.DefaultCostConfig()), e.log, strategies.DefaultPipeline()...)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Result is what Run hands back: the concatenated result, its schema,
// and the per-query statistics the CLI's --stats flag reports.
type Result struct {
	Morsel *morsel.Morsel
	Schema []*catalog.SchemaColumn
	Stats  *stats.QueryStatistics
}

// Explain optimizes a bound logical plan without executing it,
// returning the rewritten graph for a caller to render (the CLI's
// `EXPLAIN` statement kind uses this instead of Run).
func (e *Engine) Explain(graph *plangraph.Graph, perms PermissionSet) (*plangraph.Graph, error) {
	if err := CheckPermission(perms, "EXPLAIN"); err != nil {
		return nil, err
	}
	optimized, err := e.optimizer.Optimize(graph, stats.New())
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.InvalidInternalStateError, err, "optimization failed")
	}
	return optimized, nil
}

// Run optimizes and executes a bound logical plan, enforcing perms
// against statementKind first (§6/§7: permission checks happen before
// optimisation).
func (e *Engine) Run(ctx context.Context, graph *plangraph.Graph, perms PermissionSet, statementKind string) (*Result, error) {
	if err := CheckPermission(perms, statementKind); err != nil {
		return nil, err
	}
	qstats := stats.New()

	optimizeTimer := qstats.StartOptimize()
	optimized, err := e.optimizer.Optimize(graph, qstats)
	optimizeTimer.Stop()
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.InvalidInternalStateError, err, "optimization failed")
	}

	plan := physical.Build(optimized)
	root, err := exec.Build(plan)
	if err != nil {
		return nil, err
	}

	execCtx := exec.NewExecContext(ctx, qstats, e.morselSize, e.workers)
	driver := exec.NewDriver(root, execCtx)
	result, err := driver.Run()
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"rows_scanned":  qstats.RowsScanned,
		"rows_returned": qstats.RowsReturned,
	}).Debug("query executed")

	return &Result{Morsel: result, Schema: driver.Schema(), Stats: qstats}, nil
}
