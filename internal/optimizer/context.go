package optimizer

import (
	"morselsql/internal/plangraph"
	"morselsql/internal/stats"
)

// Context is the mutable state threaded through a single strategy's
// depth-first pass over the plan graph. Each Strategy's visit method
// receives the context for the node it is currently looking at and
// returns the (possibly updated) context to carry to the next node;
// complete is called once the whole graph has been visited, giving the
// strategy a chance to act on everything it collected along the way
// (e.g. ProjectionPushdown does all its work in Complete: it gathers
// every column reference in the plan, then inserts its pruning Projects).
type Context struct {
	Graph *plangraph.Graph
	Stats *stats.QueryStatistics

	// CurrentNode/ParentNode/LastNodeID track the traversal cursor: the
	// node just visited, its parent in the walk, and the id the previous
	// visit call left behind, so a strategy can tell whether it has
	// stepped across a plan boundary (e.g. past a Join) since last time.
	CurrentNodeID string
	ParentNodeID  string
	LastNodeID    string

	// CollectedIdentities is a per-pass identity set, initialised empty by
	// NewContext; none of the built-in strategies reads or writes it.
	CollectedIdentities map[string]bool

	// ProjectionsSeen/UnionsSeen/DistinctsSeen are per-pass counters of
	// each node kind; none of the built-in strategies updates or reads
	// them, so they stay zero.
	ProjectionsSeen int
	UnionsSeen      int
	DistinctsSeen   int
}

func NewContext(g *plangraph.Graph, qstats *stats.QueryStatistics) *Context {
	return &Context{
		Graph:               g,
		Stats:               qstats,
		CollectedIdentities: make(map[string]bool),
	}
}

// Fire records that this strategy actually rewrote something, bumping
// its optimization_<name> counter. Strategies call this from Visit or
// Complete only on the branches where they changed the graph, not on
// every node they merely inspected.
func (c *Context) Fire(strategyName string) {
	if c.Stats != nil {
		c.Stats.IncOptimization(strategyName)
	}
}
