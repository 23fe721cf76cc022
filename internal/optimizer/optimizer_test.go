package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/plangraph"
	"morselsql/internal/stats"
)

func scanOnlyGraph(t *testing.T) (*plangraph.Graph, string) {
	t.Helper()
	g := plangraph.NewGraph()
	planets := catalog.Planets()
	scan := &plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: planets}
	id := g.AddNode(scan)
	return g, id
}

func TestCostBasedOptimizerDisabledReturnsInputUnchanged(t *testing.T) {
	g, _ := scanOnlyGraph(t)
	opt := NewCostBasedOptimizer(Config{Enabled: false}, NewCostModel(DefaultCostConfig()), nil)

	out, err := opt.Optimize(g, stats.New())
	require.NoError(t, err)
	require.Same(t, g, out)
}

func TestCostBasedOptimizerAnnotatesCost(t *testing.T) {
	g, scanID := scanOnlyGraph(t)
	opt := NewCostBasedOptimizer(Config{Enabled: true}, NewCostModel(DefaultCostConfig()), nil)

	out, err := opt.Optimize(g, stats.New())
	require.NoError(t, err)
	require.Equal(t, int64(9), out.Nodes[scanID].EstimatedRows)
	require.Greater(t, out.Nodes[scanID].EstimatedCost, 0.0)
}

func TestEstimateJoinCardinality(t *testing.T) {
	require.Equal(t, int64(10), estimateJoinCardinality(10, 10))
	require.Equal(t, int64(0), estimateJoinCardinality(0, 10))
}

func TestEstimateGroupCardinality(t *testing.T) {
	require.Equal(t, int64(1), estimateGroupCardinality(100, 0))
	require.LessOrEqual(t, estimateGroupCardinality(100, 2), int64(100))
}

func TestCatalogStatisticsManager(t *testing.T) {
	cat := catalog.New()
	mgr := NewCatalogStatisticsManager(cat)

	ts, err := mgr.GetTableStatistics("$planets")
	require.NoError(t, err)
	require.Equal(t, int64(9), ts.RowCount)

	_, err = mgr.GetTableStatistics("$does_not_exist")
	require.Error(t, err)
}
