package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/plangraph"
)

// When the connector beneath the scan advertises CapLimitPushable, the
// Limit is absorbed into the scan's ScanLimit and the Limit node itself
// is dropped.
func TestLimitPushdownPushesIntoCapableScan(t *testing.T) {
	g := plangraph.NewGraph()
	conn := pushablePlanets(catalog.CapLimitPushable)
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
	limit := &plangraph.Node{Type: plangraph.Limit, Count: 5}
	g.InsertNodeAfter(limit, scanID)

	out := runPipeline(t, g, NewLimitPushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Scan, out.Nodes[root].Type)
	require.NotNil(t, out.Nodes[root].ScanLimit)
	require.Equal(t, int64(5), *out.Nodes[root].ScanLimit)
}

// Without that capability (every built-in virtual dataset), the Limit
// must stay above the scan.
func TestLimitPushdownLeavesLimitAboveNonPushableScan(t *testing.T) {
	g, scanID, _ := planetsScan()
	limit := &plangraph.Node{Type: plangraph.Limit, Count: 5}
	limitID := g.InsertNodeAfter(limit, scanID)

	out := runPipeline(t, g, NewLimitPushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, limitID, root)
	require.Nil(t, out.Nodes[scanID].ScanLimit)
}

// A Limit above a chain of two Projects still reaches a capable scan
// in a single Visit pass.
func TestLimitPushdownCrossesMultipleProjectHops(t *testing.T) {
	g := plangraph.NewGraph()
	conn := pushablePlanets(catalog.CapLimitPushable)
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
	project1 := &plangraph.Node{Type: plangraph.Project}
	p1ID := g.InsertNodeAfter(project1, scanID)
	project2 := &plangraph.Node{Type: plangraph.Project}
	p2ID := g.InsertNodeAfter(project2, p1ID)
	limit := &plangraph.Node{Type: plangraph.Limit, Count: 3}
	g.InsertNodeAfter(limit, p2ID)

	out := runPipeline(t, g, NewLimitPushdown())
	require.NotNil(t, out.Nodes[scanID].ScanLimit)
	require.Equal(t, int64(3), *out.Nodes[scanID].ScanLimit)
	for _, n := range out.Nodes {
		require.NotEqual(t, plangraph.Limit, n.Type)
	}
}
