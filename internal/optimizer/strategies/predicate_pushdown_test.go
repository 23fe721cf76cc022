package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// pushableConnector is a test double advertising whichever capabilities
// the test configures, so pushdown's connector-gated paths can be
// exercised without touching the read-only virtual datasets (none of
// which advertise CapPredicatePushable/CapLimitPushable).
type pushableConnector struct {
	catalog.Connector
	caps catalog.Capability
}

func (p *pushableConnector) Capabilities() catalog.Capability { return p.caps }
func (p *pushableConnector) CanPush(op types.Operator, left, right types.OrsoType) bool {
	return true
}

func pushablePlanets(caps catalog.Capability) catalog.Connector {
	return &pushableConnector{Connector: catalog.Planets(), caps: caps}
}

func joinGraph(t *testing.T, joinType plangraph.JoinType) (g *plangraph.Graph, joinID, leftScanID, rightScanID string, leftConn, rightConn catalog.Connector) {
	t.Helper()
	g = plangraph.NewGraph()
	leftConn = catalog.Planets()
	rightConn = catalog.Satellites()
	leftScanID = g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: leftConn})
	rightScanID = g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$satellites", Connector: rightConn})
	join := &plangraph.Node{Type: plangraph.Join, JoinType: joinType}
	joinID = g.AddNode(join)
	g.AddEdge(leftScanID, joinID, plangraph.LegLeft)
	g.AddEdge(rightScanID, joinID, plangraph.LegRight)
	return
}

// Filters over the preserved (non-null-extended) leg of an outer join
// are sound to relocate below the join.
func TestPredicatePushdownPushesPastOuterJoinOnPreservedLeg(t *testing.T) {
	g, joinID, _, _, leftConn, _ := joinGraph(t, plangraph.JoinLeft)
	idCol := schemaColumn(leftConn, "id")
	ident := expr.NewIdentifier("$planets", "id")
	ident.SchemaColumn = idCol
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue(int64(3), types.Integer)))}
	g.InsertNodeAfter(filter, joinID)

	out := runPipeline(t, g, NewPredicatePushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Join, out.Nodes[root].Type)

	ins := out.IngoingEdges(root)
	var leftInput string
	for _, e := range ins {
		if e.Leg == plangraph.LegLeft {
			leftInput = e.From
		}
	}
	require.Equal(t, plangraph.Filter, out.Nodes[leftInput].Type)
}

// A filter over the nullable side of a LEFT OUTER JOIN must not be
// relocated below the join - doing so would emit left rows with no
// surviving match as NULL-extended rows, which the filter evaluated
// above the join (seeing NULL right columns) excludes.
func TestPredicatePushdownKeepsFilterAboveLeftJoinOnNullableLeg(t *testing.T) {
	g, joinID, _, _, _, rightConn := joinGraph(t, plangraph.JoinLeft)
	planetIDCol := schemaColumn(rightConn, "planetId")
	ident := expr.NewIdentifier("$satellites", "planetId")
	ident.SchemaColumn = planetIDCol
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue(int64(3), types.Integer)))}
	filterID := g.InsertNodeAfter(filter, joinID)

	out := runPipeline(t, g, NewPredicatePushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, filterID, root)
	require.Equal(t, plangraph.Filter, out.Nodes[root].Type)
	ins := out.IngoingEdges(root)
	require.Len(t, ins, 1)
	require.Equal(t, plangraph.Join, out.Nodes[ins[0].From].Type)
}

// Symmetric case for RIGHT OUTER JOIN: only the right (preserved) leg
// is safe to push a filter below.
func TestPredicatePushdownKeepsFilterAboveRightJoinOnNullableLeg(t *testing.T) {
	g, joinID, _, _, leftConn, _ := joinGraph(t, plangraph.JoinRight)
	idCol := schemaColumn(leftConn, "id")
	ident := expr.NewIdentifier("$planets", "id")
	ident.SchemaColumn = idCol
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue(int64(3), types.Integer)))}
	filterID := g.InsertNodeAfter(filter, joinID)

	out := runPipeline(t, g, NewPredicatePushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, filterID, root)
	require.Equal(t, plangraph.Filter, out.Nodes[root].Type)
}

// A FULL OUTER JOIN null-extends both sides, so neither leg is ever
// safe to push a filter below.
func TestPredicatePushdownKeepsFilterAboveFullJoinOnEitherLeg(t *testing.T) {
	g, joinID, _, _, leftConn, _ := joinGraph(t, plangraph.JoinFull)
	idCol := schemaColumn(leftConn, "id")
	ident := expr.NewIdentifier("$planets", "id")
	ident.SchemaColumn = idCol
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue(int64(3), types.Integer)))}
	filterID := g.InsertNodeAfter(filter, joinID)

	out := runPipeline(t, g, NewPredicatePushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, filterID, root)
}

// When the connector beneath a scan advertises CapPredicatePushable
// and accepts the predicate's operator/operand types, the filter is
// absorbed into the scan's own Predicates and the Filter node dropped.
func TestPredicatePushdownPushesIntoCapablePushableScan(t *testing.T) {
	g := plangraph.NewGraph()
	conn := pushablePlanets(catalog.CapPredicatePushable)
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = schemaColumn(conn, "name")
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicatePushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Scan, out.Nodes[root].Type)
	require.Len(t, out.Nodes[root].Predicates, 1)
}

// When the connector does not advertise CapPredicatePushable (every
// built-in virtual dataset), the filter must stay above the scan.
func TestPredicatePushdownLeavesFilterAboveNonPushableScan(t *testing.T) {
	g, scanID, conn := planetsScan()
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = schemaColumn(*conn, "name")
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))}
	filterID := g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicatePushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, filterID, root)
	require.Equal(t, plangraph.Filter, out.Nodes[root].Type)
	require.Empty(t, out.Nodes[scanID].Predicates)
}

// A filter sitting above two Project hops and a Limit still relocates
// all the way into the scan in a single pass, since Visit must resolve
// multi-hop moves without relying on a second traversal.
func TestPredicatePushdownCrossesMultipleHopsInOnePass(t *testing.T) {
	g := plangraph.NewGraph()
	conn := pushablePlanets(catalog.CapPredicatePushable)
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
	nameIdent := func() *expr.Node {
		n := expr.NewIdentifier("$planets", "name")
		n.SchemaColumn = schemaColumn(conn, "name")
		return n
	}
	project1 := &plangraph.Node{Type: plangraph.Project, Projections: []*expr.Node{nameIdent()}}
	p1ID := g.InsertNodeAfter(project1, scanID)
	limit := &plangraph.Node{Type: plangraph.Limit, Count: 5}
	limitID := g.InsertNodeAfter(limit, p1ID)
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, nameIdent(), expr.NewLiteral(types.NewValue("Earth", types.Varchar)))}
	g.InsertNodeAfter(filter, limitID)

	out := runPipeline(t, g, NewPredicatePushdown())
	require.Len(t, out.Nodes[scanID].Predicates, 1)
	for _, n := range out.Nodes {
		require.NotEqual(t, plangraph.Filter, n.Type)
	}
}
