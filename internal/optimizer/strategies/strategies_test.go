package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
	"morselsql/internal/stats"
	"morselsql/internal/types"
)

func runPipeline(t *testing.T, g *plangraph.Graph, strats ...optimizer.Strategy) *plangraph.Graph {
	t.Helper()
	opt := optimizer.NewCostBasedOptimizer(optimizer.DefaultConfig(), optimizer.NewCostModel(optimizer.DefaultCostConfig()), nil, strats...)
	out, err := opt.Optimize(g, stats.New())
	require.NoError(t, err)
	return out
}

func planetsScan() (*plangraph.Graph, string, *catalog.Connector) {
	g := plangraph.NewGraph()
	conn := catalog.Planets()
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
	return g, scanID, &conn
}

func schemaColumn(conn catalog.Connector, name string) *catalog.SchemaColumn {
	for _, c := range conn.Schema() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestConstantFoldingCollapsesArithmetic(t *testing.T) {
	g, scanID, _ := planetsScan()
	lit2 := expr.NewLiteral(types.NewValue(int64(2), types.Integer))
	lit3 := expr.NewLiteral(types.NewValue(int64(3), types.Integer))
	sum := expr.NewBinary(types.Plus, lit2, lit3)
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, sum, expr.NewLiteral(types.NewValue(int64(5), types.Integer)))}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewConstantFolding())
	root, _ := out.SingleExitPoint()
	got := out.Nodes[root].Predicate
	require.Equal(t, expr.Literal, got.Type)
	require.Equal(t, true, got.Value.Raw)
}

func TestBooleanSimplificationInvertsDoubleNegation(t *testing.T) {
	g, scanID, conn := planetsScan()
	col := schemaColumn(*conn, "name")
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = col
	cmp := expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))
	notNot := expr.NewNot(expr.NewNot(cmp))
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: notNot}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewBooleanSimplification())
	root, _ := out.SingleExitPoint()
	require.Equal(t, expr.ComparisonOperator, out.Nodes[root].Predicate.Type)
}

func TestSplitConjunctivePredicatesExpandsChain(t *testing.T) {
	g, scanID, conn := planetsScan()
	col := schemaColumn(*conn, "name")
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = col
	a := expr.NewComparison(types.NotEq, ident, expr.NewLiteral(types.NewValue("Mercury", types.Varchar)))
	b := expr.NewComparison(types.NotEq, ident, expr.NewLiteral(types.NewValue("Venus", types.Varchar)))
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewAnd(a, b)}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewSplitConjunctivePredicates())
	root, _ := out.SingleExitPoint()
	count := 0
	for _, id := range out.DepthFirstSearchFlat(root) {
		if out.Nodes[id].Type == plangraph.Filter {
			count++
		}
	}
	require.Equal(t, 2, count)
}

func TestOperatorFusionCombinesOrderAndLimit(t *testing.T) {
	g, scanID, conn := planetsScan()
	col := schemaColumn(*conn, "mass")
	ident := expr.NewIdentifier("$planets", "mass")
	ident.SchemaColumn = col
	order := &plangraph.Node{Type: plangraph.Order, OrderBy: []plangraph.OrderTerm{{Expr: ident}}}
	orderID := g.InsertNodeAfter(order, scanID)
	limit := &plangraph.Node{Type: plangraph.Limit, Count: 3}
	g.InsertNodeAfter(limit, orderID)

	out := runPipeline(t, g, NewOperatorFusion())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.HeapSort, out.Nodes[root].Type)
	require.Equal(t, int64(3), out.Nodes[root].Count)
}

func TestRedundantOperationsDropsConstantTrueFilter(t *testing.T) {
	g, scanID, _ := planetsScan()
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewLiteral(types.NewValue(true, types.Boolean))}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewRedundantOperations())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Scan, out.Nodes[root].Type)
}

func TestProjectionPushdownNarrowsScan(t *testing.T) {
	g, scanID, conn := planetsScan()
	nameCol := schemaColumn(*conn, "name")
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = nameCol
	project := &plangraph.Node{Type: plangraph.Project, Projections: []*expr.Node{ident}}
	g.InsertNodeAfter(project, scanID)

	out := runPipeline(t, g, NewProjectionPushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	order := out.DepthFirstSearchFlat(root)
	foundNarrow := false
	for _, id := range order {
		n := out.Nodes[id]
		if n.Type == plangraph.Project && len(n.Projections) == 1 {
			foundNarrow = true
		}
	}
	require.True(t, foundNarrow)
}

func TestEmptyTableTurnsConstantFalseFilterIntoZeroLimit(t *testing.T) {
	g, scanID, _ := planetsScan()
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewLiteral(types.NewValue(false, types.Boolean))}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewEmptyTable())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Limit, out.Nodes[root].Type)
	require.Equal(t, int64(0), out.Nodes[root].Count)
}

func TestPredicateCompactionMergesAdjacentFilters(t *testing.T) {
	g, scanID, conn := planetsScan()
	col := schemaColumn(*conn, "name")
	ident := func() *expr.Node {
		n := expr.NewIdentifier("$planets", "name")
		n.SchemaColumn = col
		return n
	}
	f1 := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.NotEq, ident(), expr.NewLiteral(types.NewValue("Mercury", types.Varchar)))}
	f1ID := g.InsertNodeAfter(f1, scanID)
	f2 := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.NotEq, ident(), expr.NewLiteral(types.NewValue("Venus", types.Varchar)))}
	g.InsertNodeAfter(f2, f1ID)

	out := runPipeline(t, g, NewPredicateCompaction())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	count := 0
	for _, id := range out.DepthFirstSearchFlat(root) {
		if out.Nodes[id].Type == plangraph.Filter {
			count++
		}
	}
	require.Equal(t, 1, count)
	require.Equal(t, expr.And, out.Nodes[root].Predicate.Type)
}

func TestJoinRewriterConvertsCrossJoinToInner(t *testing.T) {
	g := plangraph.NewGraph()
	planets := catalog.Planets()
	satellites := catalog.Satellites()
	planetsScanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: planets})
	satellitesScanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$satellites", Connector: satellites})

	join := &plangraph.Node{Type: plangraph.Join, JoinType: plangraph.JoinCross}
	joinID := g.AddNode(join)
	g.AddEdge(planetsScanID, joinID, plangraph.LegLeft)
	g.AddEdge(satellitesScanID, joinID, plangraph.LegRight)

	planetID := func() *expr.Node {
		n := expr.NewIdentifier("$planets", "id")
		n.SchemaColumn = schemaColumn(planets, "id")
		return n
	}()
	satellitePlanetID := func() *expr.Node {
		n := expr.NewIdentifier("$satellites", "planetId")
		n.SchemaColumn = schemaColumn(satellites, "planetId")
		return n
	}()
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, planetID, satellitePlanetID)}
	g.InsertNodeAfter(filter, joinID)

	out := runPipeline(t, g, NewJoinRewriter())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Join, out.Nodes[root].Type)
	require.Equal(t, plangraph.JoinInner, out.Nodes[root].JoinType)
	require.NotNil(t, out.Nodes[root].JoinOn)
}

func TestPredicateFlattenUnwrapsNested(t *testing.T) {
	g, scanID, conn := planetsScan()
	col := schemaColumn(*conn, "name")
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = col
	cmp := expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))
	nested := expr.NewNested(expr.NewNested(cmp))
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: nested}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicateFlatten())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, expr.ComparisonOperator, out.Nodes[root].Predicate.Type)
}

func TestPredicateOrderingMovesComparisonBeforeFunction(t *testing.T) {
	g, scanID, conn := planetsScan()
	col := schemaColumn(*conn, "name")
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = col
	expensive := expr.NewComparison(types.Eq, expr.NewFunction("UPPER", ident), expr.NewLiteral(types.NewValue("EARTH", types.Varchar)))
	cheap := expr.NewComparison(types.Eq, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewAnd(expensive, cheap)}
	g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicateOrdering())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, cheap, out.Nodes[root].Predicate.Left)
}

func TestCorrelatedFiltersPropagatesAcrossEquiJoin(t *testing.T) {
	g := plangraph.NewGraph()
	planets := catalog.Planets()
	satellites := catalog.Satellites()
	planetsScanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: planets})

	planetIDOnPlanets := func() *expr.Node {
		n := expr.NewIdentifier("$planets", "id")
		n.SchemaColumn = schemaColumn(planets, "id")
		return n
	}
	knownFilter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, planetIDOnPlanets(), expr.NewLiteral(types.NewValue(int64(3), types.Integer)))}
	leftID := g.InsertNodeAfter(knownFilter, planetsScanID)

	satellitesScanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$satellites", Connector: satellites})

	join := &plangraph.Node{
		Type:     plangraph.Join,
		JoinType: plangraph.JoinInner,
		JoinOn: expr.NewComparison(types.Eq, planetIDOnPlanets(), func() *expr.Node {
			n := expr.NewIdentifier("$satellites", "planetId")
			n.SchemaColumn = schemaColumn(satellites, "planetId")
			return n
		}()),
	}
	joinID := g.AddNode(join)
	g.AddEdge(leftID, joinID, plangraph.LegLeft)
	g.AddEdge(satellitesScanID, joinID, plangraph.LegRight)

	out := runPipeline(t, g, NewCorrelatedFilters())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	foundPropagated := false
	for _, id := range out.DepthFirstSearchFlat(root) {
		n := out.Nodes[id]
		if n.Type == plangraph.Filter && n.Predicate != nil {
			if _, ok := matchEqualityLiteral(n.Predicate, schemaColumn(satellites, "planetId").Identity); ok {
				foundPropagated = true
			}
		}
	}
	require.True(t, foundPropagated)
}

func TestJoinOrderingSwapsBuildSideToSmallerLeg(t *testing.T) {
	g := plangraph.NewGraph()
	planets := catalog.Planets()    // 9 rows
	astronauts := catalog.Astronauts() // 10 rows
	planetsScanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: planets})
	astronautsScanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$astronauts", Connector: astronauts})

	join := &plangraph.Node{
		Type:     plangraph.Join,
		JoinType: plangraph.JoinInner,
		JoinOn:   expr.NewComparison(types.Eq, expr.NewLiteral(types.NewValue(int64(1), types.Integer)), expr.NewLiteral(types.NewValue(int64(1), types.Integer))),
	}
	joinID := g.AddNode(join)
	// Deliberately put the larger leg (astronauts) as build (right) and
	// the smaller leg (planets) as probe (left) - the suboptimal shape
	// JoinOrdering should correct.
	g.AddEdge(planetsScanID, joinID, plangraph.LegLeft)
	g.AddEdge(astronautsScanID, joinID, plangraph.LegRight)

	out := runPipeline(t, g, NewJoinOrdering())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	for _, e := range out.IngoingEdges(root) {
		if e.Leg == plangraph.LegRight {
			require.Equal(t, planetsScanID, e.From)
		}
	}
}
