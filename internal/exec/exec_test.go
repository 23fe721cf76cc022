package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/physical"
	"morselsql/internal/plangraph"
	"morselsql/internal/stats"
	"morselsql/internal/types"
)

func newExecContext() *ExecContext {
	return NewExecContext(context.Background(), stats.New(), 0, 0)
}

func schemaColumn(conn catalog.Connector, name string) *catalog.SchemaColumn {
	for _, c := range conn.Schema() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ident builds a bound identifier node against conn's schema, the shape
// a binder would hand the optimizer for a resolved column reference.
func ident(conn catalog.Connector, relation, name string) *expr.Node {
	n := expr.NewIdentifier(relation, name)
	n.SchemaColumn = schemaColumn(conn, name)
	n.ResolvedType = n.SchemaColumn.Type
	return n
}

func TestFilterProjectOverPlanets(t *testing.T) {
	conn := catalog.Planets()
	scan := NewScanOperator(conn, physical.SyncScan)
	name := ident(conn, "$planets", "name")
	mass := ident(conn, "$planets", "mass")
	predicate := expr.NewComparison(types.Eq, name, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))
	filter := NewFilterOperator(scan, predicate)
	project := NewProjectOperator(filter, []*expr.Node{name, mass})

	ctx := newExecContext()
	result, err := NewDriver(project, ctx).Run()
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount())
	require.Len(t, result.Columns, 2)
	row := result.Row(0)
	require.Equal(t, "Earth", row[name.SchemaColumn.Identity].Raw)
	require.InDelta(t, 5.97, row[mass.SchemaColumn.Identity].Raw, 0.001)
}

func TestAggregateAndGroupCountSatellites(t *testing.T) {
	conn := catalog.Satellites()
	scan := NewScanOperator(conn, physical.SyncScan)
	planetID := ident(conn, "$satellites", "planetId")
	countAll := expr.NewAggregator("COUNT", false, nil)
	group := NewAggregateAndGroupOperator(scan, []*expr.Node{planetID}, []*expr.Node{countAll})

	ctx := newExecContext()
	result, err := NewDriver(group, ctx).Run()
	require.NoError(t, err)
	require.Equal(t, 7, result.RowCount()) // 7 distinct planetIds among 21 satellites
	require.Len(t, result.Columns, 2)

	counts := make(map[int64]int64)
	idCol, _ := result.Column(planetID.SchemaColumn.Identity)
	countCol := result.Columns[1]
	for i := range idCol.Values {
		counts[idCol.Values[i].Raw.(int64)] = countCol.Values[i].Raw.(int64)
	}
	require.Equal(t, int64(7), counts[6]) // Saturn's moons: Titan, Enceladus, Mimas, Tethys, Calypso, Rhea, Iapetus
	require.Equal(t, int64(1), counts[3]) // Earth: Moon
	require.Equal(t, int64(4), counts[5]) // Jupiter: Io, Europa, Ganymede, Callisto
}

func TestHashJoinSatellitesPlanets(t *testing.T) {
	sat := catalog.Satellites()
	planets := catalog.Planets()
	left := NewScanOperator(sat, physical.SyncScan)
	right := NewScanOperator(planets, physical.SyncScan)
	on := expr.NewComparison(types.Eq, ident(sat, "$satellites", "planetId"), ident(planets, "$planets", "id"))
	join := NewHashJoinOperator(left, right, on)

	ctx := newExecContext()
	result, err := NewDriver(join, ctx).Run()
	require.NoError(t, err)
	require.Equal(t, 21, result.RowCount())
	require.Len(t, result.Columns, 28) // 8 satellite columns + 20 planet columns
}

func TestHeapSortTopKByID(t *testing.T) {
	conn := catalog.Planets()
	scan := NewScanOperator(conn, physical.SyncScan)
	idCol := ident(conn, "$planets", "id")
	heap := NewHeapSortOperator(scan, []plangraph.OrderTerm{{Expr: idCol}}, 5)

	ctx := newExecContext()
	result, err := NewDriver(heap, ctx).Run()
	require.NoError(t, err)
	require.Equal(t, 5, result.RowCount())
	nameColumn, ok := result.Column(schemaColumn(conn, "name").Identity)
	require.True(t, ok)
	require.Equal(t, "Mercury", nameColumn.Values[0].Raw)
	require.Equal(t, "Jupiter", nameColumn.Values[4].Raw)
}

func TestDistinctOverProjectedPlanetID(t *testing.T) {
	conn := catalog.Satellites()
	scan := NewScanOperator(conn, physical.SyncScan)
	planetID := ident(conn, "$satellites", "planetId")
	project := NewProjectOperator(scan, []*expr.Node{planetID})
	distinct := NewDistinctOperator(project, nil)

	ctx := newExecContext()
	result, err := NewDriver(distinct, ctx).Run()
	require.NoError(t, err)
	require.Equal(t, 7, result.RowCount())
}

func TestUnnestAstronautMissionsFiltered(t *testing.T) {
	conn := catalog.Astronauts()
	scan := NewScanOperator(conn, physical.SyncScan)
	missions := ident(conn, "$astronauts", "missions")
	unnest := NewUnnestOperator(scan, missions, "m")
	missionIdent := &expr.Node{Type: expr.Identifier, SchemaColumn: unnest.elementCol, ResolvedType: types.Varchar}
	predicate := expr.NewComparison(types.Eq, missionIdent, expr.NewLiteral(types.NewValue("Apollo 11", types.Varchar)))
	filter := NewFilterOperator(unnest, predicate)

	ctx := newExecContext()
	result, err := NewDriver(filter, ctx).Run()
	require.NoError(t, err)
	require.Equal(t, 3, result.RowCount()) // Armstrong, Aldrin, Collins
	require.Len(t, result.Columns, 20)     // 19 astronaut columns + the unnested element

	nameCol, _ := result.Column(schemaColumn(conn, "name").Identity)
	names := make([]string, result.RowCount())
	for i, v := range nameCol.Values {
		names[i] = v.Raw.(string)
	}
	require.ElementsMatch(t, []string{"Neil Armstrong", "Buzz Aldrin", "Michael Collins"}, names)
}
