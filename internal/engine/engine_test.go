package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

func schemaColumn(conn catalog.Connector, name string) *catalog.SchemaColumn {
	for _, c := range conn.Schema() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func ident(conn catalog.Connector, relation, name string) *expr.Node {
	n := expr.NewIdentifier(relation, name)
	n.SchemaColumn = schemaColumn(conn, name)
	n.ResolvedType = n.SchemaColumn.Type
	return n
}

func TestRunFilterOverPlanetsThroughOptimizer(t *testing.T) {
	conn := catalog.Planets()
	g := plangraph.NewGraph()
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
	name := ident(conn, "$planets", "name")
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, name, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))}
	g.InsertNodeAfter(filter, scanID)

	eng := NewEngine()
	perms, err := NewPermissionSet(PermissionQuery)
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), g, perms, "SELECT")
	require.NoError(t, err)
	require.Equal(t, 1, result.Morsel.RowCount())
}

func TestRunDeniedWithoutPermission(t *testing.T) {
	conn := catalog.Planets()
	g := plangraph.NewGraph()
	g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})

	eng := NewEngine()
	perms, err := NewPermissionSet(PermissionAnalyze)
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), g, perms, "SELECT")
	require.Error(t, err)
}

func TestRunWithOptimizerDisabledMatchesEnabled(t *testing.T) {
	conn := catalog.Planets()
	buildGraph := func() (*plangraph.Graph, string) {
		g := plangraph.NewGraph()
		scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$planets", Connector: conn})
		name := ident(conn, "$planets", "name")
		filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Eq, name, expr.NewLiteral(types.NewValue("Mars", types.Varchar)))}
		return g, g.InsertNodeAfter(filter, scanID)
	}

	perms, err := NewPermissionSet(PermissionQuery)
	require.NoError(t, err)

	g1, _ := buildGraph()
	enabled := NewEngine()
	r1, err := enabled.Run(context.Background(), g1, perms, "SELECT")
	require.NoError(t, err)

	g2, _ := buildGraph()
	disabled := NewEngine(WithOptimizerConfig(optimizer.Config{Enabled: false}))
	r2, err := disabled.Run(context.Background(), g2, perms, "SELECT")
	require.NoError(t, err)

	require.Equal(t, r1.Morsel.RowCount(), r2.Morsel.RowCount())
}

func TestExtractTemporalRangeExplicitDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	rng, remainder, err := ExtractTemporalRange("SELECT * FROM $planets FOR '2026-01-15' WHERE id = 1", now)
	require.NoError(t, err)
	require.NotNil(t, rng)
	require.Equal(t, "2026-01-15", rng.Start.Format("2006-01-02"))
	require.Equal(t, rng.Start, rng.End)
	require.Equal(t, "SELECT * FROM $planets WHERE id = 1", remainder)
}

func TestExtractTemporalRangeBetween(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	rng, remainder, err := ExtractTemporalRange("SELECT * FROM $planets FOR DATES BETWEEN '2026-01-01' AND '2026-01-31'", now)
	require.NoError(t, err)
	require.Equal(t, "2026-01-01", rng.Start.Format("2006-01-02"))
	require.Equal(t, "2026-01-31", rng.End.Format("2006-01-02"))
	require.Equal(t, "SELECT * FROM $planets", remainder)
}

func TestExtractTemporalRangeNamedKeyword(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	rng, remainder, err := ExtractTemporalRange("SELECT * FROM $planets FOR YESTERDAY", now)
	require.NoError(t, err)
	require.Equal(t, "2026-07-30", rng.Start.Format("2006-01-02"))
	require.Equal(t, "SELECT * FROM $planets", remainder)
}

func TestExtractTemporalRangeNone(t *testing.T) {
	now := time.Now()
	rng, remainder, err := ExtractTemporalRange("SELECT * FROM $planets", now)
	require.NoError(t, err)
	require.Nil(t, rng)
	require.Equal(t, "SELECT * FROM $planets", remainder)
}

func TestExtractTemporalRangeMalformedDate(t *testing.T) {
	_, _, err := ExtractTemporalRange("SELECT * FROM $planets FOR 'not-a-date'", time.Now())
	require.Error(t, err)
}

func TestCheckPermissionRejectsInvalidLiteral(t *testing.T) {
	_, err := NewPermissionSet(Permission("Bogus"))
	require.Error(t, err)
}
