package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/engine"
	"morselsql/internal/plangraph"
)

func TestLexTokenizesBasicSelect(t *testing.T) {
	toks, err := Lex("SELECT name, id FROM $planets WHERE id = 3")
	require.NoError(t, err)
	require.Equal(t, TokKeyword, toks[0].Kind)
	require.Equal(t, "SELECT", toks[0].Text)
	require.Equal(t, TokEOF, toks[len(toks)-1].Kind)
}

func TestParseSimpleSelect(t *testing.T) {
	ast, err := NewParser().Parse("SELECT name, mass FROM $planets WHERE mass > 1 ORDER BY name LIMIT 5")
	require.NoError(t, err)
	require.Equal(t, "SELECT", ast.StatementKind)
	stmt := ast.Body.(*SelectStatement)
	require.Len(t, stmt.Columns, 2)
	require.Equal(t, "$planets", stmt.From.Relation)
	require.NotNil(t, stmt.Where)
	require.Len(t, stmt.OrderBy, 1)
	require.NotNil(t, stmt.Limit)
	require.Equal(t, int64(5), *stmt.Limit)
}

func TestParseStarSelect(t *testing.T) {
	ast, err := NewParser().Parse("SELECT * FROM $planets")
	require.NoError(t, err)
	stmt := ast.Body.(*SelectStatement)
	require.Len(t, stmt.Columns, 1)
	require.True(t, stmt.Columns[0].Star)
}

func TestParseJoinOn(t *testing.T) {
	ast, err := NewParser().Parse("SELECT p.name, s.name FROM $planets p JOIN $satellites s ON p.id = s.planetId")
	require.NoError(t, err)
	stmt := ast.Body.(*SelectStatement)
	require.Len(t, stmt.Joins, 1)
	require.Equal(t, plangraph.JoinInner, stmt.Joins[0].Kind)
	require.Equal(t, "$satellites", stmt.Joins[0].Table.Relation)
}

func TestBindProducesScanFilterProjectLimit(t *testing.T) {
	ast, err := NewParser().Parse("SELECT name FROM $planets WHERE name = 'Earth' LIMIT 1")
	require.NoError(t, err)

	cat := catalog.New()
	g, err := NewBinder().Bind(ast, cat)
	require.NoError(t, err)

	var sawScan, sawFilter, sawProject, sawLimit bool
	for _, n := range g.Nodes {
		switch n.Type {
		case plangraph.Scan:
			sawScan = true
		case plangraph.Filter:
			sawFilter = true
		case plangraph.Project:
			sawProject = true
		case plangraph.Limit:
			sawLimit = true
		}
	}
	require.True(t, sawScan)
	require.True(t, sawFilter)
	require.True(t, sawProject)
	require.True(t, sawLimit)
}

func TestBindJoinBuildsTwoLegs(t *testing.T) {
	ast, err := NewParser().Parse("SELECT p.name FROM $planets p JOIN $satellites s ON p.id = s.planetId")
	require.NoError(t, err)

	cat := catalog.New()
	g, err := NewBinder().Bind(ast, cat)
	require.NoError(t, err)

	var joinID string
	for id, n := range g.Nodes {
		if n.Type == plangraph.Join {
			joinID = id
		}
	}
	require.NotEmpty(t, joinID)
	require.Len(t, g.IngoingEdges(joinID), 2)
}

func TestBindUnknownRelationErrors(t *testing.T) {
	ast, err := NewParser().Parse("SELECT * FROM $nope")
	require.NoError(t, err)
	_, err = NewBinder().Bind(ast, catalog.New())
	require.Error(t, err)
}

func TestEndToEndQueryThroughEngine(t *testing.T) {
	ast, err := NewParser().Parse("SELECT name FROM $planets WHERE name = 'Mars'")
	require.NoError(t, err)

	eng := engine.NewEngine()
	g, err := NewBinder().Bind(ast, eng.Catalog())
	require.NoError(t, err)

	perms, err := engine.NewPermissionSet(engine.PermissionQuery)
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), g, perms, ast.StatementKind)
	require.NoError(t, err)
	require.Equal(t, 1, result.Morsel.RowCount())
}

func TestEndToEndAggregateCount(t *testing.T) {
	ast, err := NewParser().Parse("SELECT COUNT(*) FROM $planets")
	require.NoError(t, err)

	eng := engine.NewEngine()
	g, err := NewBinder().Bind(ast, eng.Catalog())
	require.NoError(t, err)

	perms, err := engine.NewPermissionSet(engine.PermissionQuery)
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), g, perms, ast.StatementKind)
	require.NoError(t, err)
	require.Equal(t, 1, result.Morsel.RowCount())
}
