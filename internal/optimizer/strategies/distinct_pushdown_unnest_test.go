package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// A Distinct directly above an Unnest, over nothing but the unnested
// element's own identity, folds into the unnest (Unnest.distinct =
// true) and the Distinct node is dropped.
func TestDistinctPushdownFoldsIntoUnnestOnElementIdentity(t *testing.T) {
	g := plangraph.NewGraph()
	conn := catalog.Astronauts()
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$astronauts", Connector: conn})
	elementCol := catalog.NewSchemaColumn("", "m", types.Varchar)
	missions := expr.NewIdentifier("$astronauts", "missions")
	missions.SchemaColumn = schemaColumn(conn, "missions")
	unnest := &plangraph.Node{Type: plangraph.Unnest, UnnestColumn: missions, UnnestAlias: "m", UnnestElement: elementCol}
	unnestID := g.InsertNodeAfter(unnest, scanID)

	elementIdent := &expr.Node{Type: expr.Identifier, SchemaColumn: elementCol, ResolvedType: types.Varchar}
	distinct := &plangraph.Node{Type: plangraph.Distinct, DistinctOn: []*expr.Node{elementIdent}}
	g.InsertNodeAfter(distinct, unnestID)

	out := runPipeline(t, g, NewDistinctPushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, plangraph.Unnest, out.Nodes[root].Type)
	require.True(t, out.Nodes[root].UnnestDistinct)
}

// A Distinct over a column set that is NOT exactly the unnested
// element's identity (e.g. it also covers an outer column) must not be
// folded - dropping it would change which rows survive.
func TestDistinctPushdownDoesNotFoldWhenDistinctOnCoversMoreThanElement(t *testing.T) {
	g := plangraph.NewGraph()
	conn := catalog.Astronauts()
	scanID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$astronauts", Connector: conn})
	elementCol := catalog.NewSchemaColumn("", "m", types.Varchar)
	missions := expr.NewIdentifier("$astronauts", "missions")
	missions.SchemaColumn = schemaColumn(conn, "missions")
	unnest := &plangraph.Node{Type: plangraph.Unnest, UnnestColumn: missions, UnnestAlias: "m", UnnestElement: elementCol}
	unnestID := g.InsertNodeAfter(unnest, scanID)

	elementIdent := &expr.Node{Type: expr.Identifier, SchemaColumn: elementCol, ResolvedType: types.Varchar}
	nameIdent := expr.NewIdentifier("$astronauts", "name")
	nameIdent.SchemaColumn = schemaColumn(conn, "name")
	distinct := &plangraph.Node{Type: plangraph.Distinct, DistinctOn: []*expr.Node{elementIdent, nameIdent}}
	distinctID := g.InsertNodeAfter(distinct, unnestID)

	out := runPipeline(t, g, NewDistinctPushdown())
	root, err := out.SingleExitPoint()
	require.NoError(t, err)
	require.Equal(t, distinctID, root)
	require.False(t, out.Nodes[unnestID].UnnestDistinct)
}
