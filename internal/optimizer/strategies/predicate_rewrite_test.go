package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morselsql/internal/expr"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// A LIKE pattern with no wildcard characters rewrites to plain equality.
func TestPredicateRewriteTurnsWildcardFreeLikeIntoEquality(t *testing.T) {
	g, scanID, conn := planetsScan()
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = schemaColumn(*conn, "name")
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Like, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))}
	filterID := g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicateRewrite())
	require.Equal(t, types.Eq, out.Nodes[filterID].Predicate.Op)
}

// ILIKE with no wildcards rewrites to the case-folding IInStr operator,
// not plain Eq, since LIKE's case sensitivity is part of its semantics.
func TestPredicateRewriteTurnsWildcardFreeILikeIntoCaseFoldedMatch(t *testing.T) {
	g, scanID, conn := planetsScan()
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = schemaColumn(*conn, "name")
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.ILike, ident, expr.NewLiteral(types.NewValue("earth", types.Varchar)))}
	filterID := g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicateRewrite())
	require.Equal(t, types.IInStr, out.Nodes[filterID].Predicate.Op)
}

// A LIKE pattern that actually contains wildcards must be left alone.
func TestPredicateRewriteLeavesWildcardLikeUnchanged(t *testing.T) {
	g, scanID, conn := planetsScan()
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = schemaColumn(*conn, "name")
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: expr.NewComparison(types.Like, ident, expr.NewLiteral(types.NewValue("Ear%", types.Varchar)))}
	filterID := g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicateRewrite())
	require.Equal(t, types.Like, out.Nodes[filterID].Predicate.Op)
}

// Rewriting reaches through AND/OR/NOT combinators to nested comparisons.
func TestPredicateRewriteRecursesThroughBooleanCombinators(t *testing.T) {
	g, scanID, conn := planetsScan()
	ident := expr.NewIdentifier("$planets", "name")
	ident.SchemaColumn = schemaColumn(*conn, "name")
	left := expr.NewComparison(types.Like, ident, expr.NewLiteral(types.NewValue("Earth", types.Varchar)))
	idIdent := expr.NewIdentifier("$planets", "id")
	idIdent.SchemaColumn = schemaColumn(*conn, "id")
	right := expr.NewComparison(types.Eq, idIdent, expr.NewLiteral(types.NewValue(int64(3), types.Integer)))
	and := expr.NewAnd(left, right)
	filter := &plangraph.Node{Type: plangraph.Filter, Predicate: and}
	filterID := g.InsertNodeAfter(filter, scanID)

	out := runPipeline(t, g, NewPredicateRewrite())
	require.Equal(t, types.Eq, out.Nodes[filterID].Predicate.Left.Op)
}
