package strategies

import "morselsql/internal/optimizer"

// DefaultPipeline returns the fixed, ordered strategy list the engine
// runs every query through: constant folding first to simplify the
// binder's raw expressions, a cluster of predicate-shaping rules,
// pushdown rules that relocate operators toward the data source,
// fusion, and a
// final redundancy sweep followed by a second constant-folding pass to
// clean up anything the rewrites introduced.
//
// The eleven names spec.md section 4.2 enumerates appear here in
// exactly the order it gives them; the additional rules spec.md
// section 9's open question calls out as the authoritative superset
// (JoinRewriter, CorrelatedFilters, JoinOrdering, PredicateFlatten,
// PredicateOrdering, PredicateCompaction, EmptyTable) are interleaved
// at the point in the pipeline where each has the information it needs
// and the least work left to redo downstream. RemoteDatabasePushdown is
// deliberately not in this list - see internal/catalog's CapSQLBacked
// flag for the extension point left in its place.
func DefaultPipeline() []optimizer.Strategy {
	return []optimizer.Strategy{
		NewConstantFolding(),
		NewBooleanSimplification(),
		NewSplitConjunctivePredicates(),
		NewPredicateRewrite(),
		NewPredicateFlatten(),
		NewPredicateOrdering(),
		NewPredicatePushdown(),
		NewJoinRewriter(),
		NewCorrelatedFilters(),
		NewPredicateCompaction(),
		NewProjectionPushdown(),
		NewDistinctPushdown(),
		NewJoinOrdering(),
		NewOperatorFusion(),
		NewLimitPushdown(),
		NewRedundantOperations(),
		NewEmptyTable(),
		NewConstantFolding(),
	}
}
