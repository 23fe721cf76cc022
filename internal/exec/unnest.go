package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/types"
)

// UnnestOperator implements cross-join-unnest: for every outer row it
// emits one row per element of the unnested array column, repeating
// every outer column alongside the new element column (spec section
// 4.4). A row whose array is NULL or empty contributes no output rows.
// filters, when set, are equality/IN predicates PredicatePushdown has
// folded against the element column (spec section 4.2.5): they are
// applied per element, before the cross product's rows are gathered,
// so a selective unnest filter never materialises the rows it rejects.
// distinct, when set, emits each element value only once across the
// whole input, keeping the first outer row that produced it
// (DistinctPushdown's Unnest.distinct fold, spec section 4.2.7).
type UnnestOperator struct {
	child      Operator
	column     *expr.Node
	alias      string
	outSchema  []*catalog.SchemaColumn
	elementCol *catalog.SchemaColumn
	filters    []*expr.Node
	distinct   bool
	seen       map[uint64]bool
	ctx        *ExecContext
}

func NewUnnestOperator(child Operator, column *expr.Node, alias string) *UnnestOperator {
	elementCol := catalog.NewSchemaColumn("", alias, types.Varchar)
	return newUnnestOperator(child, column, alias, elementCol, nil, false)
}

// NewUnnestOperatorWithOptions builds an UnnestOperator from a bound
// plangraph.Node's fields: elementCol is the binder-minted identity
// referenced by any filters/distinct folded into the unnest, filters
// are pre-folded per-element predicates, and distinct requests that each
// unnested element value be emitted only once across all outer rows.
func NewUnnestOperatorWithOptions(child Operator, column *expr.Node, alias string, elementCol *catalog.SchemaColumn, filters []*expr.Node, distinct bool) *UnnestOperator {
	if elementCol == nil {
		elementCol = catalog.NewSchemaColumn("", alias, types.Varchar)
	}
	return newUnnestOperator(child, column, alias, elementCol, filters, distinct)
}

func newUnnestOperator(child Operator, column *expr.Node, alias string, elementCol *catalog.SchemaColumn, filters []*expr.Node, distinct bool) *UnnestOperator {
	outSchema := append(append([]*catalog.SchemaColumn{}, child.OutputSchema()...), elementCol)
	return &UnnestOperator{
		child: child, column: column, alias: alias, outSchema: outSchema,
		elementCol: elementCol, filters: filters, distinct: distinct,
		seen: make(map[uint64]bool),
	}
}

func (u *UnnestOperator) OutputSchema() []*catalog.SchemaColumn { return u.outSchema }

func (u *UnnestOperator) Open(ctx *ExecContext) error {
	u.ctx = ctx
	return u.child.Open(ctx)
}

// matchesFilters reports whether element value v survives every folded
// filter, evaluated against a single-column row bound to elementCol's
// identity (the shape expr.Eval expects).
func (u *UnnestOperator) matchesFilters(v types.Value) (bool, error) {
	if len(u.filters) == 0 {
		return true, nil
	}
	row := expr.Row{u.elementCol.Identity: v}
	for _, f := range u.filters {
		res, err := expr.Eval(f, row)
		if err != nil {
			return false, err
		}
		if res.IsNull() || res.Raw != true {
			return false, nil
		}
	}
	return true, nil
}

func (u *UnnestOperator) Next() (*morsel.Morsel, error) {
	for {
		m, err := u.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			return morsel.EOS, nil
		}
		outerIdx := make([]int, 0, m.RowCount())
		elements := make([]interface{}, 0, m.RowCount())
		for r := 0; r < m.RowCount(); r++ {
			v, err := evalRow(u.column, m.Row(r))
			if err != nil {
				return nil, err
			}
			items, ok := v.Raw.([]interface{})
			if !ok {
				continue
			}
			for _, it := range items {
				elemVal := types.NewValue(it, types.Varchar)
				ok, err := u.matchesFilters(elemVal)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if u.distinct {
					h := hashValue(elemVal)
					if u.seen[h] {
						continue
					}
					u.seen[h] = true
				}
				outerIdx = append(outerIdx, r)
				elements = append(elements, it)
			}
		}
		if len(outerIdx) == 0 {
			continue
		}
		base := gather(m, outerIdx)
		elemVals := make([]types.Value, len(elements))
		for i, e := range elements {
			elemVals[i] = types.NewValue(e, types.Varchar)
		}
		cols := append(append([]*morsel.Column{}, base.Columns...), &morsel.Column{Schema: u.elementCol, Values: elemVals})
		return morsel.New(cols), nil
	}
}

func (u *UnnestOperator) Close() error { return u.child.Close() }
