package exec

import (
	"math"
	"sort"
	"strings"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/morsel"
	"morselsql/internal/types"
)

// accumulator collects one aggregate function's running state. It
// supports every aggregator spec section 4.4 names: min/max/sum/count/
// avg/min_max/product/stddev/variance/list/one/any_value/count_distinct/
// approximate_median/array_agg, with optional DISTINCT.
type accumulator struct {
	kind       string
	distinct   bool
	seen       map[uint64]bool
	values     []types.Value
	count      int64
	sum        float64
	product    float64
	haveMinMax bool
	min, max   types.Value
}

func newAccumulator(name string, distinct bool) *accumulator {
	kind := strings.ToUpper(name)
	if kind == "COUNT" && distinct {
		kind = "COUNT_DISTINCT"
	}
	a := &accumulator{kind: kind, distinct: distinct, product: 1}
	if distinct {
		a.seen = make(map[uint64]bool)
	}
	return a
}

func (a *accumulator) add(v types.Value) {
	if v.IsNull() && a.kind != "COUNT" {
		return
	}
	if a.distinct {
		h := hashValue(v)
		if a.seen[h] {
			return
		}
		a.seen[h] = true
	}
	a.count++
	if types.IsNumeric(v.Type) {
		f := toFloatValue(v)
		a.sum += f
		a.product *= f
	}
	if !a.haveMinMax {
		a.min, a.max = v, v
		a.haveMinMax = true
	} else {
		if lessValue(v, a.min) {
			a.min = v
		}
		if lessValue(a.max, v) {
			a.max = v
		}
	}
	a.values = append(a.values, v)
}

func toFloatValue(v types.Value) float64 {
	switch x := v.Raw.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func lessValue(a, b types.Value) bool {
	if types.IsNumeric(a.Type) && types.IsNumeric(b.Type) {
		return toFloatValue(a) < toFloatValue(b)
	}
	return a.String() < b.String()
}

func (a *accumulator) finalize() types.Value {
	switch a.kind {
	case "COUNT":
		return types.NewValue(a.count, types.BigInt)
	case "COUNT_DISTINCT":
		return types.NewValue(int64(len(a.seen)), types.BigInt)
	case "MIN":
		return a.min
	case "MAX":
		return a.max
	case "MIN_MAX":
		return types.NewValue(map[string]interface{}{"min": a.min.Raw, "max": a.max.Raw}, types.Struct)
	case "SUM":
		return types.NewValue(a.sum, types.Double)
	case "AVG":
		if a.count == 0 {
			return types.NewValue(nil, types.Double)
		}
		return types.NewValue(a.sum/float64(a.count), types.Double)
	case "PRODUCT":
		return types.NewValue(a.product, types.Double)
	case "VARIANCE", "STDDEV":
		if a.count == 0 {
			return types.NewValue(nil, types.Double)
		}
		mean := a.sum / float64(a.count)
		var sq float64
		for _, v := range a.values {
			d := toFloatValue(v) - mean
			sq += d * d
		}
		variance := sq / float64(a.count)
		if a.kind == "STDDEV" {
			return types.NewValue(math.Sqrt(variance), types.Double)
		}
		return types.NewValue(variance, types.Double)
	case "APPROXIMATE_MEDIAN":
		if len(a.values) == 0 {
			return types.NewValue(nil, types.Double)
		}
		sorted := append([]types.Value{}, a.values...)
		sort.Slice(sorted, func(i, j int) bool { return lessValue(sorted[i], sorted[j]) })
		return sorted[len(sorted)/2]
	case "ONE", "ANY_VALUE":
		if len(a.values) == 0 {
			return types.NewValue(nil, types.Unknown)
		}
		return a.values[0]
	case "LIST", "ARRAY_AGG":
		raw := make([]interface{}, len(a.values))
		for i, v := range a.values {
			raw[i] = v.Raw
		}
		return types.NewValue(raw, types.Array)
	default:
		return types.NewValue(nil, types.Unknown)
	}
}

func aggregatorOutputType(kind string) types.OrsoType {
	switch strings.ToUpper(kind) {
	case "COUNT", "COUNT_DISTINCT":
		return types.BigInt
	case "SUM", "AVG", "PRODUCT", "VARIANCE", "STDDEV", "APPROXIMATE_MEDIAN":
		return types.Double
	case "LIST", "ARRAY_AGG":
		return types.Array
	case "MIN_MAX":
		return types.Struct
	default:
		return types.Unknown
	}
}

func aggregatorSchema(n *expr.Node) *catalog.SchemaColumn {
	name := n.Alias
	if name == "" {
		name = n.String()
	}
	return catalog.NewSchemaColumn("", name, aggregatorOutputType(n.FunctionName))
}

// aggregateArg evaluates the aggregator's single argument for a row;
// COUNT(*) has no argument (expr.NewAggregator was called with a nil
// arg), and counts the row itself via a non-null sentinel.
func aggregateArg(n *expr.Node, row expr.Row) (types.Value, error) {
	if len(n.Args) == 0 {
		return types.NewValue(true, types.Boolean), nil
	}
	return expr.Eval(n.Args[0], row)
}

// AggregateOperator implements single-group aggregation: every input
// row feeds every aggregator, one output row is emitted at EOS.
type AggregateOperator struct {
	child      Operator
	aggregates []*expr.Node
	outSchema  []*catalog.SchemaColumn
	accs       []*accumulator
	emitted    bool
	ctx        *ExecContext
}

func NewAggregateOperator(child Operator, aggregates []*expr.Node) *AggregateOperator {
	schema := make([]*catalog.SchemaColumn, len(aggregates))
	accs := make([]*accumulator, len(aggregates))
	for i, a := range aggregates {
		schema[i] = aggregatorSchema(a)
		accs[i] = newAccumulator(a.FunctionName, a.Distinct)
	}
	return &AggregateOperator{child: child, aggregates: aggregates, outSchema: schema, accs: accs}
}

func (a *AggregateOperator) OutputSchema() []*catalog.SchemaColumn { return a.outSchema }

func (a *AggregateOperator) Open(ctx *ExecContext) error {
	a.ctx = ctx
	return a.child.Open(ctx)
}

func (a *AggregateOperator) Next() (*morsel.Morsel, error) {
	if a.emitted {
		return morsel.EOS, nil
	}
	for {
		m, err := a.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			break
		}
		for r := 0; r < m.RowCount(); r++ {
			row := m.Row(r)
			for i, agg := range a.aggregates {
				v, err := aggregateArg(agg, row)
				if err != nil {
					return nil, err
				}
				a.accs[i].add(v)
			}
		}
	}
	a.emitted = true
	cols := make([]*morsel.Column, len(a.accs))
	for i, acc := range a.accs {
		cols[i] = &morsel.Column{Schema: a.outSchema[i], Values: []types.Value{acc.finalize()}}
	}
	return morsel.New(cols), nil
}

func (a *AggregateOperator) Close() error { return a.child.Close() }

// AggregateAndGroupOperator buckets rows by their group-by key tuple
// and accumulates each aggregator per group, emitting one row per group
// (in first-seen order) at EOS.
type AggregateAndGroupOperator struct {
	child      Operator
	groupBy    []*expr.Node
	aggregates []*expr.Node
	outSchema  []*catalog.SchemaColumn
	groupKeys  map[uint64]int // key hash -> index into order/groupValues/accs
	order      []uint64
	groupValues [][]types.Value
	accs       [][]*accumulator
	emitted    bool
	ctx        *ExecContext
}

func NewAggregateAndGroupOperator(child Operator, groupBy, aggregates []*expr.Node) *AggregateAndGroupOperator {
	schema := make([]*catalog.SchemaColumn, 0, len(groupBy)+len(aggregates))
	for _, g := range groupBy {
		schema = append(schema, mintProjectionSchema(g))
	}
	for _, agg := range aggregates {
		schema = append(schema, aggregatorSchema(agg))
	}
	return &AggregateAndGroupOperator{
		child: child, groupBy: groupBy, aggregates: aggregates, outSchema: schema,
		groupKeys: make(map[uint64]int),
	}
}

func (g *AggregateAndGroupOperator) OutputSchema() []*catalog.SchemaColumn { return g.outSchema }

func (g *AggregateAndGroupOperator) Open(ctx *ExecContext) error {
	g.ctx = ctx
	return g.child.Open(ctx)
}

func (g *AggregateAndGroupOperator) Next() (*morsel.Morsel, error) {
	if g.emitted {
		return morsel.EOS, nil
	}
	for {
		m, err := g.child.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			break
		}
		for r := 0; r < m.RowCount(); r++ {
			row := m.Row(r)
			keyVals := make([]types.Value, len(g.groupBy))
			hashes := make([]uint64, len(g.groupBy))
			for i, k := range g.groupBy {
				v, err := expr.Eval(k, row)
				if err != nil {
					return nil, err
				}
				keyVals[i] = v
				hashes[i] = hashValue(v)
			}
			hv := hashKeyTuple(hashes...)
			idx, ok := g.groupKeys[hv]
			if !ok {
				idx = len(g.order)
				g.groupKeys[hv] = idx
				g.order = append(g.order, hv)
				g.groupValues = append(g.groupValues, keyVals)
				accs := make([]*accumulator, len(g.aggregates))
				for i, agg := range g.aggregates {
					accs[i] = newAccumulator(agg.FunctionName, agg.Distinct)
				}
				g.accs = append(g.accs, accs)
			}
			for i, agg := range g.aggregates {
				v, err := aggregateArg(agg, row)
				if err != nil {
					return nil, err
				}
				g.accs[idx][i].add(v)
			}
		}
	}
	g.emitted = true
	n := len(g.order)
	cols := make([]*morsel.Column, len(g.outSchema))
	for c := range g.groupBy {
		vals := make([]types.Value, n)
		for i := 0; i < n; i++ {
			vals[i] = g.groupValues[i][c]
		}
		cols[c] = &morsel.Column{Schema: g.outSchema[c], Values: vals}
	}
	for a := range g.aggregates {
		vals := make([]types.Value, n)
		for i := 0; i < n; i++ {
			vals[i] = g.accs[i][a].finalize()
		}
		cols[len(g.groupBy)+a] = &morsel.Column{Schema: g.outSchema[len(g.groupBy)+a], Values: vals}
	}
	return morsel.New(cols), nil
}

func (g *AggregateAndGroupOperator) Close() error { return g.child.Close() }
