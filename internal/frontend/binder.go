package frontend

import (
	"strings"

	"morselsql/internal/catalog"
	"morselsql/internal/engine"
	"morselsql/internal/engineerrors"
	"morselsql/internal/expr"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// Binder implements engine.Binder: it resolves a *SelectStatement
// against a catalog, minting SchemaColumn-bound expr.Node identifiers,
// and assembles the plangraph.Graph the optimizer/executor consume.
// Grounded on the teacher's now-removed internal/semantic name
// resolution in spirit (alias-to-relation scoping, ambiguity checks)
// but working over the plan-graph node shapes this module uses instead
// of the teacher's tree-shaped LogicalPlan.
type Binder struct{}

func NewBinder() *Binder { return &Binder{} }

// scope tracks which columns are visible under which alias/relation
// name as FROM/JOIN clauses are bound, so identifiers and wildcards can
// be resolved without re-walking the plan graph.
type scope struct {
	byAlias map[string][]*catalog.SchemaColumn
	order   []string // alias/relation names in FROM/JOIN order, for wildcard expansion
}

func newScope() *scope { return &scope{byAlias: make(map[string][]*catalog.SchemaColumn)} }

func (s *scope) add(alias string, cols []*catalog.SchemaColumn) {
	s.byAlias[alias] = cols
	s.order = append(s.order, alias)
}

func (s *scope) resolve(relation, name string) (*catalog.SchemaColumn, error) {
	if relation != "" {
		cols, ok := s.byAlias[relation]
		if !ok {
			return nil, engineerrors.DatasetNotFound(relation)
		}
		for _, c := range cols {
			if c.Name == name {
				return c, nil
			}
		}
		return nil, engineerrors.ColumnNotFound(relation + "." + name)
	}
	var found *catalog.SchemaColumn
	for _, alias := range s.order {
		for _, c := range s.byAlias[alias] {
			if c.Name == name {
				if found != nil {
					return nil, engineerrors.AmbiguousIdentifier(name)
				}
				found = c
			}
		}
	}
	if found == nil {
		return nil, engineerrors.ColumnNotFound(name)
	}
	return found, nil
}

func (s *scope) all() []*catalog.SchemaColumn {
	var out []*catalog.SchemaColumn
	for _, alias := range s.order {
		out = append(out, s.byAlias[alias]...)
	}
	return out
}

func (b *Binder) Bind(ast *engine.AST, cat *catalog.Catalog) (*plangraph.Graph, error) {
	stmt, ok := ast.Body.(*SelectStatement)
	if !ok {
		return nil, engineerrors.New(engineerrors.ProgrammingError, "frontend binder given a non-SelectStatement AST body")
	}

	g := plangraph.NewGraph()
	sc := newScope()

	if stmt.Show == "TABLES" {
		g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$tables", Connector: tablesConnector(cat)})
		return g, nil
	}
	if stmt.ShowColumns != "" {
		target, ok := cat.Lookup(stmt.ShowColumns)
		if !ok {
			return nil, engineerrors.DatasetNotFound(stmt.ShowColumns)
		}
		g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: "$columns", Connector: columnsConnector(target)})
		return g, nil
	}

	conn, ok := cat.Lookup(stmt.From.Relation)
	if !ok {
		return nil, engineerrors.DatasetNotFound(stmt.From.Relation)
	}
	alias := stmt.From.Alias
	if alias == "" {
		alias = stmt.From.Relation
	}
	sc.add(alias, conn.Schema())
	leftID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: stmt.From.Relation, Connector: conn, Alias: stmt.From.Alias})

	for _, jc := range stmt.Joins {
		rightConn, ok := cat.Lookup(jc.Table.Relation)
		if !ok {
			return nil, engineerrors.DatasetNotFound(jc.Table.Relation)
		}
		rightAlias := jc.Table.Alias
		if rightAlias == "" {
			rightAlias = jc.Table.Relation
		}
		rightID := g.AddNode(&plangraph.Node{Type: plangraph.Scan, Relation: jc.Table.Relation, Connector: rightConn, Alias: jc.Table.Alias})
		sc.add(rightAlias, rightConn.Schema())

		var on *expr.Node
		if jc.On != nil {
			var err error
			on, err = b.resolveExpr(jc.On, sc)
			if err != nil {
				return nil, err
			}
		}
		joinID := g.AddNode(&plangraph.Node{Type: plangraph.Join, JoinType: jc.Kind, JoinOn: on})
		g.AddEdge(leftID, joinID, plangraph.LegLeft)
		g.AddEdge(rightID, joinID, plangraph.LegRight)
		leftID = joinID
	}

	if stmt.Where != nil {
		pred, err := b.resolveExpr(stmt.Where, sc)
		if err != nil {
			return nil, err
		}
		leftID = g.InsertNodeAfter(&plangraph.Node{Type: plangraph.Filter, Predicate: pred}, leftID)
	}

	hasAggregates := false
	for _, item := range stmt.Columns {
		if item.Star {
			continue
		}
		if fn, ok := item.Expr.(FunctionExpr); ok && isAggregateFunction(fn.Name) {
			hasAggregates = true
		}
	}

	if hasAggregates || len(stmt.GroupBy) > 0 {
		groupBy, err := b.resolveExprList(stmt.GroupBy, sc)
		if err != nil {
			return nil, err
		}
		var aggregates []*expr.Node
		for _, item := range stmt.Columns {
			if item.Star {
				return nil, engineerrors.New(engineerrors.UnsupportedSyntaxError, "SELECT * not supported alongside aggregation")
			}
			fn, ok := item.Expr.(FunctionExpr)
			if !ok || !isAggregateFunction(fn.Name) {
				resolved, err := b.resolveExpr(item.Expr, sc)
				if err != nil {
					return nil, err
				}
				groupBy = append(groupBy, resolved)
				continue
			}
			var arg *expr.Node
			if len(fn.Args) > 0 {
				if _, star := fn.Args[0].(WildcardExpr); !star {
					resolvedArg, err := b.resolveExpr(fn.Args[0], sc)
					if err != nil {
						return nil, err
					}
					arg = resolvedArg
				}
			}
			agg := expr.NewAggregator(fn.Name, fn.Distinct, arg)
			agg.Alias = item.Alias
			if agg.Alias == "" {
				agg.Alias = strings.ToLower(fn.Name)
			}
			aggregates = append(aggregates, agg)
		}
		nodeType := plangraph.Aggregate
		if len(groupBy) > 0 {
			nodeType = plangraph.AggregateAndGroup
		}
		leftID = g.InsertNodeAfter(&plangraph.Node{Type: nodeType, GroupBy: groupBy, Aggregates: aggregates}, leftID)
	} else {
		projections, err := b.resolveSelectList(stmt.Columns, sc)
		if err != nil {
			return nil, err
		}
		leftID = g.InsertNodeAfter(&plangraph.Node{Type: plangraph.Project, Projections: projections}, leftID)
	}

	if stmt.Distinct {
		leftID = g.InsertNodeAfter(&plangraph.Node{Type: plangraph.Distinct}, leftID)
	}

	if len(stmt.OrderBy) > 0 {
		terms := make([]plangraph.OrderTerm, 0, len(stmt.OrderBy))
		for _, o := range stmt.OrderBy {
			e, err := b.resolveExpr(o.Expr, sc)
			if err != nil {
				return nil, err
			}
			dir := plangraph.Ascending
			if o.Descending {
				dir = plangraph.Descending
			}
			terms = append(terms, plangraph.OrderTerm{Expr: e, Direction: dir})
		}
		nodeType := plangraph.Order
		if stmt.Limit != nil {
			nodeType = plangraph.HeapSort
		}
		node := &plangraph.Node{Type: nodeType, OrderBy: terms}
		if stmt.Limit != nil {
			node.Count = *stmt.Limit
		}
		leftID = g.InsertNodeAfter(node, leftID)
		if nodeType == plangraph.HeapSort {
			return g, nil
		}
	}

	if stmt.Limit != nil {
		leftID = g.InsertNodeAfter(&plangraph.Node{Type: plangraph.Limit, Count: *stmt.Limit}, leftID)
	}
	_ = leftID
	return g, nil
}

// metadataConnector is a synthetic, read-only catalog.Connector backing
// SHOW TABLES / SHOW COLUMNS: it reuses the Scan operator exec already
// implements instead of needing dedicated Show/ShowColumns operators,
// the same in-memory-literal-table shape internal/catalog's virtual
// datasets use.
type metadataConnector struct {
	name    string
	columns []*catalog.SchemaColumn
	rows    [][]types.Value
}

func (m *metadataConnector) Name() string            { return m.name }
func (m *metadataConnector) Capabilities() catalog.Capability { return 0 }
func (m *metadataConnector) Schema() []*catalog.SchemaColumn  { return m.columns }
func (m *metadataConnector) CanPush(types.Operator, types.OrsoType, types.OrsoType) bool {
	return false
}
func (m *metadataConnector) ReadDataset() ([]*catalog.SchemaColumn, [][]types.Value, error) {
	return m.columns, m.rows, nil
}

func tablesConnector(cat *catalog.Catalog) catalog.Connector {
	col := catalog.NewSchemaColumn("$tables", "name", types.Varchar)
	names := cat.Names()
	rows := make([][]types.Value, 0, len(names))
	for _, n := range names {
		rows = append(rows, []types.Value{types.NewValue(n, types.Varchar)})
	}
	return &metadataConnector{name: "$tables", columns: []*catalog.SchemaColumn{col}, rows: rows}
}

func columnsConnector(target catalog.Connector) catalog.Connector {
	nameCol := catalog.NewSchemaColumn("$columns", "name", types.Varchar)
	typeCol := catalog.NewSchemaColumn("$columns", "type", types.Varchar)
	cols := target.Schema()
	rows := make([][]types.Value, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []types.Value{
			types.NewValue(c.Name, types.Varchar),
			types.NewValue(c.Type.String(), types.Varchar),
		})
	}
	return &metadataConnector{name: "$columns", columns: []*catalog.SchemaColumn{nameCol, typeCol}, rows: rows}
}

func isAggregateFunction(name string) bool {
	switch strings.ToUpper(name) {
	case "COUNT", "COUNT_DISTINCT", "MIN", "MAX", "MIN_MAX", "SUM", "AVG",
		"PRODUCT", "VARIANCE", "STDDEV", "APPROXIMATE_MEDIAN", "ONE",
		"ANY_VALUE", "LIST", "ARRAY_AGG":
		return true
	}
	return false
}

func (b *Binder) resolveSelectList(items []SelectItem, sc *scope) ([]*expr.Node, error) {
	var out []*expr.Node
	for _, item := range items {
		if item.Star {
			for _, c := range sc.all() {
				id := expr.NewIdentifier(c.Relation, c.Name)
				id.SchemaColumn = c
				id.ResolvedType = c.Type
				out = append(out, id)
			}
			continue
		}
		e, err := b.resolveExpr(item.Expr, sc)
		if err != nil {
			return nil, err
		}
		if item.Alias != "" {
			e.Alias = item.Alias
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *Binder) resolveExprList(items []Expr, sc *scope) ([]*expr.Node, error) {
	var out []*expr.Node
	for _, it := range items {
		e, err := b.resolveExpr(it, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *Binder) resolveExpr(e Expr, sc *scope) (*expr.Node, error) {
	switch v := e.(type) {
	case LiteralExpr:
		return expr.NewLiteral(literalValue(v)), nil
	case IdentifierExpr:
		col, err := sc.resolve(v.Relation, v.Name)
		if err != nil {
			return nil, err
		}
		n := expr.NewIdentifier(col.Relation, col.Name)
		n.SchemaColumn = col
		n.ResolvedType = col.Type
		return n, nil
	case WildcardExpr:
		return expr.NewWildcard(v.Relation), nil
	case UnaryExpr:
		operand, err := b.resolveExpr(v.Expr, sc)
		if err != nil {
			return nil, err
		}
		if v.Op == "NOT" {
			return expr.NewNot(operand), nil
		}
		return expr.NewBinary(types.Minus, expr.NewLiteral(types.NewValue(int64(0), types.Integer)), operand), nil
	case BinaryExpr:
		return b.resolveBinary(v, sc)
	case FunctionExpr:
		args, err := b.resolveExprArgs(v.Args, sc)
		if err != nil {
			return nil, err
		}
		return expr.NewFunction(v.Name, args...), nil
	default:
		return nil, engineerrors.New(engineerrors.ProgrammingError, "unhandled frontend expression type")
	}
}

func (b *Binder) resolveExprArgs(args []Expr, sc *scope) ([]*expr.Node, error) {
	var out []*expr.Node
	for _, a := range args {
		if _, ok := a.(WildcardExpr); ok {
			out = append(out, expr.NewWildcard(""))
			continue
		}
		e, err := b.resolveExpr(a, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

var comparisonOpMap = map[string]types.Operator{
	"=": types.Eq, "!=": types.NotEq, "<>": types.NotEq,
	"<": types.Lt, "<=": types.LtEq, ">": types.Gt, ">=": types.GtEq,
	"LIKE": types.Like,
}

var binaryOpMap = map[string]types.Operator{
	"+": types.Plus, "-": types.Minus, "*": types.Multiply, "/": types.Divide, "%": types.Modulo,
}

func (b *Binder) resolveBinary(v BinaryExpr, sc *scope) (*expr.Node, error) {
	left, err := b.resolveExpr(v.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := b.resolveExpr(v.Right, sc)
	if err != nil {
		return nil, err
	}
	switch v.Op {
	case "AND":
		return expr.NewAnd(left, right), nil
	case "OR":
		return expr.NewOr(left, right), nil
	}
	if op, ok := comparisonOpMap[v.Op]; ok {
		return expr.NewComparison(op, left, right), nil
	}
	if op, ok := binaryOpMap[v.Op]; ok {
		return expr.NewBinary(op, left, right), nil
	}
	return nil, engineerrors.New(engineerrors.UnsupportedSyntaxError, "unsupported operator: "+v.Op)
}

func literalValue(v LiteralExpr) types.Value {
	switch v.Kind {
	case "int":
		return types.NewValue(v.Raw, types.Integer)
	case "float":
		return types.NewValue(v.Raw, types.Double)
	case "string":
		return types.NewValue(v.Raw, types.Varchar)
	case "bool":
		return types.NewValue(v.Raw, types.Boolean)
	default:
		return types.NewValue(nil, types.Null)
	}
}
