package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"morselsql/internal/types"
)

// Row is a binding from schema column identity to a scalar value, the
// shape a single morsel row is projected into before expression
// evaluation (internal/exec decomposes a morsel into Rows lazily).
type Row map[string]types.Value

// Eval walks the expression tree against a single row binding. Boolean
// results follow Kleene three-valued logic: NULL propagates through
// AND/OR/NOT/XOR exactly as SQL requires (NULL AND false is false, NULL
// AND true is NULL, NOT NULL is NULL, and so on).
func Eval(n *Node, row Row) (types.Value, error) {
	if n == nil {
		return types.Value{}, errors.New("nil expression")
	}
	switch n.Type {
	case Literal:
		return n.Value, nil
	case Identifier:
		if n.SchemaColumn == nil {
			return types.Value{}, errors.Errorf("unbound identifier %q", n.Name)
		}
		v, ok := row[n.SchemaColumn.Identity]
		if !ok {
			return types.NewValue(nil, n.SchemaColumn.Type), nil
		}
		return v, nil
	case And:
		return evalAnd(n, row)
	case Or:
		return evalOr(n, row)
	case Not:
		return evalNot(n, row)
	case Xor:
		return evalXor(n, row)
	case ComparisonOperator:
		return evalComparison(n, row)
	case BinaryOperator:
		return evalBinary(n, row)
	case UnaryOperator:
		return evalUnary(n, row)
	case Function:
		return evalFunction(n, row)
	case Nested:
		return Eval(n.Left, row)
	default:
		return types.Value{}, errors.Errorf("cannot evaluate node of type %s", n.Type)
	}
}

func boolVal(b bool) types.Value  { return types.NewValue(b, types.Boolean) }
func nullBool() types.Value       { return types.NewValue(nil, types.Boolean) }
func asBool(v types.Value) *bool {
	if v.IsNull() {
		return nil
	}
	b, _ := v.Raw.(bool)
	return &b
}

func evalAnd(n *Node, row Row) (types.Value, error) {
	l, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	lb := asBool(l)
	if lb != nil && !*lb {
		return boolVal(false), nil
	}
	r, err := Eval(n.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	rb := asBool(r)
	if rb != nil && !*rb {
		return boolVal(false), nil
	}
	if lb == nil || rb == nil {
		return nullBool(), nil
	}
	return boolVal(true), nil
}

func evalOr(n *Node, row Row) (types.Value, error) {
	l, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	lb := asBool(l)
	if lb != nil && *lb {
		return boolVal(true), nil
	}
	r, err := Eval(n.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	rb := asBool(r)
	if rb != nil && *rb {
		return boolVal(true), nil
	}
	if lb == nil || rb == nil {
		return nullBool(), nil
	}
	return boolVal(false), nil
}

func evalNot(n *Node, row Row) (types.Value, error) {
	v, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	b := asBool(v)
	if b == nil {
		return nullBool(), nil
	}
	return boolVal(!*b), nil
}

func evalXor(n *Node, row Row) (types.Value, error) {
	l, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	r, err := Eval(n.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	lb, rb := asBool(l), asBool(r)
	if lb == nil || rb == nil {
		return nullBool(), nil
	}
	return boolVal(*lb != *rb), nil
}

func evalComparison(n *Node, row Row) (types.Value, error) {
	l, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	r, err := Eval(n.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return nullBool(), nil
	}
	switch n.Op {
	case types.Eq:
		return boolVal(compareEqual(l, r)), nil
	case types.NotEq:
		return boolVal(!compareEqual(l, r)), nil
	case types.Gt, types.GtEq, types.Lt, types.LtEq:
		cmp, ok := compareOrdered(l, r)
		if !ok {
			return types.Value{}, errors.Errorf("cannot order-compare %s and %s", l.Type, r.Type)
		}
		switch n.Op {
		case types.Gt:
			return boolVal(cmp > 0), nil
		case types.GtEq:
			return boolVal(cmp >= 0), nil
		case types.Lt:
			return boolVal(cmp < 0), nil
		default:
			return boolVal(cmp <= 0), nil
		}
	case types.Like, types.NotLike, types.ILike, types.NotILike, types.RLike, types.NotRLike:
		return evalLikeFamily(n.Op, l, r)
	case types.InStr, types.NotInStr, types.IInStr, types.NotIInStr:
		return evalSubstringFamily(n.Op, l, r)
	default:
		return types.Value{}, errors.Errorf("unsupported comparison operator %s", n.Op)
	}
}

func compareEqual(l, r types.Value) bool {
	if types.IsNumeric(l.Type) && types.IsNumeric(r.Type) {
		lf, rf := toFloat(l), toFloat(r)
		return lf == rf
	}
	return fmt.Sprintf("%v", l.Raw) == fmt.Sprintf("%v", r.Raw)
}

func compareOrdered(l, r types.Value) (int, bool) {
	if types.IsNumeric(l.Type) && types.IsNumeric(r.Type) {
		lf, rf := toFloat(l), toFloat(r)
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}
	}
	if types.IsTextual(l.Type) && types.IsTextual(r.Type) {
		ls, rs := fmt.Sprintf("%v", l.Raw), fmt.Sprintf("%v", r.Raw)
		return strings.Compare(ls, rs), true
	}
	return 0, false
}

func toFloat(v types.Value) float64 {
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

func evalLikeFamily(op types.Operator, l, r types.Value) (types.Value, error) {
	subject := fmt.Sprintf("%v", l.Raw)
	pattern := fmt.Sprintf("%v", r.Raw)
	var matched bool
	switch op {
	case types.Like, types.NotLike:
		matched = matchSQLLike(subject, pattern, false)
	case types.ILike, types.NotILike:
		matched = matchSQLLike(subject, pattern, true)
	case types.RLike, types.NotRLike:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return types.Value{}, errors.Wrapf(err, "invalid RLIKE pattern %q", pattern)
		}
		matched = re.MatchString(subject)
	}
	switch op {
	case types.NotLike, types.NotILike, types.NotRLike:
		return boolVal(!matched), nil
	default:
		return boolVal(matched), nil
	}
}

func evalSubstringFamily(op types.Operator, l, r types.Value) (types.Value, error) {
	subject := fmt.Sprintf("%v", l.Raw)
	needle := fmt.Sprintf("%v", r.Raw)
	var matched bool
	switch op {
	case types.InStr, types.NotInStr:
		matched = strings.Contains(subject, needle)
	case types.IInStr, types.NotIInStr:
		matched = strings.Contains(strings.ToLower(subject), strings.ToLower(needle))
	}
	switch op {
	case types.NotInStr, types.NotIInStr:
		return boolVal(!matched), nil
	default:
		return boolVal(matched), nil
	}
}

// matchSQLLike translates a SQL LIKE pattern (% and _ wildcards, no
// escape character support) into an anchored regular expression.
func matchSQLLike(subject, pattern string, caseInsensitive bool) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	expr := b.String()
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(subject)
}

func evalBinary(n *Node, row Row) (types.Value, error) {
	l, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	r, err := Eval(n.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return types.NewValue(nil, n.ResolvedType), nil
	}
	lf, rf := toFloat(l), toFloat(r)
	resultType := n.ResolvedType
	if resultType == types.Unknown {
		resultType = types.Double
	}
	switch n.Op {
	case types.Plus:
		return types.NewValue(castNumeric(lf+rf, resultType), resultType), nil
	case types.Minus:
		return types.NewValue(castNumeric(lf-rf, resultType), resultType), nil
	case types.Multiply:
		return types.NewValue(castNumeric(lf*rf, resultType), resultType), nil
	case types.Divide:
		if rf == 0 {
			return types.Value{}, errors.New("division by zero")
		}
		return types.NewValue(lf/rf, types.Double), nil
	case types.Modulo:
		if rf == 0 {
			return types.Value{}, errors.New("modulo by zero")
		}
		mod := lf - rf*float64(int64(lf/rf))
		return types.NewValue(castNumeric(mod, resultType), resultType), nil
	default:
		return types.Value{}, errors.Errorf("unsupported binary operator %s", n.Op)
	}
}

func castNumeric(f float64, t types.OrsoType) interface{} {
	switch t {
	case types.Double, types.Decimal:
		return f
	default:
		return int64(f)
	}
}

func evalUnary(n *Node, row Row) (types.Value, error) {
	v, err := Eval(n.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull() {
		return v, nil
	}
	switch n.Op {
	case types.Minus:
		return types.NewValue(castNumeric(-toFloat(v), v.Type), v.Type), nil
	default:
		return types.Value{}, errors.Errorf("unsupported unary operator %s", n.Op)
	}
}
