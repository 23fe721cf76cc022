package types

// Operator names the comparison/binary operators the optimizer and
// evaluator both key off. Kept as plain strings (rather than an enum)
// because the inversion and rewrite tables in the optimizer strategies
// are naturally keyed by name, matching the operator vocabulary of
// spec section 4.2.2/4.2.4.
type Operator string

const (
	Eq           Operator = "Eq"
	NotEq        Operator = "NotEq"
	Gt           Operator = "Gt"
	GtEq         Operator = "GtEq"
	Lt           Operator = "Lt"
	LtEq         Operator = "LtEq"
	Like         Operator = "Like"
	NotLike      Operator = "NotLike"
	ILike        Operator = "ILike"
	NotILike     Operator = "NotILike"
	RLike        Operator = "RLike"
	NotRLike     Operator = "NotRLike"
	InStr        Operator = "InStr"
	NotInStr     Operator = "NotInStr"
	IInStr       Operator = "IInStr"
	NotIInStr    Operator = "NotIInStr"
	AnyOpEq      Operator = "AnyOpEq"
	AllOpNotEq   Operator = "AllOpNotEq"
	AnyOpGtEq    Operator = "AnyOpGtEq"
	AllOpLt      Operator = "AllOpLt"
	InList       Operator = "InList"
	NotInList    Operator = "NotInList"
	Plus         Operator = "Plus"
	Minus        Operator = "Minus"
	Multiply     Operator = "Multiply"
	Divide       Operator = "Divide"
	Modulo       Operator = "Modulo"
)

// invertible holds the closed inversion table BooleanSimplification uses
// to rewrite NOT(A <op> B) into A <inverse-op> B. Operators without an
// entry cannot be inverted and NOT is left standing.
var invertible = map[Operator]Operator{
	Eq:         NotEq,
	NotEq:      Eq,
	Gt:         LtEq,
	LtEq:       Gt,
	GtEq:       Lt,
	Lt:         GtEq,
	Like:       NotLike,
	NotLike:    Like,
	ILike:      NotILike,
	NotILike:   ILike,
	RLike:      NotRLike,
	NotRLike:   RLike,
	InStr:      NotInStr,
	NotInStr:   InStr,
	IInStr:     NotIInStr,
	NotIInStr:  IInStr,
	AnyOpEq:    AllOpNotEq,
	AllOpNotEq: AnyOpEq,
	AnyOpGtEq:  AllOpLt,
	AllOpLt:    AnyOpGtEq,
	InList:     NotInList,
	NotInList:  InList,
}

// InvertOperator returns the closed-table inverse of op and true, or
// (op, false) if op has no defined inverse.
func InvertOperator(op Operator) (Operator, bool) {
	inv, ok := invertible[op]
	return inv, ok
}

type typePair struct {
	left, right OrsoType
	op          Operator
}

// operatorResultTable is the closed (left_type, right_type, op) -> result
// table. Cells absent from this table mean the expression is untyped and
// cannot be folded or pushed (spec section 3, Expression tree invariants).
// This is a representative, non-exhaustive rendering of the much larger
// table in the original implementation's operator_map.py: every operator
// spec.md names is covered for the scalar families the engine models.
var operatorResultTable = map[typePair]OrsoType{}

func reg(left, right OrsoType, op Operator, result OrsoType) {
	operatorResultTable[typePair{left, right, op}] = result
}

func init() {
	comparisons := []Operator{Eq, NotEq, Gt, GtEq, Lt, LtEq}
	numerics := []OrsoType{TinyInt, Integer, BigInt, Double, Decimal}
	for _, l := range numerics {
		for _, r := range numerics {
			for _, op := range comparisons {
				reg(l, r, op, Boolean)
			}
			reg(l, r, Plus, widestNumeric(l, r))
			reg(l, r, Minus, widestNumeric(l, r))
			reg(l, r, Multiply, widestNumeric(l, r))
			reg(l, r, Divide, Double)
			reg(l, r, Modulo, widestNumeric(l, r))
		}
	}

	textual := []OrsoType{Varchar, Blob}
	textOps := []Operator{Eq, NotEq, Gt, GtEq, Lt, LtEq, Like, NotLike, ILike, NotILike,
		RLike, NotRLike, InStr, NotInStr, IInStr, NotIInStr}
	for _, l := range textual {
		for _, r := range textual {
			for _, op := range textOps {
				reg(l, r, op, Boolean)
			}
		}
	}

	for _, op := range comparisons {
		reg(Boolean, Boolean, op, Boolean)
		reg(Timestamp, Timestamp, op, Boolean)
		reg(Date, Date, op, Boolean)
		reg(Timestamp, Date, op, Boolean)
		reg(Date, Timestamp, op, Boolean)
	}
	reg(Timestamp, Interval, Plus, Timestamp)
	reg(Timestamp, Interval, Minus, Timestamp)
	reg(Date, Interval, Plus, Timestamp)
	reg(Date, Interval, Minus, Timestamp)
	reg(Interval, Interval, Plus, Interval)
	reg(Interval, Interval, Minus, Interval)
	for _, op := range comparisons {
		reg(Interval, Interval, op, Boolean)
	}

	for _, l := range numerics {
		reg(l, Array, AnyOpEq, Boolean)
		reg(l, Array, AllOpNotEq, Boolean)
		reg(l, Array, AnyOpGtEq, Boolean)
		reg(l, Array, AllOpLt, Boolean)
		reg(l, Array, InList, Boolean)
		reg(l, Array, NotInList, Boolean)
	}
	for _, l := range textual {
		reg(l, Array, AnyOpEq, Boolean)
		reg(l, Array, AllOpNotEq, Boolean)
		reg(l, Array, InList, Boolean)
		reg(l, Array, NotInList, Boolean)
	}
}

func widestNumeric(l, r OrsoType) OrsoType {
	rank := func(t OrsoType) int {
		switch t {
		case TinyInt:
			return 0
		case Integer:
			return 1
		case BigInt:
			return 2
		case Decimal:
			return 3
		case Double:
			return 4
		default:
			return -1
		}
	}
	if rank(l) >= rank(r) {
		return l
	}
	return r
}

// ResultType looks up the closed operator-result table. ok is false when
// the combination is absent, meaning the expression is untyped: callers
// must leave it unfolded/unpushed rather than guessing a type.
func ResultType(left, right OrsoType, op Operator) (OrsoType, bool) {
	t, ok := operatorResultTable[typePair{left, right, op}]
	return t, ok
}
