// Package types implements the closed scalar type system shared by the
// catalog, expression tree, and physical operators.
package types

import "fmt"

// OrsoType is the closed set of scalar types the engine understands. It
// mirrors the attribute-type table the binder attaches to every
// SchemaColumn and expression; operator results and pushability both key
// off it.
type OrsoType int

const (
	Unknown OrsoType = iota
	Null
	Boolean
	TinyInt
	Integer
	BigInt
	Double
	Decimal
	Varchar
	Blob
	Timestamp
	Date
	Interval
	Array
	Struct
)

func (t OrsoType) String() string {
	switch t {
	case Null:
		return "NULL"
	case Boolean:
		return "BOOLEAN"
	case TinyInt:
		return "TINYINT"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Double:
		return "DOUBLE"
	case Decimal:
		return "DECIMAL"
	case Varchar:
		return "VARCHAR"
	case Blob:
		return "BLOB"
	case Timestamp:
		return "TIMESTAMP"
	case Date:
		return "DATE"
	case Interval:
		return "INTERVAL"
	case Array:
		return "ARRAY"
	case Struct:
		return "STRUCT"
	default:
		return "UNKNOWN"
	}
}

// IsNumeric reports whether t participates in the numeric operator family.
func IsNumeric(t OrsoType) bool {
	switch t {
	case TinyInt, Integer, BigInt, Double, Decimal:
		return true
	default:
		return false
	}
}

// IsTextual reports whether t is a VARCHAR/BLOB-shaped type, the family
// the evaluator's ordered comparison treats as strings.
func IsTextual(t OrsoType) bool {
	return t == Varchar || t == Blob
}

// Value is a single scalar value carried by a literal expression or a
// morsel cell. A nil Value.Raw represents SQL NULL.
type Value struct {
	Raw  interface{}
	Type OrsoType
}

func (v Value) String() string {
	if v.Raw == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Raw)
}

// IsNull reports whether the value is SQL NULL.
func (v Value) IsNull() bool {
	return v.Raw == nil
}

func NewValue(raw interface{}, t OrsoType) Value {
	return Value{Raw: raw, Type: t}
}
