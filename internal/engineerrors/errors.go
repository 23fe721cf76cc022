// Package engineerrors implements the closed set of typed query errors
// the binder, optimizer, and executor raise, grounded on the teacher
// executor's ExecutionError{Op, Message, Cause}/Unwrap shape. Wrap
// attaches a cause to a Kind; the package itself depends only on fmt,
// and records no stack trace.
package engineerrors

import "fmt"

// Kind is the closed set of SQL-facing error categories.
type Kind int

const (
	Unknown Kind = iota
	MissingSqlStatement
	UnsupportedSyntaxError
	ColumnNotFoundError
	AmbiguousIdentifierError
	UnexpectedDatasetReferenceError
	DatasetNotFoundError
	InvalidTemporalRangeFilterError
	EmptyResultSetError
	PermissionsError
	ProgrammingError
	InvalidInternalStateError
)

func (k Kind) String() string {
	switch k {
	case MissingSqlStatement:
		return "MissingSqlStatement"
	case UnsupportedSyntaxError:
		return "UnsupportedSyntaxError"
	case ColumnNotFoundError:
		return "ColumnNotFoundError"
	case AmbiguousIdentifierError:
		return "AmbiguousIdentifierError"
	case UnexpectedDatasetReferenceError:
		return "UnexpectedDatasetReferenceError"
	case DatasetNotFoundError:
		return "DatasetNotFoundError"
	case InvalidTemporalRangeFilterError:
		return "InvalidTemporalRangeFilterError"
	case EmptyResultSetError:
		return "EmptyResultSetError"
	case PermissionsError:
		return "PermissionsError"
	case ProgrammingError:
		return "ProgrammingError"
	case InvalidInternalStateError:
		return "InvalidInternalStateError"
	default:
		return "SqlError"
	}
}

// SqlError is the common shape every engine-raised error takes: a Kind
// for callers to switch on (the CLI uses this to choose an exit code),
// a human message, and an optional wrapped cause.
type SqlError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *SqlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SqlError) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *SqlError {
	return &SqlError{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *SqlError {
	return &SqlError{Kind: kind, Message: message, Cause: cause}
}

func ColumnNotFound(column string) *SqlError {
	return New(ColumnNotFoundError, fmt.Sprintf("column %q not found", column))
}

func AmbiguousIdentifier(name string) *SqlError {
	return New(AmbiguousIdentifierError, fmt.Sprintf("identifier %q is ambiguous", name))
}

func DatasetNotFound(relation string) *SqlError {
	return New(DatasetNotFoundError, fmt.Sprintf("dataset %q not found", relation))
}

func InvalidInternalState(detail string) *SqlError {
	return New(InvalidInternalStateError, detail)
}
