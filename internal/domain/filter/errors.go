package filter

import (
	"errors"
	"fmt"
)

// ErrorKind classifies translation and execution failures.
// ConflictingFilter marks input that gives one field and operator more than one value,
// such as a repeated key or a range key next to gte/lte.
type ErrorKind string

const (
	InvalidNumber       ErrorKind = "INVALID_NUMBER"
	InvalidDate         ErrorKind = "INVALID_DATE"
	EmptyList           ErrorKind = "EMPTY_LIST"
	EmptyRange          ErrorKind = "EMPTY_RANGE"
	UnsupportedOperator ErrorKind = "UNSUPPORTED_OPERATOR"
	DisallowedField     ErrorKind = "DISALLOWED_FIELD"
	ConflictingFilter   ErrorKind = "CONFLICTING_FILTER"
	ExecutionFailed     ErrorKind = "EXECUTION_ERROR"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidNumber       = &Error{Kind: InvalidNumber}
	ErrInvalidDate         = &Error{Kind: InvalidDate}
	ErrEmptyList           = &Error{Kind: EmptyList}
	ErrEmptyRange          = &Error{Kind: EmptyRange}
	ErrUnsupportedOperator = &Error{Kind: UnsupportedOperator}
	ErrDisallowedField     = &Error{Kind: DisallowedField}
	ErrConflictingFilter   = &Error{Kind: ConflictingFilter}
	ErrExecution           = &Error{Kind: ExecutionFailed}
)

// Error is a filter failure carrying its kind and the offending input.
type Error struct {
	Kind     ErrorKind
	Field    string
	Operator OperatorTag
	Value    string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsCoercion reports whether the kind is a value coercion failure.
func (k ErrorKind) IsCoercion() bool {
	switch k {
	case InvalidNumber, InvalidDate, EmptyList, EmptyRange:
		return true
	}
	return false
}

// KindOf extracts the kind of a filter error.
func KindOf(err error) (ErrorKind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// NewExecutionError wraps an adapter failure.
func NewExecutionError(err error) *Error {
	return &Error{Kind: ExecutionFailed, Message: "query execution failed", Err: err}
}

func newError(kind ErrorKind, field string, op OperatorTag, value, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Field:    field,
		Operator: op,
		Value:    value,
		Message:  fmt.Sprintf(format, args...),
	}
}
