package runtime

import (
	"errors"
	"fmt"
	"lumen/internal/span"
)

// ErrorKind classifies program evaluation errors.
type ErrorKind int

const (
	UnresolvedIdentifier ErrorKind = iota + 1
	ConstantReassignment
	DuplicateBinding
	DivisionByZero
	InvalidMemberAccessTarget
	InvalidPropertyType
	IndexAccessUnsupported
	NotCallable
	InvalidAssignmentTarget
	OperatorTypeMismatch
	ArrayPropertyAssignmentForbidden
	UnsupportedOperator
	InvalidIncrementOperand
)

var errorKindNames = map[ErrorKind]string{
	UnresolvedIdentifier:             "UnresolvedIdentifier",
	ConstantReassignment:             "ConstantReassignment",
	DuplicateBinding:                 "DuplicateBinding",
	DivisionByZero:                   "DivisionByZero",
	InvalidMemberAccessTarget:        "InvalidMemberAccessTarget",
	InvalidPropertyType:              "InvalidPropertyType",
	IndexAccessUnsupported:           "IndexAccessUnsupported",
	NotCallable:                      "NotCallable",
	InvalidAssignmentTarget:          "InvalidAssignmentTarget",
	OperatorTypeMismatch:             "OperatorTypeMismatch",
	ArrayPropertyAssignmentForbidden: "ArrayPropertyAssignmentForbidden",
	UnsupportedOperator:              "UnsupportedOperator",
	InvalidIncrementOperand:          "InvalidIncrementOperand",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// RuntimeError represents a program evaluation error. Evaluation stops at the
// first one; it is never caught by try/catch.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Span    span.Span
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %s: [%s] %s", e.Span.Start, e.Kind, e.Message)
}

func runtimeErr(kind ErrorKind, s span.Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Span: s}
}

// IsKind reports whether err is a *RuntimeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var rerr *RuntimeError
	return errors.As(err, &rerr) && rerr.Kind == kind
}

// Fault signals an evaluator contract violation, such as an AST node the
// evaluator does not know. It points at a parser/evaluator mismatch, not a
// bug in the user's program.
type Fault struct {
	Message string
	Span    span.Span
}

func (e *Fault) Error() string {
	return fmt.Sprintf("internal error at %s: %s", e.Span.Start, e.Message)
}

func fault(s span.Span, format string, args ...interface{}) *Fault {
	return &Fault{Message: fmt.Sprintf(format, args...), Span: s}
}

// ThrownError represents a user-thrown error (via throw statement).
type ThrownError struct {
	Value Value
	Span  span.Span
}

func (e *ThrownError) Error() string {
	return fmt.Sprintf("uncaught throw at %s: %s", e.Span.Start, formatValue(e.Value, nil))
}

// APIException is raised by native and static functions for domain errors
// (bad argument types, out-of-range values). Scripts can catch it.
type APIException struct {
	Kind     string // e.g. TypeError, RangeError
	ThrownBy string // the function that raised it
	Message  string
	Pos      span.Position
}

func (e *APIException) Error() string {
	if e.Pos.IsZero() {
		return fmt.Sprintf("%s in %s: %s", e.Kind, e.ThrownBy, e.Message)
	}
	return fmt.Sprintf("%s in %s at %s: %s", e.Kind, e.ThrownBy, e.Pos, e.Message)
}

// Value converts the exception into the object a catch handler receives.
func (e *APIException) Value() *ObjectVal {
	return NewObject(map[string]Value{
		"kind":     StringVal(e.Kind),
		"thrownBy": StringVal(e.ThrownBy),
		"message":  StringVal(e.Message),
		"line":     NumberVal(e.Pos.Line),
		"column":   NumberVal(e.Pos.Column),
	})
}

func typeError(by string, pos span.Position, format string, args ...interface{}) *APIException {
	return &APIException{Kind: "TypeError", ThrownBy: by, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func rangeError(by string, pos span.Position, format string, args ...interface{}) *APIException {
	return &APIException{Kind: "RangeError", ThrownBy: by, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Error categories reported by Category.
const (
	CategoryRuntime  = "runtime"
	CategoryThrown   = "thrown"
	CategoryInternal = "internal"
)

// Category maps an evaluation error to the class a host uses to decide how to
// report it. Unrecognized errors count as internal.
func Category(err error) string {
	var (
		rerr *RuntimeError
		terr *ThrownError
		aerr *APIException
	)
	switch {
	case errors.As(err, &rerr):
		return CategoryRuntime
	case errors.As(err, &terr), errors.As(err, &aerr):
		return CategoryThrown
	default:
		return CategoryInternal
	}
}
