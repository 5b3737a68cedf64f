package object

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	UndeclaredSymbol ErrorKind = iota
	ArityMismatch
	TypeMismatch
	NotCallable
	PrivilegeDenied
	CloneFailure // never produced: values are shared, not copied
	MalformedForm
	Unimplemented
	RecursionLimit
	IOFailure
	ParseFailure
)

var errorKindNames = [...]string{
	"undeclared symbol",
	"arity mismatch",
	"type mismatch",
	"not callable",
	"privilege denied",
	"clone failure",
	"malformed form",
	"unimplemented",
	"recursion limit",
	"io failure",
	"parse failure",
}

func (k ErrorKind) String() string {
	if int(k) < 0 || int(k) >= len(errorKindNames) {
		return "unknown"
	}
	return errorKindNames[k]
}

// EvalError is the single error type produced by evaluation. Symbol is set
// for UndeclaredSymbol errors.
type EvalError struct {
	Kind    ErrorKind
	Message string
	Symbol  string
	Cause   error
}

func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EvalError) Unwrap() error { return e.Cause }

func NewError(kind ErrorKind, format string, a ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func WrapError(kind ErrorKind, cause error, format string, a ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Message: fmt.Sprintf(format, a...), Cause: cause}
}

func UndeclaredSymbolError(name string) *EvalError {
	return &EvalError{
		Kind:    UndeclaredSymbol,
		Message: fmt.Sprintf("use of undeclared symbol %s", name),
		Symbol:  name,
	}
}

// KindOf reports the kind of the first EvalError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
