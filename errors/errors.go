// Package errors defines the error taxonomy shared by every layer of the
// binding. Each failure carries a [Kind]; the package-level sentinels match
// any error of the same kind, so callers test with the standard errors.Is:
//
//	if errors.Is(err, rerrors.ErrTimeout) { ... }
package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes the error. Values are stable strings and travel over the
// wire so a kind raised inside the host is reconstructed unchanged outside.
type Kind string

const (
	KindFormat        Kind = "format"         // malformed handle encoding
	KindValue         Kind = "value"          // argument out of range
	KindRemoteCall    Kind = "remote_call"    // host rejected the call
	KindTimeout       Kind = "timeout"        // no response in time
	KindInvalidObject Kind = "invalid_object" // identity no longer live
	KindKey           Kind = "key"            // no element under key
	KindIndex         Kind = "index"          // index out of bounds
	KindUndo          Kind = "undo"           // nothing to undo
	KindRedo          Kind = "redo"           // nothing to redo
	KindRegistration  Kind = "registration"   // bad signature or function
	KindClosed        Kind = "closed"         // channel shut down
)

var kinds = map[Kind]struct{}{
	KindFormat: {}, KindValue: {}, KindRemoteCall: {}, KindTimeout: {},
	KindInvalidObject: {}, KindKey: {}, KindIndex: {}, KindUndo: {},
	KindRedo: {}, KindRegistration: {}, KindClosed: {},
}

// ParseKind returns the kind named by code, or KindRemoteCall when the code
// is empty or unknown.
func ParseKind(code string) Kind {
	if _, ok := kinds[Kind(code)]; ok {
		return Kind(code)
	}
	return KindRemoteCall
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrFormat        = &Error{Kind: KindFormat}
	ErrValue         = &Error{Kind: KindValue}
	ErrRemoteCall    = &Error{Kind: KindRemoteCall}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrInvalidObject = &Error{Kind: KindInvalidObject}
	ErrKey           = &Error{Kind: KindKey}
	ErrIndex         = &Error{Kind: KindIndex}
	ErrUndo          = &Error{Kind: KindUndo}
	ErrRedo          = &Error{Kind: KindRedo}
	ErrRegistration  = &Error{Kind: KindRegistration}
	ErrClosed        = &Error{Kind: KindClosed}
)

// Error is the structured error type used throughout the binding.
type Error struct {
	Value  any
	Cause  error
	Kind   Kind
	Op     string // remote function or wrapper method
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " (value: %v)", e.Value)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// New creates an error of the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

func Format(input, detail string) *Error {
	return &Error{Kind: KindFormat, Op: "decode", Detail: detail, Value: input}
}

func Value(op, detail string, value any) *Error {
	return &Error{Kind: KindValue, Op: op, Detail: detail, Value: value}
}

func RemoteCall(fn, detail string) *Error {
	return &Error{Kind: KindRemoteCall, Op: fn, Detail: detail}
}

func UnknownFunction(fn string) *Error {
	return &Error{Kind: KindRemoteCall, Op: fn, Detail: "unknown function: " + fn}
}

func Timeout(fn string, after fmt.Stringer) *Error {
	return &Error{Kind: KindTimeout, Op: fn, Detail: "no response after " + after.String()}
}

func InvalidObject(op string, object fmt.Stringer) *Error {
	return &Error{Kind: KindInvalidObject, Op: op, Detail: object.String() + " is not a live host object"}
}

func KeyNotFound(op string, key any) *Error {
	return &Error{Kind: KindKey, Op: op, Detail: "no element under key", Value: key}
}

func IndexOutOfRange(op string, index, length int) *Error {
	return &Error{Kind: KindIndex, Op: op, Detail: fmt.Sprintf("index %d out of range for length %d", index, length), Value: index}
}

func Undo(op string) *Error {
	return &Error{Kind: KindUndo, Op: op, Detail: "host cannot undo"}
}

func Redo(op string) *Error {
	return &Error{Kind: KindRedo, Op: op, Detail: "host cannot redo"}
}

func Registration(name, detail string) *Error {
	return &Error{Kind: KindRegistration, Op: name, Detail: detail}
}

func Closed(op string) *Error {
	return &Error{Kind: KindClosed, Op: op, Detail: "channel closed"}
}
