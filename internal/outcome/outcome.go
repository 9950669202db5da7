// Package outcome provides a two-variant result type for fallible operations
// whose failures are expected and must be handled by the caller.
package outcome

import "fmt"

// Kind discriminates the two variants of an Outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Failure is the payload of the error variant.
type Failure struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap returns the underlying cause so errors.Is/As see through a Failure.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Outcome is either Success(value) or Error(cause, message).
// The zero value is a Success carrying the zero T.
type Outcome[T any] struct {
	kind    Kind
	value   T
	failure *Failure
}

// Success wraps a value.
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{kind: KindSuccess, value: value}
}

// Error wraps a cause and a human-readable message.
func Error[T any](cause error, message string) Outcome[T] {
	return Outcome[T]{kind: KindError, failure: &Failure{Cause: cause, Message: message}}
}

// Errorf builds an Error whose message is format applied to args.
func Errorf[T any](cause error, format string, args ...any) Outcome[T] {
	return Error[T](cause, fmt.Sprintf(format, args...))
}

// Kind reports which variant o holds.
func (o Outcome[T]) Kind() Kind {
	return o.kind
}

// IsSuccess reports whether o is the Success variant.
func (o Outcome[T]) IsSuccess() bool {
	return o.kind == KindSuccess
}

// Match calls exactly one of the two functions depending on the variant.
func (o Outcome[T]) Match(onSuccess func(T), onError func(*Failure)) {
	if o.kind == KindError {
		onError(o.failure)
		return
	}
	onSuccess(o.value)
}

// Unwrap returns (value, nil) for Success and (zero, *Failure) for Error.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.kind == KindError {
		var zero T
		return zero, o.failure
	}
	return o.value, nil
}

// Fold reduces an Outcome to a single value of type R.
func Fold[T, R any](o Outcome[T], onSuccess func(T) R, onError func(*Failure) R) R {
	if o.kind == KindError {
		return onError(o.failure)
	}
	return onSuccess(o.value)
}
