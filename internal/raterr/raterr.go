// Package raterr defines the error taxonomy shared across the engine's
// components. Each kind wraps an underlying cause with fmt.Errorf("%w")
// semantics so callers can use errors.Is/errors.As against the sentinel
// Kind values while still seeing the original error in logs.
package raterr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure, independent of the component that
// raised it. It does not identify a specific error value — use errors.Is
// against the Kind sentinels below, or errors.As against *Error.
type Kind string

const (
	KindConfig         Kind = "config"
	KindTLS            Kind = "tls"
	KindNetwork        Kind = "network"
	KindValidation     Kind = "validation"
	KindSerialization  Kind = "serialization"
	KindRequest        Kind = "request"
	KindGRPC           Kind = "grpc"
	KindInternal       Kind = "internal"
)

// Error is a Kind-tagged wrapper around an underlying cause.
type Error struct {
	Kind Kind
	Op   string // component/operation that raised it, e.g. "certmanager.Initialize"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the Kind sentinel for e's Kind, so that
// errors.Is(err, raterr.Sentinel(raterr.KindTLS)) works without exposing
// Kind as an error.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && k.kind == e.Kind
}

type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return string(k.kind) }

// Sentinel returns an error value usable with errors.Is to test a Kind,
// e.g. errors.Is(err, raterr.Sentinel(raterr.KindTLS)).
func Sentinel(k Kind) error { return kindSentinel{kind: k} }

// New wraps err with a Kind and an operation label.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Newf is New with a formatted message instead of a wrapped error.
func Newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

// As is a narrow convenience over errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
