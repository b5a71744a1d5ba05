// Package apperror defines Grug's error taxonomy (see SPEC_FULL.md §7).
// Every error raised by core components is one of these kinds so that
// callers at a phase boundary can decide whether to revert a message,
// a transaction, or treat the error as fatal to the block.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the taxonomy the execution pipeline
// reacts to when deciding what to revert.
type Kind string

const (
	KindHost       Kind = "host"
	KindOutOfGas   Kind = "out_of_gas"
	KindMath       Kind = "math"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindArgument   Kind = "argument"
	KindGuest      Kind = "guest"
	KindPrepare    Kind = "prepare_proposal"
	KindFatal      Kind = "fatal"
)

// Error is the concrete type carried across phase boundaries. It
// implements error and supports errors.Is/As via Unwrap.
type Error struct {
	Kind      Kind
	Codespace string
	Message   string
	Cause     error
	Backtrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, apperror.OutOfGas("")) style checks by kind.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Kind == e.Kind
	}
	return false
}

func newErr(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Codespace: "app", Message: msg, Cause: cause}
}

func Host(msg string, cause error) error     { return newErr(KindHost, msg, cause) }
func OutOfGas(msg string) error               { return newErr(KindOutOfGas, msg, nil) }
func Math(msg string) error                   { return newErr(KindMath, msg, nil) }
func Auth(msg string) error                   { return newErr(KindAuth, msg, nil) }
func NotFound(msg string) error               { return newErr(KindNotFound, msg, nil) }
func Conflict(msg string) error               { return newErr(KindConflict, msg, nil) }
func Argument(msg string) error               { return newErr(KindArgument, msg, nil) }
func Fatal(msg string, cause error) error     { return newErr(KindFatal, msg, cause) }
func Prepare(msg string, cause error) error   { return newErr(KindPrepare, msg, cause) }

// Guest wraps a contract-returned error with the contract address and
// the entry point that produced it.
func Guest(contract, method string, cause error) error {
	return &Error{
		Kind:      KindGuest,
		Codespace: "app",
		Message:   fmt.Sprintf("contract %s method %s failed", contract, method),
		Cause:     cause,
	}
}

// IsFatal reports whether err must abort the whole block (taxman
// finalize_fee failures and commit failures).
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindFatal
	}
	return false
}

// IsOutOfGas reports whether err is (or wraps) an out-of-gas error.
func IsOutOfGas(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindOutOfGas
	}
	return false
}

// IsMath reports whether err is (or wraps) a math/overflow error, the
// trigger for the DEX auction cronjob's pair-pause behavior.
func IsMath(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindMath
	}
	return false
}
