// Package errors defines the failure taxonomy of a training job.
//
// Every component classifies its failures with one of the kinds below so the
// orchestrator can record a diagnosable error and callers can match on the
// kind with errors.Is through any number of fmt.Errorf("%w") wrappers.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes a training failure. A Kind is itself an error so it can be
// used directly as the target of errors.Is.
type Kind string

const (
	ConfigInvalid             Kind = "ConfigInvalid"
	DataUnavailable           Kind = "DataUnavailable"
	DataMalformed             Kind = "DataMalformed"
	UnsupportedAlgorithm      Kind = "UnsupportedAlgorithm"
	FittingFailed             Kind = "FittingFailed"
	InsufficientNormalSamples Kind = "InsufficientNormalSamples"
	PersistenceFailed         Kind = "PersistenceFailed"
	UnknownAlgorithmRun       Kind = "UnknownAlgorithmRun"
	AuthFailed                Kind = "AuthFailed"
	NoCompatibleProtocol      Kind = "NoCompatibleProtocol"
	PublishFailed             Kind = "PublishFailed"
)

func (k Kind) Error() string {
	return string(k)
}

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the outermost classified error in the chain, or
// the empty Kind if err was never classified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return ""
}
