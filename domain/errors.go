package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so that transports can shape them consistently
type ErrorKind int

const (
	// KindInternal covers unexpected failures, including recovered panics
	KindInternal ErrorKind = iota
	// KindValidation is bad client input: empty upload, malformed history
	KindValidation
	// KindProvider is a failure or non-success answer from an upstream service
	KindProvider
	// KindResource is a local resource failure such as a temp file write
	KindResource
)

// String returns the human-readable name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProvider:
		return "provider"
	case KindResource:
		return "resource"
	default:
		return "internal"
	}
}

// Error is the typed error used across the gateway
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports invalid client input
func NewValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewProviderError wraps an upstream failure. op names the failing call.
func NewProviderError(op string, err error) error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

// NewProviderMessage reports an upstream failure that has no underlying Go error
func NewProviderMessage(message string) error {
	return &Error{Kind: KindProvider, Message: message}
}

// NewResourceError wraps a local resource failure
func NewResourceError(message string, err error) error {
	return &Error{Kind: KindResource, Message: message, Err: err}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
