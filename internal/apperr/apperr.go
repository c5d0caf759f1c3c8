// Package apperr defines the error kinds shared by the stores and the
// request façade. Every kind renders as "KIND: message" so that callers which
// only see the text can still classify it.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error class
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindStorage       Kind = "DATABASE_ERROR"
	KindCancelled     Kind = "CANCELLED"
	KindInvalidFormat Kind = "INVALID_FORMAT"
)

// Sentinels for errors.Is
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorage       = &Error{Kind: KindStorage}
	ErrCancelled     = &Error{Kind: KindCancelled}
	ErrInvalidFormat = &Error{Kind: KindInvalidFormat}
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidFormat(format string, args ...any) error {
	return &Error{Kind: KindInvalidFormat, Message: fmt.Sprintf(format, args...)}
}

func Cancelled(message string) error {
	return &Error{Kind: KindCancelled, Message: message}
}

// Storage wraps an unexpected database or network failure. Already classified
// errors pass through unchanged.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorage, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the human part of err without its kind prefix
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
	return err.Error()
}
