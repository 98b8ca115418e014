package core

import "github.com/pkg/errors"

// ErrorKind classifies errors surfaced to API clients.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// Error is an error carrying a user-actionable message and its kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
}

func (err *Error) Error() string {
	return err.Message
}

func NewNotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewConflictError(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// NewValidationError returns an invalid input error. err may be nil when fields explain it all.
func NewValidationError(err error, flds ...FieldError) error {
	var msg string
	if err != nil {
		msg = err.Error()
	} else if len(flds) > 0 {
		msg = flds[0].Error
	}
	return &Error{Kind: KindInvalidInput, Message: msg, Fields: flds}
}

// KindOf returns the kind of the root cause of err. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that causes the API to signal a graceful shutdown.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
