package apperror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error so hosts can map it to a transport status and decide on retries.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindState      Kind = "state"
	KindDependency Kind = "dependency"
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is the single error type returned by the pricing engine.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports a malformed or inconsistent request.
func NewValidationError(msg string, flds ...FieldError) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: flds}
}

// NewNotFoundError reports a referenced entity or snapshot that does not exist.
func NewNotFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewStateError reports entities that exist but are mutually inconsistent or inactive.
func NewStateError(format string, args ...interface{}) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// NewDependencyError wraps a failure of an external read model or store.
func NewDependencyError(err error, msg string) error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsState(err error) bool      { return KindOf(err) == KindState }
func IsDependency(err error) bool { return KindOf(err) == KindDependency }

// AsDependency leaves engine errors untouched and wraps anything else as a DependencyError.
func AsDependency(err error, msg string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return errors.Wrap(err, msg)
	}
	return NewDependencyError(err, msg)
}
