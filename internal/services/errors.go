package services

import "fmt"

// Kind classifies a service failure so the HTTP layer can pick a status
// code without string matching.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindDependency    Kind = "dependency"
)

// Error is a service-level error with a classification kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewAuthorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewConflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NewDependencyError(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf returns the kind of a service error, or KindDependency for
// anything unclassified.
func KindOf(err error) Kind {
	if se, ok := err.(*Error); ok {
		return se.Kind
	}
	return KindDependency
}
