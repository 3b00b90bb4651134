// Package apperr defines the error kinds shared by the store, the service and
// the transport layers.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrForbidden     = errors.New("forbidden")
	ErrLoginRequired = errors.New("login required")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrTransient     = errors.New("temporarily unavailable")
)

// Error codes.
const (
	CodeTitleTooShort       = "TITLE_TOO_SHORT"
	CodeBodyTooShort        = "BODY_TOO_SHORT"
	CodeEmptyBody           = "EMPTY_BODY"
	CodeEmptySelection      = "EMPTY_SELECTION"
	CodeUnknownTag          = "UNKNOWN_TAG"
	CodeInvalidQuery        = "INVALID_QUERY"
	CodeIdempotencyReused   = "IDEMPOTENCY_KEY_REUSED"
	CodeLoginRequired       = "LOGIN_REQUIRED"
	CodeNotQuestionAuthor   = "NOT_QUESTION_AUTHOR"
	CodeNotOwner            = "NOT_OWNER"
	CodeQuestionNotFound    = "QUESTION_NOT_FOUND"
	CodeAnswerNotFound      = "ANSWER_NOT_FOUND"
	CodeChecksumMismatch    = "CHECKSUM_MISMATCH"
	CodeAcceptanceInvariant = "ACCEPTANCE_INVARIANT"
	CodeStoreBusy           = "STORE_BUSY"
)

// Error carries a kind, a stable code and a human readable message.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the kind and the cause. A login-required error also
// matches ErrForbidden so callers that only distinguish "not allowed" keep
// working.
func (e *Error) Unwrap() []error {
	out := []error{e.Kind}
	if e.Kind == ErrLoginRequired {
		out = append(out, ErrForbidden)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New builds an Error of the given kind.
func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind error, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(ErrValidation, code, message)
}

func LoginRequired() *Error {
	return New(ErrLoginRequired, CodeLoginRequired, "log in to continue")
}

func Forbidden(code, message string) *Error {
	return New(ErrForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(ErrNotFound, code, message)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
