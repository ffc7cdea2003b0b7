// internal/registry/errors.go
//
// Typed lifecycle errors.
//
// Every failure the engine reports carries an HTTP-style code and a Kind.
// Callers branch on the kind with errors.Is against the package sentinels:
//
//	if errors.Is(err, registry.ErrNotFound) { … }
//
// The transport layer renders Code and Error() into the JSON envelope
// without further interpretation.
package registry

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindBadRequest Kind = iota
	KindMissingRequiredField
	KindInvalidEmail
	KindProductMismatch
	KindInvalidDate
	KindDuplicateRegistration
	KindNotFound
	KindTerminated
	KindInactive
	KindUnauthorized
	KindStoreWriteFailure
	KindValidationFailed
	KindDisabled
)

var kindNames = [...]string{
	"bad_request", "missing_required_field", "invalid_email", "product_mismatch",
	"invalid_date", "duplicate_registration", "not_found", "terminated",
	"inactive", "unauthorized", "store_write_failure", "validation_failed",
	"disabled",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is a lifecycle failure.
type Error struct {
	Code    int    // HTTP status
	Kind    Kind   //
	Message string // short, lowercase
	Detail  string // appended as " -> detail"
	Err     error  // cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(http.StatusText(e.Code))
	}
	if e.Detail != "" {
		return msg + " -> " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrBadRequest            = &Error{Code: http.StatusBadRequest, Kind: KindBadRequest}
	ErrMissingRequiredField  = &Error{Code: http.StatusBadRequest, Kind: KindMissingRequiredField}
	ErrInvalidEmail          = &Error{Code: http.StatusBadRequest, Kind: KindInvalidEmail}
	ErrProductMismatch       = &Error{Code: http.StatusBadRequest, Kind: KindProductMismatch}
	ErrInvalidDate           = &Error{Code: http.StatusBadRequest, Kind: KindInvalidDate}
	ErrDuplicateRegistration = &Error{Code: http.StatusNotAcceptable, Kind: KindDuplicateRegistration}
	ErrNotFound              = &Error{Code: http.StatusNotFound, Kind: KindNotFound}
	ErrTerminated            = &Error{Code: http.StatusGone, Kind: KindTerminated}
	ErrInactive              = &Error{Code: http.StatusGone, Kind: KindInactive}
	ErrUnauthorized          = &Error{Code: http.StatusUnauthorized, Kind: KindUnauthorized}
	ErrStoreWriteFailure     = &Error{Code: http.StatusInternalServerError, Kind: KindStoreWriteFailure}
	ErrValidationFailed      = &Error{Code: http.StatusBadRequest, Kind: KindValidationFailed}
	ErrDisabled              = &Error{Code: http.StatusNotFound, Kind: KindDisabled}
)

// Store sentinels.  Store implementations return (or wrap) these so the
// engine can translate them without importing the store package.
var (
	ErrRecordNotFound = errors.New("registration not found")
	ErrRecordExists   = errors.New("registration key exists")
)

// newError builds an Error from a sentinel's code and kind.
func newError(sentinel *Error, msg string) *Error {
	return &Error{Code: sentinel.Code, Kind: sentinel.Kind, Message: msg}
}

// wrapError is newError with a cause rendered as the detail.
func wrapError(sentinel *Error, msg string, cause error) *Error {
	e := newError(sentinel, msg)
	if cause != nil {
		e.Err = cause
		e.Detail = cause.Error()
	}
	return e
}

// AsError converts any error into an *Error, defaulting to a 500.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return wrapError(ErrStoreWriteFailure, "", err)
}
