// Package apperr carries machine-readable error codes across the service
// layer. Kinds map to HTTP statuses at the API boundary only; everything
// below the handlers works with plain errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindStateConflict
	KindValidation
	KindForbidden
	KindUnauthorized
	KindUpstreamUnavailable
	KindUpstreamError
)

// Error pairs a kind with a stable wire code such as "session_not_draft".
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an Error with the given kind and wire code.
func E(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

// Wrap builds an Error that preserves the underlying cause.
func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func NotFound(code string) *Error            { return E(KindNotFound, code) }
func StateConflict(code string) *Error       { return E(KindStateConflict, code) }
func Validation(code string) *Error          { return E(KindValidation, code) }
func Forbidden(code string) *Error           { return E(KindForbidden, code) }
func Unauthorized(code string) *Error        { return E(KindUnauthorized, code) }
func UpstreamUnavailable(code string) *Error { return E(KindUpstreamUnavailable, code) }
func Upstream(code string) *Error            { return E(KindUpstreamError, code) }

// KindOf extracts the kind, defaulting to KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the wire code, defaulting to "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// HTTPStatus maps an error to the response status for the API boundary.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
