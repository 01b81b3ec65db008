// Package apperr defines the error taxonomy shared by every layer of the
// service. Each error carries a Kind that maps to exactly one HTTP status,
// so handlers never need to inspect messages to decide how to respond.
//
// Kinds and their statuses:
//   - Validation      400 malformed, missing or too-long input fields
//   - Unauthenticated 401 missing, invalid or expired bearer token
//   - Forbidden       403 session owned by another caller
//   - NotFound        404 upstream or relational lookup found nothing
//   - Configuration   500 missing or malformed credentials/project id
//   - Upstream        500 (or the upstream status) non-success from a collaborator
//   - Internal        500 anything else
//
// Example:
//
//	if req.SessionID == "" {
//	    return apperr.Validation("sessionId is required")
//	}
//
//	status := apperr.HTTPStatus(err) // 400
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConfiguration
	KindUpstream
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is the concrete error type carried through the service.
type Error struct {
	Kind    Kind
	Message string // Safe to show to API callers
	Status  int    // Optional override of the kind's default status (upstream 404 etc.)
	Body    string // Raw upstream body, for logs only
	Err     error  // Wrapped cause
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

// Validation returns a 400 error with the given message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated returns a 401 error. The message is what callers see, so
// it should not describe which verification step failed in detail.
func Unauthenticated(message string, cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, Err: cause}
}

// Forbidden returns a 403 error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound returns a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Configuration returns a 500 error for missing or malformed settings.
func Configuration(message string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Err: cause}
}

// Upstream returns an error for a non-success response from a collaborator.
// status is the upstream HTTP status; a 404 is propagated as 404, anything
// else becomes 500.
func Upstream(message string, status int, body string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Status: status, Body: body}
}

// Internal wraps an unexpected error.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf returns the Kind of err, or KindInternal when err does not wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err wraps an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		if e.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to API callers.
// Internal errors are reduced to a generic string.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "Internal server error"
	}
	return e.Message
}
