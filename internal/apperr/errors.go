// Package apperr holds the error taxonomy shared by the gateway, the booking
// coordinator and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthenticationRequired is returned when no usable credential accompanies a call.
	ErrAuthenticationRequired = errors.New("apperr: authentication required")
	// ErrForbidden is returned when the acting principal is neither organizer nor delegate.
	ErrForbidden = errors.New("apperr: forbidden")
	// ErrNotFound is returned when a room or event cannot be resolved.
	ErrNotFound = errors.New("apperr: not found")
	// ErrInternal marks unexpected failures.
	ErrInternal = errors.New("apperr: internal error")
)

// ValidationError reports user-correctable input problems. Message is
// already human readable and localized.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RemoteServiceError carries the upstream status and body of a failed
// provider call for diagnostics. Status is zero when the provider could not
// be reached at all; Err then holds the transport error.
type RemoteServiceError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *RemoteServiceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status == 0 && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, e.Body)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Unreachable wraps a transport failure as a RemoteServiceError.
func Unreachable(op string, err error) error {
	return &RemoteServiceError{Op: op, Err: err}
}

// FromStatus maps a non-2xx provider status to the taxonomy.
func FromStatus(op string, status int, body string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrAuthenticationRequired)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &RemoteServiceError{Op: op, Status: status, Body: body}
}

// Kind maps err to a stable logging label.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var rErr *RemoteServiceError
	if errors.As(err, &rErr) {
		return "remote_service"
	}
	return "internal"
}

// HTTPStatus is the transport equivalent of err.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case "authentication_required":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "validation":
		return http.StatusBadRequest
	case "remote_service":
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// MessageError attaches a user facing message to err without changing its
// kind.
type MessageError struct {
	Err error
	Msg string
}

func (e *MessageError) Error() string { return e.Err.Error() }

func (e *MessageError) Unwrap() error { return e.Err }

// WithMessage wraps err with a user facing message.
func WithMessage(err error, msg string) error {
	return &MessageError{Err: err, Msg: msg}
}

// Message returns the user facing text for err. Validation and attached
// messages pass through, everything else collapses to a generic description.
func Message(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	var mErr *MessageError
	if errors.As(err, &mErr) && mErr.Msg != "" {
		return mErr.Msg
	}
	switch Kind(err) {
	case "authentication_required":
		return "login required"
	case "forbidden":
		return "not permitted"
	case "not_found":
		return "not found"
	case "remote_service":
		return "calendar service error"
	}
	return "internal error"
}
