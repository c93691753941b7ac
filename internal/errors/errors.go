// Package errors defines the API error taxonomy. Every AppError carries the
// HTTP status it maps to and renders as {error, message, [details], [field]}.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeLocked         = "ACCOUNT_LOCKED"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeUpstream       = "UPSTREAM_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

type AppError struct {
	Status  int
	Code    string
	Title   string
	Message string
	Details interface{}
	Field   string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithField returns a copy of e pointing at the offending input field.
func (e *AppError) WithField(field string) *AppError {
	cp := *e
	cp.Field = field
	return &cp
}

// WithDetails returns a copy of e carrying extra detail for the client.
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(status int, code, title, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Title: title, Message: message, Err: err}
}

func Validation(title, message string) *AppError {
	return newError(http.StatusBadRequest, CodeValidation, title, message, nil)
}

func Authentication(title, message string) *AppError {
	return newError(http.StatusUnauthorized, CodeAuthentication, title, message, nil)
}

func Authorization(title, message string) *AppError {
	return newError(http.StatusForbidden, CodeAuthorization, title, message, nil)
}

func Locked(message string) *AppError {
	return newError(http.StatusLocked, CodeLocked, "Account locked", message, nil)
}

func NotFound(title, message string) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, title, message, nil)
}

// Conflict is a duplicate-key failure. It maps to 400 like other input errors.
func Conflict(title, message string) *AppError {
	return newError(http.StatusBadRequest, CodeConflict, title, message, nil)
}

func Upstream(title string, err error) *AppError {
	return newError(http.StatusInternalServerError, CodeUpstream, title, "Upstream service unavailable, please try again later", err)
}

func Internal(title string, err error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, title, "Please try again later", err)
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

var (
	ErrAccountLocked      = Locked("Your account has been temporarily locked due to multiple failed login attempts. Please try again later.")
	ErrInvalidCredentials = Authentication("Invalid credentials", "Invalid email or passcode")
	ErrAccessDenied       = Authentication("Access denied", "Invalid or expired token")
	ErrEmailNotVerified   = Authorization("Email verification required", "Please verify your email address before accessing this resource")
)
