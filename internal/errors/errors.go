// Package errors provides the error taxonomy shared across the console.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error category on the wire and in logs.
type ErrorCode string

const (
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidFormat      ErrorCode = "INVALID_FORMAT"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeRateLimited        ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeUpstream           ErrorCode = "UPSTREAM_ERROR"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// ServiceError carries a code, user-facing message, HTTP status and
// optional structured details.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value detail and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Unauthorized signals a missing or rejected credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Authentication required"
	}
	return &ServiceError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken signals a token that failed to parse or carry required claims.
func InvalidToken(err error) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidToken,
		Message:    "Invalid or expired token",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// InvalidCredentials signals a rejected login attempt. It is not a
// session-teardown event; the caller surfaces the message and retries.
func InvalidCredentials(message string) *ServiceError {
	if message == "" {
		message = "Invalid email or password"
	}
	return &ServiceError{
		Code:       CodeInvalidCredentials,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidFormat signals a structurally bad field.
func InvalidFormat(field, reason string) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidFormat,
		Message:    fmt.Sprintf("Invalid %s: %s", field, reason),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NotFound signals a missing resource.
func NotFound(resource string) *ServiceError {
	return &ServiceError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// RateLimitExceeded signals the caller exceeded the allowed request rate.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return &ServiceError{
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
		Details: map[string]interface{}{
			"limit":  limit,
			"window": window,
		},
	}
}

// Upstream signals a non-auth failure reported by the remote API.
func Upstream(status int, message string) *ServiceError {
	if message == "" {
		message = "Upstream request failed"
	}
	return &ServiceError{
		Code:       CodeUpstream,
		Message:    message,
		HTTPStatus: status,
	}
}

// Internal signals an unexpected failure.
func Internal(message string, err error) *ServiceError {
	if message == "" {
		message = "Internal error"
	}
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// GetServiceError returns the ServiceError wrapped anywhere in err's chain,
// or nil if there is none.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// IsUnauthorized reports whether err represents a rejected or missing
// credential (an authorization failure in the session sense).
func IsUnauthorized(err error) bool {
	serviceErr := GetServiceError(err)
	if serviceErr == nil {
		return false
	}
	return serviceErr.Code == CodeUnauthorized || serviceErr.Code == CodeInvalidToken
}
