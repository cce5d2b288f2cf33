// Package errors provides custom error types and error handling utilities.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// Caller errors.
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInvalidRequest      = "INVALID_REQUEST"

	// Processing errors.
	CodeParseFailure = "PARSE_FAILURE"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeTimeout      = "TIMEOUT"
	CodeSinkError    = "SINK_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeConfigInvalid, CodeValidation, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnsupportedLanguage, CodeParseFailure:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode returns the process exit code the CLI uses for this error.
func (e *AppError) ExitCode() int {
	switch e.Code {
	case CodeConfigInvalid, CodeValidation, CodeInvalidRequest:
		return 2
	case CodeUnsupportedLanguage, CodeParseFailure:
		return 3
	case CodeNotFound:
		return 4
	default:
		return 1
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ConfigInvalidError creates a chunking configuration error.
func ConfigInvalidError(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// UnsupportedLanguageError reports a language with no registered grammar.
func UnsupportedLanguageError(language string) *AppError {
	return New(CodeUnsupportedLanguage, fmt.Sprintf("unsupported language: %s", language)).
		WithDetail("language", language)
}

// ParseFailureError reports that no syntax tree could be built.
func ParseFailureError(language string, err error) *AppError {
	return Wrap(CodeParseFailure, fmt.Sprintf("failed to parse %s source", language), err).
		WithDetail("language", language)
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// SinkError creates a chunk sink error.
func SinkError(message string, err error) *AppError {
	return Wrap(CodeSinkError, message, err)
}

// InvalidRequestError creates an invalid request error.
func InvalidRequestError(message string) *AppError {
	return New(CodeInvalidRequest, message)
}

// RateLimitedError creates a rate limited error with retry information.
func RateLimitedError(retryAfterSeconds int) *AppError {
	err := New(CodeRateLimited, "rate limit exceeded")
	if retryAfterSeconds > 0 {
		err = err.WithDetail("retry_after", fmt.Sprintf("%d", retryAfterSeconds))
	}
	return err
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// As is errors.As, re-exported so callers need only this package.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsConfigInvalid checks if error is a chunking configuration error.
func IsConfigInvalid(err error) bool {
	return CodeOf(err) == CodeConfigInvalid
}

// IsUnsupportedLanguage checks if error reports an unregistered language.
func IsUnsupportedLanguage(err error) bool {
	return CodeOf(err) == CodeUnsupportedLanguage
}

// IsParseFailure checks if error reports a total parse failure.
func IsParseFailure(err error) bool {
	return CodeOf(err) == CodeParseFailure
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// ErrorResponse is the standard JSON error response structure.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON error response to the ResponseWriter.
func WriteJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors - headers already sent
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response with proper sanitization.
// If err carries an *AppError, its code and status are used.
// For other errors, the message is replaced so internal details do not leak.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		message := appErr.Message
		if status >= http.StatusInternalServerError {
			message = "An unexpected error occurred"
		}
		WriteJSON(w, status, ErrorResponse{
			Error:   message,
			Code:    appErr.Code,
			Message: message,
			Details: appErr.Details,
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
	})
}
