package nest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies framework errors
type ErrorCode int

const (
	UnknownErrorCode ErrorCode = iota
	InvalidModuleErrorCode
	CircularDependencyErrorCode
	ProviderNotFoundErrorCode
	ValidationErrorCode
	HandlerExecutionErrorCode
	RouteDefinitionErrorCode
	TimeoutErrorCode
	HttpErrorCode
)

// String returns the string representation of the error code
func (c ErrorCode) String() string {
	switch c {
	case InvalidModuleErrorCode:
		return "InvalidModuleError"
	case CircularDependencyErrorCode:
		return "CircularDependencyError"
	case ProviderNotFoundErrorCode:
		return "ProviderNotFoundError"
	case ValidationErrorCode:
		return "ValidationError"
	case HandlerExecutionErrorCode:
		return "HandlerExecutionError"
	case RouteDefinitionErrorCode:
		return "RouteDefinitionError"
	case TimeoutErrorCode:
		return "TimeoutError"
	case HttpErrorCode:
		return "HttpError"
	default:
		return "UnknownError"
	}
}

// InvalidModuleError is returned when a type passed as a module carries no
// module metadata
type InvalidModuleError struct {
	Module string
}

func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("%s is not a valid module: no module metadata declared", e.Module)
}

func (e *InvalidModuleError) ErrorCode() ErrorCode { return InvalidModuleErrorCode }

// CircularDependencyError is returned when a provider depends on itself,
// directly or through a chain of other providers
type CircularDependencyError struct {
	Provider string
	Chain    []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Chain) > 1 {
		return fmt.Sprintf("circular dependency detected for %s: %s", e.Provider, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("circular dependency detected for %s", e.Provider)
}

func (e *CircularDependencyError) ErrorCode() ErrorCode { return CircularDependencyErrorCode }

// ProviderNotFoundError is returned when a dependency cannot be constructed
type ProviderNotFoundError struct {
	Provider string
	// RequiredBy names the provider whose constructor asked for it
	RequiredBy string
	Reason     string
}

func (e *ProviderNotFoundError) Error() string {
	msg := fmt.Sprintf("provider %s not found", e.Provider)
	if e.RequiredBy != "" {
		msg += fmt.Sprintf(" (required by %s)", e.RequiredBy)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ProviderNotFoundError) ErrorCode() ErrorCode { return ProviderNotFoundErrorCode }

// ValidationError is returned by pipes that reject a value
type ValidationError struct {
	Message string
	Field   string
	Details any
}

// NewValidationError creates a validation error for an argument
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) ErrorCode() ErrorCode { return ValidationErrorCode }

// HandlerExecutionError wraps a panic or failure raised inside a
// controller method
type HandlerExecutionError struct {
	Controller string
	Method     string
	Cause      error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler %s.%s failed: %v", e.Controller, e.Method, e.Cause)
}

func (e *HandlerExecutionError) Unwrap() error { return e.Cause }

func (e *HandlerExecutionError) ErrorCode() ErrorCode { return HandlerExecutionErrorCode }

// RouteDefinitionError reports a route declaration that cannot be bound
// to its handler
type RouteDefinitionError struct {
	Controller string
	Method     string
	Reason     string
}

func (e *RouteDefinitionError) Error() string {
	return fmt.Sprintf("invalid route %s.%s: %s", e.Controller, e.Method, e.Reason)
}

func (e *RouteDefinitionError) ErrorCode() ErrorCode { return RouteDefinitionErrorCode }

// TimeoutError is returned when the request deadline passes before the
// pipeline completes
type TimeoutError struct {
	Stage string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request deadline exceeded during %s", e.Stage)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

func (e *TimeoutError) ErrorCode() ErrorCode { return TimeoutErrorCode }

// HttpError represents an HTTP error with a specific status code and message
type HttpError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *HttpError) ErrorCode() ErrorCode { return HttpErrorCode }

// NewHttpError creates a new HttpError with the given status code and message
func NewHttpError(statusCode int, message string) *HttpError {
	return &HttpError{StatusCode: statusCode, Message: message}
}

// NewHttpErrorWithDetails creates a new HttpError with additional details
func NewHttpErrorWithDetails(statusCode int, message string, details any) *HttpError {
	return &HttpError{StatusCode: statusCode, Message: message, Details: details}
}

func ErrBadRequest(message string) *HttpError {
	return NewHttpError(http.StatusBadRequest, message)
}

func ErrUnauthorized(message string) *HttpError {
	return NewHttpError(http.StatusUnauthorized, message)
}

func ErrForbidden(message string) *HttpError {
	return NewHttpError(http.StatusForbidden, message)
}

func ErrNotFound(message string) *HttpError {
	return NewHttpError(http.StatusNotFound, message)
}

func ErrConflict(message string) *HttpError {
	return NewHttpError(http.StatusConflict, message)
}

func ErrInternalServerError(message string) *HttpError {
	return NewHttpError(http.StatusInternalServerError, message)
}

// ErrFrozen is returned when a registry is mutated after it was applied
var ErrFrozen = errors.New("registry is frozen: middleware and pipes must be registered before Init")

// ErrClosed is returned when a closed application is loaded, initialized
// or served again
var ErrClosed = errors.New("application is closed")

// Coded is implemented by every framework error
type Coded interface {
	error
	ErrorCode() ErrorCode
}

// CodeOf returns the code of the first coded error in err's chain
func CodeOf(err error) ErrorCode {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return UnknownErrorCode
}

func IsInvalidModule(err error) bool {
	var target *InvalidModuleError
	return errors.As(err, &target)
}

func IsCircularDependency(err error) bool {
	var target *CircularDependencyError
	return errors.As(err, &target)
}

func IsProviderNotFound(err error) bool {
	var target *ProviderNotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// StatusCodeOf maps an error to the HTTP status the default error handler
// responds with
func StatusCodeOf(err error) int {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
