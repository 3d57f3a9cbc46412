package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// WithMessage returns a copy of the domain error carrying a more specific
// message while keeping the original code for status mapping.
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
		Err:     domainErr.Err,
	}
}

// Predefined domain errors
var (
	// Validation errors (client-correctable)
	ErrUsernameExists = NewDomainError("USERNAME_EXISTS", "Username already exists.")
	ErrEmailExists    = NewDomainError("EMAIL_EXISTS", "Email already exists.")

	// Authentication errors (never reveal which factor failed)
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "Username or password is incorrect.")
	ErrInvalidToken       = NewDomainError("INVALID_TOKEN", "Invalid token.")
	ErrUnauthorized       = NewDomainError("UNAUTHORIZED", "unauthorized")
	ErrTooManyAttempts    = NewDomainError("TOO_MANY_ATTEMPTS", "Too many failed login attempts. Try again later.")

	// Not-found errors
	ErrUserNotFound = NewDomainError("USER_NOT_FOUND", "User not found.")

	// Consistency errors (server-side data problem, not user error)
	ErrNoRolesAssigned      = NewDomainError("NO_ROLES_ASSIGNED", "User has no roles, Try logging in again.")
	ErrCreationFailed       = NewDomainError("CREATION_FAILED", "Failed to create user.")
	ErrRoleAssignmentFailed = NewDomainError("ROLE_ASSIGNMENT_FAILED", "Failed to assign roles.")
	ErrRoleUpdateFailed     = NewDomainError("ROLE_UPDATE_FAILED", "Failed to update roles.")
	ErrRevokeFailed         = NewDomainError("REVOKE_FAILED", "Failed to revoke token.")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes.
// This should only be used in the handler/presentation layer.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request: validation, bad credentials, bad tokens, unknown user.
	// Credential and token failures deliberately share the 400 class so the
	// response does not reveal which check failed.
	case "USERNAME_EXISTS", "EMAIL_EXISTS", "INVALID_CREDENTIALS",
		"INVALID_TOKEN", "USER_NOT_FOUND":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED":
		return http.StatusUnauthorized

	// 429 Too Many Requests
	case "TOO_MANY_ATTEMPTS":
		return http.StatusTooManyRequests

	// 500 Internal Server Error: server-side consistency problems
	case "NO_ROLES_ASSIGNED", "CREATION_FAILED", "ROLE_ASSIGNMENT_FAILED",
		"ROLE_UPDATE_FAILED", "REVOKE_FAILED":
		return http.StatusInternalServerError

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
