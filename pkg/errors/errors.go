package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Error codes grouped by failure class
const (
	ErrAuthentication ErrorCode = iota + 1000
	ErrAuthorization
	ErrConsentMissing
	ErrValidation
	ErrNotFound
	ErrConflict
	ErrRateLimited
	ErrLockedOut
	ErrSystem
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so sentinel comparisons survive wrapping
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Error constructors

func AuthenticationFailed(message string) *AppError {
	return &AppError{Code: ErrAuthentication, Message: message}
}

func AccessDenied(reason string) *AppError {
	return &AppError{Code: ErrAuthorization, Message: fmt.Sprintf("Access denied: %s", reason)}
}

func ConsentMissing(message string) *AppError {
	return &AppError{Code: ErrConsentMissing, Message: message}
}

func Validation(message string, err error) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func Conflict(message string) *AppError {
	return &AppError{Code: ErrConflict, Message: message}
}

func RateLimited(message string) *AppError {
	return &AppError{Code: ErrRateLimited, Message: message}
}

func LockedOut(message string) *AppError {
	return &AppError{Code: ErrLockedOut, Message: message}
}

func System(err error) *AppError {
	return &AppError{Code: ErrSystem, Message: "internal system error", Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrSystem if err is not
// an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrSystem
}
