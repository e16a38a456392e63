package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode int

const (
	ErrInternalServer ErrorCode = 10000 + iota
	ErrInvalidInput
	ErrInvalidRequestData
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrAlreadyExists
	ErrTokenExpired
	ErrInvalidTokenFormat
	ErrMissingAuthorizationHeader
	ErrGetFailed
	ErrCreateFailed
	ErrUpdateFailed
	ErrDeleteFailed
)

// Calendar domain codes.
const (
	ErrInvalidRecurrenceRule ErrorCode = 20000 + iota
	ErrInvalidScope
	ErrOccurrenceNotFound
	ErrInvalidDuration
	ErrEmptyUserList
	ErrConcurrentModification
)

// AppError is the error type returned by services.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
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

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func New(message string) error {
	return stderrors.New(message)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
