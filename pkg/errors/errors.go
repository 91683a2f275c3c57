package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// Is matches any AppError carrying the same code, so callers can compare
// against the sentinels below with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotAuthenticated:
		return http.StatusUnauthorized
	case ErrEventNotFound, ErrReminderNotFound:
		return http.StatusNotFound
	case ErrInvalidWindow:
		return http.StatusUnprocessableEntity
	case ErrDuplicateReminder:
		return http.StatusConflict
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrInternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may resubmit the same request.
func (e *AppError) Retryable() bool {
	return e.Code == ErrInternal
}

// Common error codes
const (
	ErrNotAuthenticated ErrorCode = iota + 1000
	ErrEventNotFound
	ErrReminderNotFound
	ErrInvalidWindow
	ErrDuplicateReminder
	ErrBadRequest
	ErrInternal
)

// Sentinels for errors.Is comparisons.
var (
	NotAuthenticated  = &AppError{Code: ErrNotAuthenticated, Message: "not authenticated"}
	EventNotFound     = &AppError{Code: ErrEventNotFound, Message: "event not found"}
	ReminderNotFound  = &AppError{Code: ErrReminderNotFound, Message: "reminder not found"}
	InvalidWindow     = &AppError{Code: ErrInvalidWindow, Message: "reminder time outside allowed window"}
	DuplicateReminder = &AppError{Code: ErrDuplicateReminder, Message: "reminder already exists for this event"}
	BadRequest        = &AppError{Code: ErrBadRequest, Message: "bad request"}
	Internal          = &AppError{Code: ErrInternal, Message: "temporary failure, please retry"}
)

// Error constructors
func NewNotAuthenticated() *AppError {
	return &AppError{
		Code:    ErrNotAuthenticated,
		Message: NotAuthenticated.Message,
	}
}

func NewEventNotFound(err error) *AppError {
	return &AppError{
		Code:    ErrEventNotFound,
		Message: EventNotFound.Message,
		Err:     err,
	}
}

func NewReminderNotFound(err error) *AppError {
	return &AppError{
		Code:    ErrReminderNotFound,
		Message: ReminderNotFound.Message,
		Err:     err,
	}
}

func NewInvalidWindow(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:    ErrInvalidWindow,
		Message: message,
		Details: details,
	}
}

func NewDuplicateReminder(err error) *AppError {
	return &AppError{
		Code:    ErrDuplicateReminder,
		Message: DuplicateReminder.Message,
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: Internal.Message,
		Err:     err,
	}
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
