package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API-facing failure: a stable code, the HTTP status it maps to and a
// human-readable message. The underlying cause is logged, never serialised.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on code, so errors.Is(err, ErrValidation) holds for every validation
// failure regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a sentinel.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap keeps the code and status of e and attaches the cause with a call-site message.
// An empty message keeps the sentinel's.
func (e *Error) Wrap(cause error, message string) *Error {
	out := e.WithMessage(message)
	out.Err = cause
	return out
}

// WithMessage copies e with a different message.
func (e *Error) WithMessage(message string) *Error {
	out := *e
	if message != "" {
		out.Message = message
	}
	return &out
}

var (
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
	ErrCacheMiss   = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Monitoring failures. They share the generic codes above so clients see a small, fixed set.
var (
	ErrInvalidMonth     = ErrValidation.WithMessage("month must be formatted as YYYY-MM")
	ErrInvalidExport    = ErrValidation.WithMessage("invalid export request")
	ErrQueueUnavailable = ErrUnavailable.WithMessage("analysis queue unavailable")
	ErrReportsDisabled  = ErrNotFound.WithMessage("cost reports are disabled")
)

// FromError maps any error onto an *Error; unknown failures become ErrInternal with the cause kept.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err, "")
}
