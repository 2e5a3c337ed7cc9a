package apperror

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies an error independently of its message.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnavailable
)

var statusByKind = map[Kind]int{
	KindInternal:        http.StatusInternalServerError,
	KindValidation:      http.StatusBadRequest,
	KindUnauthenticated: http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindRateLimited:     http.StatusTooManyRequests,
	KindUnavailable:     http.StatusServiceUnavailable,
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	if code, ok := statusByKind[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// AppError is a custom error type carrying a failure kind and a client-safe message.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an AppError that keeps err as its cause.
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *AppError   { return New(KindValidation, message) }
func Unauthorized(message string) *AppError { return New(KindUnauthenticated, message) }
func Forbidden(message string) *AppError    { return New(KindForbidden, message) }
func NotFound(message string) *AppError     { return New(KindNotFound, message) }
func Conflict(message string) *AppError     { return New(KindConflict, message) }
func Unavailable(message string) *AppError  { return New(KindUnavailable, message) }

// Internal wraps an unexpected failure. The cause is logged, never shown to clients.
func Internal(err error) *AppError {
	return Wrap(KindInternal, "Internal server error", err)
}

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	if IsUniqueViolation(err) {
		return KindConflict
	}
	return KindInternal
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	return KindOf(err).Status()
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	switch KindOf(err) {
	case KindNotFound:
		return "Resource not found"
	case KindConflict:
		return "Resource already exists"
	default:
		return "Internal server error"
	}
}

// IsUniqueViolation detects unique-constraint failures from either gorm's translated
// error or the raw driver text (postgres and sqlite wordings).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

// FromDB classifies a store error: missing rows become NotFound with notFound as message,
// unique violations become Conflict, anything else Internal.
func FromDB(err error, notFound, conflict string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFound)
	}
	if IsUniqueViolation(err) {
		return Wrap(KindConflict, conflict, err)
	}
	return Internal(err)
}
