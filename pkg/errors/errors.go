package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures produced by the schema resolution pipeline.
// The set is closed: control flow (network short-circuit, not-found
// continuation) branches on Kind, never on message text.
type Kind string

const (
	// KindStore marks persistence or serialization failures in the schema cache.
	KindStore Kind = "store"
	// KindDiscovery marks repository discovery failures. Discovery degrades
	// gracefully, so this kind rarely escapes the service that produced it.
	KindDiscovery Kind = "discovery"
	// KindNotFound marks a chart/version absent from a repository.
	KindNotFound Kind = "not_found"
	// KindNetwork marks an unreachable registry or cluster. It aborts the
	// repository fallback loop and is surfaced to callers unmodified.
	KindNetwork Kind = "network"
	// KindFetch marks a failed chart archive retrieval.
	KindFetch Kind = "fetch"
	// KindSynthesis marks a failed values-introspection schema generation.
	KindSynthesis Kind = "synthesis"
)

// AppError is a structured error that can be classified by services and
// rendered to API consumers.
type AppError struct {
	Kind       Kind   `json:"kind,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

var statusByKind = map[Kind]int{
	KindStore:     http.StatusInternalServerError,
	KindDiscovery: http.StatusBadGateway,
	KindNotFound:  http.StatusNotFound,
	KindNetwork:   http.StatusBadGateway,
	KindFetch:     http.StatusBadGateway,
	KindSynthesis: http.StatusBadGateway,
}

// NewKind builds an AppError of the given kind with a formatted message.
func NewKind(kind Kind, format string, args ...any) *AppError {
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Kind:       kind,
		Code:       string(kind),
		Message:    fmt.Sprintf(format, args...),
		StatusCode: status,
	}
}

// WrapKind attaches kind and message context to an underlying error.
func WrapKind(kind Kind, err error, message string) *AppError {
	return NewKind(kind, "%s", message).WithInternal(err)
}

// IsKind reports whether any error in err's chain is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind == kind
	}
	return false
}

// Common errors exposed to the rest of the application.
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotFound = &AppError{
		Kind:       KindNotFound,
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
