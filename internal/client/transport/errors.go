package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Client matches exactly one of them
// with errors.Is.
var (
	ErrNetwork           = errors.New("network error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrServer            = errors.New("server error")
)

// FieldError is one failed validation rule reported by the server
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError describes a failed request. It unwraps to its kind and, when
// there is one, to the underlying cause.
type APIError struct {
	Kind      error
	Method    string
	Path      string
	Status    int
	Code      string
	Detail    string
	RequestID string
	Fields    []FieldError
	Cause     error
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Method == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Kind, msg)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap exposes the kind and the cause
func (e *APIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// NewValidationError reports a payload rejected before it was sent
func NewValidationError(detail string, fields ...FieldError) *APIError {
	return &APIError{Kind: ErrValidation, Detail: detail, Fields: fields}
}

// Classify maps a status and server error code to an error kind
func Classify(status int, code string) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrIllegalTransition
	case http.StatusConflict:
		switch code {
		case "INVALID_STATE", "FORBIDDEN", "CONCURRENCY_CONFLICT":
			return ErrIllegalTransition
		case "ALREADY_EXISTS":
			return ErrValidation
		}
	}
	return ErrServer
}
