package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so sentinels survive WithDetails.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithDetails returns a copy of the error carrying the given details.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of the error with a more specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	cp := *e
	cp.Message = message
	return &cp
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Lifecycle failures. Compare with errors.Is.
var (
	ErrIllegalTransition      = NewDomainError("ILLEGAL_TRANSITION", "transition not defined for this kind and state", http.StatusConflict, nil)
	ErrUnauthorizedTransition = NewDomainError("UNAUTHORIZED_TRANSITION", "actor not allowed to take this transition", http.StatusForbidden, nil)
	ErrAlreadyPaused          = NewDomainError("ALREADY_PAUSED", "project already has an open pause", http.StatusConflict, nil)
	ErrNotPaused              = NewDomainError("NOT_PAUSED", "project has no open pause", http.StatusConflict, nil)
	ErrAlreadyTransferred     = NewDomainError("ALREADY_TRANSFERRED", "entity was already transferred", http.StatusConflict, nil)
	ErrTransferNotAllowed     = NewDomainError("TRANSFER_NOT_ALLOWED", "entity kind cannot be transferred", http.StatusConflict, nil)
	ErrProjectPaused          = NewDomainError("PROJECT_PAUSED", "project is paused", http.StatusConflict, nil)
	ErrConcurrentModification = NewDomainError("CONCURRENT_MODIFICATION", "entity was modified concurrently; reload and retry", http.StatusConflict, nil)
	ErrTokenAlreadyUsed       = NewDomainError("TOKEN_ALREADY_USED", "response token already used", http.StatusGone, nil)
	ErrTokenExpired           = NewDomainError("TOKEN_EXPIRED", "response token expired", http.StatusGone, nil)
)

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND"
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
