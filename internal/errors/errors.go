package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNetwork          ErrorType = "network"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeForbidden        ErrorType = "forbidden"
	ErrorTypePayloadTooLarge  ErrorType = "payload_too_large"
	ErrorTypeUnsupportedMedia ErrorType = "unsupported_media"
	ErrorTypeInternal         ErrorType = "internal"
)

// Machine-readable reasons returned to clients alongside 4xx responses.
const (
	ReasonMissingField           = "missing_field"
	ReasonInvalidRequest         = "invalid_request"
	ReasonPhotoURLNotAllowed     = "photo_url_not_allowed"
	ReasonPayloadTooLarge        = "payload_too_large"
	ReasonUnsupportedContentType = "unsupported_content_type"
	ReasonPhotoFetchFailed       = "photo_fetch_failed"
	ReasonInvalidSession         = "invalid_session"
	ReasonInvalidToken           = "invalid_token"
	ReasonUserMismatch           = "user_mismatch"
	ReasonTimeout                = "timeout"
	ReasonRequestCanceled        = "request_canceled"
	ReasonInternal               = "internal_error"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Reason     string    `json:"reason"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithReason returns a copy of e carrying the given reason code.
func (e *AppError) WithReason(reason string) *AppError {
	cp := *e
	cp.Reason = reason
	return &cp
}

func newAppError(t ErrorType, reason string, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Reason:     reason,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, ReasonInvalidRequest, http.StatusBadRequest, message, cause)
}

// NewMissingFieldError reports a required request field that was absent.
func NewMissingFieldError(field string) *AppError {
	return newAppError(ErrorTypeValidation, ReasonMissingField, http.StatusBadRequest, field+" is required", nil)
}

// NewURLNotAllowedError reports a photo URL rejected by the SSRF rules.
func NewURLNotAllowedError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, ReasonPhotoURLNotAllowed, http.StatusBadRequest, message, cause)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, cause error) *AppError {
	return newAppError(ErrorTypeUnauthorized, ReasonInvalidToken, http.StatusUnauthorized, message, cause)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, cause error) *AppError {
	return newAppError(ErrorTypeForbidden, ReasonUserMismatch, http.StatusForbidden, message, cause)
}

// NewPayloadTooLargeError creates a new payload too large error
func NewPayloadTooLargeError(message string, cause error) *AppError {
	return newAppError(ErrorTypePayloadTooLarge, ReasonPayloadTooLarge, http.StatusRequestEntityTooLarge, message, cause)
}

// NewUnsupportedMediaError creates a new unsupported media type error
func NewUnsupportedMediaError(message string, cause error) *AppError {
	return newAppError(ErrorTypeUnsupportedMedia, ReasonUnsupportedContentType, http.StatusUnsupportedMediaType, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, ReasonPhotoFetchFailed, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, ReasonTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, ReasonInternal, http.StatusInternalServerError, message, cause)
}

// As extracts an *AppError from anywhere in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
