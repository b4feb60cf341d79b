// Package errors defines the typed error returned by flock services. Every
// ServiceError carries a stable machine code and the HTTP status the API
// layer should answer with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeValidation       Code = "validation_failed"
	CodeNotFound         Code = "not_found"
	CodeUnauthorized     Code = "unauthorized"
	CodeInvalidToken     Code = "invalid_token"
	CodeForbidden        Code = "forbidden"
	CodeConflict         Code = "conflict"
	CodeQuotaExceeded    Code = "quota_exceeded"
	CodeFeatureDisabled  Code = "feature_disabled"
	CodeGuardrailBlocked Code = "guardrail_blocked"
	CodeRateLimited      Code = "rate_limit_exceeded"
	CodeUnavailable      Code = "unavailable"
	CodeInternal         Code = "internal_error"
)

// ServiceError is the error type surfaced to API clients.
type ServiceError struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails returns a copy of e with key=value added to Details.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func newError(code Code, status int, msg string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: msg, HTTPStatus: status, Err: err}
}

func Validation(msg string) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, msg, nil)
}

// Validationf formats msg like fmt.Sprintf.
func Validationf(format string, args ...any) *ServiceError {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(resource, id string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id), nil).
		WithDetails("resource", resource)
}

func Unauthorized(msg string) *ServiceError {
	if msg == "" {
		msg = "authentication required"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg, nil)
}

func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "invalid or expired token", err)
}

func Forbidden(msg string) *ServiceError {
	if msg == "" {
		msg = "insufficient permissions"
	}
	return newError(CodeForbidden, http.StatusForbidden, msg, nil)
}

func Conflict(msg string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, msg, nil)
}

func QuotaExceeded(used, quota int64) *ServiceError {
	return newError(CodeQuotaExceeded, http.StatusTooManyRequests, "monthly AI token quota exhausted", nil).
		WithDetails("used", used).
		WithDetails("quota", quota)
}

func FeatureDisabled(feature string) *ServiceError {
	return newError(CodeFeatureDisabled, http.StatusForbidden, feature+" is not enabled for this church", nil).
		WithDetails("feature", feature)
}

func GuardrailBlocked(reason string) *ServiceError {
	return newError(CodeGuardrailBlocked, http.StatusBadRequest, reason, nil)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Unavailable(msg string, err error) *ServiceError {
	return newError(CodeUnavailable, http.StatusServiceUnavailable, msg, err)
}

func Internal(msg string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, msg, err)
}

// GetServiceError returns the first ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// HasCode reports whether err carries a ServiceError with code.
func HasCode(err error, code Code) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}

// StatusOf maps err to an HTTP status; unknown errors are 500.
func StatusOf(err error) int {
	if se := GetServiceError(err); se != nil && se.HTTPStatus != 0 {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
