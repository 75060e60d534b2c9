package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Stable machine codes. Clients branch on these, do not rename.
const (
	CodeInvalidToken       = "invalid_token"
	CodeUserNotFound       = "user_not_found"
	CodeUserUnconfirmed    = "user_unconfirmed"
	CodeUserBlocked        = "user_blocked"
	CodeNoPermission       = "no_permission"
	CodeCodeDuplicate      = "code_duplicate"
	CodeTooManyRequests    = "too_many_requests"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailExists        = "email_already_exists"
	CodeValidationFailed   = "validation_failed"
	CodeInvalidJSON        = "invalid_json"
	CodeUnknownRole        = "unknown_role"
	CodeUnknownStatus      = "unknown_status"
	CodeInternal           = "internal_error"
	CodeDBUnavailable      = "db_unavailable"
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code
// - Message: safe summary for clients
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error, logged but never rendered
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err (or anything it wraps) is a domain error with code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// As extracts the domain error, if any.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ----------------------
// Validation (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

// ErrValidation carries one entry per failing field.
func ErrValidation(fields map[string]string) *Error {
	return WithMeta(New(KindValidation, CodeValidationFailed, "validation failed"), fields)
}

func ErrMissingField(field string) *Error {
	return ErrValidation(map[string]string{field: "required"})
}

func ErrInvalidField(field, reason string) *Error {
	return ErrValidation(map[string]string{field: reason})
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

func ErrInvalidRole(role string) *Error {
	return WithMeta(New(KindValidation, "invalid_role", "invalid role"), map[string]string{"role": role})
}

func ErrInvalidStatus(status string) *Error {
	return WithMeta(New(KindValidation, "invalid_status", "invalid status"), map[string]string{"status": status})
}

// ----------------------
// Auth (401)
// ----------------------

// Use for every login failure so responses do not reveal which emails exist.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid email or password")
}

// ErrInvalidToken covers missing, malformed, expired and forged tokens alike.
// reason only lands in Meta for diagnostics.
func ErrInvalidToken(reason string) *Error {
	return WithMeta(New(KindAuth, CodeInvalidToken, "invalid token"), map[string]string{"reason": reason})
}

func ErrRefreshTokenInvalid() *Error {
	return New(KindAuth, "refresh_token_invalid", "invalid refresh token")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrUserUnconfirmed() *Error {
	return New(KindForbidden, CodeUserUnconfirmed, "user registration is not completed")
}

func ErrUserBlocked() *Error {
	return New(KindForbidden, CodeUserBlocked, "user is blocked")
}

func ErrNoPermission(required string) *Error {
	return WithMeta(New(KindForbidden, CodeNoPermission, "no permission"), map[string]string{
		"required": required,
	})
}

func ErrCannotAffectSelf() *Error {
	return New(KindForbidden, "cannot_affect_self", "cannot perform this action on self")
}

// ----------------------
// Not found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, CodeUserNotFound, "user not found")
}

func ErrResetTokenNotFound() *Error {
	return New(KindNotFound, "reset_token_not_found", "reset token not found")
}

func ErrCodeTypeNotFound(codeType string) *Error {
	return WithMeta(New(KindNotFound, "code_type_not_found", "code type not found"), map[string]string{
		"code_type": codeType,
	})
}

func ErrCodeNotFound() *Error {
	return New(KindNotFound, "code_not_found", "code not found")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, CodeEmailExists, "email already registered")
}

func ErrCodeDuplicate(code string) *Error {
	return WithMeta(New(KindConflict, CodeCodeDuplicate, "code already exists"), map[string]string{
		"code": code,
	})
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrTooManyRequests(scope string) *Error {
	return WithMeta(New(KindRateLimited, CodeTooManyRequests, "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrUnknownRole(code string) *Error {
	return WithMeta(New(KindInternal, CodeUnknownRole, "unknown role"), map[string]string{"role": code})
}

// ErrUnknownStatus is for a stored status outside the known set. The value
// goes to the cause only, so it is logged and never rendered.
func ErrUnknownStatus(status string) *Error {
	return Wrap(KindInternal, CodeUnknownStatus, "internal error", fmt.Errorf("stored user status %q", status))
}

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
