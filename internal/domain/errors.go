package domain

import (
	"errors"
	"fmt"
)

// Application error codes. The business-rule codes double as the
// machine-readable reason strings the client uses to distinguish "no
// credits left" from "not configured" from "temporary provider failure".
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication required
	EFORBIDDEN    = "forbidden"    // Permission denied
	ENOTFOUND     = "not_found"    // Resource not found
	ECONFLICT     = "conflict"     // Resource conflict (e.g., duplicate)
	ERATELIMIT    = "rate_limit"   // Rate limit exceeded
	EINTERNAL     = "internal"     // Internal server error

	// Business-rule codes for the metering and generation pipeline.
	ELIMITREACHED  = "monthly_limit_reached" // Credit balance exhausted
	EMISSINGAIKEY  = "missing_ai_settings"   // No provider credential saved
	EPROVIDER      = "provider_error"        // Upstream AI provider failure
	EUNINITIALIZED = "usage_not_initialized" // No ledger entry for account
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "ledger.debit")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
// Internal error details are never exposed to clients.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}

// LimitReached creates a monthly-limit denial.
func LimitReached(op string, remaining, cost int) *Error {
	return &Error{
		Code:    ELIMITREACHED,
		Op:      op,
		Message: fmt.Sprintf("monthly credit limit reached (%d remaining, %d required)", remaining, cost),
	}
}

// MissingCredential creates a missing-AI-settings error.
func MissingCredential(op string) *Error {
	return &Error{
		Code:    EMISSINGAIKEY,
		Op:      op,
		Message: "no AI provider key configured; add one in settings",
	}
}

// ProviderError wraps an upstream AI provider failure, carrying the
// provider's own message where available.
func ProviderError(err error, op, message string) *Error {
	return &Error{
		Code:    EPROVIDER,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// UsageNotInitialized indicates the account has no ledger entry. The gate
// never silently creates one with unknown limits.
func UsageNotInitialized(op, accountID string) *Error {
	return &Error{
		Code:    EUNINITIALIZED,
		Op:      op,
		Message: fmt.Sprintf("no usage ledger for account %s", accountID),
	}
}
