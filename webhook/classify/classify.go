package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcelsud/webhook-engine/webhook/breaker"
)

/* Classify maps raw errors to a closed taxonomy with a retryable flag
 * Pure string matching over the error text, no I/O
 * Unknown errors fail closed: a visible, alertable failure is preferred
 * over silent infinite retry
 */

// Code identifies an entry in the error taxonomy
type Code string

const (
	CodeNetworkError       Code = "NETWORK_ERROR"
	CodeAuthFailed         Code = "AUTH_FAILED"
	CodeRateLimit          Code = "RATE_LIMIT"
	CodeResourceNotFound   Code = "RESOURCE_NOT_FOUND"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
	CodeBreakerOpen        Code = "BREAKER_OPEN"
)

// Retryable reports whether failures with this code are expected to be transient
func (c Code) Retryable() bool {
	switch c {
	case CodeNetworkError, CodeRateLimit, CodeServiceUnavailable:
		return true
	default:
		return false
	}
}

// Error is a classified failure. It is a value type: callers above the
// processor only ever see this, never a raw error.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a classified error with the retryable flag derived from the code
func New(code Code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: code.Retryable(),
	}
}

var networkSignals = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"socket",
	"no such host",
	"broken pipe",
}

var authSignals = []string{
	"authentication",
	"unauthorized",
	"invalid api key",
	"401",
}

var rateLimitSignals = []string{
	"rate limit",
	"too many requests",
	"429",
}

var unavailableSignals = []string{
	"service unavailable",
	"503",
}

// Classify maps err to a taxonomy entry. Already-classified errors pass
// through unchanged, and breaker rejections map to BREAKER_OPEN.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, breaker.ErrOpen) {
		return &Error{
			Code:      CodeBreakerOpen,
			Message:   err.Error(),
			Retryable: false,
			cause:     err,
		}
	}

	msg := strings.ToLower(err.Error())
	code := CodeUnknownError
	switch {
	case containsAny(msg, networkSignals):
		code = CodeNetworkError
	case containsAny(msg, authSignals):
		code = CodeAuthFailed
	case containsAny(msg, rateLimitSignals):
		code = CodeRateLimit
	case strings.Contains(msg, "not found") &&
		(strings.Contains(msg, "customer") || strings.Contains(msg, "subscription")):
		code = CodeResourceNotFound
	case containsAny(msg, unavailableSignals):
		code = CodeServiceUnavailable
	}

	return &Error{
		Code:      code,
		Message:   err.Error(),
		Retryable: code.Retryable(),
		cause:     err,
	}
}

func containsAny(msg string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
