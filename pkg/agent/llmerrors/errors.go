// Package llmerrors classifies failures returned by model backends.
package llmerrors

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType is the category of a model failure.
type ErrorType int8

const (
	// ErrorTypeRateLimit represents 429 / quota errors.
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents 5xx, EOF, connection reset and deadline errors.
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents a successful call that produced no text.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth represents 401/403.
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents 400-class request errors.
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
	// ErrorTypeUnavailable means the backend could not be reached at all. At startup
	// it triggers the offline fallback.
	ErrorTypeUnavailable
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "invalid"
	}
}

// Error is a classified model error.
type Error struct {
	Err        error     // underlying error
	Message    string    // human-readable message
	BodyStub   string    // leading part of the response body, if any
	Type       ErrorType // classification
	StatusCode int       // HTTP status if applicable
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a classified error of errorType.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the classification of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsUnavailable reports whether err means the backend is unreachable.
func IsUnavailable(err error) bool {
	return Is(err, ErrorTypeUnavailable)
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// TypeForStatus maps an HTTP status code to an error type.
func TypeForStatus(status int) ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeAuth
	case status == http.StatusNotFound:
		return ErrorTypeBadPrompt
	case status >= 500:
		return ErrorTypeTransient
	case status >= 400:
		return ErrorTypeBadPrompt
	default:
		return ErrorTypeUnknown
	}
}

// Classify wraps an arbitrary backend error. Status-bearing SDK errors should be
// converted with NewErrorWithStatus before reaching here; this handles the rest by
// inspecting context errors and message text.
func Classify(err error, provider string) error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTransient, err, provider+" request timed out")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "dial tcp"):
		return NewErrorWithCause(ErrorTypeUnavailable, err, provider+" unreachable")
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, provider+" rate limit exceeded")
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "api key"):
		return NewErrorWithCause(ErrorTypeAuth, err, provider+" authentication failed")
	case strings.Contains(msg, "eof"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"):
		return NewErrorWithCause(ErrorTypeTransient, err, provider+" transient failure")
	default:
		return NewErrorWithCause(ErrorTypeUnknown, err, provider+" request failed")
	}
}

// SanitizePrompt shortens a prompt for logging: first/last portions plus a hash.
func SanitizePrompt(prompt string, maxChars int) string {
	if len(prompt) <= maxChars {
		return prompt
	}
	halfMax := maxChars / 2
	if halfMax < 100 {
		halfMax = 100
	}
	if 2*halfMax >= len(prompt) {
		return prompt
	}

	hash := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("%s...[%d chars, hash:%x]...%s",
		prompt[:halfMax], len(prompt), hash[:8], prompt[len(prompt)-halfMax:])
}
