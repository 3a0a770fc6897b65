package tool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolinvoke/schema"
)

// Sentinel errors. Every typed error in this package matches exactly one of
// them with errors.Is.
var (
	ErrConfiguration          = errors.New("tool: invalid configuration")
	ErrValidation             = errors.New("tool: validation failed")
	ErrTransport              = errors.New("tool: transport failed")
	ErrUnsupportedContentType = errors.New("tool: unsupported content type")
	ErrCacheWrite             = errors.New("tool: cache write failed")
	ErrToolNotFound           = errors.New("tool: not found")
)

// ConfigurationError reports a Descriptor that cannot be built.
type ConfigurationError struct {
	// Tool is the descriptor name, possibly empty.
	Tool string

	// Field names the offending descriptor field, e.g. "dispatch" or "http.url".
	Field string

	// Reason explains the problem.
	Reason string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("tool: invalid configuration for %q: %s: %s", e.Tool, e.Field, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Side identifies which end of the pipeline failed validation.
type Side string

const (
	SideInput  Side = "input"
	SideResult Side = "result"
)

// ValidationError reports every violation found on one side of an invocation.
type ValidationError struct {
	Tool       string
	Side       Side
	Violations []schema.Violation
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("tool: %s validation failed for %q: %s", e.Side, e.Tool, strings.Join(parts, "; "))
}

// Is reports whether this error matches the target.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransportError reports a failed HTTP dispatch: the request could not be
// performed or the response status was not 2xx.
type TransportError struct {
	Tool   string
	Method string
	URL    string

	// StatusCode and Status are zero when no response was received.
	StatusCode int
	Status     string

	// Body holds the beginning of a non-2xx response body.
	Body string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tool: %s %s for %q: %s", e.Method, e.URL, e.Tool, e.Status)
	}
	return fmt.Sprintf("tool: %s %s for %q: %v", e.Method, e.URL, e.Tool, e.Cause)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// UnsupportedContentTypeError reports a 2xx response whose body is neither
// JSON nor plain text.
type UnsupportedContentTypeError struct {
	Tool        string
	ContentType string
}

// Error returns the error message.
func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("tool: unsupported content type %q from %q", e.ContentType, e.Tool)
}

// Is reports whether this error matches the target.
func (e *UnsupportedContentTypeError) Is(target error) bool {
	return target == ErrUnsupportedContentType
}

// CacheWriteError reports a store failure after a successful dispatch.
// It is logged, never returned from Invoke.
type CacheWriteError struct {
	Tool  string
	Key   string
	Cause error
}

// Error returns the error message.
func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("tool: cache write failed for %q (key %s): %v", e.Tool, e.Key, e.Cause)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *CacheWriteError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *CacheWriteError) Is(target error) bool {
	return target == ErrCacheWrite
}
