// errors.go
// This package provides the error taxonomy shared by the client factory, the authenticator and the token provider.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid argument detected at construction or client creation time.
// It is never retried.
type ConfigurationError struct {
	Field  string // Field names the offending setting, e.g. "DeveloperToken".
	Reason string // Reason is a human-readable explanation.
}

// Error returns a string representation of the ConfigurationError.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(field string, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AuthError reports that no access token could be obtained, either silently or interactively.
type AuthError struct {
	Op  string // Op is the acquisition stage that failed: "accounts", "silent", "interactive" or "lock".
	Err error  // Err is the underlying cause.
}

// Error returns a string representation of the AuthError.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth error during %s acquisition", e.Op)
	}
	return fmt.Sprintf("auth error during %s acquisition: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the acquisition was abandoned because its context expired or was cancelled.
func (e *AuthError) Timeout() bool {
	return isContextError(e.Err)
}

// NewAuthError wraps err as an AuthError for the given stage.
func NewAuthError(op string, err error) *AuthError {
	return &AuthError{Op: op, Err: err}
}

func isContextError(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)
}
