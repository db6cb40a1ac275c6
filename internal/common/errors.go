// Package common defines shared constants and sentinel errors used across
// the service. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Uniqueness conflicts on user creation. The conflicting field is
	// disclosed deliberately: pre-signup disambiguation has no security cost.
	ErrorUsernameTaken = errors.New("username already taken")
	ErrorEmailTaken    = errors.New("email already taken")

	// Validation errors.
	ErrorWeakPassword = errors.New("password too weak")
	ErrorInvalidInput = errors.New("invalid input")

	// Authentication outcomes. Both are intentionally terse and uniform:
	// ErrorInvalidCredentials covers unknown username and wrong password,
	// ErrorInvalidSession covers missing, expired, and rotated-away tokens.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorInvalidSession     = errors.New("invalid session")

	// Transient store failures (timeouts, lost connections). Retryable by
	// the caller; never retried internally to avoid duplicate side effects.
	ErrorStoreUnavailable = errors.New("store unavailable")

	// Generic internal failure.
	ErrorInternal = errors.New("internal error")
)
