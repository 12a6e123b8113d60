// Package common defines shared constants and sentinel errors used across
// the backend layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateToken = errors.New("duplicate refresh token")
	ErrEmailTaken     = errors.New("email already registered")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrorUnauthorized is returned for bad login credentials. It is the same
	// value for "no such user" and "wrong password" so responses cannot be
	// used for user enumeration.
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorUnauthenticated covers every failed token validation: forged,
	// expired, wrong type, or already consumed. The reasons are collapsed
	// deliberately and must not leak to the caller.
	ErrorUnauthenticated = errors.New("unauthenticated")

	// ErrorForbidden is returned when an authenticated user touches a
	// resource owned by someone else or lacks the admin flag.
	ErrorForbidden = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
