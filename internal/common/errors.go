// Package common defines sentinel errors and small helpers shared by the
// server and client layers. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")

	// Service-level errors.
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrAmbiguousIdentity = errors.New("more than one account matches the directory principal")

	// Local account errors.
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrWeakPassword         = errors.New("password is too short")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// AccessTokenHeaderName is the gRPC metadata key carrying the access token.
const AccessTokenHeaderName = "access_token"
