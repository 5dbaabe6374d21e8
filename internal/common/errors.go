// Package common defines shared constants and sentinel errors used across
// the foodhub server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Access token errors.
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenRevoked = errors.New("token revoked")

	// Refresh token lifecycle errors.
	ErrRefreshInvalidOrExpired = errors.New("refresh token invalid or expired")
	ErrRefreshNotRecognized    = errors.New("refresh token not recognized")

	// Signing infrastructure failure while minting a pair.
	ErrTokenIssuanceFailed = errors.New("token issuance failed")

	// Declared user type does not match the authenticated principal.
	ErrPrincipalMismatch = errors.New("principal mismatch")
)
