// Package common defines shared constants, sentinel errors and small helpers
// used across the gophauth server and client. Callers should use errors.Is to
// match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrInternal = errors.New("internal error")

	// Credential errors. ErrInvalidCredentials is returned both for unknown
	// emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")

	// One-time token errors (email verification, password reset).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Session errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrInvalidAccessToken  = errors.New("invalid or expired access token")

	// External provider errors.
	ErrOAuthExchangeFailed = errors.New("oauth exchange failed")
	ErrOAuthNotConfigured  = errors.New("oauth provider not configured")
)
